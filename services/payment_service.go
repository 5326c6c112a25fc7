package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hapienAPI/internal/notification"
	"hapienAPI/internal/types/payment"
)

var ErrOrderUpdateFailed = errors.New("no matching order to update")

// PaymentService owns the local payment_orders mirror of Razorpay
// orders. Completed rows are immutable: every UPDATE excludes them.
type PaymentService struct {
	db       *pgxpool.Pool
	notifier NotificationCreator
}

func NewPaymentService(db *pgxpool.Pool, notifier NotificationCreator) *PaymentService {
	return &PaymentService{db: db, notifier: notifier}
}

// CreatePendingOrder records a freshly minted provider order. Callers
// treat a failure here as non-fatal because the provider order already
// exists at Razorpay either way.
func (s *PaymentService) CreatePendingOrder(ctx context.Context, userID uuid.UUID, providerOrderID string, req *payment.CreateOrderRequest) (*payment.Order, error) {
	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order metadata: %w", err)
	}

	query := `
	INSERT INTO payment_orders
		(id, user_id, razorpay_order_id, amount, currency, payment_type, reference_id, metadata, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', NOW(), NOW())
	RETURNING id, created_at, updated_at
	`
	order := &payment.Order{
		UserID:          userID,
		RazorpayOrderID: providerOrderID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		PaymentType:     payment.PaymentType(req.PaymentType),
		ReferenceID:     req.ReferenceID,
		Metadata:        req.Metadata,
		Status:          payment.PaymentPending,
	}
	err = s.db.QueryRow(ctx, query,
		uuid.New(), userID, providerOrderID, req.Amount, req.Currency,
		req.PaymentType, req.ReferenceID, metadata,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	return order, nil
}

// MarkCompleted finishes the order, scoped to the caller so nobody can
// confirm a stranger's payment. Returns ErrOrderUpdateFailed when no
// pending or failed row matches (wrong user, unknown order, or already
// completed).
func (s *PaymentService) MarkCompleted(ctx context.Context, userID uuid.UUID, providerOrderID, paymentID, signature string) (*payment.VerifiedRow, error) {
	query := `
	UPDATE payment_orders
	SET status = 'completed', razorpay_payment_id = $3, razorpay_signature = $4, updated_at = NOW()
	WHERE razorpay_order_id = $1 AND user_id = $2 AND status <> 'completed'
	RETURNING id, status, payment_type, reference_id
	`
	row := &payment.VerifiedRow{}
	err := s.db.QueryRow(ctx, query, providerOrderID, userID, paymentID, signature).
		Scan(&row.ID, &row.Status, &row.PaymentType, &row.ReferenceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderUpdateFailed
		}
		return nil, fmt.Errorf("failed to complete order: %w", err)
	}

	s.emitPaymentCompleted(userID, providerOrderID, row)
	return row, nil
}

// MarkFailed records a failed verification. Completed rows stay put.
func (s *PaymentService) MarkFailed(ctx context.Context, userID uuid.UUID, providerOrderID string) error {
	query := `
	UPDATE payment_orders
	SET status = 'failed', updated_at = NOW()
	WHERE razorpay_order_id = $1 AND user_id = $2 AND status <> 'completed'
	`
	if _, err := s.db.Exec(ctx, query, providerOrderID, userID); err != nil {
		return fmt.Errorf("failed to mark order failed: %w", err)
	}
	return nil
}

// GetOrder fetches a caller's order by provider order id.
func (s *PaymentService) GetOrder(ctx context.Context, userID uuid.UUID, providerOrderID string) (*payment.Order, error) {
	query := `
	SELECT id, user_id, razorpay_order_id, amount, currency, payment_type, reference_id, metadata, razorpay_payment_id, status, created_at, updated_at
	FROM payment_orders
	WHERE razorpay_order_id = $1 AND user_id = $2
	`
	order := &payment.Order{}
	var metadata []byte
	err := s.db.QueryRow(ctx, query, providerOrderID, userID).Scan(
		&order.ID, &order.UserID, &order.RazorpayOrderID, &order.Amount,
		&order.Currency, &order.PaymentType, &order.ReferenceID, &metadata,
		&order.RazorpayPaymentID, &order.Status, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderUpdateFailed
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &order.Metadata); err != nil {
			log.Printf("PaymentService: bad metadata on order %s: %v", order.ID, err)
		}
	}
	return order, nil
}

func (s *PaymentService) emitPaymentCompleted(userID uuid.UUID, providerOrderID string, row *payment.VerifiedRow) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		req := &notification.CreateNotificationRequest{
			UserID:  userID,
			Type:    notification.NotificationPaymentCompleted,
			Title:   "Payment successful",
			Message: fmt.Sprintf("Your %s payment went through", row.PaymentType),
			Data: map[string]any{
				"order_id":     providerOrderID,
				"payment_type": string(row.PaymentType),
			},
		}
		if _, err := s.notifier.CreateNotification(ctx, req); err != nil {
			log.Printf("PaymentService: failed to notify %s: %v", userID, err)
		}
	}()
}
