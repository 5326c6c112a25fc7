package payment

import (
	"time"

	"github.com/google/uuid"
)

type PaymentType string

const (
	PaymentTypeHangout      PaymentType = "hangout"
	PaymentTypeSubscription PaymentType = "subscription"
	PaymentTypeFeature      PaymentType = "feature"
)

func ValidPaymentType(t string) bool {
	switch PaymentType(t) {
	case PaymentTypeHangout, PaymentTypeSubscription, PaymentTypeFeature:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Order mirrors a Razorpay order locally. Rows never leave the
// completed state once they reach it.
type Order struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	UserID            uuid.UUID      `json:"user_id" db:"user_id"`
	RazorpayOrderID   string         `json:"razorpay_order_id" db:"razorpay_order_id"`
	Amount            int64          `json:"amount" db:"amount"`
	Currency          string         `json:"currency" db:"currency"`
	PaymentType       PaymentType    `json:"payment_type" db:"payment_type"`
	ReferenceID       *string        `json:"reference_id" db:"reference_id"`
	Metadata          map[string]any `json:"metadata,omitempty" db:"metadata"`
	RazorpayPaymentID *string        `json:"razorpay_payment_id,omitempty" db:"razorpay_payment_id"`
	Status            PaymentStatus  `json:"status" db:"status"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

type CreateOrderRequest struct {
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency,omitempty"`
	PaymentType string         `json:"payment_type"`
	ReferenceID *string        `json:"reference_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type VerifyRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// ProviderOrder is the subset of Razorpay's order object we consume.
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type CreateOrderResponse struct {
	Success bool          `json:"success"`
	Order   ProviderOrder `json:"order"`
	Key     string        `json:"key"`
}

type VerifyResponse struct {
	Success bool         `json:"success"`
	Payment *VerifiedRow `json:"payment,omitempty"`
}

type VerifiedRow struct {
	ID          uuid.UUID     `json:"id"`
	Status      PaymentStatus `json:"status"`
	PaymentType PaymentType   `json:"payment_type"`
	ReferenceID *string       `json:"reference_id"`
}
