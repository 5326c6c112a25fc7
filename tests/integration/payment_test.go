package integration

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hapienAPI/handlers"
	"hapienAPI/internal/types/payment"
	"hapienAPI/services"
	"hapienAPI/tests/helpers"
)

const testRazorpaySecret = "test_secret_key"

func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testRazorpaySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestOrderID() string {
	return fmt.Sprintf("order_test_%d", time.Now().UnixNano())
}

func verifyPaymentRequest(h *handlers.PaymentHandler, caller uuid.UUID, req payment.VerifyRequest) *httptest.ResponseRecorder {
	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq = helpers.AuthenticatedRequest(httpReq, caller)

	rr := httptest.NewRecorder()
	h.VerifyPayment(rr, httpReq)
	return rr
}

func TestVerifyPayment_ValidSignatureCompletesOrder(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", testRazorpaySecret)

	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	paymentService := services.NewPaymentService(pool, notificationService)
	razorpayService := services.NewRazorpayService()
	paymentHandler := handlers.NewPaymentHandler(razorpayService, paymentService)

	userID := helpers.CreateTestUser(t, pool, "Payer")
	orderID := newTestOrderID()

	ctx := context.Background()
	_, err := paymentService.CreatePendingOrder(ctx, userID, orderID, &payment.CreateOrderRequest{
		Amount:      49900,
		Currency:    "INR",
		PaymentType: "subscription",
	})
	require.NoError(t, err)

	rr := verifyPaymentRequest(paymentHandler, userID, payment.VerifyRequest{
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: "pay_test_123",
		RazorpaySignature: signPayment(orderID, "pay_test_123"),
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp payment.VerifyResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Payment)

	order, err := paymentService.GetOrder(ctx, userID, orderID)
	require.NoError(t, err)
	assert.Equal(t, payment.PaymentCompleted, order.Status)
	require.NotNil(t, order.RazorpayPaymentID)
	assert.Equal(t, "pay_test_123", *order.RazorpayPaymentID)
}

func TestVerifyPayment_ForgedSignatureMarksFailed(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", testRazorpaySecret)

	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	paymentService := services.NewPaymentService(pool, notificationService)
	razorpayService := services.NewRazorpayService()
	paymentHandler := handlers.NewPaymentHandler(razorpayService, paymentService)

	userID := helpers.CreateTestUser(t, pool, "Payer")
	orderID := newTestOrderID()

	ctx := context.Background()
	_, err := paymentService.CreatePendingOrder(ctx, userID, orderID, &payment.CreateOrderRequest{
		Amount:      49900,
		Currency:    "INR",
		PaymentType: "hangout",
	})
	require.NoError(t, err)

	rr := verifyPaymentRequest(paymentHandler, userID, payment.VerifyRequest{
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: "pay_test_123",
		RazorpaySignature: "deadbeef",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	order, err := paymentService.GetOrder(ctx, userID, orderID)
	require.NoError(t, err)
	assert.Equal(t, payment.PaymentFailed, order.Status)
}

func TestVerifyPayment_CompletedOrderIsImmutable(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", testRazorpaySecret)

	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	paymentService := services.NewPaymentService(pool, notificationService)
	razorpayService := services.NewRazorpayService()
	paymentHandler := handlers.NewPaymentHandler(razorpayService, paymentService)

	userID := helpers.CreateTestUser(t, pool, "Payer")
	orderID := newTestOrderID()

	ctx := context.Background()
	_, err := paymentService.CreatePendingOrder(ctx, userID, orderID, &payment.CreateOrderRequest{
		Amount:      9900,
		Currency:    "INR",
		PaymentType: "feature",
	})
	require.NoError(t, err)

	req := payment.VerifyRequest{
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: "pay_test_456",
		RazorpaySignature: signPayment(orderID, "pay_test_456"),
	}

	require.Equal(t, http.StatusOK, verifyPaymentRequest(paymentHandler, userID, req).Code)

	// Replaying the verification finds no updatable row.
	assert.Equal(t, http.StatusInternalServerError, verifyPaymentRequest(paymentHandler, userID, req).Code)

	// A later forged attempt cannot flip the row back to failed either.
	req.RazorpaySignature = "deadbeef"
	verifyPaymentRequest(paymentHandler, userID, req)

	order, err := paymentService.GetOrder(ctx, userID, orderID)
	require.NoError(t, err)
	assert.Equal(t, payment.PaymentCompleted, order.Status)
}

func TestVerifyPayment_ScopedToOwner(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", testRazorpaySecret)

	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	paymentService := services.NewPaymentService(pool, notificationService)
	razorpayService := services.NewRazorpayService()
	paymentHandler := handlers.NewPaymentHandler(razorpayService, paymentService)

	owner := helpers.CreateTestUser(t, pool, "Owner")
	other := helpers.CreateTestUser(t, pool, "Other")
	orderID := newTestOrderID()

	ctx := context.Background()
	_, err := paymentService.CreatePendingOrder(ctx, owner, orderID, &payment.CreateOrderRequest{
		Amount:      9900,
		Currency:    "INR",
		PaymentType: "hangout",
	})
	require.NoError(t, err)

	// A correct signature does not let another user complete the order.
	rr := verifyPaymentRequest(paymentHandler, other, payment.VerifyRequest{
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: "pay_test_789",
		RazorpaySignature: signPayment(orderID, "pay_test_789"),
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	order, err := paymentService.GetOrder(ctx, owner, orderID)
	require.NoError(t, err)
	assert.Equal(t, payment.PaymentPending, order.Status)
}

func TestVerifyPayment_MissingFields(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", testRazorpaySecret)

	razorpayService := services.NewRazorpayService()
	paymentHandler := handlers.NewPaymentHandler(razorpayService, nil)

	rr := verifyPaymentRequest(paymentHandler, uuid.New(), payment.VerifyRequest{
		RazorpayOrderID: "order_only",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
