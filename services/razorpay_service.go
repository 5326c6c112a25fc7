package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"hapienAPI/internal/types/payment"
)

var ErrPaymentsNotConfigured = errors.New("payment provider not configured")

// RazorpayService mints orders against the Razorpay REST API and checks
// callback signatures. No state of its own; the Order rows live in
// PaymentService.
type RazorpayService struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

func NewRazorpayService() *RazorpayService {
	return &RazorpayService{
		keyID:      os.Getenv("RAZORPAY_KEY_ID"),
		keySecret:  os.Getenv("RAZORPAY_KEY_SECRET"),
		baseURL:    "https://api.razorpay.com",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *RazorpayService) Configured() bool {
	return s.keyID != "" && s.keySecret != ""
}

// KeyID is the public key clients use to open the checkout.
func (s *RazorpayService) KeyID() string {
	return s.keyID
}

// CreateOrder mints an order at the provider. Amount is in the smallest
// currency unit (paise for INR).
func (s *RazorpayService) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]any) (*payment.ProviderOrder, error) {
	if !s.Configured() {
		return nil, ErrPaymentsNotConfigured
	}

	payload, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay payload marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("razorpay request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.keyID, s.keySecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("razorpay order failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var order payment.ProviderOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("razorpay response unmarshal: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("razorpay order: empty order id")
	}

	return &order, nil
}

// VerifySignature recomputes the callback signature: hex HMAC-SHA256
// over "{order_id}|{payment_id}" keyed with the shared secret.
func (s *RazorpayService) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
