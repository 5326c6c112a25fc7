package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"hapienAPI/utils"
)

var ErrSMSNotConfigured = errors.New("sms provider not configured")

// SMSService forwards OTP codes to the MSG91 templated-send API.
type SMSService struct {
	authKey    string
	templateID string
	baseURL    string
	httpClient *http.Client
}

func NewSMSService() *SMSService {
	return &SMSService{
		authKey:    os.Getenv("MSG91_AUTH_KEY"),
		templateID: os.Getenv("MSG91_TEMPLATE_ID"),
		baseURL:    "https://control.msg91.com/api/v5",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *SMSService) Configured() bool {
	return s.authKey != "" && s.templateID != ""
}

type msg91Response struct {
	RequestID string `json:"request_id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

// SendOTP delivers a one-time code over SMS and returns the provider's
// request id. The phone number is normalized to the fixed country prefix
// before sending.
func (s *SMSService) SendOTP(ctx context.Context, phone, otp string) (string, error) {
	if !s.Configured() {
		return "", ErrSMSNotConfigured
	}

	mobile := utils.NormalizePhone(phone)

	payload, err := json.Marshal(map[string]string{"otp": otp})
	if err != nil {
		return "", fmt.Errorf("sms payload marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/otp?template_id=%s&mobile=%s",
		s.baseURL, url.QueryEscape(s.templateID), url.QueryEscape(mobile))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("sms request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", s.authKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sms send failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var smsResp msg91Response
	if err := json.Unmarshal(body, &smsResp); err != nil {
		return "", fmt.Errorf("sms response unmarshal: %w", err)
	}
	if smsResp.Type == "error" {
		return "", fmt.Errorf("sms send rejected: %s", smsResp.Message)
	}

	return smsResp.RequestID, nil
}
