package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultVerifyBaseURL = "https://verify.twilio.com/v2"

// TwilioConfig carries the credentials for the Twilio Verify service.
type TwilioConfig struct {
	AccountSID       string
	AuthToken        string
	VerifyServiceSID string
	// BaseURL overrides the Verify API endpoint. Used in tests.
	BaseURL string
}

// TwilioBroker talks to the Twilio Verify v2 REST API. Twilio tracks the
// challenge lifecycle; this client is stateless.
type TwilioBroker struct {
	cfg    TwilioConfig
	client *http.Client
}

var _ Broker = (*TwilioBroker)(nil)

// NewTwilioBroker validates cfg and returns a broker. All three credentials
// are required; the caller is expected to treat an error as fatal at startup.
func NewTwilioBroker(cfg TwilioConfig) (*TwilioBroker, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio account SID and auth token are required")
	}
	if cfg.VerifyServiceSID == "" {
		return nil, errors.New("twilio verify service SID is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultVerifyBaseURL
	}
	return &TwilioBroker{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// verifyResponse is the subset of the Twilio Verify payload we consume.
type verifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (b *TwilioBroker) post(ctx context.Context, path string, form url.Values) (*verifyResponse, int, error) {
	endpoint := fmt.Sprintf("%s/Services/%s/%s", b.cfg.BaseURL, b.cfg.VerifyServiceSID, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.SetBasicAuth(b.cfg.AccountSID, b.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decoding provider response: %w", err)
	}
	return &body, resp.StatusCode, nil
}

// SendCode starts a verification for phone over the SMS channel.
func (b *TwilioBroker) SendCode(ctx context.Context, phone string) (string, error) {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("Channel", "sms")

	body, status, err := b.post(ctx, "Verifications", form)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if status >= 400 {
		return "", fmt.Errorf("%w: %s", ErrDelivery, providerMessage(body, status))
	}
	return body.Status, nil
}

// CheckCode submits (phone, code) for verification. A verification that
// Twilio no longer knows about (consumed or expired) comes back as 404 and
// maps to ResultExpired.
func (b *TwilioBroker) CheckCode(ctx context.Context, phone, code string) (Result, error) {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("Code", code)

	body, status, err := b.post(ctx, "VerificationCheck", form)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerification, err)
	}
	switch {
	case status == http.StatusNotFound:
		return ResultExpired, nil
	case status >= 400:
		return "", fmt.Errorf("%w: %s", ErrVerification, providerMessage(body, status))
	case body.Status == string(ResultApproved):
		return ResultApproved, nil
	default:
		return ResultDenied, nil
	}
}

func providerMessage(body *verifyResponse, status int) string {
	if body != nil && body.Message != "" {
		return body.Message
	}
	return fmt.Sprintf("provider returned HTTP %d", status)
}
