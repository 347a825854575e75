package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/wamwagii/stk-push/internal/config"
)

// requestTimeout bounds every outbound gateway call. No cancellation is
// exposed beyond it; an in-flight push cannot be aborted by the caller.
const requestTimeout = 30 * time.Second

const (
	transactionType = "CustomerPayBillOnline"

	// Daraja error codes that deserve explicit user guidance.
	errCodeInvalidAmount = "400.002.01"
	errCodeInvalidPhone  = "400.002.02"
)

// User-facing failure messages. Raw provider payloads never reach end users.
const (
	MsgGenericFailure = "Payment failed. Please try again."
	MsgTimeout        = "Request timeout. Please try again."
	MsgInvalidPhone   = "Invalid phone number format"
	MsgInvalidAmount  = "Invalid amount"
)

// APIError surfaces a non-2xx response from the gateway, retaining the raw
// body for diagnostics alongside the decoded error structure when present.
type APIError struct {
	StatusCode int
	Body       []byte
	Provider   *ErrorResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mpesa api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Client calls the Daraja STK push endpoints. All failures are returned as
// errors; translation into user-facing messages happens via FailureMessage.
type Client struct {
	httpClient *http.Client
	tokens     *TokenSource
	cfg        config.MpesaConfig
	now        func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithClock overrides the time source used for timestamp derivation.
// Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
			c.tokens.now = now
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client for both the push and
// token endpoints.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
			c.tokens.httpClient = hc
		}
	}
}

// NewClient builds a gateway client from the injected configuration.
func NewClient(cfg config.MpesaConfig, opts ...Option) *Client {
	hc := &http.Client{Timeout: requestTimeout}
	c := &Client{
		httpClient: hc,
		tokens:     NewTokenSource(cfg.BaseURL, cfg.ConsumerKey, cfg.ConsumerSecret, hc),
		cfg:        cfg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timestamp returns the current local time in the 14-character
// YYYYMMDDHHmmss format the gateway mandates.
func (c *Client) Timestamp() string {
	return c.now().Format("20060102150405")
}

// Password derives the gateway credential for the given timestamp:
// base64(shortCode + passkey + timestamp). Deterministic per input triple;
// the timestamp binding limits the replay window.
func (c *Client) Password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
}

// FormatPhone normalizes a subscriber number into the international MSISDN
// form (254...) the gateway requires.
func FormatPhone(phone string) string {
	cleaned := strings.Join(strings.Fields(phone), "")

	switch {
	case strings.HasPrefix(cleaned, "0"):
		return "254" + cleaned[1:]
	case strings.HasPrefix(cleaned, "+254"):
		return cleaned[1:]
	case !strings.HasPrefix(cleaned, "254"):
		return "254" + cleaned
	}

	return cleaned
}

// STKPush initiates a push-payment prompt on the payer's phone. On 2xx the
// gateway has accepted the request; the payment itself resolves later via
// the asynchronous callback.
func (c *Client) STKPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*STKPushResponse, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.Timestamp()
	msisdn := FormatPhone(phone)

	payload := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.Password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            amount,
		PartyA:            msisdn,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   description,
	}

	body, err := c.post(ctx, "/mpesa/stkpush/v1/processrequest", token, payload)
	if err != nil {
		return nil, err
	}

	var resp STKPushResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode stk push response: %w", err)
	}

	return &resp, nil
}

// QueryStatus asks the gateway for the current state of a previously
// initiated push, identified by its checkout request ID.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error) {
	if checkoutRequestID == "" {
		return nil, errors.New("checkout request id is required")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.Timestamp()
	payload := stkQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.Password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	body, err := c.post(ctx, "/mpesa/stkpushquery/v1/query", token, payload)
	if err != nil {
		return nil, err
	}

	var resp STKQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode stk query response: %w", err)
	}

	return &resp, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload any) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: body}
		var provider ErrorResponse
		if err := json.Unmarshal(body, &provider); err == nil && (provider.ErrorCode != "" || provider.ErrorMessage != "") {
			apiErr.Provider = &provider
		}
		return nil, apiErr
	}

	return body, nil
}

// FailureMessage classifies a gateway error into a short, actionable message
// suitable for end users. Known provider error codes get explicit guidance,
// structured errors surface their own message, timeouts get a retry hint,
// and everything else collapses to a generic failure.
func FailureMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Provider != nil {
			switch apiErr.Provider.ErrorCode {
			case errCodeInvalidPhone:
				return MsgInvalidPhone
			case errCodeInvalidAmount:
				return MsgInvalidAmount
			}
			if apiErr.Provider.ErrorMessage != "" {
				return apiErr.Provider.ErrorMessage
			}
		}
		return MsgGenericFailure
	}

	if isTimeout(err) {
		return MsgTimeout
	}

	return MsgGenericFailure
}

// ProviderDetails extracts the raw provider error body from an error chain,
// for diagnostics. Returns nil when the failure carried no provider payload.
func ProviderDetails(err error) []byte {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
