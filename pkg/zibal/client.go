package zibal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"xui-shop-bot/internal/constants"
	apperrors "xui-shop-bot/internal/errors"
)

const (
	baseURL  = "https://gateway.zibal.ir"
	startURL = baseURL + "/start/%d"

	// ResultOK is the gateway's success code for request/verify/inquiry
	ResultOK = 100

	// Inquiry statuses: 1 = paid and verified, 2 = paid, not yet verified
	StatusVerified = 1
	StatusPaid     = 2
)

// Client talks to the Zibal payment gateway
type Client struct {
	httpClient *resty.Client
	merchant   string
	logger     *logrus.Logger
}

// RequestResult is the response to a payment-link request
type RequestResult struct {
	Result  int    `json:"result"`
	TrackID int64  `json:"trackId"`
	Message string `json:"message"`
}

// VerifyResult is the response to a verify call
type VerifyResult struct {
	Result  int    `json:"result"`
	Status  int    `json:"status"`
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

// InquiryResult is the response to an inquiry call
type InquiryResult struct {
	Result      int    `json:"result"`
	Status      int    `json:"status"`
	Amount      int64  `json:"amount"`
	CardNumber  string `json:"cardNumber"`
	RefNumber   string `json:"refNumber"`
	PaidAt      string `json:"paidAt"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

// Paid reports whether the gateway settled the payment
func (r *InquiryResult) Paid() bool {
	return r.Status == StatusVerified || r.Status == StatusPaid
}

// New creates a new gateway client
func New(merchant string, logger *logrus.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(constants.DefaultTimeout * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient: httpClient,
		merchant:   merchant,
		logger:     logger,
	}
}

// newClientForTesting overrides the gateway base URL
func newClientForTesting(merchant, base string, logger *logrus.Logger) *Client {
	c := New(merchant, logger)
	c.httpClient.SetBaseURL(base)
	return c
}

// CreatePayment requests a payment link. The amount is in toman and is
// converted to rial as the gateway expects.
func (c *Client) CreatePayment(ctx context.Context, amount int64, callbackURL string) (*RequestResult, error) {
	var result RequestResult
	if err := c.post(ctx, "/v1/request", map[string]interface{}{
		"merchant":    c.merchant,
		"amount":      amount * 10,
		"callbackUrl": callbackURL,
	}, &result); err != nil {
		return nil, err
	}

	if result.Result != ResultOK {
		return nil, &apperrors.GatewayError{Operation: "request", Result: result.Result, Message: result.Message}
	}

	return &result, nil
}

// PaymentURL returns the gateway start URL for a track id
func (c *Client) PaymentURL(trackID int64) string {
	return fmt.Sprintf(startURL, trackID)
}

// Verify finalizes a payment with the gateway
func (c *Client) Verify(ctx context.Context, trackID int64) (*VerifyResult, error) {
	var result VerifyResult
	if err := c.post(ctx, "/v1/verify", map[string]interface{}{
		"merchant": c.merchant,
		"trackId":  trackID,
	}, &result); err != nil {
		return nil, err
	}

	c.logger.Infof("Zibal verify for track %d: result=%d status=%d", trackID, result.Result, result.Status)
	return &result, nil
}

// Inquiry fetches the final report for a payment
func (c *Client) Inquiry(ctx context.Context, trackID int64) (*InquiryResult, error) {
	var result InquiryResult
	if err := c.post(ctx, "/v1/inquiry", map[string]interface{}{
		"merchant": c.merchant,
		"trackId":  trackID,
	}, &result); err != nil {
		return nil, err
	}

	if result.Result != ResultOK {
		return nil, &apperrors.GatewayError{Operation: "inquiry", Result: result.Result, Message: result.Message}
	}

	c.logger.Infof("Zibal inquiry for track %d: status=%d ref=%s", trackID, result.Status, result.RefNumber)
	return &result, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body, out interface{}) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post(endpoint)

	if err != nil {
		return fmt.Errorf("gateway request to %s failed: %w", endpoint, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return &apperrors.GatewayError{
			Operation: endpoint,
			Result:    resp.StatusCode(),
			Message:   string(resp.Body()),
		}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to parse gateway response from %s: %w", endpoint, err)
	}

	return nil
}
