package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Method tag stamped on payments confirmed through email verification.
const MethodUPIEmail = "upi_email"

// VerifyPaymentRequest is the payload sent to the order service once a
// confirmation email has been matched, parsed, and reconciled.
type VerifyPaymentRequest struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Issuer        string  `json:"issuer"`
	Reference     string  `json:"reference"`
	Method        string  `json:"method"`
}

// VerifyPaymentResponse is the order service's verdict.
type VerifyPaymentResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

// APIError wraps non-2xx responses from the order service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("orders api: status=%d body=%s", e.StatusCode, e.Body)
}

// Client is a minimal bearer-auth JSON client for the order service.
type Client struct {
	BaseURL    string
	Secret     string
	HTTPClient *http.Client
}

// NewClient creates a client with sane defaults.
func NewClient(baseURL, secret string) *Client {
	return &Client{BaseURL: baseURL, Secret: secret}
}

// VerifyOrderPayment marks the order's payment verified. The call is
// idempotent on the order service side; any error here (transport, non-2xx,
// undecodable body) is treated by the caller as an update failure.
func (c *Client) VerifyOrderPayment(ctx context.Context, req VerifyPaymentRequest) (VerifyPaymentResponse, error) {
	var resp VerifyPaymentResponse

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return resp, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/internal/orders/verify-payment", &buf)
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Secret != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Secret)
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(httpResp.Body)
		return resp, &APIError{StatusCode: httpResp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return VerifyPaymentResponse{}, fmt.Errorf("orders api: decode response: %w", err)
	}
	return resp, nil
}
