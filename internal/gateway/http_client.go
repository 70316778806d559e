package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"go-storefront/internal/apperr"
	"go-storefront/internal/config"

	"github.com/pkg/errors"
)

// HTTPClient is the REST implementation of Client. Every call is bounded by
// the configured timeout; a timeout surfaces as a retryable integration error
// so the enclosing transaction can abort cleanly and the caller may retry.
type HTTPClient struct {
	baseURL string
	secret  string
	http    *http.Client
}

func NewHTTPClient(cfg *config.Config) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.GatewayBaseURL,
		secret:  cfg.GatewaySecretKey,
		http:    &http.Client{Timeout: cfg.GatewayTimeout},
	}
}

func (c *HTTPClient) CreateCheckoutLink(ctx context.Context, amount float64, currency, reference string, customer Customer) (*CheckoutLink, error) {
	payload := map[string]interface{}{
		"amount":    amount,
		"currency":  currency,
		"reference": reference,
		"customer":  customer,
	}
	var out CheckoutLink
	if err := c.post(ctx, "/checkout/initialize", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateVirtualAccount(ctx context.Context, amount float64, reference string, customer Customer) (*VirtualAccount, error) {
	payload := map[string]interface{}{
		"amount":    amount,
		"reference": reference,
		"customer":  customer,
	}
	var out VirtualAccount
	if err := c.post(ctx, "/virtual-accounts", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) VerifyByReference(ctx context.Context, reference string) (*Verification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactions/verify/"+reference, nil)
	if err != nil {
		return nil, errors.Wrap(err, "gateway: build verify request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	var out Verification
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "gateway: encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "gateway: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperr.Integration("GATEWAY_TIMEOUT", "payment gateway timed out", true)
		}
		return apperr.Integration("GATEWAY_ERROR", errors.Wrap(err, "gateway: request failed").Error(), false)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 5xx is the gateway having a bad day; 4xx is a rejection of our request.
		retryable := resp.StatusCode >= 500
		return apperr.Integration("GATEWAY_ERROR",
			fmt.Sprintf("payment gateway returned status %d", resp.StatusCode), retryable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Integration("GATEWAY_ERROR", errors.Wrap(err, "gateway: decode response").Error(), false)
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
