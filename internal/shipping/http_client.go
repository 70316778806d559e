package shipping

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

// HTTPClient is the REST implementation of Client, same shape as the gateway
// client: bounded timeout, timeout surfaces as retryable.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewHTTPClient(cfg *config.Config) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.ShippingBaseURL,
		apiKey:  cfg.ShippingAPIKey,
		http:    &http.Client{Timeout: cfg.ShippingTimeout},
	}
}

func (c *HTTPClient) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	var out Quote
	if err := c.post(ctx, "/rates", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	var out Shipment
	if err := c.post(ctx, "/shipments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "shipping: encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "shipping: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperr.Integration("SHIPPING_ERROR", "shipping provider timed out", true)
		}
		return apperr.Integration("SHIPPING_ERROR", errors.Wrap(err, "shipping: request failed").Error(), false)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Integration("SHIPPING_ERROR",
			fmt.Sprintf("shipping provider returned status %d", resp.StatusCode), resp.StatusCode >= 500)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Integration("SHIPPING_ERROR", errors.Wrap(err, "shipping: decode response").Error(), false)
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
