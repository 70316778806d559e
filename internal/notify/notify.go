// Package notify delivers customer/owner messages. Everything here is
// fire-and-forget: a failed notification is logged and dropped, it never
// touches a financial commit.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go-storefront/internal/config"

	"github.com/sirupsen/logrus"
)

type Sender interface {
	Send(ctx context.Context, recipient, subject, content string) error
}

// HTTPSender posts messages to the mail relay service.
type HTTPSender struct {
	baseURL string
	http    *http.Client
}

func NewHTTPSender(cfg *config.Config) *HTTPSender {
	return &HTTPSender{
		baseURL: cfg.NotifyBaseURL,
		http:    &http.Client{Timeout: cfg.NotifyTimeout},
	}
}

func (s *HTTPSender) Send(ctx context.Context, recipient, subject, content string) error {
	body, err := json.Marshal(map[string]string{
		"recipient": recipient,
		"subject":   subject,
		"content":   content,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: relay returned status %d", resp.StatusCode)
	}
	return nil
}

// Dispatcher runs sends on their own goroutine, after the caller's transaction
// has committed, and logs failures.
type Dispatcher struct {
	sender Sender
	log    *logrus.Logger
}

func NewDispatcher(sender Sender, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, log: log}
}

// Dispatch sends without blocking the caller.
func (d *Dispatcher) Dispatch(recipient, subject, content string) {
	go func() {
		if err := d.sender.Send(context.Background(), recipient, subject, content); err != nil {
			d.log.WithFields(logrus.Fields{
				"recipient": recipient,
				"subject":   subject,
			}).Warnf("notification failed: %v", err)
		}
	}()
}
