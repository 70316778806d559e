// Package gateway talks to the hosted payment provider. The core only ever
// sees the Client interface; the HTTP implementation keeps wire details and
// timeouts out of the financial code.
package gateway

import (
	"context"
	"time"
)

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CheckoutLink is a hosted card-checkout page for a single reference.
type CheckoutLink struct {
	Link string `json:"link"`
}

// VirtualAccount is a short-lived bank account scoped to one payment.
type VirtualAccount struct {
	AccountNumber string    `json:"account_number"`
	BankName      string    `json:"bank_name"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Verification is the gateway's answer to "what happened to this reference?".
type Verification struct {
	Status        string    `json:"status"` // "success" or a failure code
	SettledAmount float64   `json:"settled_amount"`
	PaidAt        time.Time `json:"paid_at"`
}

// StatusSuccess is the gateway's settlement confirmation code.
const StatusSuccess = "success"

type Client interface {
	CreateCheckoutLink(ctx context.Context, amount float64, currency, reference string, customer Customer) (*CheckoutLink, error)
	CreateVirtualAccount(ctx context.Context, amount float64, reference string, customer Customer) (*VirtualAccount, error)
	VerifyByReference(ctx context.Context, reference string) (*Verification, error)
}
