package orders

import (
	"context"

	"go-storefront/internal/gateway"
	"go-storefront/internal/models"

	"gorm.io/gorm"
)

// PaymentArtifact is what the payment orchestrator hands back after picking a
// channel: a hosted checkout link, a virtual account, or manual transfer
// instructions. Exactly one of them is set, matching Channel.
type PaymentArtifact struct {
	Channel              string                  `json:"channel"`
	Reference            string                  `json:"reference"`
	CheckoutLink         string                  `json:"checkout_link,omitempty"`
	VirtualAccount       *gateway.VirtualAccount `json:"virtual_account,omitempty"`
	TransferInstructions string                  `json:"transfer_instructions,omitempty"`
}

// PaymentInitiator is the slice of the payment orchestrator order creation
// needs. Initiate must create its pending ledger entry on tx so a failure
// anywhere aborts the whole order.
type PaymentInitiator interface {
	Initiate(ctx context.Context, tx *gorm.DB, store *models.Store, paymentFor string,
		entityID uint, amount float64, preference string, customer gateway.Customer,
		meta string) (*PaymentArtifact, error)
}
