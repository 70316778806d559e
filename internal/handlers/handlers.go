package handlers

import (
	"go-storefront/internal/auth"
	"go-storefront/internal/config"
	"go-storefront/internal/notify"
	"go-storefront/internal/orders"
	"go-storefront/internal/payments"
	"go-storefront/internal/wallet"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Handler bundles the services the HTTP surface delegates to. It contains no
// business logic of its own: validation, pricing, persistence and payment
// decisions all live in the services.
type Handler struct {
	cfg          *config.Config
	db           *gorm.DB
	log          *logrus.Logger
	auth         *auth.Manager
	orders       *orders.Service
	orchestrator *payments.Orchestrator
	withdrawals  *wallet.Queue
	notifier     *notify.Dispatcher
}

func New(cfg *config.Config, db *gorm.DB, log *logrus.Logger, manager *auth.Manager,
	orderSvc *orders.Service, orchestrator *payments.Orchestrator,
	withdrawals *wallet.Queue, notifier *notify.Dispatcher) *Handler {
	return &Handler{
		cfg:          cfg,
		db:           db,
		log:          log,
		auth:         manager,
		orders:       orderSvc,
		orchestrator: orchestrator,
		withdrawals:  withdrawals,
		notifier:     notifier,
	}
}
