// Package orders owns the order state machine: validation, creation with its
// pricing/shipping/payment pipeline, and every allowed transition afterwards.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-storefront/internal/apperr"
	"go-storefront/internal/catalog"
	"go-storefront/internal/database"
	"go-storefront/internal/gateway"
	"go-storefront/internal/ledger"
	"go-storefront/internal/models"
	"go-storefront/internal/notify"
	"go-storefront/internal/pricing"
	"go-storefront/internal/shipping"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// allowedNext encodes the state machine:
// Pending -> Processing -> Shipped -> Completed, with Cancelled/Refunded
// reachable from Pending/Processing. Completed is also reachable directly
// from Pending/Processing because full settlement completes an order whether
// or not it has shipped (digital goods never ship).
var allowedNext = map[string]map[string]bool{
	models.OrderPending: {
		models.OrderProcessing: true,
		models.OrderCompleted:  true,
		models.OrderCancelled:  true,
		models.OrderRefunded:   true,
	},
	models.OrderProcessing: {
		models.OrderShipped:   true,
		models.OrderCompleted: true,
		models.OrderCancelled: true,
		models.OrderRefunded:  true,
	},
	models.OrderShipped: {
		models.OrderCompleted: true,
	},
}

type Service struct {
	db        *gorm.DB
	shipper   shipping.Client
	initiator PaymentInitiator
	notifier  *notify.Dispatcher
	log       *logrus.Logger
	now       func() time.Time
}

func NewService(db *gorm.DB, shipper shipping.Client, initiator PaymentInitiator, notifier *notify.Dispatcher, log *logrus.Logger) *Service {
	return &Service{db: db, shipper: shipper, initiator: initiator, notifier: notifier, log: log, now: time.Now}
}

// CreateOrderRequest is what the storefront sends to place an order.
type CreateOrderRequest struct {
	Lines []pricing.Line `json:"items" binding:"required"`

	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`

	AddressLine    string `json:"address_line"`
	AddressCity    string `json:"address_city"`
	AddressState   string `json:"address_state"`
	AddressCountry string `json:"address_country"`

	DeliveryMethod    string `json:"delivery_method"` // 'delivery', 'pickup' or 'digital'
	ChannelPreference string `json:"channel_preference"`
	CouponCode        string `json:"coupon_code"`
	Note              string `json:"note"`
}

// Create validates the request, prices the cart, quotes shipping when needed,
// initiates payment and persists the order with its pending ledger entry,
// all inside one transaction. Notifications go out after the commit and can
// never roll it back.
func (s *Service) Create(ctx context.Context, storeSlug string, req CreateOrderRequest) (*models.Order, *PaymentArtifact, error) {
	if len(req.Lines) == 0 {
		return nil, nil, apperr.Validation("EMPTY_CART", "order must contain at least one item")
	}

	store, err := storeBySlug(s.db.WithContext(ctx), storeSlug)
	if err != nil {
		return nil, nil, err
	}

	var order models.Order
	var artifact *PaymentArtifact

	err = database.WithinTransaction(ctx, s.db, func(tx *gorm.DB) error {
		engine := pricing.New(catalog.New(tx))
		quote, err := engine.ComputeTotal(ctx, store.ID, req.Lines, req.CouponCode)
		if err != nil {
			return err
		}

		physical := false
		for _, line := range quote.Lines {
			if !line.Digital {
				physical = true
				break
			}
		}
		if physical {
			if err := requireShippingInfo(req); err != nil {
				return err
			}
		}

		// Third-party quote only for courier delivery of physical goods.
		var shippingFee float64
		if physical && req.DeliveryMethod == "delivery" {
			fee, err := s.quoteShipping(ctx, store, req, quote)
			if err != nil {
				return err
			}
			shippingFee = fee
		}

		// Reserve stock. The decrement is conditional on enough being left,
		// so two overlapping orders cannot both take the last unit.
		for _, line := range quote.Lines {
			if line.Digital {
				continue
			}
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", line.ProductID, line.Quantity).
				Update("stock", gorm.Expr("stock - ?", line.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Validation("OUT_OF_STOCK",
					fmt.Sprintf("insufficient stock for %s", line.ProductName))
			}
		}

		// Burn one coupon use, guarded by the usage cap.
		if quote.CouponID != 0 {
			res := tx.Model(&models.Coupon{}).
				Where("id = ? AND (max_usage = 0 OR times_used < max_usage)", quote.CouponID).
				Update("times_used", gorm.Expr("times_used + 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Validation("INVALID_COUPON", "coupon usage limit reached")
			}
		}

		total := pricing.Round2(quote.Total + shippingFee)
		order = models.Order{
			OrderNumber:     newOrderNumber(),
			StoreID:         store.ID,
			CustomerName:    req.CustomerName,
			CustomerEmail:   req.CustomerEmail,
			CustomerPhone:   req.CustomerPhone,
			AddressLine:     req.AddressLine,
			AddressCity:     req.AddressCity,
			AddressState:    req.AddressState,
			AddressCountry:  req.AddressCountry,
			Status:          models.OrderPending,
			PaymentStatus:   models.PaymentUnpaid,
			AmountPaid:      0,
			AmountLeftToPay: total,
			TotalAmount:     total,
			DeliveryMethod:  req.DeliveryMethod,
			ShippingFee:     shippingFee,
			CouponCode:      req.CouponCode,
			Note:            req.Note,
			CreatedAt:       s.now(),
		}
		for _, line := range quote.Lines {
			order.Items = append(order.Items, models.OrderItem{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				UnitPrice:   line.UnitPrice,
				Size:        line.Size,
				Color:       line.Color,
				Quantity:    line.Quantity,
				LineTotal:   line.LineTotal,
				Digital:     line.Digital,
			})
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// Any gateway failure here aborts the whole order: no half-created
		// order, no orphan ledger entry.
		artifact, err = s.initiator.Initiate(ctx, tx, store, models.PayForOrder, order.ID,
			total, req.ChannelPreference,
			gateway.Customer{Name: req.CustomerName, Email: req.CustomerEmail, Phone: req.CustomerPhone},
			"order "+order.OrderNumber)
		if err != nil {
			return err
		}

		order.PaymentChannel = artifact.Channel
		order.PaymentReference = artifact.Reference
		order.CheckoutLink = artifact.CheckoutLink
		return tx.Model(&order).Updates(map[string]interface{}{
			"payment_channel":   artifact.Channel,
			"payment_reference": artifact.Reference,
			"checkout_link":     artifact.CheckoutLink,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{
		"store_id":  store.ID,
		"order":     order.OrderNumber,
		"total":     order.TotalAmount,
		"channel":   order.PaymentChannel,
		"reference": order.PaymentReference,
	}).Info("order created")

	s.notifyOrderCreated(store, &order)
	return &order, artifact, nil
}

// UpdateStatus is the owner-driven transition. Terminal states reject
// everything; the rest follow the state machine.
func (s *Service) UpdateStatus(ctx context.Context, ownerStoreID, orderID uint, target string) (*models.Order, error) {
	var updated *models.Order
	err := database.WithinTransaction(ctx, s.db, func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.StoreID != ownerStoreID {
			return apperr.Unauthorized("UNAUTHORIZED", "order belongs to another store")
		}
		if isTerminal(order.Status) {
			return apperr.Conflict("ORDER_UPDATE_FAILED", "no transition out of a terminal state")
		}
		if !allowedNext[order.Status][target] {
			return apperr.Conflict("ORDER_UPDATE_FAILED",
				fmt.Sprintf("cannot move order from %s to %s", order.Status, target))
		}

		if target == models.OrderCompleted {
			// Manual completion (e.g. the owner confirmed a manual transfer
			// offline) settles the books the same way reconciliation does,
			// and retires the pending ledger entry so a late gateway event
			// for the same reference no-ops instead of fighting the flip.
			outstanding := order.AmountLeftToPay
			if order.PaymentReference != "" {
				if _, err := ledger.New().TryMarkProcessed(tx, order.PaymentReference,
					models.TxSuccessful, outstanding, s.now()); err != nil {
					return err
				}
			}
			if _, err := ApplySettlement(tx, order.ID, outstanding, s.now()); err != nil {
				return err
			}
		} else if err := tx.Model(order).Update("status", target).Error; err != nil {
			return err
		}

		updated, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateNote is the only customer-editable field, and only before the order
// is finalized. The coupon, lines and totals are immutable after creation.
// The storefront slug must match the order's store; an order reached through
// the wrong storefront does not exist as far as that storefront is concerned.
func (s *Service) UpdateNote(ctx context.Context, storeSlug string, orderID uint, note string) (*models.Order, error) {
	var updated *models.Order
	err := database.WithinTransaction(ctx, s.db, func(tx *gorm.DB) error {
		order, err := s.storefrontOrder(tx, storeSlug, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderPending && order.Status != models.OrderProcessing {
			return apperr.Conflict("ORDER_UPDATE_FAILED", "order can no longer be edited")
		}
		if err := tx.Model(order).Update("note", note).Error; err != nil {
			return err
		}
		updated, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkShipped records the tracking number and moves Processing -> Shipped,
// booking the shipment with the provider first.
func (s *Service) MarkShipped(ctx context.Context, ownerStoreID, orderID uint) (*models.Order, error) {
	var updated *models.Order
	err := database.WithinTransaction(ctx, s.db, func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.StoreID != ownerStoreID {
			return apperr.Unauthorized("UNAUTHORIZED", "order belongs to another store")
		}
		if !allowedNext[order.Status][models.OrderShipped] {
			return apperr.Conflict("ORDER_UPDATE_FAILED",
				fmt.Sprintf("cannot ship an order in state %s", order.Status))
		}

		var store models.Store
		if err := tx.First(&store, order.StoreID).Error; err != nil {
			return err
		}
		shipment, err := s.shipper.CreateShipment(ctx, shipping.ShipmentRequest{
			QuoteRequest: shipmentDetails(&store, order),
			Reference:    order.OrderNumber,
		})
		if err != nil {
			return err
		}

		if err := tx.Model(order).Updates(map[string]interface{}{
			"status":          models.OrderShipped,
			"tracking_number": shipment.TrackingNumber,
		}).Error; err != nil {
			return err
		}
		updated, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RequestCancellation is advisory: it tells the owner the customer wants out,
// it does not move the state machine.
func (s *Service) RequestCancellation(ctx context.Context, storeSlug string, orderID uint, reason string) error {
	return s.advise(ctx, storeSlug, orderID, "Cancellation requested",
		func(order *models.Order) string {
			return fmt.Sprintf("Customer requests cancellation of order %s: %s", order.OrderNumber, reason)
		})
}

// RequestConfirmation asks the owner to confirm a pending order. Advisory only.
func (s *Service) RequestConfirmation(ctx context.Context, storeSlug string, orderID uint) error {
	return s.advise(ctx, storeSlug, orderID, "Confirmation requested",
		func(order *models.Order) string {
			return fmt.Sprintf("Customer asks you to confirm order %s", order.OrderNumber)
		})
}

// ListForStore returns the store's orders, newest first.
func (s *Service) ListForStore(ctx context.Context, storeID uint) ([]models.Order, error) {
	var list []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("store_id = ?", storeID).
		Order("created_at desc").
		Find(&list).Error
	return list, err
}

// GetForStore loads one order, enforcing store scope.
func (s *Service) GetForStore(ctx context.Context, storeID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("ORDER_NOT_FOUND", "order not found")
	}
	if err != nil {
		return nil, err
	}
	if order.StoreID != storeID {
		return nil, apperr.Unauthorized("UNAUTHORIZED", "order belongs to another store")
	}
	return &order, nil
}

func (s *Service) advise(ctx context.Context, storeSlug string, orderID uint, subject string, body func(*models.Order) string) error {
	order, err := s.storefrontOrder(s.db.WithContext(ctx), storeSlug, orderID)
	if err != nil {
		return err
	}
	var owner models.StoreOwner
	var store models.Store
	if err := s.db.WithContext(ctx).First(&store, order.StoreID).Error; err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).First(&owner, store.OwnerID).Error; err != nil {
		return err
	}
	s.notifier.Dispatch(owner.Email, subject, body(order))
	return nil
}

// storefrontOrder loads an order through a storefront slug. An order that
// belongs to a different store is reported as not found, not as forbidden:
// the storefront route is public and must not confirm the order exists.
func (s *Service) storefrontOrder(tx *gorm.DB, storeSlug string, orderID uint) (*models.Order, error) {
	store, err := storeBySlug(tx, storeSlug)
	if err != nil {
		return nil, err
	}
	order, err := loadOrder(tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.StoreID != store.ID {
		return nil, apperr.NotFound("ORDER_NOT_FOUND", "order not found")
	}
	return order, nil
}

func storeBySlug(tx *gorm.DB, slug string) (*models.Store, error) {
	var store models.Store
	err := tx.Where("slug = ?", slug).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("STORE_NOT_FOUND", "store not found")
	}
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (s *Service) quoteShipping(ctx context.Context, store *models.Store, req CreateOrderRequest, quote *pricing.Quote) (float64, error) {
	quoteReq := shipping.QuoteRequest{
		Origin: shipping.Address{
			Line: store.AddressLine, City: store.AddressCity,
			State: store.AddressState, Country: store.AddressCountry,
		},
		Destination: shipping.Address{
			Line: req.AddressLine, City: req.AddressCity,
			State: req.AddressState, Country: req.AddressCountry,
		},
		DeclaredValue: quote.Total,
	}
	for _, line := range quote.Lines {
		if line.Digital {
			continue
		}
		quoteReq.WeightKG += line.WeightKG * float64(line.Quantity)
		quoteReq.Items = append(quoteReq.Items, shipping.Item{
			Name: line.ProductName, Quantity: line.Quantity, WeightKG: line.WeightKG,
		})
	}
	result, err := s.shipper.Quote(ctx, quoteReq)
	if err != nil {
		return 0, err
	}
	return result.Fee, nil
}

func (s *Service) notifyOrderCreated(store *models.Store, order *models.Order) {
	if order.CustomerEmail != "" {
		s.notifier.Dispatch(order.CustomerEmail, "Order received",
			fmt.Sprintf("Your order %s with %s totals %.2f.", order.OrderNumber, store.Name, order.TotalAmount))
	}
	var owner models.StoreOwner
	if err := s.db.First(&owner, store.OwnerID).Error; err != nil {
		s.log.Warnf("owner lookup for order notification failed: %v", err)
		return
	}
	s.notifier.Dispatch(owner.Email, "New order",
		fmt.Sprintf("Order %s for %.2f is awaiting payment.", order.OrderNumber, order.TotalAmount))
}

func shipmentDetails(store *models.Store, order *models.Order) shipping.QuoteRequest {
	req := shipping.QuoteRequest{
		Origin: shipping.Address{
			Line: store.AddressLine, City: store.AddressCity,
			State: store.AddressState, Country: store.AddressCountry,
		},
		Destination: shipping.Address{
			Line: order.AddressLine, City: order.AddressCity,
			State: order.AddressState, Country: order.AddressCountry,
		},
		DeclaredValue: order.TotalAmount,
	}
	for _, item := range order.Items {
		if item.Digital {
			continue
		}
		req.Items = append(req.Items, shipping.Item{
			Name: item.ProductName, Quantity: item.Quantity,
		})
	}
	return req
}

func requireShippingInfo(req CreateOrderRequest) error {
	missing := func(v string) bool { return strings.TrimSpace(v) == "" }
	if missing(req.AddressLine) || missing(req.AddressCity) ||
		missing(req.AddressState) || missing(req.AddressCountry) {
		return apperr.Validation("VALIDATION_ERROR", "a complete shipping address is required for physical goods")
	}
	if missing(req.CustomerEmail) || missing(req.CustomerPhone) {
		return apperr.Validation("VALIDATION_ERROR", "customer email and phone are required for physical goods")
	}
	return nil
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
