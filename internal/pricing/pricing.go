// Package pricing turns a cart into an authoritative total. It is pure
// computation over catalog reads: calling it twice with the same inputs gives
// the same quote and leaves nothing behind.
package pricing

import (
	"context"
	"math"
	"time"

	"go-storefront/internal/apperr"
	"go-storefront/internal/models"
)

// CatalogReader is the lookup surface the engine needs.
type CatalogReader interface {
	ProductByID(ctx context.Context, storeID, id uint) (*models.Product, error)
	CouponByCode(ctx context.Context, storeID uint, code string) (*models.Coupon, error)
}

// Line is one requested cart entry.
type Line struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// QuoteLine is a priced line, carrying the product snapshot fields order
// creation needs.
type QuoteLine struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Size        string  `json:"size"`
	Color       string  `json:"color"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"` // After product + item-scope coupon discounts
	LineTotal   float64 `json:"line_total"`
	Digital     bool    `json:"digital"`
	WeightKG    float64 `json:"weight_kg"`
}

// Quote is the computed cart total with its discount breakdown.
type Quote struct {
	Total       float64     `json:"total"`
	Discount    float64     `json:"discount"`
	DiscountPct float64     `json:"discount_pct"`
	Lines       []QuoteLine `json:"lines"`
	CouponID    uint        `json:"-"`
}

type Engine struct {
	catalog CatalogReader
	now     func() time.Time
}

func New(catalog CatalogReader) *Engine {
	return &Engine{catalog: catalog, now: time.Now}
}

// NewAt builds an engine with a fixed clock. Used in tests.
func NewAt(catalog CatalogReader, now func() time.Time) *Engine {
	return &Engine{catalog: catalog, now: now}
}

// ComputeTotal prices the cart.
//
// Per line: resolve the base price (size map when the product is not
// uniform-priced, falling back to the default), subtract the product discount,
// then a 'products'-scoped coupon if it names this product. A 'cart'-scoped
// coupon applies one more pass over the discounted subtotal. Discounts stack
// sequentially off the already-discounted price and every step floors at 0.
func (e *Engine) ComputeTotal(ctx context.Context, storeID uint, lines []Line, couponCode string) (*Quote, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("EMPTY_CART", "at least one item is required")
	}

	// Resolve and vet the coupon up front. Expiry is checked at evaluation
	// time: a coupon that was valid when the cart was built is still rejected
	// here if it lapsed in between.
	var coupon *models.Coupon
	if couponCode != "" {
		found, err := e.catalog.CouponByCode(ctx, storeID, couponCode)
		if err != nil {
			return nil, err
		}
		if e.now().After(found.ExpiresAt) {
			return nil, apperr.Validation("INVALID_COUPON", "coupon has expired")
		}
		if found.MaxUsage > 0 && found.TimesUsed >= found.MaxUsage {
			return nil, apperr.Validation("INVALID_COUPON", "coupon usage limit reached")
		}
		coupon = found
	}

	couponProducts := make(map[uint]bool)
	if coupon != nil && coupon.Scope == models.CouponScopeProducts {
		for _, cp := range coupon.Products {
			couponProducts[cp.ProductID] = true
		}
	}

	quote := &Quote{}
	var subtotalBefore float64 // Sum of base prices, before any discount
	var subtotal float64       // Sum after product + item-scope coupon discounts

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, apperr.Validation("VALIDATION_ERROR", "line quantity must be positive")
		}

		product, err := e.catalog.ProductByID(ctx, storeID, line.ProductID)
		if err != nil {
			return nil, err
		}

		base := resolveBasePrice(product, line.Size)
		unit := base - base*product.DiscountPercent/100

		if coupon != nil && coupon.Scope == models.CouponScopeProducts && couponProducts[product.ID] {
			unit = applyDiscount(unit, coupon.Type, coupon.Value)
		}

		subtotalBefore += base * float64(line.Quantity)
		subtotal += unit * float64(line.Quantity)

		quote.Lines = append(quote.Lines, QuoteLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Size:        line.Size,
			Color:       line.Color,
			Quantity:    line.Quantity,
			UnitPrice:   Round2(unit),
			LineTotal:   Round2(unit * float64(line.Quantity)),
			Digital:     product.Digital,
			WeightKG:    product.WeightKG,
		})
	}

	total := subtotal
	if coupon != nil && coupon.Scope == models.CouponScopeCart {
		total = applyDiscount(total, coupon.Type, coupon.Value)
	}

	quote.Total = Round2(total)
	quote.Discount = Round2(subtotalBefore - total)
	if subtotalBefore > 0 {
		quote.DiscountPct = Round2(quote.Discount / subtotalBefore * 100)
	}
	if coupon != nil {
		quote.CouponID = coupon.ID
	}
	return quote, nil
}

// resolveBasePrice picks the per-size price when the product is size-priced,
// falling back to the default when the requested size has no entry.
func resolveBasePrice(product *models.Product, size string) float64 {
	if product.UniformPricing {
		return product.Price
	}
	for _, sp := range product.SizePrices {
		if sp.Size == size {
			return sp.Price
		}
	}
	return product.Price
}

// applyDiscount runs one coupon pass over a price, floored at 0.
func applyDiscount(price float64, couponType string, value float64) float64 {
	var discounted float64
	switch couponType {
	case models.CouponFixed:
		discounted = price - value
	default: // percentage
		discounted = price - price*value/100
	}
	if discounted < 0 {
		return 0
	}
	return discounted
}

// Round2 rounds to 2 decimal places, the NGN minor unit.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
