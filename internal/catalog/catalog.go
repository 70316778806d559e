// Package catalog is the read side of the product/coupon records. The pricing
// engine and order creation only ever read through it; catalog writes belong
// to the store-owner surface.
package catalog

import (
	"context"
	"errors"

	"go-storefront/internal/apperr"
	"go-storefront/internal/models"

	"gorm.io/gorm"
)

type Catalog struct {
	db *gorm.DB
}

// New wraps a gorm handle. Pass a transaction handle to read inside an open
// transaction.
func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) ProductByID(ctx context.Context, storeID, id uint) (*models.Product, error) {
	var product models.Product
	err := c.db.WithContext(ctx).
		Preload("SizePrices").
		Where("store_id = ?", storeID).
		First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("PRODUCT_NOT_FOUND", "product not found")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Catalog) CouponByCode(ctx context.Context, storeID uint, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := c.db.WithContext(ctx).
		Preload("Products").
		Where("store_id = ? AND code = ?", storeID, code).
		First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("INVALID_COUPON", "coupon does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}
