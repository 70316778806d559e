package database

import (
	"time"

	"go-storefront/internal/models"

	"gorm.io/gorm"
)

// SalesReport holds a store's headline numbers.
type SalesReport struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalOrders  int64   `json:"total_orders"`
	TopSelling   []struct {
		ProductName string  `json:"product_name"`
		Sold        int     `json:"sold"`
		Revenue     float64 `json:"revenue"`
	} `json:"top_selling"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
}

// StoreSalesReport aggregates completed orders and settled ledger entries for
// one store in a date range. Read-only: nothing here mutates financial state.
func StoreSalesReport(db *gorm.DB, storeID uint, start, end time.Time) (*SalesReport, error) {
	var report SalesReport

	// COALESCE ensures we get 0 instead of NULL if no sales exist
	err := db.Model(&models.Order{}).
		Where("store_id = ? AND status = ? AND created_at BETWEEN ? AND ?",
			storeID, models.OrderCompleted, start, end).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&report.TotalRevenue).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Order{}).
		Where("store_id = ? AND status = ? AND created_at BETWEEN ? AND ?",
			storeID, models.OrderCompleted, start, end).
		Count(&report.TotalOrders).Error
	if err != nil {
		return nil, err
	}

	err = db.Table("order_items").
		Select("order_items.product_name as product_name, SUM(order_items.quantity) as sold, SUM(order_items.line_total) as revenue").
		Joins("JOIN orders ON order_items.order_id = orders.id").
		Where("orders.store_id = ? AND orders.status = ?", storeID, models.OrderCompleted).
		Group("order_items.product_name").
		Order("sold desc").
		Limit(5).
		Scan(&report.TopSelling).Error
	if err != nil {
		return nil, err
	}

	err = db.Where("store_id = ?", storeID).
		Order("created_at desc").
		Limit(10).
		Find(&report.RecentTransactions).Error
	if err != nil {
		return nil, err
	}

	return &report, nil
}
