package database

import (
	"time"

	"go-storefront/internal/config"
	"go-storefront/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the MySQL connection and syncs the schema.
// The DSN comes from the injected config, never straight from the environment.
func Connect(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	// Wait for the DB to be ready (containers race the server on boot).
	for i := 0; i < 5; i++ {
		db, err = gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
			// Surfaces unique-index violations as gorm.ErrDuplicatedKey so
			// callers can map them (the withdrawal queue relies on this).
			TranslateError: true,
		})
		if err == nil {
			break
		}
		log.Warnf("Failed to connect to database. Retrying in 2 seconds... (%d/5)", i+1)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("Database connected and schema synced")
	return db, nil
}

// Migrate syncs the schema. Split out so tests can run it against sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.StoreOwner{},
		&models.Store{},
		&models.Product{},
		&models.ProductSizePrice{},
		&models.Coupon{},
		&models.CouponProduct{},
		&models.Order{},
		&models.OrderItem{},
		&models.Transaction{},
		&models.WithdrawalRequest{},
		&models.OneTimeCode{},
	)
}
