package main

import (
	"time"

	"go-storefront/internal/auth"
	"go-storefront/internal/config"
	"go-storefront/internal/database"
	"go-storefront/internal/gateway"
	"go-storefront/internal/handlers"
	"go-storefront/internal/ledger"
	"go-storefront/internal/logging"
	"go-storefront/internal/middleware"
	"go-storefront/internal/notify"
	"go-storefront/internal/orders"
	"go-storefront/internal/payments"
	"go-storefront/internal/shipping"
	"go-storefront/internal/wallet"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	log := logging.New()

	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	// External collaborators.
	gatewayClient := gateway.NewHTTPClient(cfg)
	shippingClient := shipping.NewHTTPClient(cfg)
	notifier := notify.NewDispatcher(notify.NewHTTPSender(cfg), log)

	// Core services.
	ledgerSvc := ledger.New()
	orchestrator := payments.NewOrchestrator(db, gatewayClient, ledgerSvc, cfg, log)
	orderSvc := orders.NewService(db, shippingClient, orchestrator, notifier, log)
	withdrawals := wallet.NewQueue(db, ledgerSvc, cfg.OTPTTL, log)

	authManager := auth.NewManager(cfg.JWTSecret)
	h := handlers.New(cfg, db, log, authManager, orderSvc, orchestrator, withdrawals, notifier)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "online"}) })
	r.POST("/login", h.Login)

	// Only opens if we explicitly allow it in .env
	if cfg.AllowRegistration {
		r.POST("/register", h.Register)
		log.Warn("Registration route is OPEN. Disable this in production!")
	} else {
		log.Info("Registration route is disabled")
	}

	// Gateway callbacks are signature-checked, not token-checked.
	r.POST("/webhooks/payment", h.PaymentWebhook)

	// --- PUBLIC STOREFRONT ROUTES ---
	shop := r.Group("/api/stores/:slug")
	{
		shop.POST("/cart/total", h.ComputeCartTotal)
		shop.POST("/orders", h.CreateOrder)
		shop.PUT("/orders/:id/note", h.UpdateOrderNote)
		shop.POST("/orders/:id/request-cancellation", h.RequestCancellation)
		shop.POST("/orders/:id/request-confirmation", h.RequestConfirmation)
	}
	r.GET("/api/payments/verify/:reference", h.VerifyPayment)

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.Auth(authManager))
	{
		// STORE OWNERS
		api.GET("/orders", h.ListOrders)
		api.GET("/orders/:id", h.GetOrder)
		api.PUT("/orders/:id/status", h.UpdateOrderStatus)
		api.POST("/orders/:id/ship", h.ShipOrder)
		api.GET("/reports", h.GetSalesReport)
		api.POST("/billing/pay", h.InitiateBillingPayment)
		api.POST("/withdrawal-codes", h.RequestWithdrawalCode)
		api.POST("/withdrawals", h.RequestWithdrawal)

		// OPERATORS ONLY
		ops := api.Group("/")
		ops.Use(middleware.RequireRole("operator"))
		{
			ops.POST("/withdrawals/:id/approve", h.ApproveWithdrawal)
			ops.POST("/withdrawals/:id/reject", h.RejectWithdrawal)
		}
	}

	log.Info("Server starting on " + cfg.BaseURL)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
