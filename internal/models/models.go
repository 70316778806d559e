package models

import (
	"time"
)

// Order status state machine. Completed, Cancelled and Refunded are terminal.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"
	OrderRefunded   = "refunded"
)

// Payment status as seen on the order itself.
const (
	PaymentUnpaid  = "unpaid"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// Transaction status. One-way: pending -> successful | failed.
const (
	TxPending    = "pending"
	TxSuccessful = "successful"
	TxFailed     = "failed"
)

// What a transaction pays for.
const (
	PayForOrder        = "order"
	PayForSubscription = "subscription"
	PayForAIAddon      = "ai-addon"
	PayForTransfer     = "transfer"
)

// Payment channels.
const (
	ChannelGatewayCard     = "gateway-card"
	ChannelGatewayTransfer = "gateway-transfer"
	ChannelWalletBalance   = "wallet-balance"
)

// Coupon scope and type.
const (
	CouponScopeCart     = "cart"
	CouponScopeProducts = "products"
	CouponPercentage    = "percentage"
	CouponFixed         = "fixed"
)

// Withdrawal request status.
const (
	WithdrawalPending   = "pending"
	WithdrawalCompleted = "completed"
	WithdrawalRejected  = "rejected"
)

// StoreOwner - The merchant account that logs in and runs a store
type StoreOwner struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:120" json:"email"`
	PasswordHash string    `json:"-"`    // Never return this in JSON
	Role         string    `json:"role"` // 'owner' or 'operator'
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store - One tenant. Carries the wallet balance and the payout/payment setup.
type Store struct {
	ID      uint    `gorm:"primaryKey" json:"id"`
	OwnerID uint    `gorm:"index" json:"owner_id"`
	Name    string  `json:"name"`
	Slug    string  `gorm:"uniqueIndex;size:80" json:"slug"`
	Balance float64 `json:"balance"` // Credited by settled sales, debited by approved payouts. Never negative.

	// Hosted-checkout gateway integration, if connected.
	GatewayConnected  bool   `json:"gateway_connected"`
	GatewaySubaccount string `json:"gateway_subaccount"`

	// Payout bank snapshot, used for manual transfers and withdrawals.
	BankName          string `json:"bank_name"`
	BankAccountNumber string `json:"bank_account_number"`
	BankAccountName   string `json:"bank_account_name"`

	// Pickup/shipping origin address.
	AddressLine    string `json:"address_line"`
	AddressCity    string `json:"address_city"`
	AddressState   string `json:"address_state"`
	AddressCountry string `json:"address_country"`

	// Premium plan and AI add-on entitlement windows.
	PremiumExpiresAt *time.Time `json:"premium_expires_at"`
	AIAddonExpiresAt *time.Time `json:"ai_addon_expires_at"`

	CreatedAt time.Time `json:"created_at"`
}

// Product - The catalog entry
type Product struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	StoreID         uint               `gorm:"index" json:"store_id"`
	Name            string             `json:"name"`
	Price           float64            `json:"price"` // Default price, used when UniformPricing or no size match
	UniformPricing  bool               `gorm:"default:true" json:"uniform_pricing"`
	SizePrices      []ProductSizePrice `gorm:"foreignKey:ProductID" json:"size_prices"`
	DiscountPercent float64            `json:"discount_percent"` // 0-100
	Stock           int                `json:"stock"`
	WeightKG        float64            `json:"weight_kg"`
	LengthCM        float64            `json:"length_cm"`
	WidthCM         float64            `json:"width_cm"`
	HeightCM        float64            `json:"height_cm"`
	Digital         bool               `json:"digital"`
	ImageURL        string             `json:"image_url"`
}

// ProductSizePrice - Per-size override used when UniformPricing is false
type ProductSizePrice struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ProductID uint    `gorm:"index" json:"product_id"`
	Size      string  `json:"size"`
	Price     float64 `json:"price"`
}

// Coupon - Store discount. Code is optional; scope is cart-wide or a product set.
type Coupon struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	StoreID   uint            `gorm:"index" json:"store_id"`
	Code      string          `gorm:"index;size:40" json:"code"`
	Scope     string          `json:"scope"` // 'cart' or 'products'
	Products  []CouponProduct `gorm:"foreignKey:CouponID" json:"products"`
	Type      string          `json:"type"`  // 'percentage' or 'fixed'
	Value     float64         `json:"value"` // percent (<=100) or flat amount
	ExpiresAt time.Time       `json:"expires_at"`
	MaxUsage  int             `json:"max_usage"` // 0 means unlimited
	TimesUsed int             `json:"times_used"`
	CreatedAt time.Time       `json:"created_at"`
}

// CouponProduct - Join row naming a product a 'products'-scoped coupon covers
type CouponProduct struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CouponID  uint `gorm:"index" json:"coupon_id"`
	ProductID uint `json:"product_id"`
}

// Order - The sale header. Lines are snapshots; the total is fixed at creation
// and only ever reduced by validated reconciliation.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;size:24" json:"order_number"`
	StoreID     uint        `gorm:"index" json:"store_id"`
	Items       []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`

	AddressLine    string `json:"address_line"`
	AddressCity    string `json:"address_city"`
	AddressState   string `json:"address_state"`
	AddressCountry string `json:"address_country"`

	Status string `gorm:"index" json:"status"`

	// Payment details.
	PaymentStatus    string     `json:"payment_status"`
	PaymentChannel   string     `json:"payment_channel"`
	PaymentReference string     `gorm:"index" json:"payment_reference"`
	CheckoutLink     string     `json:"checkout_link"`
	PaidAt           *time.Time `json:"paid_at"`

	// Invariant: AmountPaid + AmountLeftToPay == TotalAmount, always.
	AmountPaid      float64 `json:"amount_paid"`
	AmountLeftToPay float64 `json:"amount_left_to_pay"`
	TotalAmount     float64 `json:"total_amount"`

	// Shipping details.
	DeliveryMethod string  `json:"delivery_method"` // 'delivery', 'pickup' or 'digital'
	ShippingFee    float64 `json:"shipping_fee"`
	TrackingNumber string  `json:"tracking_number"`

	CouponCode string    `json:"coupon_code"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderItem - One cart line, with the price snapshot at order time
type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OrderID     uint    `gorm:"index" json:"order_id"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"` // Snapshot: catalog edits must not rewrite history
	UnitPrice   float64 `json:"unit_price"`   // Price actually charged per unit
	Size        string  `json:"size"`
	Color       string  `json:"color"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"line_total"`
	Digital     bool    `json:"digital"`
}

// Transaction - The ledger entry. Reference is the idempotency key: the
// pending -> terminal flip happens exactly once per reference.
type Transaction struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Reference     string     `gorm:"uniqueIndex;size:48" json:"reference"`
	Amount        float64    `json:"amount"`
	PaymentFor    string     `json:"payment_for"` // 'order', 'subscription', 'ai-addon', 'transfer'
	Channel       string     `json:"channel"`
	Status        string     `gorm:"index" json:"status"`
	EntityID      uint       `gorm:"index" json:"entity_id"` // Order, store or withdrawal id depending on PaymentFor
	StoreID       uint       `gorm:"index" json:"store_id"`
	Metadata      string     `json:"metadata"`
	SettledAmount float64    `json:"settled_amount"`
	PaidAt        *time.Time `json:"paid_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// WithdrawalRequest - A queued payout. At most one pending per store.
type WithdrawalRequest struct {
	ID      uint    `gorm:"primaryKey" json:"id"`
	StoreID uint    `gorm:"index" json:"store_id"`
	Amount  float64 `json:"amount"`

	// Holds StoreID while the request is pending, NULL once settled. The
	// unique index is what enforces at most one pending payout per store:
	// NULLs never collide, a second pending insert does.
	PendingStoreID *uint `gorm:"uniqueIndex" json:"-"`

	// Bank snapshot: payout details as they were when the request was made.
	BankName          string `json:"bank_name"`
	BankAccountNumber string `json:"bank_account_number"`
	BankAccountName   string `json:"bank_account_name"`

	Status         string    `gorm:"index" json:"status"`
	AuditReference string    `gorm:"index;size:48" json:"audit_reference"` // The 'transfer' ledger entry
	CreatedAt      time.Time `json:"created_at"`
}

// OneTimeCode - Withdrawal OTP. Only the digest is stored.
type OneTimeCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StoreID   uint      `gorm:"index" json:"store_id"`
	Digest    string    `gorm:"size:64" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}
