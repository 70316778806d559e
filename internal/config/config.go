package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every knob the server needs. It is built once in main and
// handed to constructors, so nothing reads the environment after startup.
type Config struct {
	DBDSN      string `envconfig:"DB_DSN" required:"true"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	BaseURL    string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	JWTSecret         string   `envconfig:"JWT_SECRET" required:"true"`
	AllowRegistration bool     `envconfig:"ALLOW_REGISTRATION" default:"false"`
	AllowedOrigins    []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`

	// Single ISO currency per deployment. No conversion anywhere.
	Currency string `envconfig:"CURRENCY" default:"NGN"`

	GatewayBaseURL       string        `envconfig:"GATEWAY_BASE_URL"`
	GatewaySecretKey     string        `envconfig:"GATEWAY_SECRET_KEY"`
	GatewayWebhookSecret string        `envconfig:"GATEWAY_WEBHOOK_SECRET"`
	GatewayTimeout       time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"15s"`

	ShippingBaseURL string        `envconfig:"SHIPPING_BASE_URL"`
	ShippingAPIKey  string        `envconfig:"SHIPPING_API_KEY"`
	ShippingTimeout time.Duration `envconfig:"SHIPPING_TIMEOUT" default:"10s"`

	NotifyBaseURL string        `envconfig:"NOTIFY_BASE_URL"`
	NotifyTimeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`

	// Premium plan billing: one period costs SubscriptionFee and extends the
	// plan by SubscriptionPeriodDays.
	SubscriptionFee        float64 `envconfig:"SUBSCRIPTION_FEE" default:"5000"`
	SubscriptionPeriodDays int     `envconfig:"SUBSCRIPTION_PERIOD_DAYS" default:"30"`

	// AI add-on: a single payment buys a fixed entitlement window.
	AIAddonFee        float64 `envconfig:"AI_ADDON_FEE" default:"2000"`
	AIAddonWindowDays int     `envconfig:"AI_ADDON_WINDOW_DAYS" default:"30"`

	OTPTTL time.Duration `envconfig:"OTP_TTL" default:"10m"`
}

// Load parses the process environment into a Config.
// Call godotenv.Load first if a .env file should be honoured.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
