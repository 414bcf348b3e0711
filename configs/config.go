package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	sslcommerzSandboxURL = "https://sandbox.sslcommerz.com"
	sslcommerzLiveURL    = "https://securepay.sslcommerz.com"
)

type Config struct {
	Env        string `envconfig:"APP_ENV" default:"production"`
	HTTPAddr   string `envconfig:"HTTP_ADDR" default:":8080"`
	AppBaseURL string `envconfig:"APP_BASE_URL" default:"http://localhost:8080"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireHours int    `envconfig:"JWT_EXPIRE_HOURS" default:"72"`

	StoreID        string        `envconfig:"SSLCOMMERZ_STORE_ID"`
	StorePassword  string        `envconfig:"SSLCOMMERZ_STORE_PASSWORD"`
	Sandbox        bool          `envconfig:"SSLCOMMERZ_SANDBOX" default:"true"`
	GatewayURL     string        `envconfig:"SSLCOMMERZ_BASE_URL"`
	GatewayTimeout time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"30s"`

	BookingDefaultHours float64 `envconfig:"BOOKING_DEFAULT_HOURS" default:"2"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"skillhat.events"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ReminderCron string `envconfig:"REMINDER_CRON" default:"0 8 * * *"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) GatewayBaseURL() string {
	if c.GatewayURL != "" {
		return c.GatewayURL
	}
	if c.Sandbox {
		return sslcommerzSandboxURL
	}
	return sslcommerzLiveURL
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
