package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Config carries every externally injected setting. External clients receive
// their credentials from here; nothing reads the environment past startup.
type Config struct {
	HTTPPort int

	DBUsername string
	DBPassword string
	DBHost     string
	DBPort     string
	DBDatabase string
	DBSchema   string

	GatewayBaseURL     string
	GatewayAccessToken string
	GatewayTimeout     time.Duration

	CarrierBaseURL string
	CarrierToken   string
	CarrierTimeout time.Duration

	OriginPostalCode string
	FrontendURL      string
	PublicURL        string

	JWTSecret string

	ReconcileInterval  time.Duration
	ReconcileStuckAge  time.Duration
	ReconcileBatchSize int
}

func Load() Config {
	return Config{
		HTTPPort: envInt("STORE_HTTP_PORT", 3035),

		DBUsername: os.Getenv("STORE_DB_USERNAME"),
		DBPassword: os.Getenv("STORE_DB_PASSWORD"),
		DBHost:     os.Getenv("STORE_DB_HOST"),
		DBPort:     os.Getenv("STORE_DB_PORT"),
		DBDatabase: os.Getenv("STORE_DB_DATABASE"),
		DBSchema:   envDefault("STORE_DB_SCHEMA", "public"),

		GatewayBaseURL:     envDefault("STORE_GATEWAY_URL", "https://api.mercadopago.com"),
		GatewayAccessToken: os.Getenv("STORE_GATEWAY_TOKEN"),
		GatewayTimeout:     envDuration("STORE_GATEWAY_TIMEOUT", 10*time.Second),

		CarrierBaseURL: envDefault("STORE_CARRIER_URL", "https://melhorenvio.com.br/api/v2/me"),
		CarrierToken:   os.Getenv("STORE_CARRIER_TOKEN"),
		CarrierTimeout: envDuration("STORE_CARRIER_TIMEOUT", 8*time.Second),

		OriginPostalCode: os.Getenv("STORE_ORIGIN_CEP"),
		FrontendURL:      envDefault("STORE_FRONTEND_URL", "http://localhost:3000"),
		PublicURL:        envDefault("STORE_PUBLIC_URL", "http://localhost:3035"),

		JWTSecret: os.Getenv("STORE_JWT_SECRET"),

		ReconcileInterval:  envDuration("STORE_RECONCILE_INTERVAL", 1*time.Minute),
		ReconcileStuckAge:  envDuration("STORE_RECONCILE_STUCK_AGE", 5*time.Minute),
		ReconcileBatchSize: envInt("STORE_RECONCILE_BATCH", 50),
	}
}

// DatabaseURL builds the pgx connection string.
func (c Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.DBUsername, c.DBPassword, c.DBHost, c.DBPort, c.DBDatabase, c.DBSchema,
	)
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
