package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv    string
	Port      string
	LogLevel  string
	LogFormat string

	DBDriver string
	DBSource string

	// managed backend (auth tokens are verified with the JWT secret)
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	JWTSecret              string
	AdminEmails            []string

	ExpoPushURL     string
	ExpoAccessToken string

	NotificationMaxAge    time.Duration
	NotificationPruneSpec string
	CORSOrigins           []string

	ImageCacheDir         string
	ImageCacheMaxBytes    int64
	ImageCacheMaxAge      time.Duration
	ImageCacheStore       string
	ImageCacheCleanupSpec string
	ImageAllowedHosts     []string
	// only for local development: lets the image fetcher reach loopback/private addresses
	ImageAllowPrivateNetworks bool
	ImageRatePerSec           float64
	ImageBurst                int
	RedisURL                  string

	OrderIDRatePerSec float64
	OrderIDBurst      int

	DeliveryFee      int64
	LoyaltyPointUnit int64

	// client-side integrations; the backend only reports whether they are set
	StripeSecretKey  string
	GoogleMapsAPIKey string
	TwilioAccountSID string
	TwilioAuthToken  string
	SendGridAPIKey   string
}

// LoadConfig reads .env (when present) and the environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "8000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBSource: getEnv("DB_SOURCE", "heritage.db"),

		SupabaseURL:            os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:        os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		JWTSecret:              getEnv("SUPABASE_JWT_SECRET", "changeme"),
		AdminEmails:            splitList(os.Getenv("ADMIN_EMAILS")),

		ExpoPushURL:     getEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
		ExpoAccessToken: os.Getenv("EXPO_ACCESS_TOKEN"),

		NotificationMaxAge:    getEnvDuration("NOTIFICATION_MAX_AGE", 90*24*time.Hour),
		NotificationPruneSpec: getEnv("NOTIFICATION_PRUNE_SPEC", "@daily"),
		CORSOrigins:           splitList(os.Getenv("CORS_ORIGINS")),

		ImageCacheDir:             getEnv("IMAGE_CACHE_DIR", "./cache/images"),
		ImageCacheMaxBytes:        getEnvInt64("IMAGE_CACHE_MAX_MB", 100) * 1024 * 1024,
		ImageCacheMaxAge:          getEnvDuration("IMAGE_CACHE_MAX_AGE", 7*24*time.Hour),
		ImageCacheStore:           getEnv("IMAGE_CACHE_STORE", "db"),
		ImageCacheCleanupSpec:     getEnv("IMAGE_CACHE_CLEANUP_SPEC", "@every 1h"),
		ImageAllowedHosts:         splitList(os.Getenv("IMAGE_ALLOWED_HOSTS")),
		ImageAllowPrivateNetworks: getEnvBool("IMAGE_ALLOW_PRIVATE_NETWORKS", false),
		ImageRatePerSec:           getEnvFloat("IMAGE_RATE_PER_SEC", 10),
		ImageBurst:                int(getEnvInt64("IMAGE_BURST", 40)),
		RedisURL:                  os.Getenv("REDIS_URL"),

		OrderIDRatePerSec: getEnvFloat("ORDER_ID_RATE_PER_SEC", 5),
		OrderIDBurst:      int(getEnvInt64("ORDER_ID_BURST", 10)),

		DeliveryFee:      getEnvInt64("DELIVERY_FEE", 299),
		LoyaltyPointUnit: getEnvInt64("LOYALTY_POINT_UNIT", 100),

		StripeSecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
	}
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" || c.AppEnv == "test" }

func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.DBSource == "" {
		errs = append(errs, errors.New("DB_SOURCE is required"))
	}
	if !c.IsDevelopment() && (c.JWTSecret == "" || c.JWTSecret == "changeme") {
		errs = append(errs, errors.New("SUPABASE_JWT_SECRET must be set outside development"))
	}
	if c.ImageCacheMaxBytes <= 0 {
		errs = append(errs, errors.New("IMAGE_CACHE_MAX_MB must be positive"))
	}
	if c.ImageCacheStore != "db" && c.ImageCacheStore != "redis" {
		errs = append(errs, fmt.Errorf("unsupported IMAGE_CACHE_STORE %q", c.ImageCacheStore))
	}
	if c.ImageCacheStore == "redis" && c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required for the redis image cache store"))
	}
	if c.OrderIDRatePerSec <= 0 || c.OrderIDBurst <= 0 {
		errs = append(errs, errors.New("order id rate limit must be positive"))
	}
	if c.ImageRatePerSec <= 0 || c.ImageBurst <= 0 {
		errs = append(errs, errors.New("image rate limit must be positive"))
	}
	if c.ImageAllowPrivateNetworks && !c.IsDevelopment() {
		errs = append(errs, errors.New("IMAGE_ALLOW_PRIVATE_NETWORKS is only allowed in development"))
	}
	if c.LoyaltyPointUnit <= 0 {
		errs = append(errs, errors.New("LOYALTY_POINT_UNIT must be positive"))
	}
	return errors.Join(errs...)
}

// Integrations reports which third-party keys are configured.
func (c *Config) Integrations() map[string]bool {
	return map[string]bool{
		"supabase":   c.SupabaseURL != "" && c.SupabaseAnonKey != "",
		"expo":       c.ExpoAccessToken != "",
		"stripe":     c.StripeSecretKey != "",
		"googleMaps": c.GoogleMapsAPIKey != "",
		"twilio":     c.TwilioAccountSID != "" && c.TwilioAuthToken != "",
		"sendgrid":   c.SendGridAPIKey != "",
	}
}

func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
