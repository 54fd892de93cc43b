package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("IMAGE_CACHE_MAX_MB", "")
	cfg := LoadConfig()

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, int64(100<<20), cfg.ImageCacheMaxBytes)
	assert.Equal(t, 7*24*time.Hour, cfg.ImageCacheMaxAge)
	assert.Equal(t, "db", cfg.ImageCacheStore)
	assert.Equal(t, "@daily", cfg.NotificationPruneSpec)
	assert.False(t, cfg.ImageAllowPrivateNetworks)
	assert.Equal(t, 40, cfg.ImageBurst)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", " Boss@Example.com , ops@example.com,, ")
	t.Setenv("IMAGE_ALLOWED_HOSTS", "images.example.com")
	t.Setenv("IMAGE_CACHE_MAX_AGE", "36h")
	t.Setenv("ORDER_ID_RATE_PER_SEC", "2.5")
	t.Setenv("DELIVERY_FEE", "not-a-number")
	t.Setenv("IMAGE_ALLOW_PRIVATE_NETWORKS", "true")
	cfg := LoadConfig()

	assert.Equal(t, []string{"boss@example.com", "ops@example.com"}, cfg.AdminEmails)
	assert.True(t, cfg.IsAdminEmail("BOSS@example.com "))
	assert.False(t, cfg.IsAdminEmail("someone@example.com"))
	assert.Equal(t, []string{"images.example.com"}, cfg.ImageAllowedHosts)
	assert.Equal(t, 36*time.Hour, cfg.ImageCacheMaxAge)
	assert.Equal(t, 2.5, cfg.OrderIDRatePerSec)
	assert.Equal(t, int64(299), cfg.DeliveryFee, "bad numbers fall back to the default")
	assert.True(t, cfg.ImageAllowPrivateNetworks)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AppEnv: "production", DBDriver: "postgres", DBSource: "postgres://x",
			JWTSecret: "s3cret", ImageCacheMaxBytes: 1, ImageCacheStore: "db",
			OrderIDRatePerSec: 1, OrderIDBurst: 1, LoyaltyPointUnit: 100,
			ImageRatePerSec: 1, ImageBurst: 1,
		}
	}
	require.NoError(t, base().Validate())

	cases := map[string]func(c *Config){
		"driver":       func(c *Config) { c.DBDriver = "mysql" },
		"default jwt":  func(c *Config) { c.JWTSecret = "changeme" },
		"cache size":   func(c *Config) { c.ImageCacheMaxBytes = 0 },
		"redis url":    func(c *Config) { c.ImageCacheStore = "redis" },
		"store":        func(c *Config) { c.ImageCacheStore = "s3" },
		"rate limit":   func(c *Config) { c.OrderIDBurst = 0 },
		"loyalty unit": func(c *Config) { c.LoyaltyPointUnit = 0 },
		"image rate":   func(c *Config) { c.ImageBurst = 0 },
		"private nets": func(c *Config) { c.ImageAllowPrivateNetworks = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	dev := base()
	dev.AppEnv, dev.JWTSecret = "development", "changeme"
	assert.NoError(t, dev.Validate())
}

func TestIntegrations(t *testing.T) {
	c := &Config{SupabaseURL: "https://x.supabase.co", SupabaseAnonKey: "anon", StripeSecretKey: "sk"}
	got := c.Integrations()
	assert.True(t, got["supabase"])
	assert.True(t, got["stripe"])
	assert.False(t, got["twilio"])
	assert.False(t, got["expo"])
}
