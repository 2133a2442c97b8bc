package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds per-surface rate limiting settings
type RateLimitConfig struct {
	// Ingest limits (per IP) - the event producer posts continuously
	IngestMax        int
	IngestExpiration time.Duration

	// Read limits (per IP) - dashboard polling
	ReadMax        int
	ReadExpiration time.Duration

	// Admin limits (per IP) - destructive dev endpoints
	AdminMax        int
	AdminExpiration time.Duration
}

// DefaultRateLimitConfig returns defaults sized for a single-classroom
// deployment: one producer ships at most ~3 events/sec, dashboards poll
// every few seconds.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// 600/min = 10 events/sec, triple the worst-case producer rate
		IngestMax:        600,
		IngestExpiration: 1 * time.Minute,

		// 240/min covers several dashboards polling at 1s
		ReadMax:        240,
		ReadExpiration: 1 * time.Minute,

		// Admin clear is manual; anything rapid is a mistake
		AdminMax:        10,
		AdminExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads rate limit settings from environment variables,
// falling back to defaults for anything unset.
func LoadRateLimitConfig() *RateLimitConfig {
	cfg := DefaultRateLimitConfig()
	cfg.IngestMax = getEnvInt("RATE_LIMIT_INGEST_MAX", cfg.IngestMax)
	cfg.ReadMax = getEnvInt("RATE_LIMIT_READ_MAX", cfg.ReadMax)
	cfg.AdminMax = getEnvInt("RATE_LIMIT_ADMIN_MAX", cfg.AdminMax)
	return cfg
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed > 0 {
			return parsed
		}
		log.Printf("⚠️  [RATE-LIMIT] Invalid %s=%q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

// IngestRateLimiter limits write endpoints per IP.
func IngestRateLimiter(cfg *RateLimitConfig) fiber.Handler {
	return newLimiter(cfg.IngestMax, cfg.IngestExpiration)
}

// ReadRateLimiter limits read endpoints per IP.
func ReadRateLimiter(cfg *RateLimitConfig) fiber.Handler {
	return newLimiter(cfg.ReadMax, cfg.ReadExpiration)
}

// AdminRateLimiter limits the destructive admin endpoints per IP.
func AdminRateLimiter(cfg *RateLimitConfig) fiber.Handler {
	return newLimiter(cfg.AdminMax, cfg.AdminExpiration)
}

func newLimiter(max int, expiration time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded, slow down",
			})
		},
	})
}
