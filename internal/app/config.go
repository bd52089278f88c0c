package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	// BaseURL is the public origin of the storefront; magic login links are
	// built on it.
	BaseURL     string `default:"http://localhost:8080" usage:"Public base URL for login links" flag:"base-url"`
	Environment string `default:"production" usage:"Deployment environment (production, staging, development)"`
	// BlocklistPath points at a serialized bloom filter of disposable email
	// domains, produced by blocklist-ingest. Empty disables screening.
	BlocklistPath string `default:"" usage:"Path to disposable email domain blocklist" flag:"blocklist-path"`

	Token     TokenConfig
	SMTP      SMTPConfig
	Gateway   GatewayConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// TokenConfig controls magic login token issuance.
type TokenConfig struct {
	Pepper string        `usage:"HMAC pepper for login token hashing (STORE_TOKEN_PEPPER)" flag:"token-pepper"`
	TTL    time.Duration `default:"15m" usage:"Login link validity window" flag:"token-ttl"`
}

// SMTPConfig controls the mail relay used for login links.
type SMTPConfig struct {
	Host     string `default:"localhost" usage:"SMTP relay host"`
	Port     int    `default:"587" usage:"SMTP relay port"`
	From     string `default:"no-reply@localhost" usage:"Sender address for login emails"`
	Username string `default:"" usage:"SMTP username (empty disables auth)"`
	Password string `default:"" usage:"SMTP password"`
}

// GatewayConfig holds the 3-D Secure payment provider credentials. Payment
// initiation is disabled until all three are set.
type GatewayConfig struct {
	BaseURL     string `default:"" usage:"Payment provider API base URL" flag:"gateway-url"`
	APIKey      string `default:"" usage:"Payment provider API key" flag:"gateway-api-key"`
	SecretKey   string `default:"" usage:"Payment provider signing secret" flag:"gateway-secret"`
	CallbackURL string `default:"" usage:"URL the provider posts 3DS results to" flag:"gateway-callback-url"`
}

// Configured reports whether the provider credentials are complete.
func (g GatewayConfig) Configured() bool {
	return g.BaseURL != "" && g.APIKey != "" && g.SecretKey != ""
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Token.Pepper == "" {
		return nil, errors.New("token pepper is required: set STORE_TOKEN_PEPPER")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
