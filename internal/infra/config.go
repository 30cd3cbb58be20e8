package infra

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	AccessPassword string
	SessionSecret  string
	SessionTTL     time.Duration

	RelayBaseURL     string
	UpstreamBaseURL  string
	QueueHosts       []string
	RelayAuthScheme  string
	RelayAPIKey      string
	RelayKeyID       string
	RelayKeySecret   string
	ModelPath        string
	MaxSubmitRetries int
	SubmitRetryDelay time.Duration
	PollInterval     time.Duration
	MaxPollAttempts  int

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	DatabaseURL         string
	StoragePath         string
	CampaignConcurrency int

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
	TrustedProxies     []netip.Prefix
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Only the relay credential is mandatory here; server binaries additionally call RequireServerSecrets.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		AccessPassword:      os.Getenv("ACCESS_PASSWORD"),
		SessionSecret:       os.Getenv("SESSION_SECRET"),
		SessionTTL:          time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 720)),
		RelayBaseURL:        strings.TrimSpace(os.Getenv("RELAY_BASE_URL")),
		UpstreamBaseURL:     getEnv("UPSTREAM_BASE_URL", "https://fal.run"),
		QueueHosts:          getEnvList("UPSTREAM_QUEUE_HOSTS", []string{"queue.fal.run"}),
		RelayAuthScheme:     getEnv("RELAY_AUTH_SCHEME", "key"),
		RelayAPIKey:         strings.TrimSpace(os.Getenv("RELAY_API_KEY")),
		RelayKeyID:          strings.TrimSpace(os.Getenv("RELAY_KEY_ID")),
		RelayKeySecret:      strings.TrimSpace(os.Getenv("RELAY_KEY_SECRET")),
		ModelPath:           getEnv("RELAY_MODEL_PATH", "fal-ai/flux/dev/image-to-image"),
		MaxSubmitRetries:    getEnvInt("RELAY_MAX_SUBMIT_RETRIES", 3),
		SubmitRetryDelay:    time.Second * time.Duration(getEnvInt("RELAY_SUBMIT_RETRY_DELAY_SECONDS", 2)),
		PollInterval:        time.Second * time.Duration(getEnvInt("RELAY_POLL_INTERVAL_SECONDS", 2)),
		MaxPollAttempts:     getEnvInt("RELAY_MAX_POLL_ATTEMPTS", 60),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		StoragePath:         getEnv("STORAGE_PATH", "./storage"),
		CampaignConcurrency: getEnvInt("CAMPAIGN_CONCURRENCY", 2),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	proxies, err := parseTrustedProxies(getEnvList("TRUSTED_PROXIES", nil))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies

	if cfg.RelayCredential() == "" {
		return nil, fmt.Errorf("RELAY_API_KEY or RELAY_KEY_ID/RELAY_KEY_SECRET is required")
	}
	if cfg.hasKeyPair() && !isPairScheme(cfg.RelayAuthScheme) {
		return nil, fmt.Errorf("RELAY_KEY_ID/RELAY_KEY_SECRET require RELAY_AUTH_SCHEME=basic, got %q", cfg.RelayAuthScheme)
	}
	if cfg.MaxSubmitRetries < 0 {
		return nil, fmt.Errorf("RELAY_MAX_SUBMIT_RETRIES must not be negative")
	}
	if cfg.MaxPollAttempts <= 0 {
		return nil, fmt.Errorf("RELAY_MAX_POLL_ATTEMPTS must be positive")
	}
	if cfg.CampaignConcurrency <= 0 {
		cfg.CampaignConcurrency = 1
	}

	return cfg, nil
}

// RequireServerSecrets checks the settings only the HTTP API needs.
func (c *Config) RequireServerSecrets() error {
	if c.AccessPassword == "" {
		return fmt.Errorf("ACCESS_PASSWORD is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	return nil
}

// RelayCredential returns the raw credential value. The id/secret pair takes
// precedence over RELAY_API_KEY and is joined as "id:secret".
func (c *Config) RelayCredential() string {
	if c.hasKeyPair() {
		return c.RelayKeyID + ":" + c.RelayKeySecret
	}
	return c.RelayAPIKey
}

func (c *Config) hasKeyPair() bool {
	return c.RelayKeyID != "" || c.RelayKeySecret != ""
}

func isPairScheme(scheme string) bool {
	normalized := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(scheme)))
	switch normalized {
	case "basic", "basicbase64pair", "pair":
		return true
	default:
		return false
	}
}

// parseTrustedProxies accepts bare addresses and CIDR ranges.
func parseTrustedProxies(items []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(items))
	for _, item := range items {
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	items := lo.Map(strings.Split(v, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
	return lo.Uniq(lo.Compact(items))
}
