package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Env string

const (
	Dev        Env = "development"
	Test       Env = "test"
	Preview    Env = "preview"
	Production Env = "production"
)

type Config struct {
	AppName string
	ENV     Env
	AppPort int

	LogLevel string

	// Extra origins allowed by CORS (CORS_ALLOWED_ORIGINS, comma separated).
	CORSAllowedOrigins []string

	Browser  BrowserConfig
	Upstream UpstreamConfig
	OpenAI   OpenAIConfig
	SEO      SEOConfig
	Audit    AuditConfig
	Axe      AxeConfig

	// Postgres (optional; enabled only when DBHost + DBName are set).
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     int
	DBName     string

	// Apply embedded migrations on boot (DB_AUTO_MIGRATE). Handy for local sqlite.
	DBAutoMigrate bool

	// Redis (optional; enabled only when RedisHost is set).
	RedisUser     string
	RedisPassword string
	RedisHost     string
	RedisPort     int
	RedisScheme   string

	Turso    TursoConfig
	RabbitMQ RabbitMQConfig
	Inngest  InngestConfig
}

type BrowserConfig struct {
	Headless          bool
	SkipInstall       bool
	LaunchTimeout     time.Duration
	AcquireTimeout    time.Duration
	NavigationTimeout time.Duration
	ScriptTimeout     time.Duration

	// When set, connect to an already running Chrome over CDP instead of launching one.
	CDPEndpoint string
	DebugHost   string
	DebugPort   string
}

type UpstreamConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string

	ValidatorURL string

	PageSpeedURL      string
	PageSpeedAPIKey   string
	PageSpeedStrategy string
}

type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type SEOConfig struct {
	MaxParagraphs    int
	MaxDocumentBytes int64
}

type AuditConfig struct {
	MaxParallel int
	CacheTTL    time.Duration
}

type AxeConfig struct {
	ScriptPath string
	ScriptURL  string
}

type TursoConfig struct {
	DSN   string
	Path  string
	Token string
}

type RabbitMQConfig struct {
	URL             string
	Exchange        string
	Queue           string
	RoutingKey      string
	Prefetch        int
	DeclareTopology bool
}

type InngestConfig struct {
	AppID      string
	SigningKey string
	Dev        string
	ServeHost  string
	ServePath  string
}

func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", "webpage-auditor")
	v.SetDefault("APP_ENV", string(Dev))
	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("BROWSER_HEADLESS", true)
	v.SetDefault("BROWSER_SKIP_INSTALL", false)
	v.SetDefault("BROWSER_LAUNCH_TIMEOUT", "90s")
	v.SetDefault("BROWSER_ACQUIRE_TIMEOUT", "30s")
	v.SetDefault("BROWSER_NAVIGATION_TIMEOUT", "30s")
	v.SetDefault("BROWSER_SCRIPT_TIMEOUT", "30s")

	v.SetDefault("UPSTREAM_TIMEOUT", "60s")
	v.SetDefault("UPSTREAM_REQUESTS_PER_SECOND", 5)
	v.SetDefault("UPSTREAM_USER_AGENT", "webpage-auditor/1.0")
	v.SetDefault("VALIDATOR_URL", "https://validator.nu/")
	v.SetDefault("PAGESPEED_URL", "https://pagespeedonline.googleapis.com/pagespeedonline/v5/runPagespeed")
	v.SetDefault("PAGESPEED_STRATEGY", "")

	v.SetDefault("OPENAI_MODEL", "gpt-4o")
	v.SetDefault("OPENAI_MAX_TOKENS", 1000)

	v.SetDefault("SEO_MAX_PARAGRAPHS", 5)
	v.SetDefault("SEO_MAX_DOCUMENT_BYTES", 5<<20)

	v.SetDefault("AUDIT_MAX_PARALLEL", 5)
	v.SetDefault("AUDIT_CACHE_TTL", "10m")

	v.SetDefault("AXE_SCRIPT_URL", "https://cdnjs.cloudflare.com/ajax/libs/axe-core/4.10.2/axe.min.js")

	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_SCHEME", "redis")

	v.SetDefault("RABBITMQ_EXCHANGE", "events")
	v.SetDefault("RABBITMQ_QUEUE", "auditor.url.requested.v1")
	v.SetDefault("RABBITMQ_ROUTING_KEY", "auditor.url.requested.v1")
	v.SetDefault("RABBITMQ_PREFETCH", 1)

	v.SetDefault("INNGEST_SERVE_PATH", "/api/inngest")

	return v
}

func NewConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppName: v.GetString("APP_NAME"),
		ENV:     Env(strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))),
		AppPort: v.GetInt("APP_PORT"),

		LogLevel: v.GetString("LOG_LEVEL"),

		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		Browser: BrowserConfig{
			Headless:          v.GetBool("BROWSER_HEADLESS"),
			SkipInstall:       v.GetBool("BROWSER_SKIP_INSTALL"),
			LaunchTimeout:     v.GetDuration("BROWSER_LAUNCH_TIMEOUT"),
			AcquireTimeout:    v.GetDuration("BROWSER_ACQUIRE_TIMEOUT"),
			NavigationTimeout: v.GetDuration("BROWSER_NAVIGATION_TIMEOUT"),
			ScriptTimeout:     v.GetDuration("BROWSER_SCRIPT_TIMEOUT"),
			CDPEndpoint:       strings.TrimSpace(v.GetString("BROWSER_CDP_ENDPOINT")),
			DebugHost:         strings.TrimSpace(v.GetString("CHROME_DEBUG_HOST")),
			DebugPort:         strings.TrimSpace(v.GetString("CHROME_DEBUG_PORT")),
		},

		Upstream: UpstreamConfig{
			Timeout:           v.GetDuration("UPSTREAM_TIMEOUT"),
			RequestsPerSecond: v.GetFloat64("UPSTREAM_REQUESTS_PER_SECOND"),
			UserAgent:         v.GetString("UPSTREAM_USER_AGENT"),
			ValidatorURL:      v.GetString("VALIDATOR_URL"),
			PageSpeedURL:      v.GetString("PAGESPEED_URL"),
			PageSpeedAPIKey:   v.GetString("PAGESPEED_API_KEY"),
			PageSpeedStrategy: v.GetString("PAGESPEED_STRATEGY"),
		},

		OpenAI: OpenAIConfig{
			APIKey:    v.GetString("OPENAI_API_KEY"),
			BaseURL:   v.GetString("OPENAI_BASE_URL"),
			Model:     v.GetString("OPENAI_MODEL"),
			MaxTokens: v.GetInt("OPENAI_MAX_TOKENS"),
		},

		SEO: SEOConfig{
			MaxParagraphs:    v.GetInt("SEO_MAX_PARAGRAPHS"),
			MaxDocumentBytes: v.GetInt64("SEO_MAX_DOCUMENT_BYTES"),
		},

		Audit: AuditConfig{
			MaxParallel: v.GetInt("AUDIT_MAX_PARALLEL"),
			CacheTTL:    v.GetDuration("AUDIT_CACHE_TTL"),
		},

		Axe: AxeConfig{
			ScriptPath: v.GetString("AXE_SCRIPT_PATH"),
			ScriptURL:  v.GetString("AXE_SCRIPT_URL"),
		},

		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetInt("DB_PORT"),
		DBName:     v.GetString("DB_NAME"),

		DBAutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),

		RedisUser:     v.GetString("REDIS_USER"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetInt("REDIS_PORT"),
		RedisScheme:   v.GetString("REDIS_SCHEME"),

		Turso: TursoConfig{
			DSN:   v.GetString("TURSO_SQLITE_DSN"),
			Path:  v.GetString("TURSO_SQLITE_PATH"),
			Token: v.GetString("TURSO_SQLITE_TOKEN"),
		},

		RabbitMQ: RabbitMQConfig{
			URL:             v.GetString("RABBITMQ_URL"),
			Exchange:        v.GetString("RABBITMQ_EXCHANGE"),
			Queue:           v.GetString("RABBITMQ_QUEUE"),
			RoutingKey:      v.GetString("RABBITMQ_ROUTING_KEY"),
			Prefetch:        v.GetInt("RABBITMQ_PREFETCH"),
			DeclareTopology: v.GetBool("RABBITMQ_DECLARE_TOPOLOGY"),
		},

		Inngest: InngestConfig{
			AppID:      v.GetString("INNGEST_APP_ID"),
			SigningKey: v.GetString("INNGEST_SIGNING_KEY"),
			Dev:        v.GetString("INNGEST_DEV"),
			ServeHost:  v.GetString("INNGEST_SERVE_HOST"),
			ServePath:  v.GetString("INNGEST_SERVE_PATH"),
		},
	}

	switch cfg.ENV {
	case Dev, Test, Preview, Production:
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q", cfg.ENV)
	}
	if cfg.AppPort <= 0 || cfg.AppPort > 65535 {
		return nil, fmt.Errorf("invalid APP_PORT %d", cfg.AppPort)
	}
	if cfg.DBPort <= 0 || cfg.DBPort > 65535 {
		return nil, fmt.Errorf("invalid DB_PORT %d", cfg.DBPort)
	}
	if cfg.RedisPort <= 0 || cfg.RedisPort > 65535 {
		return nil, fmt.Errorf("invalid REDIS_PORT %d", cfg.RedisPort)
	}
	if cfg.Browser.NavigationTimeout <= 0 {
		return nil, fmt.Errorf("invalid BROWSER_NAVIGATION_TIMEOUT %s", cfg.Browser.NavigationTimeout)
	}
	if cfg.Browser.AcquireTimeout <= 0 {
		return nil, fmt.Errorf("invalid BROWSER_ACQUIRE_TIMEOUT %s", cfg.Browser.AcquireTimeout)
	}
	if cfg.Upstream.Timeout <= 0 {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT %s", cfg.Upstream.Timeout)
	}
	if cfg.Audit.MaxParallel <= 0 {
		return nil, fmt.Errorf("invalid AUDIT_MAX_PARALLEL %d", cfg.Audit.MaxParallel)
	}
	if cfg.SEO.MaxParagraphs < 0 {
		return nil, fmt.Errorf("invalid SEO_MAX_PARAGRAPHS %d", cfg.SEO.MaxParagraphs)
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
