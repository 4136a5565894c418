package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig(NewViper())
	require.NoError(t, err)

	require.Equal(t, "webpage-auditor", cfg.AppName)
	require.Equal(t, Dev, cfg.ENV)
	require.Equal(t, 8080, cfg.AppPort)
	require.True(t, cfg.Browser.Headless)
	require.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)
	require.Equal(t, 60*time.Second, cfg.Upstream.Timeout)
	require.Equal(t, "https://validator.nu/", cfg.Upstream.ValidatorURL)
	require.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	require.Equal(t, 1000, cfg.OpenAI.MaxTokens)
	require.Equal(t, 5, cfg.SEO.MaxParagraphs)
	require.Equal(t, 5, cfg.Audit.MaxParallel)
	require.Equal(t, "/api/inngest", cfg.Inngest.ServePath)
	require.False(t, cfg.DBAutoMigrate)
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Parallel()

	v := NewViper()
	v.Set("APP_ENV", "Production")
	v.Set("BROWSER_NAVIGATION_TIMEOUT", "5s")
	v.Set("BROWSER_CDP_ENDPOINT", " http://127.0.0.1:9222 ")
	v.Set("SEO_MAX_PARAGRAPHS", 2)
	v.Set("CORS_ALLOWED_ORIGINS", "https://qa.example.com, ,https://ops.example.com")
	v.Set("DB_AUTO_MIGRATE", "true")

	cfg, err := NewConfig(v)
	require.NoError(t, err)
	require.Equal(t, Production, cfg.ENV)
	require.Equal(t, 5*time.Second, cfg.Browser.NavigationTimeout)
	require.Equal(t, "http://127.0.0.1:9222", cfg.Browser.CDPEndpoint)
	require.Equal(t, 2, cfg.SEO.MaxParagraphs)
	require.Equal(t, []string{"https://qa.example.com", "https://ops.example.com"}, cfg.CORSAllowedOrigins)
	require.True(t, cfg.DBAutoMigrate)
}

func TestNewConfig_Invalid(t *testing.T) {
	t.Parallel()

	cases := map[string]any{
		"APP_PORT":                   70000,
		"APP_ENV":                    "staging",
		"BROWSER_NAVIGATION_TIMEOUT": "0s",
		"AUDIT_MAX_PARALLEL":         0,
		"UPSTREAM_TIMEOUT":           "-1s",
	}
	for key, value := range cases {
		v := NewViper()
		v.Set(key, value)
		_, err := NewConfig(v)
		require.Error(t, err, key)
	}
}
