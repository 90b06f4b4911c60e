package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/observability"
	"github.com/shopledger/shopledger/internal/reports"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SOURCE_KIND", "postgres")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, time.Minute, cfg.SnapshotCacheTTL)
	require.Equal(t, reports.RevenueGrandTotal, cfg.RevenueBasis())
	require.False(t, cfg.IsProduction())

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REPORT_REVENUE_BASIS=total_amount\nEXPORT_RATE_LIMIT=3\n"), 0o600))
	t.Setenv("EXPORT_RATE_LIMIT", "5")
	t.Cleanup(func() { _ = os.Unsetenv("REPORT_REVENUE_BASIS") })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, reports.RevenueTotalAmount, cfg.RevenueBasis())
	require.Equal(t, 5, cfg.ExportRateLimit, "environment wins over .env")
}

func TestConfigValidate(t *testing.T) {
	base := Config{SourceKind: "postgres", ReportTimezone: "UTC", ReportRevenueBasis: "grand_total", ExportRateLimit: 1}
	require.NoError(t, base.Validate())

	cases := map[string]func(c *Config){
		"source kind":  func(c *Config) { c.SourceKind = "mongo" },
		"rest url":     func(c *Config) { c.SourceKind = "rest" },
		"basis":        func(c *Config) { c.ReportRevenueBasis = "net" },
		"timezone":     func(c *Config) { c.ReportTimezone = "Mars/Olympus" },
		"export limit": func(c *Config) { c.ExportRateLimit = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn", AppEnv: "test"}).Info("hidden")
	require.Empty(t, buf.String())

	newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn", AppEnv: "test"}).Warn("shown")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["msg"])
	require.Equal(t, "test", line["env"])

	buf.Reset()
	newLogger(&buf, nil).Info("plain")
	require.Contains(t, buf.String(), "msg=plain")
}

func TestTestModeFlag(t *testing.T) {
	for value, want := range map[string]bool{"1": true, "true": true, "0": false, "": false, "maybe": false} {
		t.Setenv(TestModeEnv, value)
		RefreshTestMode()
		require.Equal(t, want, InTestMode(), "value=%q", value)
	}
}

func TestRouterHealthAndReadiness(t *testing.T) {
	router := NewRouter(RouterParams{
		Config:  &Config{AppEnv: "test"},
		Metrics: observability.NewMetrics(),
		Readiness: map[string]Pinger{
			"source": PingFunc(func(ctx context.Context) error { return nil }),
			"redis":  PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
		},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.JSONEq(t, `{"source":"ok","redis":"connection refused"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `shopledger_http_requests_total{code="200",route="/healthz"}`)
}
