package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"biteindex/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		Server: config.ServerConfig{
			CorsAllowedOrigins: []string{"*"},
		},
		RateLimit: config.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			Burst:             20,
		},
	}
}

func TestNewServer_Success(t *testing.T) {
	cfg := testConfig()
	logger := testLogger()

	srv, err := NewServer(cfg, logger)
	if err != nil {
		t.Fatalf("NewServer returned unexpected error: %v", err)
	}
	if srv.Config != cfg {
		t.Error("Config field not set correctly")
	}
	if srv.Logger != logger {
		t.Error("Logger field not set correctly")
	}
	if srv.Validator == nil {
		t.Error("Validator should be initialized by constructor")
	}
	if srv.Router() == nil {
		t.Error("router should be initialized by constructor")
	}
}

func TestNewServer_NilDependencies(t *testing.T) {
	if _, err := NewServer(nil, testLogger()); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewServer(testConfig(), nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestServer_Handler_ServesRegisteredRoutes(t *testing.T) {
	srv, err := NewServer(testConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	})
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418 from registered route, got %d", rec.Code)
	}
}

func TestServer_Shutdown_RunsAllHooks(t *testing.T) {
	srv, _ := NewServer(testConfig(), testLogger())

	var ran []int
	boom := errors.New("pool close failed")
	srv.ShutdownHooks = []func(context.Context) error{
		func(context.Context) error { ran = append(ran, 0); return nil },
		func(context.Context) error { ran = append(ran, 1); return boom },
		func(context.Context) error { ran = append(ran, 2); return errors.New("second") },
	}

	err := srv.Shutdown(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected first hook error, got %v", err)
	}
	if len(ran) != 3 {
		t.Errorf("expected all 3 hooks to run, ran %v", ran)
	}
}

func TestServer_Shutdown_NoHooks(t *testing.T) {
	srv, _ := NewServer(testConfig(), testLogger())
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
