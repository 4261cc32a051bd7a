// Package httptransport assembles the HTTP surface: middleware chain, feature
// routes, health, metrics, and the public artifact directories. Handlers stay
// thin and delegate to domain services; everything here is wiring.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"residency/internal/platform/metrics"
	"residency/internal/platform/middleware"
	"residency/internal/transport/http/shared"
)

// requestTimeout bounds handler execution. It must exceed the mint timeout:
// the mint handler waits for the detached ledger call up to that long before
// answering.
const requestTimeout = 2 * time.Minute

// Registrar is a feature handler that mounts its routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck is a named dependency probe reported by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config carries everything the router mounts.
type Config struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Handlers []Registrar
	Health   []HealthCheck

	// Public artifact directories, served read-only.
	UploadDir      string
	CertificateDir string
}

// NewRouter builds the full router.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))
	r.Use(middleware.Timeout(requestTimeout))

	for _, h := range cfg.Handlers {
		h.Register(r)
	}

	r.Get("/healthz", handleHealth(cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if cfg.UploadDir != "" {
		serveDir(r, "/uploads", cfg.UploadDir)
	}
	if cfg.CertificateDir != "" {
		serveDir(r, "/certificates", cfg.CertificateDir)
	}

	return r
}

func handleHealth(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks)+1)
		report["status"] = "ok"
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				report[c.Name] = err.Error()
				report["status"] = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				report[c.Name] = "ok"
			}
		}
		shared.WriteJSON(w, status, report)
	}
}

func serveDir(r chi.Router, prefix, dir string) {
	fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(dir)))
	r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}
