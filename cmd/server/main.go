// Command server runs the residency gateway: registration, document review,
// application lifecycle, credential minting, and public verification behind
// one HTTP listener.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"residency/internal/application"
	"residency/internal/certificate"
	"residency/internal/document"
	"residency/internal/events"
	"residency/internal/files"
	"residency/internal/jwtauth"
	"residency/internal/ledger"
	"residency/internal/mint"
	"residency/internal/platform/config"
	"residency/internal/platform/httpserver"
	"residency/internal/platform/logger"
	"residency/internal/platform/metrics"
	"residency/internal/platform/postgres"
	platformredis "residency/internal/platform/redis"
	httptransport "residency/internal/transport/http"
	"residency/internal/user"
	"residency/internal/verify"
	id "residency/pkg/domain"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	stores, pool, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher, err := buildPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	uploads, err := files.NewLocalStore(cfg.UploadDir, "/uploads")
	if err != nil {
		return err
	}
	certs, err := files.NewLocalStore(cfg.CertificateDir, "/certificates")
	if err != nil {
		return err
	}

	chain := buildChain(cfg, log)

	// Services. The mint status reader breaks the user↔mint dependency loop:
	// users only need the minted-or-not answer, not the coordinator.
	mintStatus := mint.NewStatusReader(stores.mints)
	userService := user.NewService(stores.users, mintStatus, publisher, m)
	documentService := document.NewService(stores.documents, uploads, publisher, m, cfg.DocumentTTL)
	applicationService := application.NewService(stores.applications, userDirectory{userService}, documentService, publisher, m)
	coordinator := mint.NewCoordinator(stores.mints, userService, applicationService, chain,
		publisher, m, log, cfg.MintTimeout)
	verifyCache := verify.NewCache(redisClient, log, verify.DefaultTTL)
	verifyService := verify.NewService(applicationService, userService, verifyCache)
	certGenerator := certificate.NewGenerator(applicationService, certs, cfg.PublicBaseURL)

	reviewerAuth := jwtauth.NewService(cfg.JWTSigningKey, "residency-gateway")

	router := httptransport.NewRouter(httptransport.Config{
		Logger:  log,
		Metrics: m,
		Handlers: []httptransport.Registrar{
			user.NewHandler(userService, log),
			document.NewHandler(documentService, log, reviewerAuth),
			application.NewHandler(applicationService, log, reviewerAuth),
			mint.NewHandler(coordinator, mintStatus, log),
			certificate.NewHandler(certGenerator, log),
			verify.NewHandler(verifyService),
		},
		Health:         healthChecks(pool, redisClient),
		UploadDir:      cfg.UploadDir,
		CertificateDir: cfg.CertificateDir,
	})

	// Background workers.
	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	sweeper := mint.NewSweeper(stores.mints, chain, applicationService, publisher, m, log, cfg.SweepGrace)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(workerCtx, cfg.SweepInterval)
	}()

	if cfg.DocumentTTL > 0 {
		gc := document.NewGC(stores.documents, uploads, publisher, log, cfg.DocumentGCEvery)
		wg.Add(1)
		go func() {
			defer wg.Done()
			gc.Run(workerCtx)
		}()
	}

	server := httpserver.New(cfg.Addr, router)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("server shutdown", "error", err)
	}
	cancelWorkers()
	wg.Wait()
	return nil
}

type storeSet struct {
	users        user.Store
	documents    document.Store
	applications application.Store
	mints        mint.Store
}

// buildStores returns Postgres-backed stores when a DSN is configured, and
// in-memory stores for local development otherwise.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (storeSet, *pgxpool.Pool, error) {
	if cfg.PostgresDSN == "" {
		log.Warn("no postgres dsn configured, using in-memory stores")
		return storeSet{
			users:        user.NewInMemoryStore(),
			documents:    document.NewInMemoryStore(),
			applications: application.NewInMemoryStore(),
			mints:        mint.NewInMemoryStore(),
		}, nil, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return storeSet{}, nil, err
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return storeSet{}, nil, err
	}
	return storeSet{
		users:        user.NewPostgresStore(pool),
		documents:    document.NewPostgresStore(pool),
		applications: application.NewPostgresStore(pool),
		mints:        mint.NewPostgresStore(pool),
	}, pool, nil
}

func buildPublisher(ctx context.Context, cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn("no kafka brokers configured, lifecycle events disabled")
		return events.Noop{}, nil
	}
	return events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
}

func buildChain(cfg config.Config, log *slog.Logger) ledger.Client {
	if cfg.ChainEndpoint == "" {
		log.Warn("no chain endpoint configured, using in-process ledger")
		return ledger.NewMemoryLedger(cfg.ContractAddress)
	}
	return ledger.NewHTTPClient(cfg.ChainEndpoint, cfg.ContractAddress)
}

func healthChecks(pool *pgxpool.Pool, redisClient *platformredis.Client) []httptransport.HealthCheck {
	var checks []httptransport.HealthCheck
	if pool != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: pool.Ping})
	}
	if redisClient != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: redisClient.Health})
	}
	return checks
}

// userDirectory adapts the user service to the existence check the
// application service depends on.
type userDirectory struct {
	users *user.Service
}

func (d userDirectory) Exists(ctx context.Context, userID id.UserID) error {
	_, err := d.users.Get(ctx, userID)
	return err
}
