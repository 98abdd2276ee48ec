// Package server initializes and runs the authcore server: it opens the
// configured storage, runs migrations, and serves gRPC and Prometheus metrics
// until it receives SIGINT or SIGTERM.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/auth"
	"github.com/dmitrijs2005/authcore/internal/server/config"
	"github.com/dmitrijs2005/authcore/internal/server/credentials"
	"github.com/dmitrijs2005/authcore/internal/server/metrics"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/authcore/internal/server/services"

	gs "github.com/dmitrijs2005/authcore/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	metrics  *metrics.Prometheus
	sessions *services.SessionService
	closers  []func() error
}

// Storage holds the repositories selected by the configuration.
type Storage struct {
	Accounts accounts.Repository
	Sessions sessions.Repository
	// DB is the PostgreSQL handle, nil for memory storage.
	DB       *sql.DB
	Closers  []func() error
}

// OpenStorage opens the account and session stores for c.Storage. Accounts
// live in PostgreSQL for every backend except memory. Migrations run
// whenever PostgreSQL is used.
func OpenStorage(ctx context.Context, c *config.Config, logger logging.Logger) (*Storage, error) {
	if c.Storage == config.StorageMemory {
		logger.Warn(ctx, "using in-memory storage, nothing will be persisted")
		return &Storage{
			Accounts: accounts.NewInMemoryRepository(),
			Sessions: sessions.NewInMemoryRepository(),
		}, nil
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	st := &Storage{DB: db, Closers: []func() error{db.Close}}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	st.Accounts = rm.Accounts(db)

	switch c.Storage {
	case config.StorageRedis:
		client, err := openRedis(ctx, c.RedisAddr)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.Closers = append(st.Closers, client.Close)
		st.Sessions = sessions.NewRedisRepository(client, "authcore:", c.RefreshTokenValidityDuration)
	default:
		st.Sessions = rm.Sessions(db)
	}
	return st, nil
}

// Close releases every connection held by the storage.
func (s *Storage) Close() error {
	var errs []error
	for i := len(s.Closers) - 1; i >= 0; i-- {
		errs = append(errs, s.Closers[i]())
	}
	return errors.Join(errs...)
}

func openRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	return client, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, os.Stdout)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	st, err := OpenStorage(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	codec, err := auth.NewJWTCodec([]byte(c.SecretKey), auth.WithIssuer(c.Issuer))
	if err != nil {
		st.Close()
		return nil, err
	}

	m := metrics.NewPrometheus()
	verifier := credentials.NewPasswordVerifier(st.Accounts, credentials.NewBcryptHasher(0))
	svc := services.NewSessionService(verifier, st.Accounts, st.Sessions, codec, c,
		services.WithLogger(logger), services.WithMetrics(m))

	return &App{config: c, logger: logger, metrics: m, sessions: svc, closers: []func() error{st.Close}}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.metrics)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "metrics server shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a signal arrives or ctx is cancelled, then releases storage.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx, cancelFunc)
	}()

	wg.Wait()

	for _, c := range app.closers {
		if err := c(); err != nil {
			app.logger.Error(ctx, "close storage", "error", err)
		}
	}
	app.logger.Info(ctx, "Stopped")
}
