// @title        Caregiver Access API
// @version      1.0
// @description  Delegated access from caregivers to elder accounts.
// @BasePath     /
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"caregiver-access/internal/adapters/auditsink/kafka"
	"caregiver-access/internal/adapters/auth/idp"
	"caregiver-access/internal/adapters/auth/jwtauth"
	"caregiver-access/internal/adapters/directory/registryhttp"
	"caregiver-access/internal/adapters/lock/redislock"
	pg "caregiver-access/internal/adapters/storage/postgres"
	"caregiver-access/internal/domain/auditlog"
	"caregiver-access/internal/domain/elders"
	"caregiver-access/internal/platform/config"
	"caregiver-access/internal/platform/keylock"
	"caregiver-access/internal/platform/logger"
	"caregiver-access/internal/platform/metrics"
	"caregiver-access/internal/ports/auth"
	"caregiver-access/internal/router"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, addr string

	flagSet := pflag.NewFlagSet("caregiver-access", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to YAML config file")
	flagSet.StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	lg := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.Log.App,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := router.Options{
		Config:  cfg,
		Logger:  lg,
		Metrics: metrics.New(),
	}

	if cfg.Storage.Driver == config.DriverPostgres {
		db, err := openDB(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.DB = db
		lg.Info("storage: postgres", nil)
	} else {
		lg.Info("storage: memory", nil)
	}

	if cfg.Redis.URL != "" {
		client, err := redislock.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		opts.Locker = keylock.Locker(redislock.New(client, redislock.WithTTL(cfg.Redis.LockTTL)))
		lg.Info("pair lock: redis", nil)
	}

	if len(cfg.Audit.KafkaBrokers) > 0 {
		sink, err := kafka.New(kafka.Config{Brokers: cfg.Audit.KafkaBrokers, Topic: cfg.Audit.Topic})
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.EnsureTopic(ctx); err != nil {
			lg.Warn("audit topic not ensured", map[string]any{"topic": cfg.Audit.Topic, "error": err.Error()})
		}
		opts.AuditSink = auditlog.Sink(sink)
		lg.Info("audit sink: kafka", map[string]any{"topic": cfg.Audit.Topic})
	}

	if cfg.Directory.RegistryBaseURL != "" {
		dir, err := newRegistry(cfg.Directory)
		if err != nil {
			return err
		}
		opts.Directory = dir
		lg.Info("elder directory: registry", map[string]any{"base_url": cfg.Directory.RegistryBaseURL})
	}

	verifier, err := newVerifier(cfg.Auth)
	if err != nil {
		return err
	}
	opts.AuthVerifier = verifier

	app, err := router.NewApp(ctx, opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      app.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lg.Info("starting server", map[string]any{"addr": cfg.Server.Addr, "auth_mode": cfg.Auth.Mode})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.Confirmer.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		lg.Info("shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openDB(ctx context.Context, cfg config.StorageConfig) (*sql.DB, error) {
	db, err := pg.Open(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.Migrate {
		if err := pg.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return db, nil
}

func newRegistry(cfg config.DirectoryConfig) (elders.Repository, error) {
	c, err := registryhttp.NewClient(registryhttp.Config{
		BaseURL: cfg.RegistryBaseURL,
		APIKey:  cfg.RegistryAPIKey,
		Timeout: cfg.RegistryTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("registry client: %w", err)
	}
	return c, nil
}

// newVerifier devuelve nil en modo dev: el middleware acepta X-Debug-User-ID.
func newVerifier(cfg config.AuthConfig) (auth.AuthVerifier, error) {
	switch cfg.Mode {
	case config.AuthModeJWT:
		return jwtauth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer), nil
	case config.AuthModeIDP:
		c, err := idp.NewClient(idp.Config{BaseURL: cfg.IDPBaseURL, APIKey: cfg.IDPAPIKey})
		if err != nil {
			return nil, fmt.Errorf("idp client: %w", err)
		}
		return idp.NewVerifier(c), nil
	default:
		return nil, nil
	}
}
