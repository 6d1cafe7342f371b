package main // Entry point package

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/notes-backend/internal/config"
	"github.com/iliyamo/notes-backend/internal/database"
	"github.com/iliyamo/notes-backend/internal/handler"
	"github.com/iliyamo/notes-backend/internal/logging"
	"github.com/iliyamo/notes-backend/internal/metrics"
	"github.com/iliyamo/notes-backend/internal/queue"
	"github.com/iliyamo/notes-backend/internal/repository"
	"github.com/iliyamo/notes-backend/internal/router"
	"github.com/iliyamo/notes-backend/internal/service"
	"github.com/iliyamo/notes-backend/internal/utils"
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// run wires the stores, services and routes, serves until SIGINT/SIGTERM
// and then shuts everything down within cfg.ShutdownTimeout.
func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, notes, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Redis is optional: nil client means no user cache.
	if cfg.UserCache.Enabled {
		rdb := config.NewRedisClient(cfg.Redis)
		if rdb == nil {
			log.Warn("redis unavailable, user cache disabled", zap.String("addr", cfg.Redis.Addr))
		} else {
			defer rdb.Close()
			users = repository.NewCachedUserDirectory(users, rdb, cfg.UserCache, log)
		}
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.Events.Enabled {
		pub := service.NewAMQPPublisher(cfg.Events.URL, cfg.Events.Queue, log)
		defer pub.Close()
		events = pub

		consumer := &queue.AuditConsumer{URL: cfg.Events.URL, Queue: cfg.Events.Queue, Log: log.Named("audit")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	hasher := utils.NewPasswordHasher(cfg.BcryptCost, cfg.HashWorkers)
	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.AccessTTL)
	accounts := service.NewAccountService(users, hasher, tokens, events, m, log)
	noteSvc := service.NewNoteService(notes, events, log)

	e := router.New(router.Deps{
		Auth:     handler.NewAuthHandler(accounts, cfg.RequestTimeout, log),
		Notes:    handler.NewNotesHandler(noteSvc, cfg.RequestTimeout, log),
		Accounts: accounts,
		Metrics:  m,
		Log:      log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr()), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore opens the configured backend and returns its directories plus
// a function releasing the connection.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.UserDirectory, repository.NoteStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryUserRepo(), repository.NewMemoryNoteRepo(), func() {}, nil

	case config.DriverMongo:
		client, db, err := database.OpenMongo(cfg.Mongo)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		return repository.NewMongoUserRepo(db), repository.NewMongoNoteRepo(db), closeFn, nil

	default:
		db, err := database.Open(cfg.DB)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.DB.Migrate {
			if err := database.Migrate(db); err != nil {
				_ = db.Close()
				return nil, nil, nil, err
			}
			log.Info("schema migrations applied")
		}
		return repository.NewUserRepo(db), repository.NewNoteRepo(db), closer(db), nil
	}
}

func closer(c io.Closer) func() {
	return func() { _ = c.Close() }
}
