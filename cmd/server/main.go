package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/account-service/internal/auth"
	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/database"
	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/logging"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/router"
	"github.com/iliyamo/account-service/internal/service"
	"github.com/iliyamo/account-service/internal/storage"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stdout).
		With().Str("service", "account-service").Str("env", cfg.Env).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	store, db, err := openStore(ctx, cfg, log, &cleanup)
	if err != nil {
		return err
	}

	rdb := config.NewRedisClient(ctx, cfg.Redis, logging.Component(log, "redis"))
	if rdb != nil {
		cleanup = append(cleanup, func() { _ = rdb.Close() })
	}

	revoked, err := openRevocation(ctx, cfg, db, rdb, log)
	if err != nil {
		return err
	}

	hasher, err := auth.NewPasswordHasher(cfg.PasswordHasher, cfg.BcryptCost, cfg.PasswordMinLength)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     cfg.JWTSecret,
		Algorithm:  cfg.JWTAlgorithm,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	})
	if err != nil {
		return err
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.Events.URL != "" {
		pub := queue.NewPublisher(cfg.Events.URL, cfg.Events.Queue, logging.Component(log, "publisher"))
		cleanup = append(cleanup, func() { _ = pub.Close() })
		events = pub
		if cfg.Events.Consume {
			go func() {
				err := queue.StartAuditConsumer(ctx, cfg.Events.URL, cfg.Events.Queue, cfg.Events.AuditLogPath, logging.Component(log, "audit"))
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("audit consumer stopped")
				}
			}()
		}
	} else {
		log.Info().Msg("RABBITMQ_URL not set; domain events disabled")
	}

	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		return err
	}

	users := service.NewDirectory(store, hasher, events, logging.Component(log, "directory"))
	if err := service.EnsureAdmin(ctx, users, cfg.AdminEmail, cfg.AdminPassword, logging.Component(log, "seed")); err != nil {
		return err
	}
	gate := service.NewGate(tokens, revoked, users, logging.Component(log, "gate"))
	authSvc := service.NewAuthService(users, tokens, revoked, logging.Component(log, "auth"))
	files := service.NewFileService(objects, service.FileOptions{
		MaxBytes:     cfg.Upload.MaxBytes,
		AllowedTypes: cfg.Upload.AllowedTypes,
		URLExpiry:    cfg.Upload.URLExpiry,
	}, logging.Component(log, "files"))

	// a nil *redis.Client must reach the middleware as a nil interface
	var cmd redis.Cmdable
	if rdb != nil {
		cmd = rdb
	}
	httpLog := logging.Component(log, "http")
	e := router.New(httpLog)
	router.RegisterHealth(e,
		handler.NewHealthHandler(users, files, cfg.StoreDriver, cfg.S3.Bucket, cfg.Version, cfg.Env, httpLog),
		middleware.NewRedisCache(cfg.Cache, cmd, httpLog))
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc), middleware.NewRateLimit(cfg.RateLimit, cmd, httpLog))
	router.RegisterUsers(e, handler.NewUsersHandler(users), gate)
	router.RegisterAdmin(e, handler.NewAdminHandler(service.NewAdminUsers(users)), gate)
	router.RegisterUploads(e, handler.NewUploadsHandler(files), gate, cfg.Upload.MaxBytes)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("store", cfg.StoreDriver).Str("revocation", cfg.RevocationBackend).Msg("listening")
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore connects the configured user store. db is non-nil only for
// the mysql driver.
func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger, cleanup *[]func()) (repository.UserStore, *sql.DB, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, mdb, err := database.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		*cleanup = append(*cleanup, func() { _ = client.Disconnect(context.Background()) })
		store, err := repository.NewUserMongoRepo(ctx, mdb)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo store ready")
		return store, nil, nil

	case config.StoreMemory:
		log.Warn().Msg("memory user store: accounts are lost on restart")
		return repository.NewMemoryUserStore(), nil, nil

	default:
		db, err := database.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		*cleanup = append(*cleanup, func() { _ = db.Close() })
		if err := database.Migrate(ctx, db); err != nil {
			return nil, nil, err
		}
		log.Info().Str("database", cfg.DBName).Msg("mysql store ready")
		return repository.NewUserRepo(db), db, nil
	}
}

func openRevocation(ctx context.Context, cfg config.Config, db *sql.DB, rdb *redis.Client, log zerolog.Logger) (auth.RevocationSet, error) {
	switch cfg.RevocationBackend {
	case config.RevocationRedis:
		if rdb == nil {
			return nil, errors.New("REVOCATION_BACKEND=redis but redis is unreachable")
		}
		return auth.NewRedisRevocationSet(rdb, "revoked", cfg.RefreshTTL()), nil

	case config.RevocationMySQL:
		repo := repository.NewRevokedTokenRepo(db)
		repo.MaxTTL = cfg.RefreshTTL()
		go purgeRevoked(ctx, repo, logging.Component(log, "revocation"))
		return repo, nil

	default:
		return auth.NewMemoryRevocationSet(cfg.RefreshTTL()), nil
	}
}

// purgeRevoked drops rows of tokens that can no longer verify.
func purgeRevoked(ctx context.Context, repo *repository.RevokedTokenRepo, log zerolog.Logger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpired(ctx, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("purge revoked tokens")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("purged revoked tokens")
			}
		}
	}
}

func openObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	if cfg.S3.Driver == config.StorageMemory {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewS3Store(ctx, cfg.S3)
}
