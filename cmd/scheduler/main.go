package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/lesson-scheduler/internal/application"
	"github.com/example/lesson-scheduler/internal/config"
	"github.com/example/lesson-scheduler/internal/events"
	httptransport "github.com/example/lesson-scheduler/internal/http"
	"github.com/example/lesson-scheduler/internal/lock"
	"github.com/example/lesson-scheduler/internal/logging"
	"github.com/example/lesson-scheduler/internal/persistence/memory"
	"github.com/example/lesson-scheduler/internal/persistence/sqlite"
)

const usage = `usage: scheduler [serve | migrate | hash-token <token>]`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	command := "serve"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "hash-token":
		return hashToken(args, stdout)
	case "serve", "migrate":
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}

	if err := config.LoadEnvFile(""); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(stdout, level)

	if command == "migrate" {
		return migrate(ctx, cfg, logger)
	}
	return serve(ctx, cfg, logger)
}

func hashToken(args []string, stdout io.Writer) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New(usage)
	}
	hash, err := application.HashToken(args[0], application.DefaultArgon2idParams)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}
	_, err = fmt.Fprintln(stdout, hash)
	return err
}

func migrate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.Storage != config.StorageSQLite {
		return fmt.Errorf("migrate requires sqlite storage, got %q", cfg.Storage)
	}
	store, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()
	if err := store.Migrate(ctx, logger); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("database schema is up to date", "path", cfg.SQLitePath)
	return nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	svc, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			logger.Error("failed to release resources", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           svc.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr, "storage", cfg.Storage)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}

// app holds the wired HTTP handler and the resources it depends on.
type app struct {
	handler http.Handler
	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (svc *app, err error) {
	svc = &app{}
	defer func() {
		if err != nil {
			_ = svc.Close()
			svc = nil
		}
	}()

	var (
		lessons  application.LessonRepository
		classes  application.ClassRepository
		checkers []func(context.Context) error
	)

	switch cfg.Storage {
	case config.StorageMemory:
		storage := memory.New()
		svc.closers = append(svc.closers, storage.Close)
		lessons = newLessonRepositoryAdapter(storage)
		classes = newClassRepositoryAdapter(storage)
	default:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return svc, fmt.Errorf("open storage: %w", err)
		}
		svc.closers = append(svc.closers, store.Close)
		if err := store.Migrate(ctx, logger); err != nil {
			return svc, fmt.Errorf("apply migrations: %w", err)
		}
		lessons = newLessonRepositoryAdapter(store.Lessons)
		classes = newClassRepositoryAdapter(store.Classes)
		checkers = append(checkers, store.Ping)
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		svc.closers = append(svc.closers, client.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return svc, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		locker = lock.NewRedisLocker(client, lock.RedisOptions{TTL: cfg.LockTTL, Logger: logger})
		checkers = append(checkers, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		logger.Info("using redis booking locks", "addr", cfg.RedisAddr)
	}

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.AMQPURL != "" {
		amqpPublisher := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, logger)
		amqpPublisher.DialTimeout = cfg.PublishTimeout
		svc.closers = append(svc.closers, amqpPublisher.Close)
		publisher = amqpPublisher
	}

	tokens, err := application.ParseAPITokens(cfg.APITokens)
	if err != nil {
		return svc, fmt.Errorf("parse SCHEDULER_API_TOKENS: %w", err)
	}
	authenticator := application.NewTokenAuthenticator(tokens)

	idGenerator := uuid.NewString
	now := time.Now

	lessonService := application.NewLessonServiceWithLogger(lessons, classes, locker, publisher, idGenerator, now, logger)
	lessonService.SetLockWait(cfg.LockWait)
	lessonService.SetPublishTimeout(cfg.PublishTimeout)
	classService := application.NewClassServiceWithLogger(classes, idGenerator, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Lessons: httptransport.NewLessonHandler(lessonService, logger),
		Classes: httptransport.NewClassHandler(classService, lessonService, logger),
		Health: func(ctx context.Context) error {
			for _, check := range checkers {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	handler := http.Handler(router)
	if authenticator.Enabled() {
		protected := httptransport.RequireToken(authenticator, logger)(router)
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				router.ServeHTTP(w, r)
				return
			}
			protected.ServeHTTP(w, r)
		})
	} else {
		logger.Warn("no API tokens configured, requests are not authenticated")
	}
	svc.handler = httptransport.RequestLogger(logger)(handler)

	return svc, nil
}
