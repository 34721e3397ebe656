// Package server собирает зависимости сервера и запускает HTTP API,
// worker наследования и фоновую очистку refresh токенов.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/iudanet/legacyvault/internal/server/access"
	"github.com/iudanet/legacyvault/internal/server/config"
	"github.com/iudanet/legacyvault/internal/server/handlers"
	"github.com/iudanet/legacyvault/internal/server/inheritance"
	"github.com/iudanet/legacyvault/internal/server/middleware"
	"github.com/iudanet/legacyvault/internal/server/storage/sqlite"
	"github.com/iudanet/legacyvault/internal/server/vault"
)

// tokenCleanupInterval - период удаления просроченных refresh токенов
const tokenCleanupInterval = time.Hour

// App - собранный сервер
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *sqlite.Storage
	worker  *inheritance.Worker
	limiter *middleware.RateLimiter
	handler http.Handler
}

// NewApp открывает хранилище и связывает сервисы с HTTP обработчиками
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*App, error) {
	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	jwtConfig := handlers.JWTConfig{
		Secret:          []byte(cfg.JWTSecret),
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}

	notifier := inheritance.NewSMTPNotifier(cfg.SMTP, logger)
	scheduler := inheritance.NewScheduler(store, notifier, logger)
	controller := access.NewController(store, scheduler, logger)
	vaults := vault.NewService(store, logger, vault.WithBackupTokens(cfg.BackupTokens))

	app := &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		worker:  inheritance.NewWorker(scheduler, cfg.PollInterval, logger),
		limiter: middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, logger),
	}

	routes := routes{
		auth:       handlers.NewAuthHandler(logger, store, store, jwtConfig, handlers.WithAdminUsernames(cfg.AdminUsernames...)),
		encryption: handlers.NewEncryptionHandler(logger, store),
		vaults:     handlers.NewVaultHandler(logger, vaults, controller, scheduler, jwtConfig, cfg.TrustProxy),
		health:     handlers.NewHealthHandler(logger, store, version),
		requireJWT: middleware.AuthMiddleware(logger, jwtConfig),
		limit:      middleware.RateLimitMiddleware(app.limiter, cfg.TrustProxy, logger),
	}

	app.handler = middleware.RecoveryMiddleware(logger)(
		middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(routes.mux()),
	)
	return app, nil
}

// Handler возвращает корневой HTTP handler со всеми middleware
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливается.
// Первый проход worker выполняется сразу и восстанавливает активации,
// пропущенные во время простоя.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.worker.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.cleanupTokens(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", slog.String("addr", a.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}

	a.worker.Stop()
	wg.Wait()
	return errors.Join(runErr, a.Close())
}

// Close освобождает ресурсы, не связанные с HTTP сервером
func (a *App) Close() error {
	a.limiter.Stop()
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}

func (a *App) cleanupTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.store.DeleteExpiredTokens(ctx, time.Now())
			if err != nil {
				a.logger.ErrorContext(ctx, "Failed to delete expired refresh tokens", slog.Any("error", err))
				continue
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "Expired refresh tokens deleted", slog.Int("count", n))
			}
		}
	}
}
