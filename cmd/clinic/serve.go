package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"clinicapi/internal/auth"
	"clinicapi/internal/cache"
	"clinicapi/internal/config"
	"clinicapi/internal/db"
	"clinicapi/internal/handler"
	"clinicapi/internal/notify"
	"clinicapi/internal/repository"
	"clinicapi/internal/router"
	"clinicapi/internal/service"
	"clinicapi/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			return runServer(cfg, logger)
		},
	}
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	gormDB, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB, cfg.ResetDB, logger); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, cache and logout blacklist disabled")
	}

	dispatcher, closeDispatcher, err := newDispatcher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	// Initialize repositories
	repos := repository.NewRepositories(gormDB)
	store := repository.NewStore(gormDB)
	files := storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLPrefix)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret,
		auth.WithIssuer(cfg.JWTIssuer),
		auth.WithAudience(cfg.JWTAudience),
		auth.WithTTL(cfg.AccessTokenTTL()),
	)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(repos, store, jwtService, tokenStore, dispatcher,
		service.AuthConfig{RefreshTTL: cfg.RefreshTokenTTL}, logger)
	bookingService := service.NewBookingService(repos, store, dispatcher, service.BookingConfig{
		Span:     cfg.AppointmentSpan,
		Location: loc,
	}, logger)
	doctorService := service.NewDoctorService(repos, files, dispatcher, logger,
		service.WithDoctorLocation(loc),
		service.WithProfileChangeHook(func(ctx context.Context) {
			_ = cacheClient.Delete(ctx, service.DoctorDirectoryKey)
		}),
	)
	userService := service.NewUserService(repos, cacheClient)
	adminService := service.NewAdminService(repos, store, cacheClient, cfg.DefaultDoctorAvatar, logger,
		service.WithAdminLocation(loc))

	created, err := adminService.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if created {
		logger.Info().Str("email", cfg.AdminEmail).Msg("bootstrap admin created")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(e, router.Deps{
		JWT:        jwtService,
		TokenStore: tokenStore,
		Logger:     logger,
		UploadDir:  files.Dir(),
		UploadURL:  files.URLPrefix(),
	}, router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		User:   handler.NewUserHandler(userService, bookingService, authService, loc),
		Doctor: handler.NewDoctorHandler(doctorService, authService, loc),
		Admin:  handler.NewAdminHandler(adminService),
	})

	logger.Info().Str("url", swaggerURL(cfg)).Msg("swagger documentation available")

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.ServerPort
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newDispatcher selects the notification transport. The returned func
// releases it after the HTTP server has stopped.
func newDispatcher(cfg *config.Config, logger zerolog.Logger) (notify.Dispatcher, func(), error) {
	log := logger.With().Str("component", "notify").Logger()
	if cfg.NotifyDriver == config.NotifyDriverAMQP {
		publisher, err := notify.NewAMQPPublisher(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("exchange", cfg.NotifyExchange).Msg("publishing notifications to rabbitmq")
		return publisher, func() { _ = publisher.Close() }, nil
	}

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	async := notify.NewAsyncDispatcher(mailer, notify.AsyncOptions{
		Workers: cfg.NotifyWorkers,
		Retries: cfg.NotifyRetries,
		Buffer:  cfg.NotifyBuffer,
	}, log)
	return async, async.Close, nil
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
