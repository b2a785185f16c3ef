package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinicapi/internal/config"
	"clinicapi/internal/db"
	"clinicapi/internal/notify"
)

// newLogger builds the root logger: JSON on stdout, console output in development.
func newLogger(env, level string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}

// bootstrap loads configuration and the logger shared by every command.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, newLogger("production", "info"), err
	}
	return cfg, newLogger(cfg.AppEnv, cfg.LogLevel), nil
}

func openDB(cfg *config.Config, logger zerolog.Logger) (*gorm.DB, error) {
	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("connected to database")
	return gormDB, nil
}

// newMailer renders notification templates and sends them over SMTP, or to
// the log when no SMTP host is configured.
func newMailer(cfg *config.Config, logger zerolog.Logger) (*notify.Mailer, error) {
	templates, err := notify.NewTemplates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	var sender notify.Sender
	if cfg.SMTPHost == "" {
		logger.Warn().Msg("SMTP_HOST not set, notifications are written to the log")
		sender = notify.NewLogSender(logger.With().Str("component", "mail").Logger())
	} else {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}
	return notify.NewMailer(templates, sender), nil
}
