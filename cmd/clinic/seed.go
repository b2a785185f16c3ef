package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"clinicapi/internal/cache"
	apperrors "clinicapi/internal/errors"
	"clinicapi/internal/repository"
	"clinicapi/internal/service"
)

// SeedDoctor is one entry of a doctor seed file.
type SeedDoctor struct {
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Specialty string `json:"specialty"`
}

func seedCmd() *cobra.Command {
	var doctorsSource string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the bootstrap admin and optional doctor accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			gormDB, err := openDB(cfg, logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
			defer cacheClient.Close()

			admin := service.NewAdminService(
				repository.NewRepositories(gormDB),
				repository.NewStore(gormDB),
				cacheClient,
				cfg.DefaultDoctorAvatar,
				logger,
			)

			created, err := admin.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
			if err != nil {
				return err
			}
			logger.Info().Str("email", cfg.AdminEmail).Bool("created", created).Msg("admin account ready")

			if doctorsSource == "" {
				return nil
			}
			doctors, err := loadDoctors(ctx, doctorsSource)
			if err != nil {
				return err
			}
			seeded, skipped, err := seedDoctors(ctx, admin, doctors, logger)
			if err != nil {
				return err
			}
			logger.Info().Int("created", seeded).Int("skipped", skipped).Msg("doctor seed completed")
			return nil
		},
	}
	cmd.Flags().StringVar(&doctorsSource, "doctors", "", "JSON file path or http(s) URL listing doctors to create")
	return cmd
}

// loadDoctors reads a doctor list from a local file or an http(s) URL.
func loadDoctors(ctx context.Context, source string) ([]SeedDoctor, error) {
	var body []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch doctors: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch doctors: status code %d", resp.StatusCode)
		}
		if body, err = io.ReadAll(resp.Body); err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
	} else {
		var err error
		if body, err = os.ReadFile(source); err != nil {
			return nil, fmt.Errorf("read doctors file: %w", err)
		}
	}

	var doctors []SeedDoctor
	if err := json.Unmarshal(body, &doctors); err != nil {
		return nil, fmt.Errorf("parse doctors: %w", err)
	}
	return doctors, nil
}

// seedDoctors creates each doctor, skipping incomplete entries and emails
// that already exist.
func seedDoctors(ctx context.Context, admin service.AdminService, doctors []SeedDoctor, logger zerolog.Logger) (created, skipped int, err error) {
	for _, d := range doctors {
		if strings.TrimSpace(d.Email) == "" || d.Password == "" || strings.TrimSpace(d.FullName) == "" {
			logger.Warn().Str("email", d.Email).Msg("skipping incomplete doctor entry")
			skipped++
			continue
		}
		_, err := admin.CreateDoctor(ctx, service.CreateDoctorInput{
			FullName:  d.FullName,
			Email:     d.Email,
			Password:  d.Password,
			Phone:     d.Phone,
			Specialty: d.Specialty,
		})
		if errors.Is(err, apperrors.ErrEmailTaken) {
			skipped++
			continue
		}
		if err != nil {
			return created, skipped, fmt.Errorf("create doctor %s: %w", d.Email, err)
		}
		created++
	}
	return created, skipped, nil
}
