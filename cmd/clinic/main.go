package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "clinicapi/docs" // swagger docs
)

// @title Clinic Appointment API
// @version 1.0
// @description Clinic appointment management with doctor schedules, bookings, diagnoses and JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic",
		Short:         "Clinic appointment API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(notifierCmd())

	if err := rootCmd.Execute(); err != nil {
		logger := newLogger("production", "info")
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
