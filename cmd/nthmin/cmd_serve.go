package main

import (
	"log/slog"

	"github.com/JonMunkholm/nthmin/internal/application"
	"github.com/JonMunkholm/nthmin/internal/logging"
	"github.com/spf13/cobra"
)

// serveCmd starts the HTTP service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP lookup service",
	Long: `Starts the HTTP service on SERVER_HOST:SERVER_PORT. Lookups are served
on GET /api/find-nth-min?fileLink=<path>&N=<n>. Set DATABASE_URL to keep
an audit log of lookups in PostgreSQL.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	app, err := application.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(cmd.Context())
}
