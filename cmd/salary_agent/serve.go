package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/salary-insights/internal/assistant"
	"github.com/jonathan/salary-insights/internal/config"
	"github.com/jonathan/salary-insights/internal/db"
	"github.com/jonathan/salary-insights/internal/llm"
	"github.com/jonathan/salary-insights/internal/server"
	"github.com/jonathan/salary-insights/internal/server/ratelimit"
	"github.com/jonathan/salary-insights/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the chat, jobs and aggregates endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	data := session.New(db.NewLoader(st, cfg.Store.PageSize))

	client, err := newModelClient(ctx, &cfg.LLM)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
	}

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	srv := server.New(server.Options{
		Port:            port,
		AllowedOrigin:   cfg.Server.AllowedOrigin,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       ratelimit.LoadConfig(cfg.RateLimit),
		Env:             envReport(cfg),
	}, data, assistant.New(client))

	return srv.Start(ctx)
}

// newModelClient builds the model client. A missing API key is not fatal:
// the server runs and chat requests report the missing setting.
func newModelClient(ctx context.Context, lc *llm.Config) (llm.Client, error) {
	client, err := llm.NewClient(ctx, lc)
	var missing *llm.ConfigurationMissingError
	if errors.As(err, &missing) {
		zap.L().Warn("model client not configured; chat is disabled", zap.String("setting", missing.Setting))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

func envReport(c *config.Config) server.EnvReport {
	return server.EnvReport{
		StoreDriver:        c.Store.Driver,
		DatabaseConfigured: c.Store.DatabaseURL != "" || c.Store.Driver == config.DriverSQLite,
		Provider:           string(c.LLM.Provider),
		Model:              c.LLM.ModelName(),
		APIKeyConfigured:   c.LLM.APIKey != "",
		APIKeyLength:       len(c.LLM.APIKey),
	}
}
