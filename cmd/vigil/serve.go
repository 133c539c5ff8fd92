package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/vigil/internal/config"
	"github.com/aretw0/vigil/internal/logging"
	"github.com/aretw0/vigil/pkg/adapters/groq"
	vigilhttp "github.com/aretw0/vigil/pkg/adapters/http"
	"github.com/aretw0/vigil/pkg/adapters/memory"
	redisadapter "github.com/aretw0/vigil/pkg/adapters/redis"
	"github.com/aretw0/vigil/pkg/adapters/twilio"
	"github.com/aretw0/vigil/pkg/callflow"
	"github.com/aretw0/vigil/pkg/decision"
	"github.com/aretw0/vigil/pkg/escalation"
	"github.com/aretw0/vigil/pkg/observability"
	"github.com/aretw0/vigil/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wellness-check server",
	Long: `Starts the vigil server: the trigger endpoint for detectors and the
carrier webhooks that drive interactive call sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.ListenAddr = addr
		}

		logger := logging.New(parseLevel(cfg.LogLevel), cfg.LogJSON)
		return run(cfg, logger)
	},
}

func run(cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	hooks := metrics.Hooks()

	// Session persistence: redis when configured, in-memory otherwise.
	var managerOpts []session.Option
	managerOpts = append(managerOpts, session.WithLogger(logger))

	var sessions *session.Manager
	if cfg.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := redisadapter.NewFromClient(client)
		managerOpts = append(managerOpts, session.WithLocker(redisadapter.NewLocker(client, "vigil:session:")))
		sessions = session.NewManager(store, managerOpts...)
		logger.Info("using redis session store", "addr", cfg.Redis.Addr)
	} else {
		sessions = session.NewManager(memory.NewStore(), managerOpts...)
		logger.Warn("using in-memory session store; sessions will not survive a restart")
	}

	var oracleOpts []groq.Option
	if cfg.Oracle.BaseURL != "" {
		oracleOpts = append(oracleOpts, groq.WithBaseURL(cfg.Oracle.BaseURL))
	}
	if cfg.Oracle.Model != "" {
		oracleOpts = append(oracleOpts, groq.WithModel(cfg.Oracle.Model))
	}
	oracle := groq.New(cfg.Oracle.APIKey, oracleOpts...)

	decider := decision.NewEngine(oracle,
		decision.WithTimeout(time.Duration(cfg.Oracle.TimeoutSeconds)*time.Second),
		decision.WithLogger(logger),
		decision.WithFallbackHook(hooks.OnOracleFallback),
	)

	gateway := twilio.New(
		cfg.Twilio.AccountSID,
		cfg.Twilio.AuthToken,
		cfg.Twilio.From,
		twilio.WithStatusCallback(cfg.BaseURL+"/twilio/status"),
	)

	escalator := escalation.NewHandler(gateway, cfg.Escalation.Contacts,
		escalation.WithRetries(cfg.Escalation.Retries),
		escalation.WithLogger(logger),
		escalation.WithHook(hooks.OnEscalation),
	)
	if len(cfg.Escalation.Contacts) == 0 {
		logger.Warn("no emergency contacts configured; escalations cannot be delivered")
	}

	orchestrator := callflow.NewOrchestrator(sessions, decider, gateway, escalator,
		callflow.Config{
			BaseURL:                cfg.BaseURL,
			GatherTimeoutSeconds:   cfg.Call.GatherTimeoutSeconds,
			NumDigits:              cfg.Call.NumDigits,
			NotifyFailureEscalates: cfg.Call.NotifyFailureEscalates,
		},
		callflow.WithLogger(logger),
		callflow.WithHooks(hooks),
	)

	handler := vigilhttp.NewHandler(orchestrator,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		vigilhttp.WithLogger(logger),
	)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("starting vigil server", "addr", srv.Addr, "base_url", cfg.BaseURL)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("starting shutdown", "signal", sig.String())

		// Give outstanding webhooks a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}
		logger.Info("vigil server stopped")
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address override (e.g. :8080)")
}
