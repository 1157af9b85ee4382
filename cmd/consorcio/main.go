/*
main.go - Application entry point

PURPOSE:
  Command line for the consortium schedule engine. Runs the HTTP API and
  exposes a few read-only commands for scripting against the same database.

COMMANDS:
  serve                        Start the HTTP API with graceful shutdown
  schedule <quota-id>          Print the merged schedule as JSON
  credit-value <quota-id>      Print the corrected credit value (--at)
  seed <scenario>              Reset the database and load a demo portfolio

GLOBAL FLAGS:
  --config     Path to a YAML config file (default: ./consorcio.yml if present)
  --log-level  Overrides logging.level
  --db         Overrides database.path (":memory:" for an in-memory database)

ENVIRONMENT:
  Every config key can be set with the CONSORCIO_ prefix, e.g.
  CONSORCIO_SERVER_ADDRESS=:9090

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the refresh scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys and defaults
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/consorcio/api"
	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/config"
	"github.com/warp/consorcio/logging"
	"github.com/warp/consorcio/service"
	"github.com/warp/consorcio/store/sqlite"
)

const shutdownTimeout = 30 * time.Second

type globalFlags struct {
	configPath string
	logLevel   string
	dbPath     string
}

// app holds the dependencies shared by every command.
type app struct {
	cfg    *config.Configuration
	logger *zap.Logger
	store  *sqlite.Store
	svc    *service.Service
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "consorcio",
		Short:         "Consortium quota amortization schedules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path")

	root.AddCommand(
		serveCmd(flags),
		scheduleCmd(flags),
		creditValueCmd(flags),
		seedCmd(flags),
	)
	return root
}

// open loads the configuration, builds the logger and opens the store.
func open(flags *globalFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.dbPath != "" {
		cfg.Database.Path = flags.dbPath
	}

	logger, err := logging.New(cfg.Logging, flags.logLevel)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		svc:    service.New(store, logger),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close database", zap.String("op", "main.close"), zap.Error(err))
	}
	_ = a.logger.Sync()
}

// =============================================================================
// SERVE
// =============================================================================

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(flags)
			if err != nil {
				return err
			}
			defer a.close()
			if addr != "" {
				a.cfg.Server.Address = addr
			}
			return a.serve()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	return cmd
}

func (a *app) serve() error {
	log := a.logger.With(zap.String("op", "main.serve"))

	handler := api.NewHandler(a.svc, a.logger)
	router := api.NewRouter(handler, a.cfg.Server.AllowedOrigins)

	scheduler := api.NewRefreshScheduler(a.svc, a.logger)
	scheduler.CheckInterval = a.cfg.Refresher.Interval
	scheduler.Enabled = a.cfg.Refresher.Enabled
	scheduler.Start()

	server := &http.Server{
		Addr:         a.cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("address", server.Addr), zap.String("database", a.cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		scheduler.Stop()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// =============================================================================
// READ-ONLY COMMANDS
// =============================================================================

func scheduleCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <quota-id>",
		Short: "Print the merged schedule of a quota as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(flags)
			if err != nil {
				return err
			}
			defer a.close()

			rows, err := a.svc.Schedule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, api.NewScheduleResponse(args[0], rows))
		},
	}
}

func creditValueCmd(flags *globalFlags) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "credit-value <quota-id>",
		Short: "Print the corrected credit value of a quota",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(flags)
			if err != nil {
				return err
			}
			defer a.close()

			date := a.svc.Today()
			if at != "" {
				if date, err = calendar.ParseDate(at); err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}

			value, err := a.svc.CurrentCreditValue(cmd.Context(), args[0], date)
			if err != nil {
				return err
			}
			return printJSON(cmd, api.CreditValueResponse{
				QuotaID:     args[0],
				At:          calendar.Format(date),
				CreditValue: value.InexactFloat64(),
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "reference date YYYY-MM-DD (default: today)")
	return cmd
}

func seedCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <scenario>",
		Short: "Reset the database and load a demo portfolio",
		Long:  "Reset the database and load a demo portfolio. Run without arguments to list scenarios.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(flags)
			if err != nil {
				return err
			}
			defer a.close()

			if len(args) == 0 {
				for _, sc := range a.svc.Scenarios() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", sc.ID, sc.Description)
				}
				return nil
			}
			if err := a.svc.LoadScenario(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded scenario %s into %s\n", args[0], a.cfg.Database.Path)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
