package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ipo-tracker/internal/alerts"
	"ipo-tracker/internal/resilience"
	"ipo-tracker/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	var withAlerts bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.store()
			if err != nil {
				return err
			}
			quotes := app.quotes()

			health := resilience.NewHealthMonitor(5 * time.Second)
			health.RegisterComponent("store", resilience.PingCheck(s.Ping))
			health.RegisterComponent("quote_service", resilience.BreakerCheck(quotes.Breaker()))

			cfg := server.Config{
				Port:        app.Config.Server.Port,
				Log:         app.Logger,
				Store:       s,
				Quotes:      quotes,
				Health:      health,
				Concurrency: app.Config.Quote.Concurrency,
				DevMode:     app.Config.Server.DevMode,
			}

			if withAlerts {
				checker, err := newChecker(app, app.Config.Alerts.AllUsers)
				if err != nil {
					return err
				}
				scheduler := alerts.NewScheduler(app.Logger, alertRunTimeout)
				if err := scheduler.AddJob(app.Config.Alerts.Schedule, checker); err != nil {
					return err
				}
				scheduler.Start()
				defer scheduler.Stop()
				cfg.Checker = checker
			}

			srv := server.New(cfg)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&withAlerts, "alerts", true, "run scheduled alert checks alongside the API")
	return cmd
}
