// Package cli provides the command-line interface for the IPO tracker.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ipo-tracker/internal/config"
	apperrors "ipo-tracker/internal/errors"
	"ipo-tracker/internal/logging"
	"ipo-tracker/internal/quote"
	"ipo-tracker/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-01-01"
)

// App holds the application dependencies. Store and Quotes are opened on
// first use so that commands like version never touch the database.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.RecordStore
	Quotes *quote.Client

	userFlag string
}

// NewRootCmd creates the root command for the CLI. logger is used until the
// configuration has been loaded.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{Logger: logger})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ipotracker",
		Short: "IPO Tracker - track IPOs, holdings and price alerts",
		Long: `IPO Tracker keeps a list of IPOs and portfolio holdings, values them at
live prices, splits them into profited and losted companies, and checks
gain/loss alert rules at base, sector and company level.

Use 'ipotracker <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/ipo-tracker)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&app.userFlag, "user", "", "user id (overrides [user] id)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newSectorCmd(app))
	rootCmd.AddCommand(newIpoCmd(app))
	rootCmd.AddCommand(newRuleCmd(app))
	rootCmd.AddCommand(newPortfolioCmd(app))
	rootCmd.AddCommand(newClassifyCmd(app))
	rootCmd.AddCommand(newAlertsCmd(app))
	rootCmd.AddCommand(newServeCmd(app))

	return rootCmd
}

// setup loads the configuration and builds the logger. A preset Config is
// kept as is.
func (a *App) setup(cmd *cobra.Command) error {
	if a.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		a.Config = cfg
		a.Logger = logging.NewLoggerWithConfig(cfg.Logging())
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}
	if a.userFlag != "" {
		a.Config.User.ID = a.userFlag
	}
	return nil
}

// user returns the configured user id.
func (a *App) user() (string, error) {
	id := strings.TrimSpace(a.Config.User.ID)
	if id == "" {
		return "", fmt.Errorf("%w: set [user] id, IPOTRACKER_USER_ID or --user", apperrors.ErrMissingUser)
	}
	return id, nil
}

func (a *App) store() (store.RecordStore, error) {
	if a.Store == nil {
		s, err := store.NewSQLiteStore(a.Config.Store.Path)
		if err != nil {
			return nil, err
		}
		a.Store = s
		a.Logger.Debug().Str("path", a.Config.Store.Path).Msg("SQLite store initialized")
	}
	return a.Store, nil
}

func (a *App) quotes() *quote.Client {
	if a.Quotes == nil {
		q := a.Config.Quote
		a.Quotes = quote.NewClient(
			quote.WithBaseURL(q.BaseURL),
			quote.WithTimeout(q.Timeout),
			quote.WithRateLimit(q.RateLimit, q.Burst),
			quote.WithMaxAttempts(q.MaxAttempts),
			quote.WithLogger(a.Logger),
		)
	}
	return a.Quotes
}

// session returns the user and store every data command needs.
func (a *App) session() (string, store.RecordStore, error) {
	user, err := a.user()
	if err != nil {
		return "", nil, err
	}
	s, err := a.store()
	if err != nil {
		return "", nil, err
	}
	return user, s, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}

// resolveSector maps a sector id or a case-insensitive sector name to an id.
func resolveSector(ctx context.Context, s store.RecordStore, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	sectors, err := s.ListSectors(ctx)
	if err != nil {
		return "", err
	}
	for _, sec := range sectors {
		if sec.ID == ref || strings.EqualFold(sec.Name, ref) {
			return sec.ID, nil
		}
	}
	return "", apperrors.NewValidationError("sector", ref, "unknown sector")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("IPO Tracker v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": app.Config.Dir})
			}
			output.Println(app.Config.Dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("User")
	output.Printf("  ID:              %s\n", orDash(cfg.User.ID))
	output.Println()

	output.Bold("Store")
	output.Printf("  Path:            %s\n", cfg.Store.Path)
	output.Println()

	output.Bold("Quote Service")
	output.Printf("  Base URL:        %s\n", cfg.Quote.BaseURL)
	output.Printf("  Timeout:         %s\n", cfg.Quote.Timeout)
	output.Printf("  Rate Limit:      %.1f/s (burst %d)\n", cfg.Quote.RateLimit, cfg.Quote.Burst)
	output.Printf("  Max Attempts:    %d\n", cfg.Quote.MaxAttempts)
	output.Printf("  Concurrency:     %d\n", cfg.Quote.Concurrency)
	output.Println()

	output.Bold("Alerts")
	output.Printf("  Schedule:        %s (IST)\n", cfg.Alerts.Schedule)
	output.Printf("  Portfolio Only:  %v\n", cfg.Alerts.PortfolioOnly)
	output.Printf("  All Users:       %v\n", cfg.Alerts.AllUsers)
	output.Println()

	output.Bold("Server")
	output.Printf("  Port:            %d\n", cfg.Server.Port)
	output.Printf("  Dev Mode:        %v\n", cfg.Server.DevMode)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Log.Level)
	output.Printf("  File:            %v (%s)\n", cfg.Log.File, cfg.Log.FilePath)
}
