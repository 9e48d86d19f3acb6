// Package cli provides the command-line interface for the option radar.
package cli

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"option-radar/internal/broker"
	"option-radar/internal/config"
	"option-radar/internal/logging"
	"option-radar/internal/radar"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-01-12"
)

// App holds the application dependencies. They are built in the root
// command's PersistentPreRunE once flags are parsed.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Source    broker.ChainSource
	Service   *radar.Service
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	app := &App{Logger: logger}

	rootCmd := &cobra.Command{
		Use:   "radar",
		Short: "Option Radar - NSE option chain signal dashboard",
		Long: `Option Radar tracks the NSE index option chains around the at-the-money strike.

It tags every call strike with an open interest signal (long buildup, short
buildup, short covering, long unwinding) and reports the put/call OI ratio.

Use 'radar serve' to start the browser dashboard, or 'radar chain NIFTY' for
a one-shot table in the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/option-radar)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("yaml", false, "output in YAML format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("source", "", "data source override: nse or file")
	rootCmd.PersistentFlags().String("fixtures", "", "snapshot directory for the file source")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newExpiriesCmd(app))

	return rootCmd
}

func (a *App) init(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	if src, _ := cmd.Flags().GetString("source"); src != "" {
		cfg.Radar.Source = strings.ToLower(src)
	}
	if fx, _ := cmd.Flags().GetString("fixtures"); fx != "" {
		cfg.Radar.FixtureDir = fx
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating flags: %w", err)
	}

	a.Config = cfg
	a.ConfigDir = dir
	if a.ConfigDir == "" {
		a.ConfigDir = config.DefaultConfigDir()
	}

	a.Logger = logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		ConsoleOut: cmd.ErrOrStderr(),
	})
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}

	source, err := broker.New(cfg, a.Logger)
	if err != nil {
		return err
	}
	a.Source = source
	a.Service = radar.NewService(source, cfg, a.Logger)

	a.Logger.Debug().
		Str("source", source.Name()).
		Strs("symbols", cfg.Radar.Symbols).
		Msg("Option radar initialized")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Version needs no config.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Structured(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Option Radar v%s\n", Version)
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
			if output.IsStructured() {
				return output.Structured(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Structured(map[string]string{"path": app.ConfigDir})
			}
			output.Println(app.ConfigDir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsStructured() {
				return output.Structured(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Radar")
	output.Printf("  Symbols:         %s\n", strings.Join(cfg.Radar.Symbols, ", "))
	output.Printf("  Source:          %s\n", cfg.Radar.Source)
	if cfg.Radar.Source == config.SourceFile {
		output.Printf("  Fixture Dir:     %s\n", cfg.Radar.FixtureDir)
	}
	output.Printf("  Strike Step:     %g\n", cfg.Radar.StrikeStep)
	for _, sym := range cfg.Radar.Symbols {
		if step := cfg.StrikeStepFor(sym); step != cfg.Radar.StrikeStep {
			output.Printf("    %-14s %g\n", sym+":", step)
		}
	}
	output.Printf("  Half Width:      %d strikes\n", cfg.Radar.DefaultHalfWidth)
	output.Printf("  Refresh:         %s\n", cfg.Radar.RefreshInterval)
	output.Println()

	output.Bold("Upstream")
	output.Printf("  Chain URL:       %s\n", cfg.ChainURL())
	output.Printf("  Timeout:         %s\n", cfg.Upstream.Timeout)
	output.Printf("  Retry Delay:     %s - %s\n", cfg.Upstream.RetryMinDelay, cfg.Upstream.RetryMaxDelay)
	output.Printf("  Rate Limit:      %g req/s (burst %d)\n", cfg.Upstream.RequestsPerSecond, cfg.Upstream.Burst)
	output.Printf("  Breaker:         %d failures, %s cooldown\n", cfg.Upstream.BreakerFailures, cfg.Upstream.BreakerCooldown)
	output.Println()

	output.Bold("Server")
	output.Printf("  Listen:          %s\n", cfg.Server.ListenAddr)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	if cfg.Logging.File {
		output.Printf("  File:            %s\n", cfg.Logging.FilePath)
	}
	return nil
}
