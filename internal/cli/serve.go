package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"option-radar/internal/broker"
	"option-radar/internal/resilience"
	"option-radar/internal/web"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the browser dashboard",
		Long: `Start the Option Radar dashboard.

The page shows one tab per configured symbol with an expiry selector, a
strike-window slider, the signal table and the CE/PE open interest chart.
JSON is served on /api/dashboard and /api/chain/<SYMBOL>, a live feed on /ws,
and Prometheus metrics on /metrics.`,
		Example: `  radar serve
  radar serve --addr :8080
  radar serve --source file --fixtures ./snapshots`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				app.Config.Server.ListenAddr = addr
			}

			health := resilience.NewHealthMonitor()
			if nse, ok := app.Source.(*broker.NSESource); ok {
				health.RegisterComponent("upstream", resilience.BreakerHealthCheck(nse.Breaker()))
			}
			health.RegisterComponent("refresh", resilience.FreshnessHealthCheck(
				app.Service.LastSuccess, 3*app.Config.Radar.RefreshInterval))

			server := web.NewServer(app.Config, app.Service, health, app.Logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			output.Info("Option Radar dashboard on http://%s (source: %s)", server.Address(), app.Source.Name())
			output.Dim("Press Ctrl+C to stop")

			if err := server.Run(ctx); err != nil {
				output.Error("Dashboard stopped: %v", err)
				return err
			}
			app.Logger.Info().Msg("Dashboard shut down")
			return nil
		},
	}

	cmd.Flags().String("addr", "", "listen address (overrides server.listen_addr)")
	return cmd
}
