package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"option-radar/internal/analysis/optionchain"
	"option-radar/internal/broker"
	"option-radar/internal/models"
	"option-radar/internal/radar"
	"option-radar/pkg/utils"
)

const barWidth = 40

func newChainCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain <symbol>",
		Short: "Show the option chain signals around ATM",
		Long: `Fetch the option chain for a symbol and show the strikes around the
at-the-money strike with their call-side OI signal and the put/call ratio.`,
		Example: `  radar chain NIFTY
  radar chain BANKNIFTY --expiry 04-Jan-2024 --strikes 8
  radar chain NIFTY --source file --fixtures ./snapshots --yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			timeout := app.Config.Upstream.Timeout*3 + app.Config.Upstream.RetryMaxDelay
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			symbol, err := broker.NormalizeSymbol(args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}
			expiry, _ := cmd.Flags().GetString("expiry")
			strikes, _ := cmd.Flags().GetInt("strikes")
			if strikes < optionchain.MinHalfWidth || strikes > optionchain.MaxHalfWidth {
				err := fmt.Errorf("--strikes must be between %d and %d", optionchain.MinHalfWidth, optionchain.MaxHalfWidth)
				output.Error("%v", err)
				return err
			}

			view := app.Service.RefreshSymbol(ctx, radar.Selection{Symbol: symbol, Expiry: expiry, HalfWidth: strikes})

			if output.IsStructured() {
				if err := output.Structured(view); err != nil {
					return err
				}
			} else {
				noChart, _ := cmd.Flags().GetBool("no-chart")
				displayChain(output, view, utils.GetMarketStatus(), !noChart)
			}

			if !view.OK() {
				return fmt.Errorf("%s: %s", symbol, strings.Join(view.Warnings, "; "))
			}
			return nil
		},
	}

	cmd.Flags().String("expiry", "", "expiry as published, e.g. 28-Dec-2023 (default: nearest)")
	cmd.Flags().Int("strikes", optionchain.DefaultHalfWidth, "strikes on each side of ATM (1-20)")
	cmd.Flags().Bool("no-chart", false, "hide the OI bar chart")

	return cmd
}

func newExpiriesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "expiries <symbol>",
		Short: "List published expiries for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol, err := broker.NormalizeSymbol(args[0])
			if err != nil {
				return err
			}
			snap, err := app.Source.FetchOptionChain(ctx, symbol)
			if err != nil {
				output.Error("Failed to fetch data from NSE.")
				return err
			}

			if output.IsStructured() {
				return output.Structured(map[string]interface{}{
					"symbol":   symbol,
					"expiries": snap.ExpiryDates,
				})
			}
			output.Bold("Expiries - %s", symbol)
			for i, e := range snap.ExpiryDates {
				marker := "  "
				if i == 0 {
					marker = output.Green("* ")
				}
				output.Printf("%s%s\n", marker, e)
			}
			return nil
		},
	}
}

func displayChain(output *Output, view models.SymbolView, status models.MarketStatus, chart bool) {
	output.Println()
	output.Bold("Option Radar - %s", view.Symbol)
	output.Printf("  Market: %s\n", output.MarketStatus(status))
	for _, w := range view.Warnings {
		output.Warning("⚠ %s", w)
	}
	a := view.Analysis
	if a == nil {
		return
	}

	output.Printf("  Spot: %s  ATM: %s  Expiry: %s  Window: ±%d\n\n",
		output.BoldText(utils.FormatPrice(a.SpotPrice)),
		output.BoldText(fmt.Sprint(a.ATMStrike)),
		a.Expiry, a.HalfWidth)

	table := NewTable(output, "Strike", "CE OI", "CE Chg OI", "CE LTP", "PE OI", "PE Chg OI", "PE LTP", "Signal").
		AlignRight(0, 1, 2, 3, 4, 5, 6)
	for _, r := range a.Rows {
		strike := utils.FormatStrike(r.StrikePrice)
		if optionchain.IsATM(r.StrikePrice, a.ATMStrike) {
			strike = output.BoldText("▶ " + strike)
		}
		table.AddRow(
			strike,
			cellInt(r.CEOpenInterest),
			output.changeCell(r.CEChangeInOpenInterest),
			cellPrice(r.CELastPrice),
			cellInt(r.PEOpenInterest),
			output.changeCell(r.PEChangeInOpenInterest),
			cellPrice(r.PELastPrice),
			output.SignalTag(r.Signal),
		)
	}
	table.Render()

	output.Println()
	var counts []string
	for _, tag := range models.AllSignalTags {
		if n := a.Counts[tag]; n > 0 {
			counts = append(counts, fmt.Sprintf("%s %d", output.SignalTag(tag), n))
		}
	}
	output.Printf("  %s\n", strings.Join(counts, "  "))
	output.Printf("  PCR: %s  (PE OI %s / CE OI %s)\n\n",
		output.BoldText(utils.FormatPCR(a.PCR.Ratio)),
		utils.FormatIndianNumber(a.PCR.TotalPutOI),
		utils.FormatIndianNumber(a.PCR.TotalCallOI))

	if !chart {
		return
	}
	for _, line := range renderBars(a.Series, barWidth) {
		output.Println(output.colorBars(line))
	}
}

// SignalTag returns the coloured label for a signal.
func (o *Output) SignalTag(tag models.SignalTag) string {
	switch tag {
	case models.SignalLongBuildup:
		return o.paint(tag.Label(), color.FgGreen)
	case models.SignalShortBuildup:
		return o.paint(tag.Label(), color.FgRed)
	case models.SignalShortCovering:
		return o.paint(tag.Label(), color.FgCyan)
	case models.SignalLongUnwinding:
		return o.paint(tag.Label(), color.FgYellow)
	default:
		return o.DimText(tag.Label())
	}
}

func (o *Output) changeCell(v *int64) string {
	s := cellInt(v)
	switch {
	case v == nil:
		return s
	case *v > 0:
		return o.Green("+" + s)
	case *v < 0:
		return o.Red(s)
	}
	return s
}

// colorBars paints the CE run orange and the PE run green.
func (o *Output) colorBars(line string) string {
	if !o.colorEnabled {
		return line
	}
	for glyph, attr := range map[string]color.Attribute{ceGlyph: color.FgHiYellow, peGlyph: color.FgGreen} {
		if n := strings.Count(line, glyph); n > 0 {
			run := strings.Repeat(glyph, n)
			line = strings.Replace(line, run, o.paint(run, attr), 1)
		}
	}
	return line
}

func cellInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return utils.FormatIndianNumber(*v)
}

func cellPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return utils.FormatPrice(*v)
}
