package cli

import (
	"github.com/spf13/cobra"

	"weekend-momentum/internal/app"
)

var (
	weekendsSymbol  string
	weekendsSamples int
	weekendsRecent  int
)

var weekendsCmd = &cobra.Command{
	Use:   "weekends",
	Short: "Fetch bars and print weekend-window metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.WeekendsOptions{
			Symbol:  weekendsSymbol,
			Samples: weekendsSamples,
			Recent:  weekendsRecent,
		}
		return getApp().Weekends(cmd.Context(), opts)
	},
}

func init() {
	weekendsCmd.Flags().StringVar(&weekendsSymbol, "symbol", "", "Symbol to analyze (defaults to symbols.primary)")
	weekendsCmd.Flags().IntVar(&weekendsSamples, "samples", 0, "Daily bars to fetch (defaults to analytics.daily_lookback)")
	weekendsCmd.Flags().IntVar(&weekendsRecent, "recent", 12, "Number of recent windows to print")
}
