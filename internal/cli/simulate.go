package cli

import (
	"github.com/spf13/cobra"
)

var simulateSwingPct float64

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate a volatility alert with synthetic bars",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), simulateSwingPct)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateSwingPct, "swing", 8, "Daily close-to-close swing in percent for the synthetic series")
}
