package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/optimize"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Score the stored plan and print ranked recommendations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePITeam(); err != nil {
			return err
		}
		plan, err := store.GetPlan(cmd.Context(), piID, teamID)
		if err != nil {
			return err
		}
		if plan == nil {
			return fmt.Errorf("no plan stored for PI %s team %s", piID, teamID)
		}

		optimizer := optimize.NewOptimizer(
			cfg.Optimization.TargetUtilizationLow, cfg.Optimization.TargetUtilizationHigh)
		result, err := optimizer.Optimize(plan)
		if err != nil {
			return err
		}

		fmt.Printf("readiness %.2f  (value %.2f, utilization %.2f, %d risks)\n\n",
			result.ReadinessScore, result.ValueScore, result.UtilizationScore, result.RiskCount)

		if len(result.Recommendations) == 0 {
			fmt.Println("no recommendations")
			return nil
		}
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Impact", "Action", "Item", "Detail"})
		for _, rec := range result.Recommendations {
			tw.AppendRow(table.Row{fmt.Sprintf("%.2f", rec.Impact), rec.Code, rec.ItemID, rec.Message})
		}
		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}
