package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run, inspect, and commit iteration plans",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var planTeams []string

var planRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full planning pass for one PI",
	Long: `Run the planning pipeline for a program increment and store the
optimized plan. Use --team for a single team or --teams for several
teams planned concurrently. Nothing is written to the tracker's
iteration assignments until 'plan commit'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if piID == "" {
			return fmt.Errorf("--pi is required")
		}
		coord := newCoordinator()
		ctx := cmd.Context()

		teams := planTeams
		if len(teams) == 0 {
			if teamID == "" {
				return fmt.Errorf("--team or --teams is required")
			}
			teams = []string{teamID}
		}

		results, err := coord.PlanTeams(ctx, piID, teams)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		for _, id := range teams {
			result := results[id]
			plan := result.Plan
			fmt.Printf("\n%s team %s: readiness %.2f, value %.2f, utilization %.0f%%\n",
				green("✓"), id, plan.ReadinessScore, plan.ValueDeliveryScore, plan.CapacityUtilization*100)
			if len(plan.UnplacedItems) > 0 {
				yellow := color.New(color.FgYellow).SprintFunc()
				fmt.Printf("%s %d items did not fit: %s\n",
					yellow("⚠"), len(plan.UnplacedItems), strings.Join(plan.UnplacedItems, ", "))
			}
			for _, invalid := range result.InvalidItems {
				fmt.Fprintf(os.Stderr, "Warning: skipped item: %v\n", invalid)
			}
			if len(result.Optimized.Recommendations) > 0 {
				fmt.Printf("  %d recommendations; see 'artplan optimize'\n", len(result.Optimized.Recommendations))
			}
		}
		return nil
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored plan for a (PI, team) pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePITeam(); err != nil {
			return err
		}
		plan, err := store.GetPlan(cmd.Context(), piID, teamID)
		if err != nil {
			return err
		}
		if plan == nil {
			return fmt.Errorf("no plan stored for PI %s team %s (run 'artplan plan run' first)", piID, teamID)
		}
		renderPlan(plan)
		return nil
	},
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries, err := store.ListPlans(cmd.Context())
		if err != nil {
			return err
		}
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"PI", "Team", "Status", "Readiness", "Updated"})
		for _, s := range summaries {
			tw.AppendRow(table.Row{s.PIID, s.TeamID, s.Status, fmt.Sprintf("%.2f", s.ReadinessScore), s.UpdatedAt})
		}
		tw.Render()
		return nil
	},
}

var exportPath string

var planExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored plan as YAML",
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
		data, err := yaml.Marshal(plan)
		if err != nil {
			return fmt.Errorf("encoding plan: %w", err)
		}
		if exportPath == "" {
			fmt.Print(string(data))
			return nil
		}
		if err := os.WriteFile(exportPath, data, 0644); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", exportPath)
		return nil
	},
}

var planCommitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Write the optimized plan's assignments back to the tracker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePITeam(); err != nil {
			return err
		}
		coord := newCoordinator()
		plan, err := coord.Commit(cmd.Context(), piID, teamID)
		if err != nil {
			return err
		}
		fmt.Printf("committed plan for PI %s team %s (%d iterations)\n", piID, teamID, len(plan.Iterations))
		return nil
	},
}

var planDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the stored plan for a (PI, team) pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePITeam(); err != nil {
			return err
		}
		return store.DeletePlan(cmd.Context(), piID, teamID)
	},
}

// renderPlan prints the iteration table plus summary scores.
func renderPlan(plan *types.ARTPlan) {
	fmt.Printf("PI %s / team %s  [%s]\n", plan.PIID, plan.TeamID, plan.Status)
	fmt.Printf("readiness %.2f  value %.2f  utilization %.0f%%  passes %d\n\n",
		plan.ReadinessScore, plan.ValueDeliveryScore, plan.CapacityUtilization*100, plan.OptimizationPasses)

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Iter", "Window", "Items", "Points", "Utilization"})
	for i := range plan.Iterations {
		it := &plan.Iterations[i]
		window := fmt.Sprintf("%s → %s", it.StartDate.Format("Jan 02"), it.EndDate.Format("Jan 02"))
		tw.AppendRow(table.Row{
			it.Index, window, len(it.AllocatedItems), it.AllocatedPoints,
			fmt.Sprintf("%.0f%%", it.Utilization()*100),
		})
	}
	tw.Render()

	if len(plan.UnplacedItems) > 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("\n%s unplaced: %s\n", yellow("⚠"), strings.Join(plan.UnplacedItems, ", "))
	}
}

func init() {
	planRunCmd.Flags().StringSliceVar(&planTeams, "teams", nil, "plan several teams concurrently")
	planExportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "write YAML to a file instead of stdout")

	planCmd.AddCommand(planRunCmd)
	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planExportCmd)
	planCmd.AddCommand(planCommitCmd)
	planCmd.AddCommand(planDeleteCmd)
	rootCmd.AddCommand(planCmd)
}
