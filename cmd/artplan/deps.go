package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/depgraph"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/linear"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Detect and inspect dependencies in the backlog",
	Long: `Run dependency detection over the backlog without planning.
Shows the detected edges, flags hard-edge cycles, and prints the
critical path through the dependency graph.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePITeam(); err != nil {
			return err
		}
		ctx := cmd.Context()
		tracker := linear.NewClient(cfg.Tracker)

		items, invalid, err := tracker.ListBacklog(ctx, piID, teamID)
		if err != nil {
			return err
		}
		for _, e := range invalid {
			fmt.Fprintf(os.Stderr, "Warning: skipped item: %v\n", e)
		}

		mapper := depgraph.NewMapper(cfg.Dependencies.MinConfidence)
		graph, err := mapper.MapDependencies(ctx, items)
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Source", "Target", "Kind", "Strength", "Conf", "Rationale"})
		for _, rel := range graph.Edges() {
			tw.AppendRow(table.Row{
				rel.SourceID, rel.TargetID, rel.Kind, rel.Strength,
				fmt.Sprintf("%.2f", rel.Confidence), rel.Rationale,
			})
		}
		tw.Render()

		if _, err := graph.TopologicalOrder(); err != nil {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("\n%s %v\n", red("✗"), err)
			return nil
		}

		path, err := graph.ComputeCriticalPath()
		if err != nil {
			return err
		}
		if len(path.ItemIDs) > 0 {
			fmt.Printf("\ncritical path (%d points): %s\n",
				path.TotalPoints, strings.Join(path.ItemIDs, " → "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(depsCmd)
}
