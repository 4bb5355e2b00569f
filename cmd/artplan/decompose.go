package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/decompose"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/linear"
)

var decomposeCmd = &cobra.Command{
	Use:   "decompose",
	Short: "Preview story decomposition for the backlog",
	Long: `Show how oversized stories would be split, without writing
anything back to the tracker. A planning pass performs the same split
and creates the sub-items.`,
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

		engine := decompose.NewEngine(cfg.Decomposition.MaxStoryPoints, cfg.Decomposition.MaxChildren)
		batch, err := engine.DecomposeBatch(ctx, items)
		if err != nil {
			return err
		}

		if len(batch.Results) == 0 && len(batch.Failed) == 0 {
			fmt.Println("nothing to decompose")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Parent", "Points", "Child", "Points", "Criteria"})
		for _, result := range batch.Results {
			for _, child := range result.Children {
				tw.AppendRow(table.Row{
					result.Parent.ID, result.Parent.StoryPoints,
					child.Title, child.StoryPoints, len(child.AcceptanceCriteria),
				})
			}
		}
		tw.Render()

		if len(batch.Failed) > 0 {
			red := color.New(color.FgRed).SprintFunc()
			for _, f := range batch.Failed {
				fmt.Printf("%s %s: %s\n", red("✗"), f.ItemID, f.Reason)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decomposeCmd)
}
