// artplan plans a program increment: it reads the backlog from the work
// tracker, decomposes oversized stories, maps dependencies, packs
// iterations within capacity, validates value delivery, and scores
// readiness before committing assignments back.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/config"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/depgraph"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/events"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/linear"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/notify"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/planning"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/semantic"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/storage"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/storage/sqlite"
)

var (
	cfgFile string
	piID    string
	teamID  string

	cfg   *config.Config
	store storage.Storage
)

var rootCmd = &cobra.Command{
	Use:   "artplan",
	Short: "Capacity-aware program increment planning",
	Long: `artplan turns a raw backlog into a committed iteration plan.

A planning pass decomposes oversized stories, detects dependencies,
packs iterations under the utilization ceiling, validates that each
iteration delivers working software, and scores ART readiness. Plans
are stored locally; commit writes assignments back to the tracker.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		store, err = sqlite.New(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("opening plan store: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default artplan.yaml)")
	rootCmd.PersistentFlags().StringVar(&piID, "pi", "", "program increment id")
	rootCmd.PersistentFlags().StringVar(&teamID, "team", "", "team id")
}

// newCoordinator wires the planning pipeline from the loaded config.
func newCoordinator() *planning.Coordinator {
	tracker := linear.NewClient(cfg.Tracker)
	sink := notify.NewWebhookSink(cfg.Notify)
	listener := notify.Fanout{progressPrinter{}, sink}

	var extra []depgraph.Detector
	if cfg.Dependencies.EnableSemantic {
		key := cfg.Dependencies.AnthropicAPIKey
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		detector, err := semantic.NewDetector(key, cfg.Dependencies.Model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: semantic detection disabled: %v\n", err)
		} else {
			extra = append(extra, detector)
		}
	}
	return planning.NewCoordinator(cfg, tracker, store, listener, extra...)
}

// progressPrinter renders step-based progress events on the terminal.
type progressPrinter struct{}

func (progressPrinter) Handle(e events.Event) {
	switch e.Type {
	case events.TypeStageStarted:
		fmt.Printf("[%d/%d] %s...\n", e.Step, e.TotalSteps, e.Stage)
	case events.TypeItemsProcessed:
		fmt.Printf("       %d/%d items\n", e.Processed, e.Total)
	case events.TypeReadinessBelowThreshold:
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s %s\n", yellow("⚠"), e.Message)
	case events.TypePlanCommitted:
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s plan committed (readiness %.2f)\n", green("✓"), e.Readiness)
	}
}

func requirePITeam() error {
	if piID == "" || teamID == "" {
		return fmt.Errorf("--pi and --team are required")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
