// Package repl is the interactive shell for inspecting and driving
// planning passes without re-invoking the CLI per command.
package repl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/planning"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/storage"
)

// REPL represents the interactive shell.
type REPL struct {
	store    storage.Storage
	coord    *planning.Coordinator
	rl       *readline.Instance
	ctx      context.Context
	commands map[string]CommandHandler
}

// CommandHandler handles a specific command.
type CommandHandler func(args []string) error

// Config holds REPL configuration.
type Config struct {
	Store       storage.Storage
	Coordinator *planning.Coordinator
}

// New creates a new REPL instance.
func New(cfg *Config) (*REPL, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}

	r := &REPL{
		store:    cfg.Store,
		coord:    cfg.Coordinator,
		commands: make(map[string]CommandHandler),
	}
	r.registerCommands()
	return r, nil
}

// Run starts the REPL loop.
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("artplan> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			} else if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if err == io.EOF {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

// processInput dispatches a single line of input.
func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	if handler, ok := r.commands[parts[0]]; ok {
		return handler(parts[1:])
	}
	return fmt.Errorf("unknown command %q, type 'help' for available commands", parts[0])
}

func (r *REPL) registerCommands() {
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["plans"] = r.cmdPlans
	r.commands["show"] = r.cmdShow
	r.commands["run"] = r.cmdRun
	r.commands["commit"] = r.cmdCommit
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
}

func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n", cyan("artplan interactive shell"))
	fmt.Println("Type 'help' for available commands, 'exit' to quit")
	fmt.Println()
}

func (r *REPL) cmdHelp(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	commands := []struct {
		name string
		desc string
	}{
		{"plans", "List stored plans"},
		{"show <pi> <team>", "Show the stored plan for a (PI, team) pair"},
		{"run <pi> <team>", "Run a planning pass"},
		{"commit <pi> <team>", "Commit the optimized plan to the tracker"},
		{"help, ?", "Show this help message"},
		{"exit, quit", "Exit the shell"},
	}
	fmt.Println()
	for _, cmd := range commands {
		fmt.Printf("  %-22s %s\n", green(cmd.name), cmd.desc)
	}
	fmt.Println()
	return nil
}

func (r *REPL) cmdPlans(args []string) error {
	summaries, err := r.store.ListPlans(r.ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no plans stored")
		return nil
	}
	for _, s := range summaries {
		fmt.Printf("  %s / %s  [%s]  readiness %.2f  %s\n",
			s.PIID, s.TeamID, s.Status, s.ReadinessScore, s.UpdatedAt)
	}
	return nil
}

func (r *REPL) cmdShow(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: show <pi> <team>")
	}
	plan, err := r.store.GetPlan(r.ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if plan == nil {
		return fmt.Errorf("no plan stored for PI %s team %s", args[0], args[1])
	}

	fmt.Printf("PI %s / team %s  [%s]  readiness %.2f\n",
		plan.PIID, plan.TeamID, plan.Status, plan.ReadinessScore)
	for i := range plan.Iterations {
		it := &plan.Iterations[i]
		fmt.Printf("  iteration %d: %d items, %d points (%.0f%%)\n",
			it.Index, len(it.AllocatedItems), it.AllocatedPoints, it.Utilization()*100)
	}
	if len(plan.UnplacedItems) > 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s unplaced: %s\n", yellow("⚠"), strings.Join(plan.UnplacedItems, ", "))
	}
	return nil
}

func (r *REPL) cmdRun(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: run <pi> <team>")
	}
	if r.coord == nil {
		return fmt.Errorf("no tracker configured; run passes from the CLI")
	}
	result, err := r.coord.RunPass(r.ctx, args[0], args[1])
	if err != nil {
		return err
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s pass complete: readiness %.2f, %d items in %d iterations\n",
		green("✓"), result.Plan.ReadinessScore, len(result.Plan.Items), len(result.Plan.Iterations))
	return nil
}

func (r *REPL) cmdCommit(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: commit <pi> <team>")
	}
	if r.coord == nil {
		return fmt.Errorf("no tracker configured; commit from the CLI")
	}
	plan, err := r.coord.Commit(r.ctx, args[0], args[1])
	if err != nil {
		return err
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s committed %d iterations\n", green("✓"), len(plan.Iterations))
	return nil
}

func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s Goodbye!\n", green("✓"))
	r.rl.Close()
	return io.EOF
}
