// Command queen is the Orchestrator CLI entry point (§6): given a task, it
// creates a session, produces an OrchestrationPlan, materializes per-worker
// prompt files, and optionally runs the Monitor Loop until every worker
// completes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hivemind-ai/queen/internal/config"
	"github.com/hivemind-ai/queen/internal/logger"
	"github.com/hivemind-ai/queen/internal/modelrouter"
	"github.com/hivemind-ai/queen/internal/monitor"
	"github.com/hivemind-ai/queen/internal/orchestrator"
	"github.com/hivemind-ai/queen/internal/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		sessionID       = flag.String("session", "", "existing session id, or empty to create one from --task")
		task            = flag.String("task", "", "task description (required)")
		model           = flag.String("model", orchestrator.DefaultModel, "logical model name")
		complexity      = flag.Int("complexity", 2, "initial complexity level (1-4), used only when creating a session")
		doMonitor       = flag.Bool("monitor", false, "run the Monitor Loop after planning")
		monitorInterval = flag.Int("monitor-interval", int(monitor.DefaultInterval.Seconds()), "monitor poll interval in seconds")
	)
	flag.Parse()

	log := logger.NewStandard()
	log.SetLevel(logger.LevelFromEnv())

	if *task == "" {
		fmt.Fprintln(os.Stderr, "queen: --task is required")
		return 1
	}

	root, err := session.DetectProjectRoot("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "queen: %v\n", err)
		return 1
	}

	if err := config.LoadDotEnv(root); err != nil {
		fmt.Fprintf(os.Stderr, "queen: %v\n", err)
		return 1
	}
	if err := config.Validate(config.ComponentOrchestrator); err != nil {
		fmt.Fprintf(os.Stderr, "queen: %v\n", err)
		return 1
	}
	cfg := config.FromEnv(root)

	if cfg.RedisURL != "" {
		mirror := session.NewRedisMirror(cfg.RedisURL)
		defer mirror.Close()
		session.ActiveMirror = mirror
	}

	id := *sessionID
	if id == "" {
		sess, err := session.CreateSession(root, *task, *complexity, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "queen: %v\n", err)
			return 1
		}
		id = sess.SessionID
	}

	router := modelrouter.NewRouter()
	router.RegisterDefault(modelrouter.NewHTTPBackend(cfg.ModelServiceURL))

	table, err := orchestrator.LoadWorkerTypeTable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "queen: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	orch := orchestrator.New(root, router, table, log)
	plan, dispatches, err := orch.Plan(ctx, id, *task, *complexity, *model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "queen: orchestration failed: %v\n", err)
		return 1
	}

	fmt.Printf("session %s: %d worker(s) planned (%s)\n", id, len(plan.WorkerAssignments), plan.ExecutionStrategy)
	for _, d := range dispatches {
		fmt.Printf("  - %s: %s\n", d.WorkerType, d.TaskDescription)
	}

	if *doMonitor {
		loop := monitor.New(root, lipglossRenderer{})
		loop.Interval = time.Duration(*monitorInterval) * time.Second
		if err := loop.Run(ctx, id); err != nil {
			fmt.Fprintf(os.Stderr, "queen: monitor loop: %v\n", err)
			return 1
		}
	}

	return 0
}

// lipglossRenderer styles the Monitor Loop's one-line status updates for
// an interactive terminal (SPEC_FULL §4.F ambient addition), grounded on
// the terminal-styling stack in _examples/kingrea-The-Lattice and
// _examples/zjrosen-perles.
type lipglossRenderer struct{}

var statusStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

func (lipglossRenderer) Render(line string) {
	fmt.Println(statusStyle.Render("queen") + " " + line)
}
