// Command worker is the Worker Runner CLI entry point (§6): it executes
// exactly one worker type's lifecycle within an already-existing session
// and exits. It never retries a model call itself (§7/§9) — a retry is an
// orchestrator-level concern.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hivemind-ai/queen/internal/config"
	"github.com/hivemind-ai/queen/internal/logger"
	"github.com/hivemind-ai/queen/internal/modelrouter"
	"github.com/hivemind-ai/queen/internal/orchestrator"
	"github.com/hivemind-ai/queen/internal/session"
	"github.com/hivemind-ai/queen/internal/worker"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		sessionID  = flag.String("session", "", "session id to run within (required)")
		workerType = flag.String("worker", "", "worker type to execute, e.g. backend-worker (required)")
		model      = flag.String("model", orchestrator.DefaultModel, "logical model name")
	)
	flag.Parse()

	if *sessionID == "" || *workerType == "" {
		fmt.Fprintln(os.Stderr, "worker: --session and --worker are required")
		return 1
	}

	root, err := session.DetectProjectRoot("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		return 1
	}

	// A missing session directory must fail fast, before any config side
	// effects, with no files written (§8 scenario S5).
	if err := session.EnsureSessionExists(root, *sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		return 1
	}

	if err := config.LoadDotEnv(root); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		return 1
	}
	if err := config.Validate(config.ComponentWorker); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		return 1
	}
	cfg := config.FromEnv(root)

	if cfg.RedisURL != "" {
		mirror := session.NewRedisMirror(cfg.RedisURL)
		defer mirror.Close()
		session.ActiveMirror = mirror
	}

	log := logger.NewStandard()
	log.SetLevel(logger.LevelFromEnv())

	router := modelrouter.NewRouter()
	router.RegisterDefault(modelrouter.NewHTTPBackend(cfg.ModelServiceURL))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := worker.New(root, router, log)
	result, err := runner.Run(ctx, *sessionID, *workerType, *model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %s failed: %v\n", *workerType, err)
		return 1
	}

	fmt.Printf("%s: %s\n", *workerType, result.Base().Status)
	return 0
}
