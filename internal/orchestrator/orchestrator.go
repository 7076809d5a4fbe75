package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hivemind-ai/queen/internal/eventlog"
	"github.com/hivemind-ai/queen/internal/logger"
	"github.com/hivemind-ai/queen/internal/modelrouter"
	"github.com/hivemind-ai/queen/internal/prompts"
	"github.com/hivemind-ai/queen/internal/session"
)

// Orchestrator is the single strategic decision-making agent (§4.E). It
// owns no persistent state of its own beyond the worker-type table; all
// durable state lives in the session substrate.
type Orchestrator struct {
	Root   string
	Router *modelrouter.Router
	Table  *Table
	Log    logger.Logger
	Now    func() time.Time
}

// New constructs an Orchestrator. now defaults to time.Now when nil.
func New(root string, router *modelrouter.Router, table *Table, log logger.Logger) *Orchestrator {
	return &Orchestrator{Root: root, Router: router, Table: table, Log: log, Now: time.Now}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Plan runs the full orchestration pipeline for an existing session
// (created by the caller via internal/session.CreateSession): strategic
// assessment, worker selection, plan assembly, prompt-batch generation,
// STATE.json patching, and dispatch preparation (§4.E dataflow).
func (o *Orchestrator) Plan(ctx context.Context, sessionID, task string, complexityLevel int, model string) (*OrchestrationPlan, []Dispatch, error) {
	sessionPath := session.GetSessionPath(o.Root, sessionID)
	elog := eventlog.New(sessionPath, stderrf(o.Log))

	elog.AppendEvent(ctx, eventlog.TypeQueenSpawned, session.Coordinator, map[string]interface{}{
		"task": task, "complexity_level": complexityLevel, "model": model,
	})
	elog.AppendEvent(ctx, eventlog.TypeAnalysisStarted, session.Coordinator, nil)

	plan, err := o.buildPlan(ctx, sessionID, sessionPath, task, complexityLevel, model, elog)
	if err != nil {
		elog.AppendDebug(ctx, eventlog.LevelError, session.Coordinator, "orchestration failed", map[string]interface{}{"error": err.Error()})
		return nil, nil, err
	}

	elog.AppendEvent(ctx, eventlog.TypeAnalysisCompleted, session.Coordinator, map[string]interface{}{
		"workers_selected": plan.WorkersSpawned,
		"strategy":         plan.ExecutionStrategy,
	})

	assignments := make([]prompts.Assignment, 0, len(plan.WorkerAssignments))
	for _, a := range plan.WorkerAssignments {
		assignments = append(assignments, prompts.Assignment{
			WorkerType:        a.WorkerType,
			TaskFocus:         a.TaskFocus,
			Dependencies:      a.Dependencies,
			EstimatedDuration: a.EstimatedDuration,
			Priority:          string(a.Priority),
		})
	}
	if err := prompts.GenerateBatch(ctx, sessionPath, sessionID, assignments, plan.CodebaseInsights, elog); err != nil {
		elog.AppendDebug(ctx, eventlog.LevelError, session.Coordinator, "prompt generation failed", map[string]interface{}{"error": err.Error()})
		return nil, nil, fmt.Errorf("orchestrator: generating prompts: %w", err)
	}

	dispatches := make([]Dispatch, 0, len(plan.WorkerAssignments))
	for _, a := range plan.WorkerAssignments {
		promptText, rerr := readPromptText(sessionPath, a.WorkerType)
		if rerr != nil {
			return nil, nil, fmt.Errorf("orchestrator: reading prompt for dispatch: %w", rerr)
		}
		dispatches = append(dispatches, Dispatch{
			WorkerType:      a.WorkerType,
			TaskDescription: a.TaskFocus,
			PromptText:      promptText,
		})
	}

	elog.AppendEvent(ctx, eventlog.TypeTasksAssigned, session.Coordinator, map[string]interface{}{
		"assignments": plan.WorkerAssignments,
		"strategy":    plan.ExecutionStrategy,
	})

	patch := map[string]interface{}{
		"status": string(session.StatusWorkersSpawning),
		"coordination": map[string]interface{}{
			"expected_workers": plan.WorkersSpawned,
		},
	}
	if _, err := session.UpdateState(o.Root, sessionID, patch, o.now()); err != nil {
		return nil, nil, fmt.Errorf("orchestrator: patching state after planning: %w", err)
	}

	return plan, dispatches, nil
}

// buildPlan asks the Model Router for a plan; on a structurally invalid
// response it falls back to a deterministic plan (§4.E "Resilience").
func (o *Orchestrator) buildPlan(ctx context.Context, sessionID, sessionPath, task string, complexityLevel int, model string, elog *eventlog.Log) (*OrchestrationPlan, error) {
	var modelPlan *OrchestrationPlan

	invokeErr := InvokeWithRetry(ctx, model, func(ctx context.Context, attemptModel string) error {
		resp, err := o.Router.Complete(ctx, attemptModel, modelrouter.Request{
			Messages: []modelrouter.Message{
				{Role: "system", Content: []modelrouter.ContentPart{{Kind: "text", Text: "You are the queen-orchestrator. Return a JSON OrchestrationPlan."}}},
				{Role: "user", Content: []modelrouter.ContentPart{{Kind: "text", Text: task}}},
			},
			WantStructured: true,
		})
		if err != nil {
			return err
		}
		plan, parseErr := parseModelPlan(resp, sessionID, sessionPath, task, complexityLevel, o.Table, o.now())
		if parseErr != nil {
			// Structurally invalid JSON is resilience territory, not a
			// retryable transport failure: stop retrying and let the
			// caller fall back deterministically.
			return nil
		}
		modelPlan = plan
		return nil
	})

	if invokeErr != nil {
		elog.AppendDebug(ctx, eventlog.LevelWarning, session.Coordinator, "model backend unavailable after retries, using fallback plan", map[string]interface{}{"error": invokeErr.Error()})
		return FallbackPlan(sessionID, sessionPath, task, complexityLevel, o.Table, o.now()), nil
	}
	if modelPlan == nil {
		elog.AppendDebug(ctx, eventlog.LevelWarning, session.Coordinator, "model returned structurally invalid plan JSON, using fallback plan", nil)
		return FallbackPlan(sessionID, sessionPath, task, complexityLevel, o.Table, o.now()), nil
	}
	return modelPlan, nil
}

// parseModelPlan attempts to interpret a structured router Response as an
// OrchestrationPlan's worker_assignments; any failure to find a usable
// list of worker types is a "structurally invalid" response (§4.E).
func parseModelPlan(resp *modelrouter.Response, sessionID, sessionPath, task string, complexityLevel int, table *Table, now time.Time) (*OrchestrationPlan, error) {
	if resp == nil || len(resp.Parts) == 0 || resp.Parts[0].Kind != "tool_call" {
		return nil, fmt.Errorf("orchestrator: model response was not structured")
	}

	raw, err := json.Marshal(resp.Parts[0].Arguments)
	if err != nil {
		return nil, err
	}
	var body struct {
		WorkerTypes []string `json:"worker_types"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.WorkerTypes) == 0 {
		return nil, fmt.Errorf("orchestrator: model response missing worker_types")
	}

	recs := make([]Recommendation, 0, len(body.WorkerTypes))
	for _, wt := range body.WorkerTypes {
		if !table.Valid(wt) {
			continue
		}
		recs = append(recs, Recommendation{WorkerType: wt, StrategicValue: PriorityMedium, Reason: "selected by model-driven orchestration plan"})
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("orchestrator: model response named no valid worker types")
	}

	strategy := StrategyParallel
	if hasDependencyWorkers(recs, table) {
		strategy = StrategyHybrid
	}
	return AssemblePlan(sessionID, sessionPath, task, complexityLevel, recs, strategy, table, nil, now), nil
}

func readPromptText(sessionPath, workerType string) (string, error) {
	data, err := os.ReadFile(session.PromptPath(sessionPath, workerType))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func stderrf(log logger.Logger) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		if log != nil {
			log.Error(fmt.Sprintf(format, args...))
		}
	}
}
