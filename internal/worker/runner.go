package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hivemind-ai/queen/internal/eventlog"
	"github.com/hivemind-ai/queen/internal/hiveerrors"
	"github.com/hivemind-ai/queen/internal/logger"
	"github.com/hivemind-ai/queen/internal/modelrouter"
	"github.com/hivemind-ai/queen/internal/session"
)

// Runner is the generic Worker Execution Contract envelope (§4.D). Every
// concrete worker type is an invocation of Run with a different
// workerType argument, never a subclass (§9 redesign flag).
type Runner struct {
	Root   string
	Router *modelrouter.Router
	Log    logger.Logger
	Now    func() time.Time
}

// New constructs a Runner. now defaults to time.Now when nil.
func New(root string, router *modelrouter.Router, log logger.Logger) *Runner {
	return &Runner{Root: root, Router: router, Log: log, Now: time.Now}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run executes the full nine-step lifecycle for one worker type within an
// existing session (§4.D):
//  1. validate the session exists
//  2. log spawn
//  3. read the prompt file written by internal/prompts
//  4. patch STATE.json to mark the worker running
//  5. invoke the model router once (workers never retry; see invoke)
//  6. validate/enrich the response into a typed Result
//  7. write notes + JSON output files
//  8. patch STATE.json to completed, carrying domain scores
//  9. log completion or failure
func (r *Runner) Run(ctx context.Context, sessionID, workerType, model string) (Result, error) {
	if err := session.EnsureSessionExists(r.Root, sessionID); err != nil {
		return nil, err
	}
	sessionPath := session.GetSessionPath(r.Root, sessionID)
	elog := eventlog.New(sessionPath, r.stderrf())

	sess, err := session.ReadState(r.Root, sessionID)
	if err != nil {
		return nil, err
	}

	elog.AppendEvent(ctx, eventlog.TypeWorkerSpawned, workerType, map[string]interface{}{"model": model})

	promptBytes, err := os.ReadFile(session.PromptPath(sessionPath, workerType))
	if err != nil {
		elog.AppendDebug(ctx, eventlog.LevelError, workerType, "prompt file missing", map[string]interface{}{"error": err.Error()})
		return nil, hiveerrors.New("worker.Run", hiveerrors.KindProtocolViolation, sessionID, err)
	}
	elog.AppendEvent(ctx, eventlog.TypePromptFileRead, workerType, map[string]interface{}{"bytes": len(promptBytes)})

	startedAt := r.now()
	if _, err := session.UpdateState(r.Root, sessionID, runningPatch(workerType, startedAt), startedAt); err != nil {
		return nil, err
	}

	cfg := session.WorkerConfig{
		WorkerType:        workerType,
		SessionID:         sessionID,
		EscalationTimeout: session.DefaultEscalationTimeout,
		EscalationChain:   session.DefaultEscalationChain(),
		ComplexityLevel:   sess.ComplexityLevel,
		TaskDescription:   sess.Task,
	}

	result, invokeErr := r.invoke(ctx, workerType, model, string(promptBytes))
	if invokeErr != nil {
		elog.AppendDebug(ctx, eventlog.LevelError, workerType, "worker invocation failed", map[string]interface{}{"error": invokeErr.Error()})
		endedAt := r.now()
		if _, serr := session.UpdateState(r.Root, sessionID, failedPatch(workerType, endedAt), endedAt); serr != nil {
			return nil, serr
		}
		elog.AppendEvent(ctx, eventlog.TypeWorkerFailed, workerType, map[string]interface{}{"error": invokeErr.Error()})
		return nil, invokeErr
	}

	base := result.Base()
	base.EnsureDefaults(workerType, sessionID, cfg, r.now())
	result.Normalize()

	if err := r.writeOutputs(sessionPath, workerType, result); err != nil {
		return nil, err
	}

	endedAt := r.now()
	scores := scoresOf(result)

	// workers_completed is an array, and UpdateState's deep-merge replaces
	// arrays wholesale rather than appending (§4.A): re-read the current
	// list immediately before patching so a concurrently-completing sibling
	// worker's entry is never clobbered.
	current, err := session.ReadState(r.Root, sessionID)
	if err != nil {
		return nil, err
	}
	completed := appendUnique(current.Coordination.WorkersCompleted, workerType)

	if _, err := session.UpdateState(r.Root, sessionID, completedPatch(workerType, endedAt, scores, completed), endedAt); err != nil {
		return nil, err
	}
	elog.AppendEvent(ctx, eventlog.TypeWorkerCompleted, workerType, map[string]interface{}{
		"status": string(base.Status),
		"scores": scores,
	})

	if workerType == "queen-orchestrator" {
		if queen, ok := result.(*QueenOutput); ok {
			if err := session.AppendSynthesis(sessionPath, queen.SynthesisMarkdown); err != nil {
				return nil, err
			}
			elog.AppendEvent(ctx, eventlog.TypeSynthesisCreated, workerType, map[string]interface{}{
				"workers_aggregated": queen.WorkersAggregated,
				"confidence_score":   queen.ConfidenceScore,
			})
		}
		elog.AppendEvent(ctx, eventlog.TypeSessionCompleted, workerType, map[string]interface{}{
			"session_id": sessionID,
		})
	}

	return result, nil
}

// invoke calls the model router exactly once: per §7/§9, retry for a
// model-backend failure is a plan-level concern the Orchestrator owns
// (internal/orchestrator.InvokeWithRetry); a worker that hits
// ModelBackendUnavailable propagates it as worker_failed without retrying.
func (r *Runner) invoke(ctx context.Context, workerType, model, promptText string) (Result, error) {
	resp, err := r.Router.Complete(ctx, model, modelrouter.Request{
		Messages: []modelrouter.Message{
			{Role: "system", Content: []modelrouter.ContentPart{{Kind: "text", Text: fmt.Sprintf("You are the %s. Follow the assignment and return structured JSON matching your output schema.", workerType)}}},
			{Role: "user", Content: []modelrouter.ContentPart{{Kind: "text", Text: promptText}}},
		},
		WantStructured: true,
	})
	if err != nil {
		return nil, err
	}
	return parseResult(workerType, resp)
}

// parseResult unmarshals the router's structured tool-call arguments into
// the worker-type-specific subtype (§4.D step 6). Fields Output shares
// with every subtype (worker, session_id, status, ...) are promoted, so a
// single json.Unmarshal populates both the embedded base and the
// subtype's own fields.
func parseResult(workerType string, resp *modelrouter.Response) (Result, error) {
	if resp == nil || len(resp.Parts) == 0 || resp.Parts[0].Kind != "tool_call" {
		return nil, fmt.Errorf("worker: model response for %s was not structured", workerType)
	}
	raw, err := json.Marshal(resp.Parts[0].Arguments)
	if err != nil {
		return nil, err
	}
	result := newResult(workerType)
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, fmt.Errorf("worker: parsing %s output: %w", workerType, err)
	}
	return result, nil
}

// newResult constructs the zero-value typed Result for a worker type.
// Unknown worker types fall back to the base Output (still a valid
// Result), so the envelope never has to reject a worker type the caller
// already validated against the worker-type table.
func newResult(workerType string) Result {
	switch workerType {
	case "analyzer-worker":
		return &AnalyzerOutput{}
	case "architect-worker":
		return &ArchitectOutput{}
	case "backend-worker":
		return &BackendOutput{}
	case "frontend-worker":
		return &FrontendOutput{}
	case "designer-worker":
		return &DesignerOutput{}
	case "devops-worker":
		return &DevOpsOutput{}
	case "researcher-worker":
		return &ResearcherOutput{}
	case "test-worker":
		return &TestOutput{}
	case "scribe-worker":
		return &ScribeOutput{}
	case "queen-orchestrator":
		return &QueenOutput{}
	default:
		return &Output{}
	}
}

// writeOutputs writes the markdown notes file and the structured JSON
// output file (§4.D step 7).
func (r *Runner) writeOutputs(sessionPath, workerType string, result Result) error {
	base := result.Base()

	notes := base.NotesMarkdown
	if strings.TrimSpace(notes) == "" {
		notes = fmt.Sprintf("# %s notes\n\nStatus: %s\n", workerType, base.Status)
	}
	if err := os.WriteFile(session.NotesPath(sessionPath, workerType), []byte(notes), 0o644); err != nil {
		return hiveerrors.New("worker.writeOutputs", hiveerrors.KindProtocolViolation, "", err)
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return hiveerrors.New("worker.writeOutputs", hiveerrors.KindProtocolViolation, "", err)
	}
	if err := os.WriteFile(session.JSONOutputPath(sessionPath, workerType), jsonBytes, 0o644); err != nil {
		return hiveerrors.New("worker.writeOutputs", hiveerrors.KindProtocolViolation, "", err)
	}
	return nil
}

// scoresOf extracts every float64-valued "*_score" field from the
// marshaled Result so it can be recorded on STATE.json's per-worker scores
// map (§3 WorkerState.scores) without a type switch per worker type.
func scoresOf(result Result) map[string]float64 {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	scores := map[string]float64{}
	for k, v := range m {
		if !strings.HasSuffix(k, "_score") {
			continue
		}
		if f, ok := v.(float64); ok {
			scores[k] = f
		}
	}
	return scores
}

func runningPatch(workerType string, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"coordination": map[string]interface{}{
			"workers": map[string]interface{}{
				workerType: map[string]interface{}{
					"status":     "running",
					"started_at": at.UTC().Format(time.RFC3339),
				},
			},
		},
	}
}

func completedPatch(workerType string, at time.Time, scores map[string]float64, workersCompleted []string) map[string]interface{} {
	workerPatch := map[string]interface{}{
		"status":   "completed",
		"ended_at": at.UTC().Format(time.RFC3339),
	}
	if len(scores) > 0 {
		workerPatch["scores"] = scores
	}
	return map[string]interface{}{
		"coordination": map[string]interface{}{
			"workers": map[string]interface{}{
				workerType: workerPatch,
			},
			"workers_completed": workersCompleted,
		},
	}
}

func appendUnique(list []string, item string) []string {
	for _, v := range list {
		if v == item {
			return list
		}
	}
	return append(append([]string(nil), list...), item)
}

func failedPatch(workerType string, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"coordination": map[string]interface{}{
			"workers": map[string]interface{}{
				workerType: map[string]interface{}{
					"status":   "failed",
					"ended_at": at.UTC().Format(time.RFC3339),
				},
			},
		},
	}
}

func (r *Runner) stderrf() func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		if r.Log != nil {
			r.Log.Error(fmt.Sprintf(format, args...))
		}
	}
}
