// Package prompts implements the Prompt Generator (§4.C): given an
// OrchestrationPlan, render one prompt file per assigned worker from an
// external, per-worker-type text/template resource.
package prompts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"text/template"

	"github.com/hivemind-ai/queen/internal/eventlog"
	"github.com/hivemind-ai/queen/internal/session"
	"github.com/hivemind-ai/queen/resources"
)

// Assignment is the subset of an orchestrator.WorkerAssignment the
// generator needs to render a prompt; kept narrow so this package never
// imports internal/orchestrator (avoids a cycle, since orchestrator
// dispatch also consumes rendered prompt text).
type Assignment struct {
	WorkerType        string
	TaskFocus         string
	Dependencies      []string
	EstimatedDuration string
	Priority          string
}

// StandardSuccessCriteria is the generator's fixed success-criteria block
// appended to every rendered prompt (§4.C).
var StandardSuccessCriteria = []string{
	"Findings are backed by concrete evidence (file paths, line ranges, or reproduction steps)",
	"Output conforms to the worker's typed schema with no missing required fields",
	"Notes and JSON outputs are written to this worker's exclusive output paths",
}

func expectedOutputs(workerType string) []string {
	return []string{
		fmt.Sprintf("workers/notes/%s_notes.md", workerType),
		fmt.Sprintf("workers/json/%s_output.json", workerType),
	}
}

var tmplCache *template.Template

func loadTemplates() (*template.Template, error) {
	if tmplCache != nil {
		return tmplCache, nil
	}
	t, err := template.ParseFS(resources.Templates, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	tmplCache = t
	return t, nil
}

type renderData struct {
	WorkerType        string
	SessionID         string
	TaskFocus         string
	Priority          string
	EstimatedDuration string
	Dependencies      []string
	SuccessCriteria   []string
	ExpectedOutputs   []string
	CodebaseInsights  []string
}

// GenerateBatch renders and writes one prompt file per assignment under
// <sessionPath>/workers/prompts/<worker_type>.prompt, then emits exactly
// one worker_prompts_created event naming the full batch (§4.C). Unknown
// worker types fall back to the generic template but still succeed. A
// write failure aborts the whole batch: no partial-batch success event is
// emitted, and the returned error is the caller's signal to treat nothing
// as generated.
func GenerateBatch(ctx context.Context, sessionPath, sessionID string, assignments []Assignment, codebaseInsights []string, log *eventlog.Log) error {
	tmpl, err := loadTemplates()
	if err != nil {
		return fmt.Errorf("prompts: loading templates: %w", err)
	}

	written := make([]string, 0, len(assignments))
	for _, a := range assignments {
		// Worker types already carry the "-worker" suffix (e.g.
		// "backend-worker"), matching the template filenames directly.
		name := a.WorkerType + ".tmpl"
		t := tmpl.Lookup(name)
		if t == nil {
			t = tmpl.Lookup("generic.tmpl")
		}
		if t == nil {
			return fmt.Errorf("prompts: no generic template available to render %q", a.WorkerType)
		}

		data := renderData{
			WorkerType:        a.WorkerType,
			SessionID:         sessionID,
			TaskFocus:         a.TaskFocus,
			Priority:          a.Priority,
			EstimatedDuration: a.EstimatedDuration,
			Dependencies:      a.Dependencies,
			SuccessCriteria:   StandardSuccessCriteria,
			ExpectedOutputs:   expectedOutputs(a.WorkerType),
			CodebaseInsights:  codebaseInsights,
		}

		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return fmt.Errorf("prompts: rendering %q: %w", a.WorkerType, err)
		}

		path := session.PromptPath(sessionPath, a.WorkerType)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("prompts: writing %q: %w", path, err)
		}
		written = append(written, a.WorkerType)
	}

	if log != nil {
		log.AppendEvent(ctx, eventlog.TypeWorkerPromptsCreated, session.Coordinator, map[string]interface{}{
			"worker_types": written,
			"count":        len(written),
		})
	}
	return nil
}
