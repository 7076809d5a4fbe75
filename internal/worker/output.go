// Package worker implements the generic Worker Execution Contract (§4.D):
// read prompt -> invoke model -> validate output -> emit files. Every
// concrete worker (analyzer, architect, backend, designer, devops,
// frontend, researcher, test, scribe, queen) is an instance of Runner
// parameterized by worker type, never a subclass (§9 redesign flag).
package worker

import (
	"time"

	"github.com/hivemind-ai/queen/internal/session"
)

// Status is the terminal status a worker reports (§3).
type Status string

const (
	StatusCompleted Status = "completed"
	StatusBlocked   Status = "blocked"
	StatusFailed    Status = "failed"
)

// Severity is the finding severity scale shared by every worker-type
// subtype (§3).
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Finding is one typed finding record contributed by a worker-type
// subtype, grounded on the per-specialty Pydantic models in
// original_source/agents/pydantic_ai/*/models.py (e.g. analyzer findings,
// architect findings).
type Finding struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Location    string   `json:"location,omitempty"`
}

// Summary is WorkerOutput.summary (§3).
type Summary struct {
	KeyFindings     []string `json:"key_findings"`
	CriticalIssues  []string `json:"critical_issues"`
	Recommendations []string `json:"recommendations"`
}

// Metrics is WorkerOutput.metrics (§3).
type Metrics struct {
	ItemsAnalyzed     int            `json:"items_analyzed"`
	IssuesFound       int            `json:"issues_found"`
	SeverityBreakdown map[string]int `json:"severity_breakdown,omitempty"`
}

// Dependencies is WorkerOutput.dependencies (§3) — not to be confused with
// session.WorkerConfig.Dependencies, which lists other worker_types this
// worker's assignment depended on.
type Dependencies struct {
	Requires []string `json:"requires,omitempty"`
	Blocks   []string `json:"blocks,omitempty"`
	Handoffs []string `json:"handoffs,omitempty"`
}

// Output is the canonical base WorkerOutput (§3). Worker-type-specific
// subtypes embed Output and add typed fields (Findings, domain scores);
// see schemas.go.
type Output struct {
	Worker         string               `json:"worker"`
	SessionID      string               `json:"session_id"`
	Timestamp      time.Time            `json:"timestamp"`
	Status         Status               `json:"status"`
	Summary        Summary              `json:"summary"`
	Analysis       map[string]any       `json:"analysis,omitempty"`
	Metrics        Metrics              `json:"metrics"`
	Dependencies   Dependencies         `json:"dependencies"`
	FilesExamined  []string             `json:"files_examined,omitempty"`
	FilesModified  []string             `json:"files_modified,omitempty"`
	NextActions    []string             `json:"next_actions,omitempty"`
	NotesMarkdown  string               `json:"notes_markdown"`
	Config         session.WorkerConfig `json:"config"`
}

// EnsureDefaults fills every schema-level default for fields a model
// response may have omitted (§4.D step 6: "missing fields use defaults,
// never raise"). worker, sessionID, cfg are the envelope-known values used
// to backfill blank identity fields.
func (o *Output) EnsureDefaults(worker, sessionID string, cfg session.WorkerConfig, now time.Time) {
	if o.Worker == "" {
		o.Worker = worker
	}
	if o.SessionID == "" {
		o.SessionID = sessionID
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = now.UTC()
	}
	if o.Status == "" {
		o.Status = StatusCompleted
	}
	if o.Summary.KeyFindings == nil {
		o.Summary.KeyFindings = []string{}
	}
	if o.Summary.CriticalIssues == nil {
		o.Summary.CriticalIssues = []string{}
	}
	if o.Summary.Recommendations == nil {
		o.Summary.Recommendations = []string{}
	}
	if o.Analysis == nil {
		o.Analysis = map[string]any{}
	}
	if o.Dependencies.Requires == nil {
		o.Dependencies.Requires = []string{}
	}
	if o.Dependencies.Blocks == nil {
		o.Dependencies.Blocks = []string{}
	}
	if o.Dependencies.Handoffs == nil {
		o.Dependencies.Handoffs = []string{}
	}
	if o.Config.WorkerType == "" {
		o.Config = cfg
	}
}
