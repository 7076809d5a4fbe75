// Package eventlog implements the typed Event/DebugRecord/BacklogRecord
// streams described in the specification §3/§4.B. It builds on
// internal/session's append-safe writer primitive and never opens a
// session file itself.
package eventlog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hivemind-ai/queen/internal/session"
)

// Event types used by the core (§4.B); not exhaustive but every type this
// module emits is named here so producers cannot typo a string literal.
const (
	TypeSessionCreated          = "session_created"
	TypeQueenSpawned            = "queen_spawned"
	TypeTasksAssigned           = "tasks_assigned"
	TypeWorkerPromptsCreated    = "worker_prompts_created"
	TypeWorkerSpawned           = "worker_spawned"
	TypePromptFileRead          = "prompt_file_read"
	TypeAnalysisStarted         = "analysis_started"
	TypeAnalysisCompleted       = "analysis_completed"
	TypeWorkerCompleted         = "worker_completed"
	TypeWorkerFailed            = "worker_failed"
	TypeMonitoringStarted       = "monitoring_started"
	TypeMonitoringHeartbeat     = "monitoring_heartbeat"
	TypeMonitoringCancelled     = "monitoring_cancelled"
	TypeWorkersBlockedDetected  = "workers_blocked_detected"
	TypeAllWorkersCompleted     = "all_workers_completed"
	TypeSynthesisCreated        = "synthesis_created"
	TypeSessionCompleted        = "session_completed"
)

// DebugLevel mirrors the four levels in §3's DebugRecord.
type DebugLevel string

const (
	LevelDebug   DebugLevel = "DEBUG"
	LevelInfo    DebugLevel = "INFO"
	LevelWarning DebugLevel = "WARNING"
	LevelError   DebugLevel = "ERROR"
)

// Event is one EVENTS.jsonl record (§3).
type Event struct {
	Timestamp string                 `json:"timestamp"`
	Type      string                 `json:"type"`
	Agent     string                 `json:"agent"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// DebugRecord is one DEBUG.jsonl record (§3).
type DebugRecord struct {
	Timestamp string                 `json:"timestamp"`
	Level     DebugLevel             `json:"level"`
	Agent     string                 `json:"agent"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// BacklogRecord is one BACKLOG.jsonl record. Supplemented from
// original_source's error_recovery.py escalation chain shape (SPEC_FULL §9).
type BacklogRecord struct {
	Timestamp       string   `json:"timestamp"`
	WorkerType      string   `json:"worker_type"`
	Reason          string   `json:"reason"`
	EscalationChain []string `json:"escalation_chain,omitempty"`
}

func nowStamp() string { return time.Now().UTC().Format("2006-01-02T15:04:05Z") }

// Log is the handle components use to append to a single session's event,
// debug, and backlog streams. It never panics on its own write failure:
// per §4.B, logging is best-effort from the caller's perspective, but a
// failed append is itself recorded to a Debug record describing the
// failure, best-effort mirrored to process stderr.
type Log struct {
	sessionPath string
	stderr      func(format string, args ...interface{})
}

// New constructs a Log bound to one session's directory.
func New(sessionPath string, stderrFn func(format string, args ...interface{})) *Log {
	if stderrFn == nil {
		stderrFn = func(string, ...interface{}) {}
	}
	return &Log{sessionPath: sessionPath, stderr: stderrFn}
}

// AppendEvent appends one normalized Event. If a tracing span is active on
// ctx, the event is additionally mirrored as a span event (SPEC_FULL §4.B);
// this is pure observability and never affects the append's success.
func (l *Log) AppendEvent(ctx context.Context, eventType, agent string, details map[string]interface{}) {
	ev := Event{Timestamp: nowStamp(), Type: eventType, Agent: agent, Details: details}
	if err := session.AppendLine(session.EventsPath(l.sessionPath), ev); err != nil {
		l.recordLogFailure(ctx, "AppendEvent", err)
	}
	if ctx != nil {
		if span := trace.SpanFromContext(ctx); span != nil {
			span.AddEvent(eventType)
		}
	}
}

// AppendDebug appends one DebugRecord. Warnings and errors are additionally
// mirrored to the Event stream (§4.B); routine INFO/DEBUG records are not.
func (l *Log) AppendDebug(ctx context.Context, level DebugLevel, agent, message string, details map[string]interface{}) {
	rec := DebugRecord{Timestamp: nowStamp(), Level: level, Agent: agent, Message: message, Details: details}
	if err := session.AppendLine(session.DebugPath(l.sessionPath), rec); err != nil {
		l.stderr("eventlog: failed to append debug record: %v", err)
		return
	}
	if level == LevelWarning || level == LevelError {
		mirrored := map[string]interface{}{"message": message}
		for k, v := range details {
			mirrored[k] = v
		}
		l.AppendEvent(ctx, "debug_"+string(level), agent, mirrored)
	}
}

// AppendBacklog appends one deferred-work record (stall escalation, §4.F).
func (l *Log) AppendBacklog(ctx context.Context, rec BacklogRecord) {
	if rec.Timestamp == "" {
		rec.Timestamp = nowStamp()
	}
	if err := session.AppendLine(session.BacklogPath(l.sessionPath), rec); err != nil {
		l.recordLogFailure(ctx, "AppendBacklog", err)
	}
}

// recordLogFailure is the "a log failure must not abort...but must itself
// emit a Debug record" rule (§4.B). Since the Debug append itself may be
// the thing failing, this writes straight to stderr rather than recursing.
func (l *Log) recordLogFailure(_ context.Context, op string, err error) {
	l.stderr("eventlog: %s failed: %v", op, err)
	_ = session.AppendLine(session.DebugPath(l.sessionPath), DebugRecord{
		Timestamp: nowStamp(),
		Level:     LevelError,
		Agent:     "eventlog",
		Message:   op + " failed",
		Details:   map[string]interface{}{"error": err.Error()},
	})
}
