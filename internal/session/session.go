// Package session owns the on-disk session layout described in the
// specification §3–§4.A: project-root detection, the SessionRoot directory
// tree, the atomic STATE.json updater, and the append-safe writer primitive
// shared by internal/eventlog. It is the only package in this module that
// touches the session filesystem directly.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hivemind-ai/queen/internal/hiveerrors"
)

// Status is the session lifecycle status (§3).
type Status string

const (
	StatusInitializing    Status = "initializing"
	StatusActive          Status = "active"
	StatusWorkersSpawning Status = "workers_spawning"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

// Coordinator is the fixed orchestrator name recorded on every session.
const Coordinator = "queen-orchestrator"

// WorkerConfig is the per-worker configuration embedded in worker output
// (§3 WorkerConfig) and in the session's coordination subdocument.
type WorkerConfig struct {
	WorkerType        string   `json:"worker_type"`
	SessionID         string   `json:"session_id"`
	TagAccess         []string `json:"tag_access"`
	EscalationTimeout int      `json:"escalation_timeout"`
	EscalationChain   []string `json:"escalation_chain"`
	ComplexityLevel   int      `json:"complexity_level"`
	TaskDescription   string   `json:"task_description"`
	Dependencies      []string `json:"dependencies"`
	Priority          string   `json:"priority"`
}

// DefaultEscalationTimeout is the §3 default (seconds).
const DefaultEscalationTimeout = 300

// DefaultEscalationChain is the §3 default chain.
func DefaultEscalationChain() []string { return []string{Coordinator} }

// WorkerState tracks one assigned worker's lifecycle inside STATE.json.
type WorkerState struct {
	Status    string    `json:"status"` // pending|running|completed|blocked|failed
	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Scores    map[string]float64 `json:"scores,omitempty"`
}

// Coordination is the nested coordination subdocument on Session.
type Coordination struct {
	ExpectedWorkers  []string               `json:"expected_workers,omitempty"`
	WorkersCompleted []string               `json:"workers_completed,omitempty"`
	Workers          map[string]WorkerState `json:"workers,omitempty"`
	MonitoringActive bool                   `json:"monitoring_active"`
}

// Session is the STATE.json document (§3).
type Session struct {
	SessionID       string       `json:"session_id"`
	Task            string       `json:"task"`
	CreatedAt       time.Time    `json:"created_at"`
	LastUpdated     time.Time    `json:"last_updated"`
	ComplexityLevel int          `json:"complexity_level"`
	Coordinator     string       `json:"coordinator"`
	Status          Status       `json:"status"`
	UpdateCount     int          `json:"update_count"`
	Coordination    Coordination `json:"coordination"`
}

// sessionIDPattern matches the §3 session_id grammar:
// YYYY-MM-DD-HH-mm-<slug>, slug 15-50 chars of [a-z0-9-].
var sessionIDPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-[a-z0-9-]{15,50}$`)

// ValidSessionID reports whether id matches the required grammar.
func ValidSessionID(id string) bool { return sessionIDPattern.MatchString(id) }

const (
	hiddenControlDir = ".claude"
	sessionsRelDir   = "Docs/hive-mind/sessions"
)

// DetectProjectRoot walks upward from start (use "" for the current working
// directory) looking for a directory that contains both Docs/hive-mind/ and
// a hidden control directory. It never creates anything; absence of a root
// is a fatal, specific error (§4.A).
func DetectProjectRoot(start string) (string, error) {
	dir := start
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", hiveerrors.New("session.DetectProjectRoot", hiveerrors.KindProtocolViolation, "", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", hiveerrors.New("session.DetectProjectRoot", hiveerrors.KindProtocolViolation, "", err)
	}

	for {
		hiveMindDir := filepath.Join(dir, "Docs", "hive-mind")
		controlDir := filepath.Join(dir, hiddenControlDir)
		if isDir(hiveMindDir) && isDir(controlDir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", hiveerrors.New("session.DetectProjectRoot", hiveerrors.KindProtocolViolation, "",
				fmt.Errorf("could not detect project root from %q: no ancestor contains both Docs/hive-mind/ and %s/", start, hiddenControlDir))
		}
		dir = parent
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// GetSessionPath is a pure function of root + id (§4.A).
func GetSessionPath(root, id string) string {
	return filepath.Join(root, sessionsRelDir, id)
}

func statePath(sessionPath string) string    { return filepath.Join(sessionPath, "STATE.json") }
func eventsPath(sessionPath string) string    { return filepath.Join(sessionPath, "EVENTS.jsonl") }
func debugPath(sessionPath string) string     { return filepath.Join(sessionPath, "DEBUG.jsonl") }
func backlogPath(sessionPath string) string   { return filepath.Join(sessionPath, "BACKLOG.jsonl") }
func summaryPath(sessionPath string) string   { return filepath.Join(sessionPath, "SESSION.md") }
func promptsDir(sessionPath string) string    { return filepath.Join(sessionPath, "workers", "prompts") }
func notesDir(sessionPath string) string      { return filepath.Join(sessionPath, "workers", "notes") }
func jsonDir(sessionPath string) string       { return filepath.Join(sessionPath, "workers", "json") }

// PromptPath returns the path of a worker's prompt file.
func PromptPath(sessionPath, workerType string) string {
	return filepath.Join(promptsDir(sessionPath), workerType+".prompt")
}

// NotesPath returns the path of a worker's markdown notes output.
func NotesPath(sessionPath, name string) string {
	return filepath.Join(notesDir(sessionPath), name+"_notes.md")
}

// JSONOutputPath returns the path of a worker's structured JSON output.
func JSONOutputPath(sessionPath, name string) string {
	return filepath.Join(jsonDir(sessionPath), name+"_output.json")
}

var requiredDirs = []string{"", "workers", "workers/prompts", "workers/notes", "workers/json"}
var requiredFiles = []string{"STATE.json", "EVENTS.jsonl", "DEBUG.jsonl", "BACKLOG.jsonl", "SESSION.md"}

// EnsureSessionExists returns nil iff every required file and directory
// exists; it never creates anything (§4.A). This is the validation
// boundary cmd/worker and the worker Runner call before touching a
// session.
func EnsureSessionExists(root, id string) error {
	sessionPath := GetSessionPath(root, id)
	for _, d := range requiredDirs {
		p := sessionPath
		if d != "" {
			p = filepath.Join(sessionPath, d)
		}
		if !isDir(p) {
			return hiveerrors.New("session.EnsureSessionExists", hiveerrors.KindSessionNotFound, id,
				fmt.Errorf("required session directory missing: %s", p))
		}
	}
	for _, f := range requiredFiles {
		p := filepath.Join(sessionPath, f)
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			return hiveerrors.New("session.EnsureSessionExists", hiveerrors.KindSessionNotFound, id,
				fmt.Errorf("required session file missing: %s", p))
		}
	}
	return nil
}

// nonSlugChars matches runs outside [a-z0-9-], replaced during slugification.
var nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
var dashCollapse = regexp.MustCompile(`-+`)

// Slugify lowercases, replaces whitespace/punctuation with '-', collapses
// repeats, trims to the 15-50 char window mandated by the session_id
// grammar. Short task strings are padded with a deterministic suffix.
func Slugify(task string) string {
	s := strings.ToLower(strings.TrimSpace(task))
	s = nonSlugChars.ReplaceAllString(strings.ReplaceAll(s, " ", "-"), "-")
	s = dashCollapse.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "task"
	}
	if len(s) > 50 {
		s = strings.Trim(s[:50], "-")
	}
	for len(s) < 15 {
		s = s + "-pad"
	}
	if len(s) > 50 {
		s = strings.Trim(s[:50], "-")
	}
	return s
}

// NewSessionID generates a session id following the §3 grammar using the
// given UTC minute-precision timestamp and task slug.
func NewSessionID(now time.Time, task string) string {
	ts := now.UTC().Format("2006-01-02-15-04")
	return ts + "-" + Slugify(task)
}

// CreateSession creates the full directory tree, writes the initial
// STATE.json (update_count=0, status=initializing), touches the four
// .jsonl files, and writes an initial SESSION.md. Refuses to overwrite an
// existing session (§4.A).
func CreateSession(root, task string, complexity int, now time.Time) (*Session, error) {
	id := NewSessionID(now, task)
	sessionPath := GetSessionPath(root, id)

	if isDir(sessionPath) {
		return nil, hiveerrors.New("session.CreateSession", hiveerrors.KindProtocolViolation, id, hiveerrors.ErrSessionExists)
	}

	for _, d := range []string{"", "workers", "workers/prompts", "workers/notes", "workers/json"} {
		p := sessionPath
		if d != "" {
			p = filepath.Join(sessionPath, d)
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return nil, hiveerrors.New("session.CreateSession", hiveerrors.KindProtocolViolation, id, err)
		}
	}

	for _, f := range []string{"EVENTS.jsonl", "DEBUG.jsonl", "BACKLOG.jsonl"} {
		if err := touchFile(filepath.Join(sessionPath, f)); err != nil {
			return nil, hiveerrors.New("session.CreateSession", hiveerrors.KindProtocolViolation, id, err)
		}
	}

	sess := &Session{
		SessionID:       id,
		Task:            task,
		CreatedAt:       now.UTC(),
		LastUpdated:     now.UTC(),
		ComplexityLevel: complexity,
		Coordinator:     Coordinator,
		Status:          StatusInitializing,
		UpdateCount:     0,
		Coordination: Coordination{
			Workers: map[string]WorkerState{},
		},
	}

	if err := writeStateAtomic(sessionPath, sess); err != nil {
		return nil, hiveerrors.New("session.CreateSession", hiveerrors.KindProtocolViolation, id, err)
	}

	md := fmt.Sprintf("# Session %s\n\n**Task:** %s\n\n**Status:** %s\n\n**Created:** %s\n",
		id, task, sess.Status, sess.CreatedAt.Format(time.RFC3339))
	if err := os.WriteFile(summaryPath(sessionPath), []byte(md), 0o644); err != nil {
		return nil, hiveerrors.New("session.CreateSession", hiveerrors.KindProtocolViolation, id, err)
	}

	return sess, nil
}

// AppendSynthesis appends the queen-orchestrator worker's synthesis markdown
// as a new section of SESSION.md (§3/§4.B session completion). Appending
// (rather than the atomic-rename pattern writeStateAtomic uses) is safe
// here: SESSION.md has exactly one writer, the aggregator, which runs once
// per session after every other worker has completed.
func AppendSynthesis(sessionPath, markdown string) error {
	f, err := os.OpenFile(summaryPath(sessionPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString("\n## Synthesis\n\n" + markdown + "\n")
	return err
}

func touchFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// ReadState reads and parses STATE.json.
func ReadState(root, id string) (*Session, error) {
	sessionPath := GetSessionPath(root, id)
	data, err := os.ReadFile(statePath(sessionPath))
	if err != nil {
		return nil, hiveerrors.New("session.ReadState", hiveerrors.KindSessionNotFound, id, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, hiveerrors.New("session.ReadState", hiveerrors.KindProtocolViolation, id, err)
	}
	return &sess, nil
}

// stateMutexes serializes concurrent UpdateState calls within this
// process for the same session id; cross-process safety is provided by
// the read-modify-atomic-rename sequence itself (§5).
var stateMutexes sync.Map // map[string]*sync.Mutex

func mutexFor(id string) *sync.Mutex {
	v, _ := stateMutexes.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// UpdateState performs the atomic read-modify-rename update described in
// §4.A: read current STATE.json, deep-merge patch, bump last_updated and
// update_count, write to a sibling temp file, fsync, rename over the
// original.
func UpdateState(root, id string, patch map[string]interface{}, now time.Time) (*Session, error) {
	mu := mutexFor(id)
	mu.Lock()
	defer mu.Unlock()

	sessionPath := GetSessionPath(root, id)
	data, err := os.ReadFile(statePath(sessionPath))
	if err != nil {
		return nil, hiveerrors.New("session.UpdateState", hiveerrors.KindSessionNotFound, id, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, hiveerrors.New("session.UpdateState", hiveerrors.KindProtocolViolation, id, err)
	}

	merged := DeepMerge(raw, patch)
	merged["last_updated"] = now.UTC().Format("2006-01-02T15:04:05Z")
	if uc, ok := merged["update_count"].(float64); ok {
		merged["update_count"] = uc + 1
	} else {
		merged["update_count"] = 1
	}

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return nil, hiveerrors.New("session.UpdateState", hiveerrors.KindProtocolViolation, id, err)
	}

	if err := writeAtomic(statePath(sessionPath), out); err != nil {
		return nil, hiveerrors.New("session.UpdateState", hiveerrors.KindProtocolViolation, id, err)
	}

	var sess Session
	if err := json.Unmarshal(out, &sess); err != nil {
		return nil, hiveerrors.New("session.UpdateState", hiveerrors.KindProtocolViolation, id, err)
	}

	if ActiveMirror != nil {
		ActiveMirror.Write(context.Background(), id, out)
	}

	return &sess, nil
}

func writeStateAtomic(sessionPath string, sess *Session) error {
	out, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(statePath(sessionPath), out)
}

// writeAtomic writes data to a sibling temp file, fsyncs it, then renames
// it over path. On failure the temp file is removed.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = "" // renamed away, nothing left to clean up
	return nil
}

// DeepMerge recursively merges patch into base: matching map keys recurse,
// everything else (including arrays) is replaced wholesale so updates stay
// idempotent (§4.A). base is consumed and returned; callers that need the
// original should copy it first.
func DeepMerge(base, patch map[string]interface{}) map[string]interface{} {
	if base == nil {
		base = map[string]interface{}{}
	}
	for k, pv := range patch {
		bv, exists := base[k]
		if exists {
			bMap, bIsMap := bv.(map[string]interface{})
			pMap, pIsMap := pv.(map[string]interface{})
			if bIsMap && pIsMap {
				base[k] = DeepMerge(bMap, pMap)
				continue
			}
		}
		base[k] = pv
	}
	return base
}

// AppendLine appends one compact JSON object as a single line to path,
// creating the file if absent. This is the append-safe writer primitive
// shared by internal/eventlog's AppendEvent/AppendDebug/AppendBacklog
// (§4.A-B): a single Write syscall of one line relies on POSIX O_APPEND
// atomicity so concurrent appenders never interleave within one record.
func AppendLine(path string, obj interface{}) error {
	mu := mutexFor("line:" + path)
	mu.Lock()
	defer mu.Unlock()

	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}
	return nil
}

// EventsPath, DebugPath, BacklogPath, SummaryPath expose the session's
// well-known file paths to internal/eventlog and internal/monitor without
// re-deriving the layout.
func StatePath(sessionPath string) string   { return statePath(sessionPath) }
func EventsPath(sessionPath string) string  { return eventsPath(sessionPath) }
func DebugPath(sessionPath string) string   { return debugPath(sessionPath) }
func BacklogPath(sessionPath string) string { return backlogPath(sessionPath) }
func SummaryPath(sessionPath string) string { return summaryPath(sessionPath) }

// ParseComplexity clamps a freeform integer into the 1-4 range required by
// Session.ComplexityLevel (§3).
func ParseComplexity(v int) int {
	if v < 1 {
		return 1
	}
	if v > 4 {
		return 4
	}
	return v
}

// FormatComplexity renders an int as a decimal string.
func FormatComplexity(v int) string { return strconv.Itoa(v) }
