// Package monitor implements the Monitor Loop (§4.F): a single-threaded
// cooperative loop that observes a session's STATE.json until every
// expected worker has completed, detects stalls, and is the sole
// authoritative signal that synthesis may begin.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hivemind-ai/queen/internal/eventlog"
	"github.com/hivemind-ai/queen/internal/session"
)

// DefaultInterval is monitor_interval's default (§4.F).
const DefaultInterval = 30 * time.Second

// DefaultStallMultiplier is the stall threshold expressed as a multiple of
// the poll interval (§4.F: "default 3 x monitor_interval").
const DefaultStallMultiplier = 3

// Renderer receives a one-line human-readable status update on every
// heartbeat and on the terminal event, letting cmd/queen --monitor style
// it with lipgloss without this package depending on a terminal library
// itself.
type Renderer interface {
	Render(line string)
}

// Loop polls one session's STATE.json and reports progress (§4.F).
type Loop struct {
	Root     string
	Interval time.Duration
	// StallAfter overrides DefaultStallMultiplier*Interval when non-zero.
	StallAfter time.Duration
	Render     Renderer
	Now        func() time.Time
}

// New constructs a Loop with spec defaults.
func New(root string, render Renderer) *Loop {
	return &Loop{Root: root, Interval: DefaultInterval, Render: render, Now: time.Now}
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Loop) interval() time.Duration {
	if l.Interval > 0 {
		return l.Interval
	}
	return DefaultInterval
}

func (l *Loop) stallAfter() time.Duration {
	if l.StallAfter > 0 {
		return l.StallAfter
	}
	return DefaultStallMultiplier * l.interval()
}

// Run polls sessionID until every expected worker has completed, ctx is
// cancelled, or an unrecoverable read error occurs. It returns nil exactly
// once all_workers_completed has been emitted (§8 "monitor idempotence":
// calling Run again on an already-completed session returns immediately
// without re-emitting the terminal event).
func (l *Loop) Run(ctx context.Context, sessionID string) error {
	sessionPath := session.GetSessionPath(l.Root, sessionID)
	elog := eventlog.New(sessionPath, nil)

	alreadyCompleted, err := sessionAlreadyCompleted(sessionPath)
	if err != nil {
		return err
	}
	if alreadyCompleted {
		return nil
	}

	elog.AppendEvent(ctx, eventlog.TypeMonitoringStarted, session.Coordinator, map[string]interface{}{
		"monitor_interval_seconds": int(l.interval().Seconds()),
	})

	watcher, watchErr := newStateWatcher(sessionPath)
	if watcher != nil {
		defer watcher.Close()
	}

	var (
		lastProgressAt   = l.now()
		lastCompletedLen = -1
		lastBlocked      = map[string]bool{}
	)

	for {
		sess, err := session.ReadState(l.Root, sessionID)
		if err != nil {
			return err
		}

		expected := sess.Coordination.ExpectedWorkers
		completedSet := toSet(sess.Coordination.WorkersCompleted)
		completed := intersect(expected, completedSet)

		if len(sess.Coordination.WorkersCompleted) != lastCompletedLen {
			lastCompletedLen = len(sess.Coordination.WorkersCompleted)
			lastProgressAt = l.now()
		}

		if len(completed) == len(expected) && len(expected) > 0 {
			elog.AppendEvent(ctx, eventlog.TypeAllWorkersCompleted, session.Coordinator, map[string]interface{}{
				"workers_completed": completed,
			})
			l.renderLine(fmt.Sprintf("all %d worker(s) completed", len(completed)))
			return nil
		}

		blocked := blockedWorkers(sess)
		l.reportBlocked(ctx, elog, blocked, lastBlocked)
		lastBlocked = toSet(blocked)

		pending := difference(expected, completedSet)

		stalled := l.now().Sub(lastProgressAt) >= l.stallAfter()
		if stalled {
			l.escalateStall(ctx, elog, pending)
		}

		l.heartbeat(ctx, elog, len(completed), len(expected), stalled, pending)

		select {
		case <-ctx.Done():
			elog.AppendEvent(context.Background(), eventlog.TypeMonitoringCancelled, session.Coordinator, nil)
			return ctx.Err()
		case <-time.After(l.interval()):
		case <-watcherEvents(watcher):
			// Early wake on a STATE.json write; loop immediately re-reads.
		}
		_ = watchErr
	}
}

func (l *Loop) heartbeat(ctx context.Context, elog *eventlog.Log, completed, expected int, stalled bool, stalledWorkerTypes []string) {
	details := map[string]interface{}{
		"completed": completed,
		"expected":  expected,
	}
	if stalled {
		details["stalled"] = true
		details["stalled_workers"] = stalledWorkerTypes
	}
	elog.AppendEvent(ctx, eventlog.TypeMonitoringHeartbeat, session.Coordinator, details)
	l.renderLine(fmt.Sprintf("%d/%d workers completed", completed, expected))
}

func (l *Loop) reportBlocked(ctx context.Context, elog *eventlog.Log, blocked []string, previouslyReported map[string]bool) {
	var fresh []string
	for _, wt := range blocked {
		if !previouslyReported[wt] {
			fresh = append(fresh, wt)
		}
	}
	if len(fresh) == 0 {
		return
	}
	sort.Strings(fresh)
	elog.AppendEvent(ctx, eventlog.TypeWorkersBlockedDetected, session.Coordinator, map[string]interface{}{
		"worker_types": fresh,
	})
}

func (l *Loop) escalateStall(ctx context.Context, elog *eventlog.Log, pending []string) {
	if len(pending) == 0 {
		return
	}
	for _, wt := range pending {
		elog.AppendBacklog(ctx, eventlog.BacklogRecord{
			WorkerType:      wt,
			Reason:          "stall_detected",
			EscalationChain: session.DefaultEscalationChain(),
		})
	}
	elog.AppendEvent(ctx, eventlog.TypeWorkersBlockedDetected, session.Coordinator, map[string]interface{}{
		"worker_types": pending,
		"reason":       "stall_detected",
	})
}

func (l *Loop) renderLine(line string) {
	if l.Render != nil {
		l.Render(line)
	}
}

// sessionAlreadyCompleted scans EVENTS.jsonl for a prior all_workers_completed
// record (§8 "monitor idempotence"): a session already carrying that event
// must never have it re-emitted by a later Run call.
func sessionAlreadyCompleted(sessionPath string) (bool, error) {
	events, err := eventlog.ReadEvents(sessionPath)
	if err != nil {
		return false, err
	}
	for _, e := range events {
		if e.Type == eventlog.TypeAllWorkersCompleted {
			return true, nil
		}
	}
	return false, nil
}

func blockedWorkers(sess *session.Session) []string {
	var out []string
	for wt, st := range sess.Coordination.Workers {
		if st.Status == "blocked" {
			out = append(out, wt)
		}
	}
	sort.Strings(out)
	return out
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, i := range items {
		m[i] = true
	}
	return m
}

func intersect(a []string, bSet map[string]bool) []string {
	var out []string
	for _, v := range a {
		if bSet[v] {
			out = append(out, v)
		}
	}
	return out
}

func difference(a []string, bSet map[string]bool) []string {
	var out []string
	for _, v := range a {
		if !bSet[v] {
			out = append(out, v)
		}
	}
	return out
}

// newStateWatcher establishes an fsnotify watch on sessionPath's
// STATE.json so the loop can wake early on a write instead of waiting out
// the full interval (SPEC_FULL §4.F ambient addition). A failure to
// establish the watch (e.g. an unsupported filesystem) is not fatal: the
// loop falls back to interval-only polling.
func newStateWatcher(sessionPath string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(session.StatePath(sessionPath)); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// watcherEvents adapts a possibly-nil watcher into a channel safe to
// select on; a nil watcher yields a channel that never fires.
func watcherEvents(w *fsnotify.Watcher) <-chan fsnotify.Event {
	if w == nil {
		return nil
	}
	return w.Events
}
