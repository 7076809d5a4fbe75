package monitor

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-ai/queen/internal/eventlog"
	"github.com/hivemind-ai/queen/internal/session"
)

type capturingRenderer struct {
	mu    sync.Mutex
	lines []string
}

func (c *capturingRenderer) Render(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func newMonitoredSession(t *testing.T, expected []string) (string, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(root+"/Docs/hive-mind", 0o755))
	require.NoError(t, os.MkdirAll(root+"/.claude", 0o755))

	sess, err := session.CreateSession(root, "ship the export feature", 2, time.Date(2026, 7, 30, 14, 5, 0, 0, time.UTC))
	require.NoError(t, err)

	_, err = session.UpdateState(root, sess.SessionID, map[string]interface{}{
		"coordination": map[string]interface{}{
			"expected_workers": expected,
		},
	}, time.Now())
	require.NoError(t, err)

	return root, sess.SessionID
}

func TestRunExitsWhenAllExpectedWorkersComplete(t *testing.T) {
	root, sessionID := newMonitoredSession(t, []string{"backend-worker"})

	_, err := session.UpdateState(root, sessionID, map[string]interface{}{
		"coordination": map[string]interface{}{
			"workers_completed": []string{"backend-worker"},
		},
	}, time.Now())
	require.NoError(t, err)

	render := &capturingRenderer{}
	loop := New(root, render)
	loop.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = loop.Run(ctx, sessionID)
	require.NoError(t, err)

	events, err := eventlog.ReadEvents(session.GetSessionPath(root, sessionID))
	require.NoError(t, err)
	var sawCompleted bool
	for _, e := range events {
		if e.Type == eventlog.TypeAllWorkersCompleted {
			sawCompleted = true
		}
	}
	assert.True(t, sawCompleted)
}

func TestRunDoesNotReemitAllWorkersCompletedOnSecondCall(t *testing.T) {
	root, sessionID := newMonitoredSession(t, []string{"backend-worker"})

	_, err := session.UpdateState(root, sessionID, map[string]interface{}{
		"coordination": map[string]interface{}{
			"workers_completed": []string{"backend-worker"},
		},
	}, time.Now())
	require.NoError(t, err)

	render := &capturingRenderer{}
	loop := New(root, render)
	loop.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, loop.Run(ctx, sessionID))

	// Running the loop again on the same, already-completed session must
	// not append a second all_workers_completed record.
	require.NoError(t, loop.Run(context.Background(), sessionID))

	events, err := eventlog.ReadEvents(session.GetSessionPath(root, sessionID))
	require.NoError(t, err)
	count := 0
	for _, e := range events {
		if e.Type == eventlog.TypeAllWorkersCompleted {
			count++
		}
	}
	assert.Equal(t, 1, count, "all_workers_completed must be emitted at most once per session")
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	root, sessionID := newMonitoredSession(t, []string{"backend-worker"})

	render := &capturingRenderer{}
	loop := New(root, render)
	loop.Interval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := loop.Run(ctx, sessionID)
	assert.ErrorIs(t, err, context.Canceled)

	events, err := eventlog.ReadEvents(session.GetSessionPath(root, sessionID))
	require.NoError(t, err)
	var sawCancelled bool
	for _, e := range events {
		if e.Type == eventlog.TypeMonitoringCancelled {
			sawCancelled = true
		}
	}
	assert.True(t, sawCancelled)
}

func TestRunReportsBlockedWorkersOnlyOncePerWorker(t *testing.T) {
	root, sessionID := newMonitoredSession(t, []string{"backend-worker", "test-worker"})

	_, err := session.UpdateState(root, sessionID, map[string]interface{}{
		"coordination": map[string]interface{}{
			"workers": map[string]interface{}{
				"test-worker": map[string]interface{}{"status": "blocked"},
			},
		},
	}, time.Now())
	require.NoError(t, err)

	render := &capturingRenderer{}
	loop := New(root, render)
	loop.Interval = 10 * time.Millisecond
	// Keep stall escalation (which also emits workers_blocked_detected)
	// out of this window so only the blocked-status dedup is counted.
	loop.StallAfter = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = loop.Run(ctx, sessionID)

	events, err := eventlog.ReadEvents(session.GetSessionPath(root, sessionID))
	require.NoError(t, err)

	blockedCount := 0
	for _, e := range events {
		if e.Type == eventlog.TypeWorkersBlockedDetected {
			blockedCount++
		}
	}
	assert.Equal(t, 1, blockedCount, "a worker already reported blocked must not be reported again every tick")
}

func TestIntersectAndDifference(t *testing.T) {
	set := toSet([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, intersect([]string{"a", "b", "c"}, set))
	assert.Equal(t, []string{"c"}, difference([]string{"a", "b", "c"}, set))
}
