package eventlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range []string{"EVENTS.jsonl", "DEBUG.jsonl", "BACKLOG.jsonl"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), nil, 0o644))
	}
	return dir
}

func TestAppendEventThenReadEventsRoundTrips(t *testing.T) {
	dir := newSessionDir(t)
	log := New(dir, nil)

	log.AppendEvent(context.Background(), TypeWorkerSpawned, "backend-worker", map[string]interface{}{"model": "custom:max-subscription"})
	log.AppendEvent(context.Background(), TypeWorkerCompleted, "backend-worker", nil)

	events, err := ReadEvents(dir)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeWorkerSpawned, events[0].Type)
	assert.Equal(t, "backend-worker", events[0].Agent)
	assert.Equal(t, TypeWorkerCompleted, events[1].Type)
}

func TestReadEventsDiscardsTrailingPartialLine(t *testing.T) {
	dir := newSessionDir(t)
	complete := `{"timestamp":"2026-07-30T14:05:00Z","type":"worker_spawned","agent":"backend-worker"}` + "\n"
	partial := `{"timestamp":"2026-07-30T14:05:01Z","type":"worker_comp`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "EVENTS.jsonl"), []byte(complete+partial), 0o644))

	events, err := ReadEvents(dir)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TypeWorkerSpawned, events[0].Type)
}

func TestAppendDebugMirrorsWarningsAndErrorsToEvents(t *testing.T) {
	dir := newSessionDir(t)
	log := New(dir, nil)

	log.AppendDebug(context.Background(), LevelInfo, "backend-worker", "routine note", nil)
	log.AppendDebug(context.Background(), LevelError, "backend-worker", "model call failed", map[string]interface{}{"error": "timeout"})

	events, err := ReadEvents(dir)
	require.NoError(t, err)
	require.Len(t, events, 1, "only the ERROR-level debug record should mirror to the event stream")
	assert.Equal(t, "debug_ERROR", events[0].Type)
	assert.Equal(t, "model call failed", events[0].Details["message"])
}

func TestAppendBacklogWritesEscalationChain(t *testing.T) {
	dir := newSessionDir(t)
	log := New(dir, nil)

	log.AppendBacklog(context.Background(), BacklogRecord{
		WorkerType:      "backend-worker",
		Reason:          "stall_detected",
		EscalationChain: []string{"queen-orchestrator"},
	})

	records, err := ReadBacklog(dir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "backend-worker", records[0].WorkerType)
	assert.Equal(t, "stall_detected", records[0].Reason)
	assert.NotEmpty(t, records[0].Timestamp)
}

func TestReadEventsOnMissingFileReturnsEmpty(t *testing.T) {
	events, err := ReadEvents(filepath.Join(t.TempDir(), "nonexistent"))
	require.NoError(t, err)
	assert.Empty(t, events)
}
