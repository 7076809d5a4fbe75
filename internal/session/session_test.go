package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-ai/queen/internal/hiveerrors"
)

func setupRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Docs", "hive-mind"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, hiddenControlDir), 0o755))
	return dir
}

func TestDetectProjectRootFindsAncestor(t *testing.T) {
	root := setupRoot(t)
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := DetectProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestDetectProjectRootMissingIsFatal(t *testing.T) {
	_, err := DetectProjectRoot(t.TempDir())
	assert.Error(t, err)
}

func TestValidSessionIDGrammar(t *testing.T) {
	assert.True(t, ValidSessionID("2026-07-30-14-05-implement-auth-flow"))
	assert.False(t, ValidSessionID("2026-7-30-14-05-too-short-month"))
	assert.False(t, ValidSessionID("2026-07-30-14-05-short"))
	assert.False(t, ValidSessionID("2026-07-30-14-05-Has-Upper-Case-Letters"))
}

func TestNewSessionIDPadsShortSlugs(t *testing.T) {
	now := time.Date(2026, 7, 30, 14, 5, 0, 0, time.UTC)
	id := NewSessionID(now, "fix")
	assert.True(t, ValidSessionID(id), "generated id %q must satisfy the session_id grammar", id)
	assert.Contains(t, id, "2026-07-30-14-05-")
}

func TestCreateSessionWritesFullLayout(t *testing.T) {
	root := setupRoot(t)
	now := time.Date(2026, 7, 30, 14, 5, 0, 0, time.UTC)

	sess, err := CreateSession(root, "build the login page", 2, now)
	require.NoError(t, err)
	assert.Equal(t, StatusInitializing, sess.Status)
	assert.Equal(t, 0, sess.UpdateCount)

	require.NoError(t, EnsureSessionExists(root, sess.SessionID))
}

func TestCreateSessionRefusesOverwrite(t *testing.T) {
	root := setupRoot(t)
	now := time.Date(2026, 7, 30, 14, 5, 0, 0, time.UTC)

	_, err := CreateSession(root, "duplicate task name here", 1, now)
	require.NoError(t, err)
	_, err = CreateSession(root, "duplicate task name here", 1, now)
	assert.ErrorIs(t, err, hiveerrors.ErrSessionExists)
}

func TestEnsureSessionExistsRejectsMissingSession(t *testing.T) {
	root := setupRoot(t)
	err := EnsureSessionExists(root, "2026-07-30-14-05-does-not-exist-here")
	assert.ErrorIs(t, err, hiveerrors.ErrSessionNotFound)
}

func TestUpdateStateIsAtomicAndBumpsCount(t *testing.T) {
	root := setupRoot(t)
	now := time.Date(2026, 7, 30, 14, 5, 0, 0, time.UTC)
	sess, err := CreateSession(root, "atomic update smoke test task", 1, now)
	require.NoError(t, err)

	updated, err := UpdateState(root, sess.SessionID, map[string]interface{}{
		"status": "active",
	}, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, StatusActive, updated.Status)
	assert.Equal(t, 1, updated.UpdateCount)

	reread, err := ReadState(root, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, reread.Status)
	assert.Equal(t, 1, reread.UpdateCount)
}

func TestDeepMergeRecursesMapsReplacesArrays(t *testing.T) {
	base := map[string]interface{}{
		"coordination": map[string]interface{}{
			"expected_workers":  []interface{}{"backend-worker"},
			"workers_completed": []interface{}{"backend-worker"},
			"workers": map[string]interface{}{
				"backend-worker": map[string]interface{}{"status": "running"},
			},
		},
		"status": "active",
	}
	patch := map[string]interface{}{
		"coordination": map[string]interface{}{
			"workers_completed": []interface{}{"backend-worker", "test-worker"},
			"workers": map[string]interface{}{
				"test-worker": map[string]interface{}{"status": "running"},
			},
		},
	}

	merged := DeepMerge(base, patch)
	coord := merged["coordination"].(map[string]interface{})

	// arrays are replaced wholesale, never appended to
	assert.Equal(t, []interface{}{"backend-worker", "test-worker"}, coord["workers_completed"])
	// maps recurse: backend-worker's prior entry survives the patch that
	// only mentioned test-worker
	workers := coord["workers"].(map[string]interface{})
	assert.Contains(t, workers, "backend-worker")
	assert.Contains(t, workers, "test-worker")
	// untouched top-level key survives
	assert.Equal(t, "active", merged["status"])
}

func TestUpdateStateMissingSessionFails(t *testing.T) {
	root := setupRoot(t)
	_, err := UpdateState(root, "2026-07-30-14-05-no-such-session-here", map[string]interface{}{"status": "active"}, time.Now())
	assert.Error(t, err)
}
