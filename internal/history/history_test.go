package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Init(context.Background()))
	return s, dir
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestInitCreatesRepoAndInitialCheckpoint(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	checkpoints, err := s.Log(ctx, 10)
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, "Initial snapshot", checkpoints[0].Message)

	_, err = os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
}

func TestInitIsIdempotent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Init(ctx))

	checkpoints, err := s.Log(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, checkpoints, 1, "re-init must not add checkpoints")
}

func TestSnapshotAndLog(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	write(t, dir, "project.json", `{"name":"a"}`)
	first, err := s.Snapshot(ctx, "first")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	write(t, dir, "project.json", `{"name":"b"}`)
	second, err := s.Snapshot(ctx, "second")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	checkpoints, err := s.Log(ctx, 10)
	require.NoError(t, err)
	require.Len(t, checkpoints, 3)
	// Newest first.
	assert.Equal(t, second, checkpoints[0].ID)
	assert.Equal(t, "second", checkpoints[0].Message)
	assert.Equal(t, first, checkpoints[1].ID)
	assert.Equal(t, "Initial snapshot", checkpoints[2].Message)

	limited, err := s.Log(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSnapshotWithoutChangesStillCheckpoints(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	id, err := s.Snapshot(ctx, "nothing changed")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	checkpoints, err := s.Log(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, checkpoints, 2)
}

func TestRestoreRemovesOrphans(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	write(t, dir, "project.json", `{"name":"a"}`)
	checkpoint, err := s.Snapshot(ctx, "baseline")
	require.NoError(t, err)

	// Diverge without checkpointing: change one tracked file, add
	// another. This is the normal worktree state, since flushes hit
	// disk continuously between checkpoints.
	write(t, dir, "project.json", `{"name":"b"}`)
	write(t, dir, "styles.json", `{}`)

	require.NoError(t, s.Restore(ctx, checkpoint))

	data, err := os.ReadFile(filepath.Join(dir, "project.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a"}`, string(data))

	_, err = os.Stat(filepath.Join(dir, "styles.json"))
	assert.True(t, os.IsNotExist(err), "file created after the checkpoint survived restore")
}

func TestRestoreWithUncommittedModifications(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	write(t, dir, "project.json", `{"name":"a"}`)
	checkpoint, err := s.Snapshot(ctx, "baseline")
	require.NoError(t, err)

	// A flushed-but-not-checkpointed edit must not block the restore.
	write(t, dir, "project.json", `{"name":"edited"}`)
	require.NoError(t, s.Restore(ctx, checkpoint))

	data, err := os.ReadFile(filepath.Join(dir, "project.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a"}`, string(data))
}

func TestRestorePreservesHistory(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	write(t, dir, "project.json", `{"name":"a"}`)
	checkpoint, err := s.Snapshot(ctx, "baseline")
	require.NoError(t, err)
	write(t, dir, "project.json", `{"name":"b"}`)
	_, err = s.Snapshot(ctx, "later")
	require.NoError(t, err)

	require.NoError(t, s.Restore(ctx, checkpoint))

	// The restoration is a new state on top of history, not a rewind.
	id, err := s.Snapshot(ctx, "restored baseline")
	require.NoError(t, err)
	checkpoints, err := s.Log(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, id, checkpoints[0].ID)
	assert.Len(t, checkpoints, 4)
}

func TestRestoreUnknownCheckpoint(t *testing.T) {
	s, _ := newStore(t)

	err := s.Restore(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.True(t, IsVersionControlFailure(err))
}

func TestRestoreSkipsIgnoredFiles(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	write(t, dir, "project.json", `{"name":"a"}`)
	checkpoint, err := s.Snapshot(ctx, "baseline")
	require.NoError(t, err)

	// The journal is operational state, not checkpoint content.
	write(t, dir, "journal.db", "sqlite")
	require.NoError(t, s.Restore(ctx, checkpoint))

	_, err = os.Stat(filepath.Join(dir, "journal.db"))
	assert.NoError(t, err, "ignored operational file must survive restore")
}

func TestDiff(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	write(t, dir, "project.json", `{"name":"a"}`)
	checkpoint, err := s.Snapshot(ctx, "baseline")
	require.NoError(t, err)

	// No divergence yet.
	assert.Empty(t, s.Diff(ctx, checkpoint))

	write(t, dir, "project.json", `{"name":"b"}`)
	diff := s.Diff(ctx, "")
	assert.Contains(t, diff, `-{"name":"a"}`)
	assert.Contains(t, diff, `+{"name":"b"}`)

	// Informational surface degrades instead of failing.
	assert.Empty(t, s.Diff(ctx, "not-a-checkpoint"))
}

func TestLogOnEmptyRepo(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	// Before Init there is no repository at all.
	checkpoints, err := s.Log(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, checkpoints)
}
