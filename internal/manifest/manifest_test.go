package manifest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

// TestNewStore_Success tests the store factory function.
func TestNewStore_Success(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "manifest.db")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.FileExists(t, path)

	require.NoError(t, s.Close())
}

// TestNewStore_Fail_EmptyPath tests the store factory with no path.
func TestNewStore_Fail_EmptyPath(t *testing.T) {
	t.Parallel()

	s, err := NewStore("")

	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmptyPath)
	assert.Nil(t, s)
}

// TestBeginFinishRun_Success tests the full lifecycle of a run.
func TestBeginFinishRun_Success(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	id, err := s.BeginRun(ctx, []string{"/srv/data", "/home"})
	require.NoError(t, err)
	assert.Positive(t, id)

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Equal(t, []string{"/srv/data", "/home"}, runs[0].Roots)
	assert.NotZero(t, runs[0].StartedAt)
	assert.Zero(t, runs[0].FinishedAt)

	stats := Stats{
		TotalFiles:  120,
		TotalDirs:   14,
		TotalBytes:  1 << 20,
		HashedFiles: 118,
		FailedFiles: 2,
	}

	require.NoError(t, s.FinishRun(ctx, id, StatusComplete, stats))

	runs, err = s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, StatusComplete, runs[0].Status)
	assert.NotZero(t, runs[0].FinishedAt)
	assert.Equal(t, int64(120), runs[0].TotalFiles)
	assert.Equal(t, int64(14), runs[0].TotalDirs)
	assert.Equal(t, int64(1<<20), runs[0].TotalBytes)
	assert.Equal(t, int64(118), runs[0].HashedFiles)
	assert.Equal(t, int64(2), runs[0].FailedFiles)
}

// TestFinishRun_Fail_InvalidStatus tests finishing with an unknown status.
func TestFinishRun_Fail_InvalidStatus(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	id, err := s.BeginRun(ctx, []string{"/srv"})
	require.NoError(t, err)

	err = s.FinishRun(ctx, id, "paused", Stats{})

	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

// TestAddRecords_Success tests inserting and reading back run records.
func TestAddRecords_Success(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	id, err := s.BeginRun(ctx, []string{"/srv"})
	require.NoError(t, err)

	records := []*Record{
		{Path: "/srv/a.bin", Size: 4096, Ino: 101, Dev: 64768, NLink: 1, Kind: "file", Hash: "abcd1234"},
		{Path: "/srv/b.bin", Size: 0, Ino: 102, Dev: 64768, NLink: 2, Kind: "file", Hash: "ef567890"},
		{Path: "/srv/locked", Size: 512, Ino: 103, Dev: 64768, NLink: 1, Kind: "file", Error: "permission denied"},
	}

	require.NoError(t, s.AddRecords(ctx, id, records))

	got, err := s.RunRecords(ctx, id, 100)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "/srv/a.bin", got[0].Path)
	assert.Equal(t, int64(4096), got[0].Size)
	assert.Equal(t, uint64(101), got[0].Ino)
	assert.Equal(t, uint64(64768), got[0].Dev)
	assert.Equal(t, uint64(1), got[0].NLink)
	assert.Equal(t, "file", got[0].Kind)
	assert.Equal(t, "abcd1234", got[0].Hash)
	assert.Empty(t, got[0].Error)

	assert.Equal(t, uint64(2), got[1].NLink)

	assert.Equal(t, "/srv/locked", got[2].Path)
	assert.Empty(t, got[2].Hash)
	assert.Equal(t, "permission denied", got[2].Error)

	for _, rec := range got {
		assert.Equal(t, id, rec.RunID)
	}
}

// TestAddRecords_Success_Empty tests that inserting nothing is a no-op.
func TestAddRecords_Success_Empty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.AddRecords(ctx, 1, nil))
}

// TestRecentRuns_Success tests the ordering of returned runs.
func TestRecentRuns_Success(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	first, err := s.BeginRun(ctx, []string{"/one"})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	second, err := s.BeginRun(ctx, []string{"/two"})
	require.NoError(t, err)

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)

	runs, err = s.RecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second, runs[0].ID)
}

// TestRecentRuns_Fail_InvalidLimit tests querying with a bad limit.
func TestRecentRuns_Fail_InvalidLimit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.RecentRuns(t.Context(), 0)

	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidLimit)
}

// TestLastComplete_Success tests retrieval of the last completed run.
func TestLastComplete_Success(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	run, err := s.LastComplete(ctx)
	require.NoError(t, err)
	assert.Nil(t, run)

	first, err := s.BeginRun(ctx, []string{"/one"})
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, first, StatusComplete, Stats{TotalFiles: 5}))

	time.Sleep(10 * time.Millisecond)

	second, err := s.BeginRun(ctx, []string{"/two"})
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, second, StatusFailed, Stats{}))

	run, err = s.LastComplete(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, first, run.ID)
	assert.Equal(t, int64(5), run.TotalFiles)
}

// TestRunRecords_Fail_InvalidLimit tests querying records with a bad limit.
func TestRunRecords_Fail_InvalidLimit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.RunRecords(t.Context(), 1, -1)

	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidLimit)
}
