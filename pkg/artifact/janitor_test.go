package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeAged writes a file under dir and backdates its mtime.
func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("mp3 bytes"), 0o644))
	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, old, old))
	return path
}

func TestSweepDeletesOnlyExpiredFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "resp")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	expired := writeAged(t, dir, "r_1.mp3", 3*24*time.Hour)
	fresh := writeAged(t, dir, "r_2.mp3", 1*24*time.Hour)

	j := NewJanitor(root, zap.NewNop())
	deleted, err := j.Sweep(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = os.Stat(expired)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestSweepContinuesPastUndeletableEntries(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "resp")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	// A non-empty directory makes os.Remove fail, standing in for any
	// undeletable entry.
	stuck := filepath.Join(dir, "a_stuck_dir")
	require.NoError(t, os.MkdirAll(stuck, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stuck, "inner"), []byte("x"), 0o644))
	old := time.Now().Add(-3 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stuck, old, old))

	// Sorts after the stuck entry, so it is only reached if the sweep
	// keeps going.
	expired := writeAged(t, dir, "r_9.mp3", 3*24*time.Hour)

	j := NewJanitor(root, zap.NewNop())
	deleted, err := j.Sweep(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = os.Stat(expired)
	assert.True(t, os.IsNotExist(err))
}

func TestSweepMissingDirIsNotAnError(t *testing.T) {
	j := NewJanitor(filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	deleted, err := j.Sweep(context.Background(), 2)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestHandlePaths(t *testing.T) {
	h := Handle{Token: "1691206998057"}

	assert.Equal(t, "r_1691206998057.mp3", h.Filename())
	assert.Equal(t, filepath.Join("static", "resp", "r_1691206998057.mp3"), h.Path("static"))
	assert.Equal(t, "/resp/r_1691206998057.mp3", h.URLPath())
}

func TestValidFilename(t *testing.T) {
	assert.True(t, ValidFilename("r_1691206998057.mp3"))
	assert.False(t, ValidFilename("r_.mp3"))
	assert.False(t, ValidFilename("../etc/passwd"))
	assert.False(t, ValidFilename("r_123.wav"))
}

func TestWaiterReturnsOnceFileSettles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "resp")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	h := Handle{Token: NewToken(time.Now())}

	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(h.Path(root), []byte("audio"), 0o644)
	}()

	w := NewWaiter(root, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	path, err := w.Wait(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, h.Path(root), path)
}

func TestWaiterHonorsContext(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "resp"), 0o755))

	w := NewWaiter(root, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := w.Wait(ctx, Handle{Token: "404"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
