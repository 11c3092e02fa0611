package slotmap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/slotmap/internal/fs"
)

func TestSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "particles.slmp")
	m := newFilled(t, 32, 20, WithCompression(CompressionLZ4))
	require.NoError(t, m.RemoveAt(5))

	require.NoError(t, m.SaveFile(context.Background(), path))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := LoadFile[int64](context.Background(), path)
	require.NoError(t, err)
	defer loaded.Close()
	assert.Equal(t, m.Fingerprint(), loaded.Fingerprint())
	assert.Equal(t, m.Stats(), loaded.Stats())
}

func TestSnapshotFileMissing(t *testing.T) {
	_, err := LoadFile[int64](context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSnapshotFileFaults(t *testing.T) {
	faults := map[string]fs.Fault{
		"WriteFails":  {FailAfterBytes: 16},
		"SyncFails":   {FailAfterBytes: -1, FailOnSync: true},
		"CloseFails":  {FailAfterBytes: -1, FailOnClose: true},
		"RenameFails": {FailAfterBytes: -1, FailOnRename: true},
	}

	for name, fault := range faults {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "m.slmp")

			// A previous good snapshot must survive a failed save.
			old := newFilled(t, 8, 3)
			require.NoError(t, old.SaveFile(context.Background(), path))

			ffs := fs.NewFaultyFS(nil)
			ffs.AddRule("m.slmp", fault)
			m := newFilled(t, 64, 50, withFileSystem(ffs))

			err := m.SaveFile(context.Background(), path)
			require.ErrorIs(t, err, fs.ErrInjected)

			_, err = os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err))

			loaded, err := LoadFile[int64](context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, old.Fingerprint(), loaded.Fingerprint())
		})
	}
}
