package fs

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "snap.tmp")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	final := filepath.Join(dir, "snap")
	require.NoError(t, lfs.Rename(fpath, final))

	f, err = lfs.OpenFile(final, os.O_RDONLY, 0)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	require.NoError(t, f.Close())

	require.NoError(t, lfs.Remove(final))
	_, err = os.Stat(final)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS(t *testing.T) {
	t.Run("FailAfterBytes", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule(".tmp", Fault{FailAfterBytes: 5})

		f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "a.tmp"), os.O_CREATE|os.O_RDWR, 0o644)
		require.NoError(t, err)
		defer f.Close()

		n, err := f.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		n, err = f.Write([]byte("!"))
		assert.ErrorIs(t, err, ErrInjected)
		assert.Equal(t, 0, n)
		assert.Equal(t, int64(5), ffs.Written())
	})

	t.Run("UnmatchedFilesPassThrough", func(t *testing.T) {
		ffs := NewFaultyFS(LocalFS{})
		ffs.AddRule(".tmp", Fault{FailAfterBytes: 0, FailOnSync: true})

		f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "b.dat"), os.O_CREATE|os.O_RDWR, 0o644)
		require.NoError(t, err)
		_, err = f.Write([]byte("ok"))
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		require.NoError(t, f.Close())
	})

	t.Run("SyncCloseRename", func(t *testing.T) {
		tmp := t.TempDir()
		ffs := NewFaultyFS(nil)
		ffs.AddRule("x", Fault{FailAfterBytes: -1, FailOnSync: true, FailOnClose: true, FailOnRename: true})

		src := filepath.Join(tmp, "x.tmp")
		f, err := ffs.OpenFile(src, os.O_CREATE|os.O_RDWR, 0o644)
		require.NoError(t, err)
		assert.ErrorIs(t, f.Sync(), ErrInjected)
		assert.ErrorIs(t, f.Close(), ErrInjected)
		assert.ErrorIs(t, ffs.Rename(src, filepath.Join(tmp, "x")), ErrInjected)
		require.NoError(t, ffs.Remove(src))
	})
}
