package slotmap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SaveFile writes a snapshot to path atomically: the snapshot is written to
// a temporary file in the same directory, synced, and renamed over path. On
// error path is left untouched.
func (m *SlotMap[T]) SaveFile(ctx context.Context, path string) (err error) {
	if m.closed {
		return ErrClosed
	}
	fsys := m.opts.fsys

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("slotmap: create snapshot dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("slotmap: create snapshot file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err := m.Save(ctx, w); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("slotmap: write snapshot file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("slotmap: sync snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("slotmap: close snapshot file: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return fmt.Errorf("slotmap: publish snapshot file: %w", err)
	}
	return nil
}

// LoadFile reads a snapshot written by SaveFile.
func LoadFile[T comparable](ctx context.Context, path string, optFns ...Option) (m *SlotMap[T], err error) {
	o := applyOptions(optFns)

	f, err := o.fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("slotmap: open snapshot file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	m, _, err = load[T](ctx, bufio.NewReader(f), o)
	return m, err
}
