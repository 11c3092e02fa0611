// Package fs abstracts the few filesystem operations snapshot files need, so
// that tests can inject failures.
//
// Production code uses [Default] ([LocalFS]). Tests wrap it in a [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp", fs.Fault{FailAfterBytes: 64})
//
// Operations take no context.Context; local file operations are not
// interruptible at the syscall level.
package fs
