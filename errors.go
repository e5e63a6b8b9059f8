package nfsblk

import "errors"

// Package-specific error variables, used with errors.Is() the same way
// the teacher's errors.go exposes ErrInvalidFile/ErrInvalidSuper/etc.
var (
	// ErrAccess is returned by Access when the path does not resolve.
	ErrAccess = errors.New("nfsblk: access denied")

	// ErrSeek is returned when an offset lands past the current end of a file.
	ErrSeek = errors.New("nfsblk: offset past end of file")

	// ErrIsDir is returned when a regular-file operation targets a directory
	// (or, for Read/Write/Truncate, any non-regular file). A directory
	// operation on a non-directory returns ErrUnsupported instead.
	ErrIsDir = errors.New("nfsblk: is a directory")

	// ErrNoSpace is returned when the inode or data bitmap has no free bits,
	// or a write/truncate would exceed DataPerFile blocks.
	ErrNoSpace = errors.New("nfsblk: no space left on device")

	// ErrExists is returned when mkdir/mknod/rename's target already exists.
	ErrExists = errors.New("nfsblk: file exists")

	// ErrNotFound is returned when a lookup misses.
	ErrNotFound = errors.New("nfsblk: no such file or directory")

	// ErrUnsupported is returned e.g. for mkdir under a regular file.
	ErrUnsupported = errors.New("nfsblk: operation not supported")

	// ErrIO is returned when the block device shim fails.
	ErrIO = errors.New("nfsblk: device i/o error")

	// ErrInval is returned for malformed arguments and for dropping root.
	ErrInval = errors.New("nfsblk: invalid argument")
)
