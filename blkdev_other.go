//go:build !linux

package nfsblk

import "os"

// queryBlockDevice is only implemented for Linux, where BLKSSZGET/
// BLKGETSIZE64 ioctls exist. Elsewhere OpenDevice falls back to a
// plain stat-based size and the default IO unit.
func queryBlockDevice(f *os.File) (size int64, ioSz int, err error) {
	return 0, 0, errNotBlockDevice
}
