//go:build linux

package nfsblk

import (
	"os"

	"golang.org/x/sys/unix"
)

// queryBlockDevice asks the kernel for a real block device's logical
// sector size and byte capacity via BLKSSZGET/BLKGETSIZE64, mirroring
// the driver's REQ_DEVICE_IO_SZ/REQ_DEVICE_SIZE ioctls from §6. Returns
// an error for anything that isn't a block special file, so callers
// fall back to a plain os.File.Stat-based size.
func queryBlockDevice(f *os.File) (size int64, ioSz int, err error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, 0, err
	}
	if fi.Mode()&os.ModeDevice == 0 {
		return 0, 0, errNotBlockDevice
	}

	fd := int(f.Fd())

	sectorSize, err := unix.IoctlGetInt(fd, unix.BLKSSZGET)
	if err != nil {
		return 0, 0, err
	}

	deviceSize, err := unix.IoctlGetUint64(fd, unix.BLKGETSIZE64)
	if err != nil {
		return 0, 0, err
	}

	return int64(deviceSize), sectorSize, nil
}
