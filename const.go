// Package nfsblk implements a small block-addressable filesystem layered
// over a raw device abstraction: a super-block with a first-mount format
// path, a two-bitmap inode/data allocator, a lazily materialized
// inode/dentry tree, and the recursive serializer that syncs that tree
// back to the device at unmount.
package nfsblk

// Fixed geometry constants. defaultIOSize is the native transfer unit used
// when the backing device does not expose a real one (see blkdev.go);
// BlkSz is derived per-mount as 2*ioSz rather than hardcoded, since the
// on-disk layout scales with whatever IO size the device reports.
const (
	defaultIOSize = 512

	MaxName      = 128
	InodePerFile = 1
	DataPerFile  = 6

	Magic = uint32(0x52415453)
)

// RootIno is the inode number of the filesystem root.
const RootIno = int32(0)

func roundDown(v, round int64) int64 {
	if v%round == 0 {
		return v
	}
	return (v / round) * round
}

func roundUp(v, round int64) int64 {
	if v%round == 0 {
		return v
	}
	return (v/round + 1) * round
}

func ceilDiv(a, b int64) int64 {
	if a%b == 0 {
		return a / b
	}
	return a/b + 1
}
