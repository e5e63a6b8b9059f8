//go:build fuse

// Command nfsmount is the FUSE hook layer: a thin adapter exposing a
// mounted nfsblk.Super as a real directory tree via go-fuse, built the
// same way the teacher gates its own inode_fuse.go behind a "fuse" build
// tag so the core module never pulls in cgo or a live kernel dependency
// unless this binary is actually built.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"nfsblk"
)

func main() {
	flag.Parse()
	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: nfsmount <image> <mountpoint>")
		os.Exit(2)
	}
	imagePath, mountPoint := flag.Arg(0), flag.Arg(1)

	dev, err := nfsblk.OpenDevice(imagePath)
	if err != nil {
		log.Fatal(err)
	}
	sup, err := nfsblk.Mount(dev)
	if err != nil {
		log.Fatal(err)
	}

	root := &node{sup: sup, path: "/"}
	server, err := fs.Mount(mountPoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{FsName: "nfsblk", Name: "nfsblk"},
	})
	if err != nil {
		log.Fatal(err)
	}

	server.Wait()
	if err := sup.Unmount(); err != nil {
		log.Println("unmount:", err)
	}
}

// node is one fs.Inode backed by a path into the mounted Super; it holds
// no cached metadata of its own, always asking sup for the current
// state, since the core module is the single source of truth for the
// tree.
type node struct {
	fs.Inode
	sup  *nfsblk.Super
	path string
}

var (
	_ fs.NodeGetattrer = (*node)(nil)
	_ fs.NodeLookuper  = (*node)(nil)
	_ fs.NodeReaddirer = (*node)(nil)
	_ fs.NodeOpener    = (*node)(nil)
	_ fs.NodeReader    = (*node)(nil)
	_ fs.NodeMkdirer   = (*node)(nil)
	_ fs.NodeUnlinker  = (*node)(nil)
	_ fs.NodeRmdirer   = (*node)(nil)
)

func (n *node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.sup.Getattr(n.path)
	if err != nil {
		return toErrno(err)
	}
	out.Size = uint64(attr.Size)
	out.Nlink = uint32(attr.Nlink)
	out.Owner = fuse.Owner{Uid: attr.Uid, Gid: attr.Gid}
	out.SetTimes(&attr.Atime, &attr.Mtime, nil)
	out.Blksize = uint32(attr.BlkSize)
	if attr.Ino == nfsblk.RootIno {
		out.Blocks = uint64(attr.Blocks)
	}
	if attr.Type.String() == "dir" {
		out.Mode = fuse.S_IFDIR | 0755
	} else {
		out.Mode = fuse.S_IFREG | 0644
	}
	return 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := path.Join(n.path, name)
	attr, err := n.sup.Getattr(childPath)
	if err != nil {
		return nil, toErrno(err)
	}

	mode := uint32(fuse.S_IFREG)
	if attr.Type.String() == "dir" {
		mode = fuse.S_IFDIR
	}
	child := &node{sup: n.sup, path: childPath}
	stable := fs.StableAttr{Mode: mode, Ino: uint64(attr.Ino)}
	out.Size = uint64(attr.Size)
	return n.NewInode(ctx, child, stable), 0
}

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := n.sup.Readdir(n.path)
	if err != nil {
		return nil, toErrno(err)
	}
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		childPath := path.Join(n.path, name)
		attr, err := n.sup.Getattr(childPath)
		if err != nil {
			continue
		}
		mode := uint32(fuse.S_IFREG)
		if attr.Type.String() == "dir" {
			mode = fuse.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: name, Ino: uint64(attr.Ino), Mode: mode})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, 0, 0
}

func (n *node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	nr, err := n.sup.Read(n.path, off, dest)
	if err != nil {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(dest[:nr]), 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := path.Join(n.path, name)
	if err := n.sup.Mkdir(childPath); err != nil {
		return nil, toErrno(err)
	}
	child := &node{sup: n.sup, path: childPath}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFDIR}), 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return toErrno(n.sup.Unlink(path.Join(n.path, name)))
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return toErrno(n.sup.Rmdir(path.Join(n.path, name)))
}

func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, nfsblk.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, nfsblk.ErrExists):
		return syscall.EEXIST
	case errors.Is(err, nfsblk.ErrIsDir):
		return syscall.EISDIR
	case errors.Is(err, nfsblk.ErrNoSpace):
		return syscall.ENOSPC
	case errors.Is(err, nfsblk.ErrAccess):
		return syscall.EACCES
	default:
		return syscall.EIO
	}
}
