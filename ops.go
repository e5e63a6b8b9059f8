package nfsblk

import (
	"fmt"
	"os"
	"time"
)

// Mode is the creation mode passed to Mknod. Its only meaningful bit is
// modeDirBit (1<<31, not the POSIX S_IFDIR value), which selects DIR
// over REG. Nothing else in the format persists permission bits, so
// Mode carries no more than that one bit's worth of meaning.
type Mode uint32

const modeDirBit Mode = 1 << 31

// DirMode and RegMode are the two Mode values Mknod distinguishes.
const (
	RegMode Mode = 0
	DirMode Mode = modeDirBit
)

func (m Mode) IsDir() bool { return m&modeDirBit != 0 }

// createTarget resolves path's parent directory explicitly and checks
// that the leaf name is still free. The single-pass lookup used
// elsewhere resolves "as far as it can" on a miss, which is ambiguous
// for creation: mkdir("/a/b") when /a itself is missing must fail with
// ErrNotFound rather than silently creating "b" under whatever directory
// happened to be the deepest one reached. Resolving the parent on its
// own first makes that distinction exact.
func (s *Super) createTarget(path string) (*dentry, *dirPayload, string, error) {
	name := baseName(path)
	if name == "" {
		// path is "/" itself (or empty): there is always a root, so the
		// target already exists, per §8 S6 ("mkdir(/) -> -EEXIST").
		return nil, nil, "", ErrExists
	}
	parentDentry, parentDir, err := s.resolveDir(parentPath(path))
	if err != nil {
		return nil, nil, "", err
	}
	if findChild(parentDir, name) != nil {
		return nil, nil, "", ErrExists
	}
	return parentDentry, parentDir, name, nil
}

// Mknod creates a new file or directory at path. mode's S_IFDIR bit
// selects the type; Mknod never produces a symlink — the format and the
// in-core model support typeSymlink (Rename needs it to preserve a
// renamed symlink's type), but nothing in the operation surface exposes
// symlink creation, matching §4.6's table exactly.
func (s *Super) Mknod(path string, mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parentD, parentDir, name, err := s.createTarget(path)
	if err != nil {
		return err
	}

	ftype := typeReg
	if mode.IsDir() {
		ftype = typeDir
	}

	ino, pblk, err := s.allocInode()
	if err != nil {
		return err
	}

	// allocInode already reserved DataPerFile data blocks and set their
	// bits in the data bitmap; a directory uses those same pblk slots to
	// hold its packed dentry records (see writeDirData), exactly like a
	// regular file uses them for its data — the source's alloc_inode
	// does not distinguish the two, and neither does this. Blanking
	// pblk back to -1 here would orphan the bits allocInode just set,
	// leaking DataPerFile data blocks on every directory created
	// (invariant I2).
	it := &inode{ino: ino, ftype: ftype, pblk: pblk, payload: newPayload(ftype)}
	d := &dentry{fname: name, ftype: ftype, ino: ino, parent: parentD, inode: it}
	it.dentry = d
	s.byIno[ino] = it

	allocDentry(parentDir, d)
	return nil
}

// Mkdir is Mknod with DirMode, split out as its own entry point since
// directory creation is the common case callers reach for.
func (s *Super) Mkdir(path string) error {
	return s.Mknod(path, DirMode)
}

// Unlink removes a regular file or symlink dentry and frees its inode.
func (s *Super) Unlink(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.lookup(path)
	if err != nil {
		return err
	}
	if !res.found {
		return ErrNotFound
	}
	if res.target.ftype == typeDir {
		return ErrIsDir
	}

	if err := s.ensureLoaded(res.target); err != nil {
		return err
	}
	pdp, ok := res.parent.inode.asDir()
	if !ok {
		return ErrUnsupported
	}
	dropDentry(pdp, res.target)
	s.dropInode(res.target.inode)
	return nil
}

// Rmdir removes an empty directory.
func (s *Super) Rmdir(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.lookup(path)
	if err != nil {
		return err
	}
	if !res.found {
		return ErrNotFound
	}
	if res.target == s.root {
		return ErrInval
	}
	if res.target.ftype != typeDir {
		return ErrUnsupported
	}
	if err := s.ensureLoaded(res.target); err != nil {
		return err
	}
	dp, _ := res.target.inode.asDir()
	if dp.dirCnt != 0 {
		return fmt.Errorf("%w: directory not empty", ErrExists)
	}

	pdp, ok := res.parent.inode.asDir()
	if !ok {
		return ErrUnsupported
	}
	dropDentry(pdp, res.target)
	s.dropInode(res.target.inode)
	return nil
}

// Rename moves a dentry from one path to another, preserving its type
// (including typeSymlink, the one place that tag matters outside the
// data model itself). Per §4.6 the precondition is "to not found or
// equal": if to already resolves to the very same dentry as from (the
// common "rename onto itself" case), Rename is a no-op success rather
// than the ErrExists createTarget would otherwise report for an
// existing leaf name.
func (s *Super) Rename(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.lookup(from)
	if err != nil {
		return err
	}
	if !res.found {
		return ErrNotFound
	}

	if toRes, toErr := s.lookup(to); toErr == nil && toRes.found && toRes.target == res.target {
		return nil
	}

	destParentD, destDir, name, err := s.createTarget(to)
	if err != nil {
		return err
	}

	srcParentDir, ok := res.parent.inode.asDir()
	if !ok {
		return ErrUnsupported
	}
	dropDentry(srcParentDir, res.target)

	res.target.fname = name
	res.target.parent = destParentD
	allocDentry(destDir, res.target)
	return nil
}

// Readdir returns the names of all children of the directory at path, in
// current sibling-list order (head first).
func (s *Super) Readdir(path string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, dp, err := s.resolveDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, dp.dirCnt)
	for c := dp.children; c != nil; c = c.brother {
		names = append(names, c.fname)
	}
	return names, nil
}

// Getattr reports Attr for path. Root's Size is computed from its live
// dentry count like any other directory's, rather than pinned at zero
// (open question Q6); root's TotalSize is sz_usage, recomputed from the
// two bitmaps' popcounts by currentUsage.
func (s *Super) Getattr(path string) (*Attr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.lookup(path)
	if err != nil {
		return nil, err
	}
	if !res.found {
		return nil, ErrNotFound
	}
	if err := s.ensureLoaded(res.target); err != nil {
		return nil, err
	}
	it := res.target.inode

	now := time.Now()
	attr := &Attr{
		Ino:     it.ino,
		Type:    it.ftype,
		Nlink:   1,
		Uid:     uint32(os.Getuid()),
		Gid:     uint32(os.Getgid()),
		Atime:   now,
		Mtime:   now,
		BlkSize: int64(s.dev.IOSize()),
	}
	switch p := it.payload.(type) {
	case *dirPayload:
		attr.Size = int64(p.dirCnt) * int64(dentryRecordSize)
		attr.Nlink = 2
	case *regPayload:
		attr.Size = int64(it.size)
	case *symlinkPayload:
		attr.Size = int64(len(p.target))
	}
	if it.ino == RootIno {
		attr.Blocks = s.dev.Size() / int64(s.dev.IOSize())
		attr.TotalSize = int64(s.currentUsage())
	}
	return attr, nil
}

// Access checks mode against a minimal, format-has-no-permission-bits
// model: F_OK succeeds iff the path resolves; R_OK/W_OK/X_OK succeed for
// any resolved path since the on-disk format carries no owner/mode bits
// to check against.
func (s *Super) Access(path string, mode AccessMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.lookup(path)
	if err != nil {
		return err
	}
	if !res.found {
		return ErrAccess
	}
	return nil
}

// Read copies up to len(buf) bytes starting at off from the regular file
// at path into buf, returning the number of bytes copied.
func (s *Super) Read(path string, off int64, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.lookup(path)
	if err != nil {
		return 0, err
	}
	if !res.found {
		return 0, ErrNotFound
	}
	if res.target.ftype != typeReg {
		return 0, ErrIsDir
	}
	if err := s.ensureLoaded(res.target); err != nil {
		return 0, err
	}
	it := res.target.inode
	if off > int64(it.size) {
		return 0, ErrSeek
	}

	rp, _ := it.asReg()
	n := 0
	remaining := int64(it.size) - off
	if remaining <= 0 {
		return 0, nil
	}
	toCopy := int64(len(buf))
	if toCopy > remaining {
		toCopy = remaining
	}

	blkSz := s.blkSz
	for toCopy > 0 {
		blkIdx := off / blkSz
		blkOff := off % blkSz
		if int(blkIdx) >= DataPerFile {
			break
		}
		block := s.ensureBlock(it, rp, int32(blkIdx))
		n2 := blkSz - blkOff
		if n2 > toCopy {
			n2 = toCopy
		}
		copy(buf[n:], block[blkOff:blkOff+n2])
		n += int(n2)
		off += n2
		toCopy -= n2
	}
	return n, nil
}

// Write copies buf into the regular file at path starting at off,
// growing the file and allocating data blocks as needed up to
// DataPerFile blocks, and returns the number of bytes written.
func (s *Super) Write(path string, off int64, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.lookup(path)
	if err != nil {
		return 0, err
	}
	if !res.found {
		return 0, ErrNotFound
	}
	if res.target.ftype != typeReg {
		return 0, ErrIsDir
	}
	if err := s.ensureLoaded(res.target); err != nil {
		return 0, err
	}
	it := res.target.inode
	rp, _ := it.asReg()

	blkSz := s.blkSz
	maxSize := blkSz * int64(DataPerFile)
	if off+int64(len(buf)) > maxSize {
		return 0, ErrNoSpace
	}

	n := 0
	cur := off
	remaining := int64(len(buf))
	for remaining > 0 {
		blkIdx := cur / blkSz
		blkOff := cur % blkSz

		if it.pblk[blkIdx] < 0 {
			blk, ok := s.dataBitmap.firstClear(s.numData())
			if !ok {
				return n, ErrNoSpace
			}
			s.dataBitmap.set(blk)
			it.pblk[blkIdx] = blk
		}
		var block []byte
		if blkIdx*blkSz < int64(it.size) {
			// the block already holds file bytes: load them before overlaying
			block = s.ensureBlock(it, rp, int32(blkIdx))
		} else {
			block = rp.block(int32(blkIdx), blkSz)
		}

		n2 := blkSz - blkOff
		if n2 > remaining {
			n2 = remaining
		}
		copy(block[blkOff:blkOff+n2], buf[n:int64(n)+n2])

		n += int(n2)
		cur += n2
		remaining -= n2
	}

	if cur > int64(it.size) {
		it.size = int32(cur)
	}
	return n, nil
}

// Truncate sets a regular file's size, never allocating beyond
// DataPerFile blocks worth of capacity.
func (s *Super) Truncate(path string, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.lookup(path)
	if err != nil {
		return err
	}
	if !res.found {
		return ErrNotFound
	}
	if res.target.ftype != typeReg {
		return ErrIsDir
	}
	if err := s.ensureLoaded(res.target); err != nil {
		return err
	}
	it := res.target.inode
	if size > s.blkSz*int64(DataPerFile) {
		return ErrNoSpace
	}
	it.size = int32(size)
	return nil
}

func (s *Super) ensureLoaded(d *dentry) error {
	if d.inode != nil {
		return nil
	}
	loaded, err := s.readInode(d.ino, d)
	if err != nil {
		return err
	}
	d.inode = loaded
	loaded.dentry = d
	return nil
}

func (s *Super) ensureBlock(it *inode, rp *regPayload, idx int32) []byte {
	if rp.data[idx] != nil {
		return rp.data[idx]
	}
	data := make([]byte, s.blkSz)
	if it.pblk[idx] >= 0 {
		_ = s.dev.readAt(s.dataBlockOffset(it.pblk[idx]), data)
	}
	rp.data[idx] = data
	return data
}
