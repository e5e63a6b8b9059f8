package nfsblk

import (
	"encoding/binary"
	"fmt"
)

func (s *Super) dentriesPerBlock() int {
	return int(s.blkSz) / dentryRecordSize
}

// readInode loads the on-disk record for ino, builds the in-core inode
// and its type-tagged payload, and — for a directory — reconstructs the
// child dentry list by reading packed dentry records out of the
// directory's data blocks. It calls allocDentry exactly as fresh
// directory creation does (per §4.5), so each mount/unmount cycle
// reverses sibling order; that is left as specified, not fixed, since it
// is not among the flagged open questions. parent is the dentry that
// owns ino (Mount passes the root dentry); it becomes the non-owning
// parent back-link of every child dentry read from a directory's blocks.
func (s *Super) readInode(ino int32, parent *dentry) (*inode, error) {
	if cached, ok := s.byIno[ino]; ok {
		return cached, nil
	}

	rec, err := s.readInodeRecord(ino)
	if err != nil {
		return nil, err
	}

	it := &inode{
		ino:   rec.Ino,
		ftype: fileType(rec.FType),
		size:  rec.Size,
		pblk:  rec.PBlk,
	}

	switch it.ftype {
	case typeDir:
		dp := &dirPayload{}
		it.payload = dp

		perBlock := s.dentriesPerBlock()
		remaining := int(rec.DirCnt)
		for bi := 0; bi < DataPerFile && remaining > 0; bi++ {
			blk := rec.PBlk[bi]
			if blk < 0 {
				break
			}
			data := make([]byte, s.blkSz)
			if err := s.dev.readAt(s.dataBlockOffset(blk), data); err != nil {
				return nil, err
			}
			for slot := 0; slot < perBlock && remaining > 0; slot++ {
				off := slot * dentryRecordSize
				var drec dentryRecord
				if err := unmarshalRecord(binary.LittleEndian, data[off:off+dentryRecordSize], &drec); err != nil {
					return nil, fmt.Errorf("%w: decode dentry: %v", ErrIO, err)
				}
				if drec.Valid == 0 {
					continue
				}
				child := &dentry{
					fname:  cstring(drec.FName[:]),
					ftype:  fileType(drec.FType),
					ino:    drec.Ino,
					parent: parent,
				}
				allocDentry(dp, child)
				remaining--
			}
		}
		dp.dirCnt = rec.DirCnt

	case typeSymlink:
		it.payload = &symlinkPayload{target: cstring(rec.TargetPath[:])}

	default:
		it.payload = &regPayload{}
	}

	s.byIno[ino] = it
	return it, nil
}

// syncInode recursively writes a directory's children first, then packs
// its current sibling list into its data blocks and writes its own
// record; for a regular file it writes each data block held in memory
// at its own pblk[i] offset. The source's nfs_sync_inode instead writes REG data as
// one contiguous blob at NFS_DATA_OFS(ino), ignoring the individual
// pblk entries — open question Q2 — fixed here by writing each block at
// its own dataBlockOffset.
func (s *Super) syncInode(it *inode) error {
	switch p := it.payload.(type) {
	case *dirPayload:
		for c := p.children; c != nil; c = c.brother {
			if c.inode != nil {
				if err := s.syncInode(c.inode); err != nil {
					return err
				}
			}
		}
		if err := s.writeDirData(it, p); err != nil {
			return err
		}

	case *regPayload:
		for i, blk := range it.pblk {
			if blk < 0 || p.data[i] == nil {
				continue
			}
			if err := s.dev.writeAt(s.dataBlockOffset(blk), p.data[i]); err != nil {
				return err
			}
		}
	}

	return s.writeInodeRecordFor(it)
}

func (s *Super) writeInodeRecordFor(it *inode) error {
	rec := inodeRecord{
		Ino:   it.ino,
		Size:  it.size,
		Link:  1,
		PBlk:  it.pblk,
		FType: uint32(it.ftype),
	}
	if dp, ok := it.asDir(); ok {
		rec.DirCnt = dp.dirCnt
		rec.Link = 2
	}
	if sp, ok := it.asSymlink(); ok {
		copy(rec.TargetPath[:], sp.target)
	}
	return s.writeInodeRecord(&rec)
}

// writeDirData packs dp's current sibling list into it.pblk's data
// blocks, allocating new blocks from it.pblk slots that are still -1 as
// needed. Records never straddle a BlkSz boundary: each block holds
// exactly dentriesPerBlock() records.
func (s *Super) writeDirData(it *inode, dp *dirPayload) error {
	perBlock := s.dentriesPerBlock()

	children := make([]*dentry, 0, dp.dirCnt)
	for c := dp.children; c != nil; c = c.brother {
		children = append(children, c)
	}

	nBlocks := ceilDiv(int64(len(children)), int64(perBlock))
	if nBlocks > DataPerFile {
		return ErrNoSpace
	}

	for bi := int64(0); bi < nBlocks; bi++ {
		if it.pblk[bi] < 0 {
			blk, ok := s.dataBitmap.firstClear(s.numData())
			if !ok {
				return ErrNoSpace
			}
			s.dataBitmap.set(blk)
			it.pblk[bi] = blk
		}

		data := make([]byte, s.blkSz)
		for slot := 0; slot < perBlock; slot++ {
			idx := int(bi)*perBlock + slot
			off := slot * dentryRecordSize
			var drec dentryRecord
			if idx < len(children) {
				d := children[idx]
				drec.Ino = d.ino
				drec.Valid = 1
				drec.FType = uint32(d.ftype)
				copy(drec.FName[:], d.fname)
			}
			buf, err := marshalRecord(binary.LittleEndian, &drec)
			if err != nil {
				return fmt.Errorf("%w: encode dentry: %v", ErrIO, err)
			}
			copy(data[off:off+dentryRecordSize], buf)
		}
		if err := s.dev.writeAt(s.dataBlockOffset(it.pblk[bi]), data); err != nil {
			return err
		}
	}

	it.size = int32(len(children)) * int32(dentryRecordSize)
	return nil
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
