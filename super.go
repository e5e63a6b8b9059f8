package nfsblk

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"
)

// Super is a mounted filesystem: the device handle, the on-disk geometry
// captured at format time, the two bitmap allocators, and the in-core
// tree rooted at ino 0. Mirrors the shape of the teacher's own
// *Superblock-holds-everything pattern, generalized from read-only to
// read-write.
type Super struct {
	mu sync.Mutex

	dev *BlockDevice

	blkSz int64

	szUsage      int32
	numIno       int32
	mapInodeBlks int32
	mapDataBlks  int32

	mapInodeOffset int64
	mapDataOffset  int64
	inodeOffset    int64
	dataOffset     int64

	inodeBitmap bitmap
	dataBitmap  bitmap

	root  *dentry
	inode *inode

	byIno map[int32]*inode
}

// mountConfig collects Mount's optional knobs, following the teacher's
// Option/options.go shape (functional options over a private struct).
type mountConfig struct {
	forceFormat bool
}

// Option configures a Mount call.
type Option func(*mountConfig)

// WithForceFormat forces a fresh FORMAT pass even if the super-block's
// magic already matches, discarding any existing contents.
func WithForceFormat() Option {
	return func(c *mountConfig) { c.forceFormat = true }
}

func (s *Super) blockSize() int64 { return s.blkSz }

func (s *Super) inodeRecordOffset(ino int32) int64 {
	return s.inodeOffset + int64(ino)*s.blkSz
}

func (s *Super) dataBlockOffset(blk int32) int64 {
	return s.dataOffset + int64(blk)*s.blkSz
}

// Mount opens dev, reads (or formats) the super-block, and materializes
// the root directory. The caller owns dev and must call Unmount to flush
// and release it.
func Mount(dev *BlockDevice, opts ...Option) (*Super, error) {
	cfg := &mountConfig{}
	for _, o := range opts {
		o(cfg)
	}

	s := &Super{
		dev:   dev,
		blkSz: int64(2 * dev.IOSize()),
		byIno: make(map[int32]*inode),
	}

	raw := make([]byte, superRecordSize)
	if err := dev.readAt(0, raw); err != nil {
		return nil, err
	}
	var rec superRecord
	if err := unmarshalRecord(binary.LittleEndian, raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode super: %v", ErrIO, err)
	}

	if cfg.forceFormat || rec.Magic != Magic {
		log.Printf("nfsblk: no valid super-block found, formatting")
		if err := s.format(); err != nil {
			return nil, err
		}
	} else {
		log.Printf("nfsblk: mounting existing filesystem, num_ino=%d", rec.NumIno)
		s.loadGeometry(&rec)
		if err := s.loadBitmaps(); err != nil {
			return nil, err
		}
	}

	s.root = &dentry{fname: "/", ftype: typeDir, ino: RootIno}
	root, err := s.readInode(RootIno, s.root)
	if err != nil {
		return nil, err
	}
	s.inode = root
	s.root.inode = root
	root.dentry = s.root

	return s, nil
}

func (s *Super) loadGeometry(rec *superRecord) {
	s.szUsage = rec.SzUsage
	s.numIno = rec.NumIno
	s.mapInodeBlks = rec.MapInodeBlks
	s.mapDataBlks = rec.MapDataBlks
	s.mapInodeOffset = int64(rec.MapInodeOffset)
	s.mapDataOffset = int64(rec.MapDataOffset)
	s.inodeOffset = int64(rec.InodeOffset)
	s.dataOffset = int64(rec.DataOffset)
}

func (s *Super) loadBitmaps() error {
	s.inodeBitmap = newBitmap(int64(s.mapInodeBlks) * s.blkSz)
	if err := s.dev.readAt(s.mapInodeOffset, s.inodeBitmap); err != nil {
		return err
	}
	s.dataBitmap = newBitmap(int64(s.mapDataBlks) * s.blkSz)
	return s.dev.readAt(s.mapDataOffset, s.dataBitmap)
}

// format lays out [Super | Inode Bitmap | Data Bitmap | Inode Table |
// Data Area] per §3, following the source's first-mount sizing algebra
// verbatim, subtraction quirk included: num_ino is inode_num minus the
// block counts of the regions ahead of it, not a second estimate
// re-derived from the disk's remaining usable space.
func (s *Super) format() error {
	blk := s.blkSz
	diskSz := s.dev.Size()

	superBlks := ceilDiv(int64(superRecordSize), blk)

	// inode_num: how many (inode + DataPerFile data blocks) bundles
	// fit if the whole disk were inode table plus data, ignoring the
	// super block and bitmaps — an upper bound on the number of files.
	inodeNum := diskSz / (blk * int64(InodePerFile+DataPerFile))

	mapInodeBlks := ceilDiv(ceilDiv(inodeNum, 8), blk)
	mapDataBlks := ceilDiv(ceilDiv(inodeNum*DataPerFile, 8), blk)

	// num_ino subtracts the blocks the metadata regions themselves
	// consume from inodeNum directly, rather than re-deriving a second,
	// smaller inode-count estimate from the leftover space — the
	// subtraction quirk spec.md calls out and asks to preserve verbatim.
	numIno := inodeNum - superBlks - mapInodeBlks - mapDataBlks
	if numIno < 0 {
		numIno = 0
	}
	log.Printf("nfsblk: format: disk=%d bytes, num_ino=%d, map_inode_blks=%d, map_data_blks=%d",
		diskSz, numIno, mapInodeBlks, mapDataBlks)

	mapInodeOffset := superBlks * blk
	mapDataOffset := mapInodeOffset + mapInodeBlks*blk
	inodeOffset := mapDataOffset + mapDataBlks*blk
	dataOffset := inodeOffset + numIno*blk

	s.numIno = int32(numIno)
	s.mapInodeBlks = int32(mapInodeBlks)
	s.mapDataBlks = int32(mapDataBlks)
	s.mapInodeOffset = mapInodeOffset
	s.mapDataOffset = mapDataOffset
	s.inodeOffset = inodeOffset
	s.dataOffset = dataOffset
	s.szUsage = 0

	s.inodeBitmap = newBitmap(mapInodeBlks * blk)
	s.dataBitmap = newBitmap(mapDataBlks * blk)

	// allocate ino 0 for root up front so the very first readInode call
	// in Mount has something to read back. Root goes through the same
	// allocInode path as any other file (§4.2 step 5: "call alloc_inode
	// (root_dentry)"), which on a freshly zeroed inode bitmap always
	// returns ino 0 = RootIno; this also reserves root's DataPerFile
	// data blocks up front instead of leaving them to lazy allocation.
	rootIno, rootPblk, err := s.allocInode()
	if err != nil {
		return err
	}

	rootRec := inodeRecord{Ino: rootIno, Size: 0, Link: 2, DirCnt: 0, PBlk: rootPblk, FType: uint32(typeDir)}
	if err := s.writeInodeRecord(&rootRec); err != nil {
		return err
	}

	return s.flushSuperAndBitmaps()
}

func (s *Super) writeInodeRecord(rec *inodeRecord) error {
	buf, err := marshalRecord(binary.LittleEndian, rec)
	if err != nil {
		return fmt.Errorf("%w: encode inode: %v", ErrIO, err)
	}
	return s.dev.writeAt(s.inodeRecordOffset(rec.Ino), buf)
}

func (s *Super) readInodeRecord(ino int32) (*inodeRecord, error) {
	raw := make([]byte, inodeRecordSize)
	if err := s.dev.readAt(s.inodeRecordOffset(ino), raw); err != nil {
		return nil, err
	}
	rec := &inodeRecord{}
	if err := unmarshalRecord(binary.LittleEndian, raw, rec); err != nil {
		return nil, fmt.Errorf("%w: decode inode: %v", ErrIO, err)
	}
	return rec, nil
}

// currentUsage recomputes sz_usage as the bytes currently claimed by
// allocated inode and data blocks, straight from the two bitmaps'
// popcounts rather than an incremental counter threaded through every
// alloc/drop call site — it is always consistent with whatever the
// bitmaps actually hold (invariant I7: sz_usage ≤ sz_disk).
func (s *Super) currentUsage() int32 {
	blocks := s.inodeBitmap.popcount() + s.dataBitmap.popcount()
	return int32(int64(blocks) * s.blkSz)
}

func (s *Super) flushSuperAndBitmaps() error {
	s.szUsage = s.currentUsage()
	rec := superRecord{
		Magic:          Magic,
		SzUsage:        s.szUsage,
		NumIno:         s.numIno,
		MapInodeBlks:   s.mapInodeBlks,
		MapInodeOffset: int32(s.mapInodeOffset),
		MapDataBlks:    s.mapDataBlks,
		MapDataOffset:  int32(s.mapDataOffset),
		InodeOffset:    int32(s.inodeOffset),
		DataOffset:     int32(s.dataOffset),
	}
	buf, err := marshalRecord(binary.LittleEndian, &rec)
	if err != nil {
		return fmt.Errorf("%w: encode super: %v", ErrIO, err)
	}
	if err := s.dev.writeAt(0, buf); err != nil {
		return err
	}
	if err := s.dev.writeAt(s.mapInodeOffset, s.inodeBitmap); err != nil {
		return err
	}
	return s.dev.writeAt(s.mapDataOffset, s.dataBitmap)
}

// Unmount recursively syncs the whole tree back to the device, writes
// the bitmaps and super-block one final time, and closes the device.
func (s *Super) Unmount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("nfsblk: unmounting, syncing tree")
	if err := s.syncInode(s.inode); err != nil {
		return err
	}
	if err := s.flushSuperAndBitmaps(); err != nil {
		return err
	}
	return s.dev.Close()
}
