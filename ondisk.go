package nfsblk

// On-disk record shapes (§3/§6), little-endian, fixed width. Fields are
// exported so record.go's reflect-driven marshal/unmarshal can walk
// them generically, the same way the teacher's Superblock does for its
// own on-disk header.

// superRecord is the on-disk super-block: magic, usage accounting, and
// the chained region geometry computed once at first mount (format)
// and read back verbatim on every later mount.
type superRecord struct {
	Magic          uint32
	SzUsage        int32
	NumIno         int32
	MapInodeBlks   int32
	MapInodeOffset int32
	MapData        int32 // reserved, mirrors the source's unused field
	MapDataBlks    int32
	MapDataOffset  int32
	InodeOffset    int32
	DataOffset     int32
}

// inodeRecord is the on-disk inode: one full BlkSz slot per inode,
// addressed at inodeRecordOffset(ino) = InodeOffset + ino*BlkSz.
type inodeRecord struct {
	Ino        int32
	Size       int32
	Link       int32
	DirCnt     int32
	PBlk       [DataPerFile]int32
	FType      uint32
	TargetPath [MaxName]byte
}

// dentryRecord is one packed directory entry; records never straddle a
// BlkSz boundary (see serialize.go).
type dentryRecord struct {
	Ino   int32
	Valid int32
	FType uint32
	FName [MaxName]byte
}

var (
	inodeRecordSize  = recordSize(inodeRecord{})
	dentryRecordSize = recordSize(dentryRecord{})
	superRecordSize  = recordSize(superRecord{})
)
