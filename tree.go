package nfsblk

// fileType mirrors the original C enum's REG_FILE/DIR/SYM_LINK order so
// the persisted FType value has no surprises for anyone who has seen
// the source this format was distilled from.
type fileType uint32

const (
	typeReg fileType = iota
	typeDir
	typeSymlink
)

func (t fileType) String() string {
	switch t {
	case typeReg:
		return "reg"
	case typeDir:
		return "dir"
	case typeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// dentry is a directory entry: the edge from a parent directory to a
// named child. parent is a non-owning back-link (the design notes call
// for breaking the cyclic inode<->dentry relation this way); brother
// owns the rest of the sibling list; inode owns the child's materialized
// subtree, or is nil when the dentry is lazy (ino known, inode not yet
// loaded).
type dentry struct {
	fname string
	ftype fileType
	ino   int32

	parent  *dentry
	brother *dentry
	inode   *inode
}

// dirPayload, regPayload and symlinkPayload are the tagged-variant
// payloads the design notes ask for in place of the source's single
// struct with every field always present.
type dirPayload struct {
	children *dentry // head of the owning sibling list
	dirCnt   int32
}

type regPayload struct {
	data [DataPerFile][]byte // lazily allocated per logical block
}

type symlinkPayload struct {
	target string
}

func (p *regPayload) block(i int32, blkSz int64) []byte {
	if p.data[i] == nil {
		p.data[i] = make([]byte, blkSz)
	}
	return p.data[i]
}

// inode is the metadata record for one file or directory: its data-block
// indices, its type-specific payload, and a non-owning back-link to the
// dentry that owns it.
type inode struct {
	ino   int32
	ftype fileType
	size  int32
	pblk  [DataPerFile]int32

	dentry  *dentry
	payload any // *dirPayload | *regPayload | *symlinkPayload
}

func (it *inode) asDir() (*dirPayload, bool) {
	p, ok := it.payload.(*dirPayload)
	return p, ok
}

func (it *inode) asReg() (*regPayload, bool) {
	p, ok := it.payload.(*regPayload)
	return p, ok
}

func (it *inode) asSymlink() (*symlinkPayload, bool) {
	p, ok := it.payload.(*symlinkPayload)
	return p, ok
}

func newPayload(ftype fileType) any {
	switch ftype {
	case typeDir:
		return &dirPayload{}
	case typeSymlink:
		return &symlinkPayload{}
	default:
		return &regPayload{}
	}
}

// findChild does an exact-match scan of a directory's sibling list.
// The source's nfs_lookup used memcmp(fname, component, strlen(component)),
// a prefix match that would let "foo" match an existing "foobar" dentry
// (open question Q3); this compares full names instead.
func findChild(dp *dirPayload, name string) *dentry {
	for c := dp.children; c != nil; c = c.brother {
		if c.fname == name {
			return c
		}
	}
	return nil
}

// dentryAt returns the n-th child in sibling-list order (head first,
// i.e. most-recently-inserted first), or nil past the end. Grounded on
// the original's nfs_get_dentry helper; Readdir does not call it, since
// it walks the whole sibling list itself.
func dentryAt(dp *dirPayload, n int) *dentry {
	c := dp.children
	for i := 0; c != nil; i++ {
		if i == n {
			return c
		}
		c = c.brother
	}
	return nil
}
