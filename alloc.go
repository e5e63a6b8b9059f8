package nfsblk

import "log"

// numData is num_data (§3: "num_data (= DATA_PER_FILE·num_ino)"), the
// count of data-block slots actually backed by a live inode's budget,
// as opposed to the data bitmap's raw bit capacity (which rounds up to
// a whole number of BlkSz-sized bitmap blocks and so is always >=
// numData). Allocation scans must stay within numData, matching the
// source's own bound.
func (s *Super) numData() int32 {
	return DataPerFile * s.numIno
}

// allocInode finds a free inode bit and DataPerFile contiguous-in-name-only
// (not contiguous-in-offset) free data bits, in one atomic pass, and
// returns the ino and the chosen data block numbers. The source's
// nfs_alloc_inode returns ErrNoSpace on a partial failure without
// undoing the bit it already set (open question Q5). Here the inode bit
// is set only after all DataPerFile data bits are taken, and the data
// bits already taken are cleared again if the data scan comes up short,
// so a failed call leaves both bitmaps unchanged.
func (s *Super) allocInode() (int32, [DataPerFile]int32, error) {
	var pblk [DataPerFile]int32

	ino, ok := s.inodeBitmap.firstClear(s.numIno)
	if !ok {
		log.Printf("nfsblk: allocInode: inode bitmap exhausted (num_ino=%d)", s.numIno)
		return 0, pblk, ErrNoSpace
	}

	taken := make([]int32, 0, DataPerFile)
	limit := s.numData()
	for i := 0; i < DataPerFile; i++ {
		blk, ok := s.dataBitmap.firstClear(limit)
		if !ok {
			log.Printf("nfsblk: allocInode: data bitmap exhausted (num_data=%d), rolling back %d block(s)", limit, len(taken))
			for _, b := range taken {
				s.dataBitmap.clear(b)
			}
			return 0, pblk, ErrNoSpace
		}
		s.dataBitmap.set(blk)
		taken = append(taken, blk)
		pblk[i] = blk
	}

	s.inodeBitmap.set(ino)
	return ino, pblk, nil
}

// dropInode releases an inode's own bitmap bit and every data block it
// owns. The source's nfs_drop_inode only clears the inode bit for
// REG_FILE and SYM_LINK, and never clears a data bit at all, leaking
// every data block a file ever held (open question Q1) and leaking a
// directory's own inode bit on top of that (a narrower case Q1's text
// doesn't name but that falls out of the same bug). Both are fixed here:
// every file type frees its own inode bit, and every non-negative pblk
// entry frees its data bit. Rmdir only ever calls this on an empty
// directory, so there is no child subtree to recurse into first.
func (s *Super) dropInode(it *inode) {
	s.inodeBitmap.clear(it.ino)
	for _, b := range it.pblk {
		if b >= 0 {
			s.dataBitmap.clear(b)
		}
	}
	delete(s.byIno, it.ino)
}

// allocDentry prepends a new dentry to dp's sibling list. Both fresh
// directory creation and readInode's on-disk reconstruction call this
// same function (per §4.5), which is why directory order inverts on
// every mount/unmount cycle — that inversion is not among the flagged
// open questions, so it is left exactly as specified rather than fixed.
func allocDentry(dp *dirPayload, d *dentry) {
	d.brother = dp.children
	dp.children = d
	dp.dirCnt++
}

// dropDentry unlinks d from dp's sibling list by identity.
func dropDentry(dp *dirPayload, d *dentry) {
	if dp.children == d {
		dp.children = d.brother
		dp.dirCnt--
		return
	}
	for c := dp.children; c != nil; c = c.brother {
		if c.brother == d {
			c.brother = d.brother
			dp.dirCnt--
			return
		}
	}
}
