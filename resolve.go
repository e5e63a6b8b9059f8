package nfsblk

import "strings"

// baseName and parentPath split a slash-separated absolute path the way
// the source's nfs_get_fname peels one component off the tail; kept as
// two small helpers instead of one combined return so call sites that
// only need one half don't carry the other.
func baseName(path string) string {
	path = strings.TrimRight(path, "/")
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func parentPath(path string) string {
	path = strings.TrimRight(path, "/")
	idx := strings.LastIndexByte(path, '/')
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

// splitComponents breaks an absolute path into its non-empty components,
// the Go equivalent of the source's nfs_calc_lvl: the number of levels
// is just len(components).
func splitComponents(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// lookupResult reports how far path resolution got.
type lookupResult struct {
	found  bool
	target *dentry // the resolved dentry, valid iff found
	parent *dentry // the deepest directory actually reached
}

// lookup walks path from the root one component at a time, materializing
// lazy dentries as it goes. The source's nfs_lookup compared names with
// memcmp(fname, component, strlen(component)) — a prefix match, so
// looking up "foo" could resolve to a sibling named "foobar" (open
// question Q3). findChild here does a full-string match instead, fixing
// that. A single top-level root short-circuit is preserved: path "/"
// (zero components) resolves directly to root without entering the
// loop, matching the source's lvl==0 case.
func (s *Super) lookup(path string) (*lookupResult, error) {
	comps := splitComponents(path)
	cur := s.root
	if len(comps) == 0 {
		return &lookupResult{found: true, target: cur, parent: cur}, nil
	}

	for i, name := range comps {
		if err := s.ensureLoaded(cur); err != nil {
			return nil, err
		}
		dp, ok := cur.inode.asDir()
		if !ok {
			return &lookupResult{found: false, parent: cur}, ErrUnsupported
		}

		child := findChild(dp, name)
		if child == nil {
			return &lookupResult{found: false, parent: cur}, nil
		}
		if i == len(comps)-1 {
			return &lookupResult{found: true, target: child, parent: cur}, nil
		}
		cur = child
	}
	// unreachable: the loop above always returns on its last iteration.
	return &lookupResult{found: false, parent: cur}, nil
}

// resolveDir resolves path to a materialized directory inode, failing
// with ErrNotFound if any component is missing and ErrUnsupported if a
// non-leaf component is not a directory.
func (s *Super) resolveDir(path string) (*dentry, *dirPayload, error) {
	res, err := s.lookup(path)
	if err != nil {
		return nil, nil, err
	}
	if !res.found {
		return nil, nil, ErrNotFound
	}
	if err := s.ensureLoaded(res.target); err != nil {
		return nil, nil, err
	}
	dp, ok := res.target.inode.asDir()
	if !ok {
		return nil, nil, ErrUnsupported
	}
	return res.target, dp, nil
}
