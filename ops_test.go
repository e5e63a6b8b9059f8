package nfsblk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mountFreshForTest(t *testing.T) *Super {
	t.Helper()
	dev := newTestBlockDevice(t, 1<<20)
	sup, err := Mount(dev, WithForceFormat())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sup.dev.Close() })
	return sup
}

func TestMkdirAndReaddir(t *testing.T) {
	sup := mountFreshForTest(t)

	require.NoError(t, sup.Mkdir("/a"))
	require.NoError(t, sup.Mkdir("/a/b"))

	names, err := sup.Readdir("/")
	require.NoError(t, err)
	require.Contains(t, names, "a")

	names, err = sup.Readdir("/a")
	require.NoError(t, err)
	require.Contains(t, names, "b")
}

func TestMknodRegularFileWriteThenRead(t *testing.T) {
	sup := mountFreshForTest(t)
	require.NoError(t, sup.Mknod("/f.txt", RegMode))

	n, err := sup.Write("/f.txt", 0, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = sup.Read("/f.txt", 0, buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

func TestWriteAtOffsetGrowsFile(t *testing.T) {
	sup := mountFreshForTest(t)
	require.NoError(t, sup.Mknod("/f.txt", RegMode))

	_, err := sup.Write("/f.txt", 10, []byte("xyz"))
	require.NoError(t, err)

	attr, err := sup.Getattr("/f.txt")
	require.NoError(t, err)
	require.Equal(t, int64(13), attr.Size)
}

// TestCreateUnderMissingParentFails pins the explicit-parent-resolution
// behavior: creating a path whose parent directory does not exist must
// fail outright, not silently materialize the leaf under whatever
// directory a single-pass lookup happened to reach.
func TestCreateUnderMissingParentFails(t *testing.T) {
	sup := mountFreshForTest(t)

	err := sup.Mkdir("/missing/child")
	require.ErrorIs(t, err, ErrNotFound)

	names, _ := sup.Readdir("/")
	require.NotContains(t, names, "child")
}

func TestMkdirExistingNameFails(t *testing.T) {
	sup := mountFreshForTest(t)
	require.NoError(t, sup.Mkdir("/a"))
	require.ErrorIs(t, sup.Mkdir("/a"), ErrExists)
}

// TestLookupDoesNotPrefixMatch guards against the source's
// memcmp(fname, component, strlen(component)) prefix-match bug: looking
// up "foo" must never resolve to a sibling "foobar".
func TestLookupDoesNotPrefixMatch(t *testing.T) {
	sup := mountFreshForTest(t)
	require.NoError(t, sup.Mknod("/foobar", RegMode))

	_, err := sup.Getattr("/foo")
	require.ErrorIs(t, err, ErrNotFound)

	attr, err := sup.Getattr("/foobar")
	require.NoError(t, err)
	require.Equal(t, int64(0), attr.Size)
}

func TestUnlinkRemovesFile(t *testing.T) {
	sup := mountFreshForTest(t)
	require.NoError(t, sup.Mknod("/f.txt", RegMode))
	require.NoError(t, sup.Unlink("/f.txt"))

	_, err := sup.Getattr("/f.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUnlinkOnDirectoryFails(t *testing.T) {
	sup := mountFreshForTest(t)
	require.NoError(t, sup.Mkdir("/a"))
	require.ErrorIs(t, sup.Unlink("/a"), ErrIsDir)
}

func TestRmdirRequiresEmpty(t *testing.T) {
	sup := mountFreshForTest(t)
	require.NoError(t, sup.Mkdir("/a"))
	require.NoError(t, sup.Mkdir("/a/b"))

	require.Error(t, sup.Rmdir("/a"))

	require.NoError(t, sup.Rmdir("/a/b"))
	require.NoError(t, sup.Rmdir("/a"))

	names, _ := sup.Readdir("/")
	require.NotContains(t, names, "a")
}

func TestRenameMovesEntry(t *testing.T) {
	sup := mountFreshForTest(t)
	require.NoError(t, sup.Mkdir("/a"))
	require.NoError(t, sup.Mknod("/a/f.txt", RegMode))

	require.NoError(t, sup.Rename("/a/f.txt", "/g.txt"))

	_, err := sup.Getattr("/a/f.txt")
	require.ErrorIs(t, err, ErrNotFound)

	attr, err := sup.Getattr("/g.txt")
	require.NoError(t, err)
	require.Equal(t, "reg", attr.Type.String())
}

// TestRenameOntoSelfIsNoop pins §4.6's rename precondition: "to not
// found or equal" — renaming a path onto itself must succeed as a
// no-op, not fail with ErrExists the way an ordinary existing-target
// rename would.
func TestRenameOntoSelfIsNoop(t *testing.T) {
	sup := mountFreshForTest(t)
	require.NoError(t, sup.Mknod("/f.txt", RegMode))

	require.NoError(t, sup.Rename("/f.txt", "/f.txt"))

	attr, err := sup.Getattr("/f.txt")
	require.NoError(t, err)
	require.Equal(t, "reg", attr.Type.String())
}

// TestGetattrRootSizeTracksChildren pins the Q6 decision: root's
// reported size always reflects its live child count rather than being
// pinned at a permanent zero.
func TestGetattrRootSizeTracksChildren(t *testing.T) {
	sup := mountFreshForTest(t)

	before, err := sup.Getattr("/")
	require.NoError(t, err)

	require.NoError(t, sup.Mkdir("/a"))

	after, err := sup.Getattr("/")
	require.NoError(t, err)
	require.Greater(t, after.Size, before.Size)
}

func TestTruncateShrinksAndGrows(t *testing.T) {
	sup := mountFreshForTest(t)
	require.NoError(t, sup.Mknod("/f.txt", RegMode))
	_, err := sup.Write("/f.txt", 0, []byte("hello world"))
	require.NoError(t, err)

	require.NoError(t, sup.Truncate("/f.txt", 5))
	attr, err := sup.Getattr("/f.txt")
	require.NoError(t, err)
	require.Equal(t, int64(5), attr.Size)

	require.NoError(t, sup.Truncate("/f.txt", 20))
	attr, err = sup.Getattr("/f.txt")
	require.NoError(t, err)
	require.Equal(t, int64(20), attr.Size)
}

func TestAccessUnknownPath(t *testing.T) {
	sup := mountFreshForTest(t)
	require.ErrorIs(t, sup.Access("/nope", FOK), ErrAccess)
}

func TestMkdirRootFails(t *testing.T) {
	sup := mountFreshForTest(t)
	require.ErrorIs(t, sup.Mkdir("/"), ErrExists)
}

// TestDirectoryCreateDropDoesNotLeakDataBits pins invariant I2/P3: a
// directory's allocInode call reserves DataPerFile data-bitmap bits for
// its own dentry-packing blocks exactly like a regular file's do, so
// creating and then removing directories must not change the data
// bitmap's popcount, let alone monotonically leak bits on every cycle.
func TestDirectoryCreateDropDoesNotLeakDataBits(t *testing.T) {
	sup := mountFreshForTest(t)

	before := sup.dataBitmap.popcount()

	for i := 0; i < 5; i++ {
		require.NoError(t, sup.Mkdir("/leak-check"))
		require.NoError(t, sup.Rmdir("/leak-check"))
	}

	require.Equal(t, before, sup.dataBitmap.popcount())
}
