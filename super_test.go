package nfsblk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatProducesConsistentGeometry(t *testing.T) {
	sup := mountFreshForTest(t)

	require.Greater(t, sup.numIno, int32(0))
	require.Greater(t, sup.mapInodeBlks, int32(0))
	require.Greater(t, sup.mapDataBlks, int32(0))
	require.Less(t, sup.mapInodeOffset, sup.inodeOffset)
	require.Less(t, sup.inodeOffset, sup.dataOffset)
}

func TestMountPersistsAcrossReopen(t *testing.T) {
	dev := newTestBlockDevice(t, 1<<20)

	sup, err := Mount(dev, WithForceFormat())
	require.NoError(t, err)
	require.NoError(t, sup.Mkdir("/persisted"))
	require.NoError(t, sup.Unmount())

	dev2 := &BlockDevice{f: dev.f, ioSz: dev.ioSz, diskSz: dev.diskSz}
	sup2, err := Mount(dev2)
	require.NoError(t, err)

	names, err := sup2.Readdir("/")
	require.NoError(t, err)
	require.Contains(t, names, "persisted")
}

// TestDirectoryOrderInvertsAcrossMountCycle pins the deliberately
// unfixed behavior: both fresh creation and readInode's reconstruction
// call the same head-insert allocDentry, so the sibling order read back
// at the next mount is the reverse of the order at unmount.
func TestDirectoryOrderInvertsAcrossMountCycle(t *testing.T) {
	dev := newTestBlockDevice(t, 1<<20)

	sup, err := Mount(dev, WithForceFormat())
	require.NoError(t, err)
	require.NoError(t, sup.Mkdir("/a"))
	require.NoError(t, sup.Mkdir("/b"))
	require.NoError(t, sup.Mkdir("/c"))

	beforeUnmount, err := sup.Readdir("/")
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "a"}, beforeUnmount)

	require.NoError(t, sup.Unmount())

	dev2 := &BlockDevice{f: dev.f, ioSz: dev.ioSz, diskSz: dev.diskSz}
	sup2, err := Mount(dev2)
	require.NoError(t, err)

	afterRemount, err := sup2.Readdir("/")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, afterRemount)
}
