package nfsblk

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	in := inodeRecord{Ino: 7, Size: 42, Link: 1, DirCnt: 0, FType: uint32(typeReg)}
	in.PBlk[0] = 3
	copy(in.TargetPath[:], "unused")

	buf, err := marshalRecord(binary.LittleEndian, &in)
	require.NoError(t, err)
	require.Len(t, buf, inodeRecordSize)

	var out inodeRecord
	require.NoError(t, unmarshalRecord(binary.LittleEndian, buf, &out))
	require.Equal(t, in, out)
}

func TestRecordSizeIgnoresUnexportedFields(t *testing.T) {
	type mixed struct {
		A int32
		b int32
	}
	require.Equal(t, 4, recordSize(mixed{}))
}
