package nfsblk

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// memDevice is an in-memory rawDevice, the equivalent of the teacher's
// mock_test.go byte-slice device fake, sized to a whole number of IoSize
// chunks so readAt/writeAt's aligned loop never runs past the end.
type memDevice struct {
	buf []byte
	pos int64
}

func newMemDevice(size int64) *memDevice {
	return &memDevice{buf: make([]byte, size)}
}

func (m *memDevice) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.buf)) + offset
	}
	return m.pos, nil
}

func (m *memDevice) Read(p []byte) (int, error) {
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memDevice) Write(p []byte) (int, error) {
	n := copy(m.buf[m.pos:], p)
	m.pos += int64(n)
	return n, nil
}

func (m *memDevice) Close() error { return nil }

func newTestBlockDevice(t *testing.T, size int64) *BlockDevice {
	t.Helper()
	return &BlockDevice{f: newMemDevice(size), ioSz: defaultIOSize, diskSz: size}
}

func TestBlockDeviceReadWriteRoundTrip(t *testing.T) {
	dev := newTestBlockDevice(t, 64*1024)

	payload := bytes.Repeat([]byte{0xAB}, 100)
	require.NoError(t, dev.writeAt(37, payload))

	out := make([]byte, 100)
	require.NoError(t, dev.readAt(37, out))
	require.Equal(t, payload, out)
}

func TestBlockDeviceWritePreservesNeighboringBytes(t *testing.T) {
	dev := newTestBlockDevice(t, 4096)

	full := bytes.Repeat([]byte{0xFF}, 2*dev.IOSize())
	require.NoError(t, dev.writeAt(0, full))

	require.NoError(t, dev.writeAt(5, []byte{0x01, 0x02, 0x03}))

	out := make([]byte, 2*dev.IOSize())
	require.NoError(t, dev.readAt(0, out))
	require.Equal(t, byte(0xFF), out[0])
	require.Equal(t, byte(0x01), out[5])
	require.Equal(t, byte(0xFF), out[8])
}
