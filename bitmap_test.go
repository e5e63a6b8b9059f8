package nfsblk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitmapSetClearTest(t *testing.T) {
	b := newBitmap(4)
	require.False(t, b.test(3))

	b.set(3)
	require.True(t, b.test(3))

	b.clear(3)
	require.False(t, b.test(3))
}

func TestBitmapFirstClear(t *testing.T) {
	b := newBitmap(1)
	for i := int32(0); i < 5; i++ {
		b.set(i)
	}

	idx, ok := b.firstClear(8)
	require.True(t, ok)
	require.Equal(t, int32(5), idx)
}

func TestBitmapFirstClearExhausted(t *testing.T) {
	b := newBitmap(1)
	for i := int32(0); i < 8; i++ {
		b.set(i)
	}
	_, ok := b.firstClear(8)
	require.False(t, ok)
}

func TestBitmapPopcount(t *testing.T) {
	b := newBitmap(2)
	b.set(0)
	b.set(7)
	b.set(9)
	require.Equal(t, 3, b.popcount())
}
