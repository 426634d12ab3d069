package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocAligned(t *testing.T) {
	for _, size := range []int{1, 32, 63, 64, 96, 1000} {
		for _, align := range []int{32, 64, 4096} {
			buf := AllocAligned(size, align)
			require.Len(t, buf, size)
			require.Equal(t, size, cap(buf))
			require.True(t, Aligned(buf, align), "size %d align %d", size, align)
		}
	}
	require.Nil(t, AllocAligned(0, 64))
	require.Nil(t, AllocAligned(-1, 64))
}

func TestRoundUp(t *testing.T) {
	require.Equal(t, 0, RoundUp(0, 64))
	require.Equal(t, 64, RoundUp(1, 64))
	require.Equal(t, 128, RoundUp(96, 64))
	require.Equal(t, 128, RoundUp(128, 64))
}
