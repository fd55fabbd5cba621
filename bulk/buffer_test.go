package bulk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferTracking(t *testing.T) {
	buf := NewBuffer(100)
	require.Equal(t, 100, buf.Capacity())
	require.Equal(t, 100, buf.Available())
	require.Equal(t, 0, buf.Entries())

	buf.Append(bytes.Repeat([]byte{'a'}, 40))
	buf.Append(bytes.Repeat([]byte{'b'}, 40))

	require.Equal(t, 80, buf.Length())
	require.Equal(t, 20, buf.Available())
	require.Equal(t, 2, buf.Entries())
	require.Equal(t, []int{40, 40}, buf.EntrySizes())
	require.Equal(t, 80, len(buf.Bytes()))
}

func TestBufferReset(t *testing.T) {
	buf := NewBuffer(64)
	buf.Append([]byte("hello"))
	buf.Reset()

	require.Equal(t, 0, buf.Length())
	require.Equal(t, 0, buf.Entries())
	require.Equal(t, 64, buf.Available())

	// reset keeps the backing array; content is overwritten in place
	buf.Append([]byte("world"))
	require.Equal(t, []byte("world"), buf.Bytes())
}

func TestBufferGrowsForOversizedFragment(t *testing.T) {
	buf := NewBuffer(10)
	big := bytes.Repeat([]byte{'x'}, 25)
	buf.Append(big)

	require.Equal(t, 25, buf.Length())
	require.Equal(t, big, buf.Bytes())
	require.Equal(t, 1, buf.Entries())
}
