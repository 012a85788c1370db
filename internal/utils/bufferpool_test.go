package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// nodeSizeSmall and nodeSizeLarge mirror the range of NodeSize() values a
// node.Save call actually requests: a small-degree, small-key layout at one
// end and a large-degree, large-value layout at the other.
const (
	nodeSizeSmall = 111  // B=2, MaxKeySize=8, MaxValueSize=8
	nodeSizeLarge = 5823 // B=6, MaxKeySize=256, MaxValueSize=256
)

func TestGetBufferReturnsExactRequestedLength(t *testing.T) {
	sizes := []int{0, 1, nodeSizeSmall, nodeSizeLarge}
	for _, size := range sizes {
		buf := GetBuffer(size)
		require.Equal(t, size, len(buf), "node.Save relies on GetBuffer returning exactly the requested length")
		require.GreaterOrEqual(t, cap(buf), size)
		ReleaseBuffer(buf)
	}
}

// TestClearScrubsReusedBuffer documents why node.Save calls clear() on the
// buffer it gets from the pool: GetBuffer does not scrub the backing array,
// so a Save that writes fewer bytes than a prior Save into the same
// recycled array would otherwise leave stale trailing bytes in the record
// unless the caller clears it first.
func TestClearScrubsReusedBuffer(t *testing.T) {
	buf := GetBuffer(nodeSizeLarge)
	for i := range buf {
		buf[i] = 0xFF
	}

	clear(buf)
	for i, b := range buf {
		require.Zerof(t, b, "byte %d not cleared", i)
	}

	ReleaseBuffer(buf)
}

func TestReleaseBufferAllowsSubsequentReuse(t *testing.T) {
	buf := GetBuffer(nodeSizeLarge)
	require.Equal(t, nodeSizeLarge, len(buf))
	ReleaseBuffer(buf)

	buf2 := GetBuffer(nodeSizeSmall)
	require.Equal(t, nodeSizeSmall, len(buf2))
	ReleaseBuffer(buf2)
}

// TestBufferPoolConcurrentNodeSaves simulates the concurrency node.Save
// actually sees: many goroutines pooling and releasing node-sized buffers
// at once, as happens when multiple trees share a process.
func TestBufferPoolConcurrentNodeSaves(t *testing.T) {
	const goroutines = 8
	const iterations = 50

	done := make(chan bool, goroutines)
	for g := 0; g < goroutines; g++ {
		go func(size int) {
			for i := 0; i < iterations; i++ {
				buf := GetBuffer(size)
				clear(buf)
				for j := range buf {
					buf[j] = byte(j)
				}
				ReleaseBuffer(buf)
			}
			done <- true
		}(nodeSizeSmall + g*37)
	}

	for g := 0; g < goroutines; g++ {
		<-done
	}
}

func BenchmarkGetBufferNodeSize(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := GetBuffer(nodeSizeLarge)
		ReleaseBuffer(buf)
	}
}

func BenchmarkGetBufferNodeSizeNoPool(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = make([]byte, nodeSizeLarge)
	}
}
