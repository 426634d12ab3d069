// Package arena allocates the aligned memory blocks that hold descriptors
// and completion records.
package arena

import "unsafe"

// CacheLine is the alignment of descriptors and task blocks.
const CacheLine = 64

// AllocAligned allocates size bytes starting at an address divisible by align.
// align must be a power of two. The backing array is kept alive by the
// returned slice.
func AllocAligned(size, align int) []byte {
	if size <= 0 {
		return nil
	}
	buf := make([]byte, size+align)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	offset := int((uintptr(align) - addr&uintptr(align-1)) & uintptr(align-1))
	return buf[offset : offset+size : offset+size]
}

// Aligned reports whether b starts at an address divisible by align.
func Aligned(b []byte, align int) bool {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))&uintptr(align-1) == 0
}

// RoundUp rounds n up to a multiple of align.
func RoundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
