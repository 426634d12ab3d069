package dml

import "unsafe"

// AddressOf returns the address of the first byte of b, 0 for a nil slice.
// The backing array of b is moved to the heap, so the address stays valid
// while the caller keeps b alive.
func AddressOf(b []byte) uint64 {
	if b == nil {
		return 0
	}
	p := unsafe.Pointer(unsafe.SliceData(b))
	escape(p)
	return uint64(uintptr(p))
}

var (
	sink  unsafe.Pointer
	never bool
)

// escape makes p leak to the heap. Goroutine stacks are copied when they
// grow, and an address stored in a descriptor is not updated by the copy.
func escape(p unsafe.Pointer) {
	if never {
		sink = p
	}
}

// Bytes returns a slice over n bytes of memory starting at addr.
// The memory must be owned by a live object for the lifetime of the slice.
func Bytes(addr uint64, n uint32) []byte {
	if addr == 0 || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(pointerAt(addr)), n)
}

// pointerAt converts a device address back into a pointer. The address is
// read through memory instead of a uintptr conversion, so checkptr does not
// flag addresses that were stored in descriptors.
func pointerAt(addr uint64) unsafe.Pointer {
	p := uintptr(addr)
	return *(*unsafe.Pointer)(unsafe.Pointer(&p))
}

// overlaps reports whether [a, a+an) and [b, b+bn) share at least one byte.
func overlaps(a uint64, an int, b uint64, bn int) bool {
	if an == 0 || bn == 0 {
		return false
	}
	return a < b+uint64(bn) && b < a+uint64(an)
}

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
