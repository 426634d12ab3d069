package emulator

import (
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/dshulyak/dml"
)

// Fault decides whether executing d touches a page that is not present. It
// returns the offset of the first faulting byte of the destination.
type Fault func(d *dml.Descriptor) (offset uint32, ok bool)

// FaultAt faults every write operation at offset.
func FaultAt(offset uint32) Fault {
	return func(*dml.Descriptor) (uint32, bool) {
		return offset, true
	}
}

// FaultOnce faults only the first write operation.
func FaultOnce(offset uint32) Fault {
	var fired atomic.Bool
	return func(*dml.Descriptor) (uint32, bool) {
		if !fired.CompareAndSwap(false, true) {
			return 0, false
		}
		return offset, true
	}
}

// faultable operations write to the destination sequentially.
func faultable(op dml.Opcode) bool {
	switch op {
	case dml.DSA_OPCODE_MEMMOVE, dml.DSA_OPCODE_MEMFILL, dml.DSA_OPCODE_DUALCAST:
		return true
	}
	return false
}

// PageSize is the granule of Pages.
const PageSize = 4096

// Pages tracks destination pages that are not present. Writes reaching an
// absent page fault at its first byte until the page is touched.
type Pages struct {
	mu     sync.Mutex
	absent *roaring64.Bitmap
}

func NewPages() *Pages {
	return &Pages{absent: roaring64.New()}
}

// Evict marks every page overlapping b as absent.
func (p *Pages) Evict(b []byte) {
	if len(b) == 0 {
		return
	}
	first, last := pageRange(dml.AddressOf(b), uint32(len(b)))
	p.mu.Lock()
	p.absent.AddRange(first, last+1)
	p.mu.Unlock()
}

// Touch makes the page holding addr present.
func (p *Pages) Touch(addr uint64) {
	p.mu.Lock()
	p.absent.Remove(addr / PageSize)
	p.mu.Unlock()
}

// Absent is the number of absent pages.
func (p *Pages) Absent() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.absent.GetCardinality()
}

// Fault reports the first absent destination page of a descriptor.
func (p *Pages) Fault() Fault {
	return func(d *dml.Descriptor) (uint32, bool) {
		dst, n := d.Dst(), d.TransferSize()
		if n == 0 {
			return 0, false
		}
		first, last := pageRange(dst, n)
		p.mu.Lock()
		it := p.absent.Iterator()
		it.AdvanceIfNeeded(first)
		var page uint64
		found := it.HasNext()
		if found {
			page = it.Next()
		}
		p.mu.Unlock()
		if !found || page > last {
			return 0, false
		}
		return uint32(max(page*PageSize, dst) - dst), true
	}
}

func pageRange(addr uint64, n uint32) (uint64, uint64) {
	return addr / PageSize, (addr + uint64(n) - 1) / PageSize
}
