//go:build unix

package arena

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
	"golang.org/x/sys/unix"
)

var (
	// ErrExhausted is returned by TryAlloc when every slot is in use.
	ErrExhausted = errors.New("arena: pool exhausted")
	// ErrForeignSlot is returned by Free for memory not owned by the pool.
	ErrForeignSlot = errors.New("arena: slot not owned by pool")
)

// Pool hands out fixed size slots from an anonymous mapping. Slots are
// cache line aligned and never move, which makes them suitable for memory
// the device writes to.
type Pool struct {
	mem      []byte
	slotSize int
	slots    int

	_     cpu.CacheLinePad
	head  atomic.Pointer[node]
	inUse atomic.Int64
	_     cpu.CacheLinePad
}

type node struct {
	next  *node
	index int
}

// NewPool maps slots*slotSize bytes. slotSize is rounded up to a cache line.
func NewPool(slotSize, slots int) (*Pool, error) {
	if slotSize <= 0 || slots <= 0 {
		return nil, fmt.Errorf("arena: invalid pool geometry %dx%d", slots, slotSize)
	}
	slotSize = RoundUp(slotSize, CacheLine)
	mem, err := unix.Mmap(-1, 0, slotSize*slots, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("arena: mmap %d bytes: %w", slotSize*slots, err)
	}
	p := &Pool{
		mem:      mem,
		slotSize: slotSize,
		slots:    slots,
	}
	var head *node
	for i := slots - 1; i >= 0; i-- {
		head = &node{next: head, index: i}
	}
	p.head.Store(head)
	return p, nil
}

// SlotSize is the size of every slot.
func (p *Pool) SlotSize() int { return p.slotSize }

// InUse is the number of slots currently allocated.
func (p *Pool) InUse() int { return int(p.inUse.Load()) }

// TryAlloc takes a free slot without blocking.
func (p *Pool) TryAlloc() ([]byte, error) {
	for {
		old := p.head.Load()
		if old == nil {
			return nil, ErrExhausted
		}
		if p.head.CompareAndSwap(old, old.next) {
			p.inUse.Add(1)
			return p.slot(old.index), nil
		}
		runtime.Gosched()
	}
}

// Alloc takes a free slot, yielding until one is released.
func (p *Pool) Alloc() []byte {
	for {
		buf, err := p.TryAlloc()
		if err == nil {
			return buf
		}
		runtime.Gosched()
	}
}

// Free returns a slot to the pool. The slot is zeroed.
func (p *Pool) Free(buf []byte) error {
	index, ok := p.index(buf)
	if !ok {
		return ErrForeignSlot
	}
	clear(p.slot(index))
	next := &node{index: index}
	for {
		head := p.head.Load()
		next.next = head
		if p.head.CompareAndSwap(head, next) {
			p.inUse.Add(-1)
			return nil
		}
		runtime.Gosched()
	}
}

// Close unmaps the pool. Slots must not be used afterwards.
func (p *Pool) Close() error {
	return unix.Munmap(p.mem)
}

func (p *Pool) slot(index int) []byte {
	start := index * p.slotSize
	return p.mem[start : start+p.slotSize : start+p.slotSize]
}

func (p *Pool) index(buf []byte) (int, bool) {
	if len(buf) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(p.mem)))
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	if addr < base || addr >= base+uintptr(len(p.mem)) {
		return 0, false
	}
	off := int(addr - base)
	if off%p.slotSize != 0 {
		return 0, false
	}
	return off / p.slotSize, true
}
