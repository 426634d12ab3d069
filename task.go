package dml

import (
	"errors"
	"sync/atomic"
	"unsafe"

	"github.com/dshulyak/dml/arena"
)

const (
	// TaskBlockSize is a descriptor followed by its completion record.
	TaskBlockSize = DescriptorSize + CompletionRecordSize

	recordOffset = DescriptorSize
)

var (
	// ErrTaskInFlight is returned when relocating a task the device may still write to.
	ErrTaskInFlight = errors.New("dml: task in flight")
	// ErrTaskReleased is returned when relocating a task whose result was taken.
	ErrTaskReleased = errors.New("dml: task released")
)

// Allocator supplies task blocks of at least TaskBlockSize bytes aligned to
// DescriptorAlignment. *arena.Pool satisfies it.
type Allocator interface {
	Alloc() []byte
	Free(b []byte) error
}

type heap struct{}

func (heap) Alloc() []byte {
	return arena.AllocAligned(TaskBlockSize, DescriptorAlignment)
}

func (heap) Free([]byte) error { return nil }

// Storage is caller provided memory for a single task block.
type Storage struct {
	noCopy noCopy
	buf    [TaskBlockSize + DescriptorAlignment]byte
}

func (s *Storage) block() []byte {
	p := unsafe.Pointer(&s.buf[0])
	escape(p)
	addr := uintptr(p)
	off := int((DescriptorAlignment - addr%DescriptorAlignment) % DescriptorAlignment)
	return s.buf[off : off+TaskBlockSize : off+TaskBlockSize]
}

type options struct {
	numa    int
	storage *Storage
	alloc   Allocator
}

// Option configures a task.
type Option func(*options)

// WithNUMA selects the NUMA node of the submission.
func WithNUMA(node int) Option {
	return func(o *options) {
		o.numa = node
	}
}

// WithStorage places the task block in caller memory.
func WithStorage(s *Storage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithAllocator takes the task block from a, for example an *arena.Pool.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		o.alloc = a
	}
}

// lifecycle hooks of operations that own external state, like batches.
type preparer interface {
	prepare() Status
	complete()
}

const (
	taskIdle uint32 = iota
	taskQueued
	taskSubmitted
	taskFinished
)

// Task is a single submission of an operation. It owns the descriptor and
// completion record until Get returns.
type Task[R any] struct {
	noCopy noCopy

	op    Op[R]
	path  Path
	numa  int
	block []byte
	alloc Allocator

	state    atomic.Uint32
	queued   chan struct{}
	status   Status
	result   R
	prepared bool
	released bool
}

// NewTask validates op against the path limits and encodes it into a new
// task block. An invalid operation yields a finished task whose result
// carries the validation status.
func NewTask[R any](path Path, op Op[R], opts ...Option) *Task[R] {
	o := options{numa: AnyNode}
	for _, opt := range opts {
		opt(&o)
	}
	t := &Task[R]{op: op, path: path, numa: o.numa}
	switch {
	case o.storage != nil:
		t.block = o.storage.block()
	case o.alloc != nil:
		t.alloc = o.alloc
		t.block = o.alloc.Alloc()
	default:
		t.alloc = heap{}
		t.block = t.alloc.Alloc()
	}
	if len(t.block) < TaskBlockSize || !arena.Aligned(t.block, DescriptorAlignment) {
		t.fail(StatusError)
		return t
	}
	if st := op.Validate(path.Limits()); st != StatusOK {
		t.fail(st)
		return t
	}
	d := t.Descriptor()
	d.Reset()
	op.Populate(d)
	t.bind()
	t.Record().Reset()
	return t
}

// Submit creates a task and submits it on the calling goroutine.
func Submit[R any](path Path, op Op[R], opts ...Option) *Task[R] {
	t := NewTask(path, op, opts...)
	t.Submit()
	return t
}

// SubmitAsync validates op on the calling goroutine and submits it on ex.
func SubmitAsync[R any](ex Executor, path Path, op Op[R], opts ...Option) *Task[R] {
	t := NewTask(path, op, opts...)
	if !t.state.CompareAndSwap(taskIdle, taskQueued) {
		return t
	}
	t.queued = make(chan struct{})
	ex.Go(func() {
		t.submit()
		close(t.queued)
	})
	return t
}

// Execute submits op and waits for the result.
func Execute[R any](path Path, op Op[R], opts ...Option) R {
	return Submit(path, op, opts...).Get()
}

// Descriptor is the encoded operation.
func (t *Task[R]) Descriptor() *Descriptor {
	if len(t.block) < TaskBlockSize {
		return nil
	}
	return (*Descriptor)(t.block[:DescriptorSize])
}

// Record is the completion record the path writes to.
func (t *Task[R]) Record() *CompletionRecord {
	if len(t.block) < TaskBlockSize {
		return nil
	}
	return (*CompletionRecord)(t.block[recordOffset:TaskBlockSize])
}

// bind points the descriptor at the record of the current block.
func (t *Task[R]) bind() {
	d := t.Descriptor()
	d.SetCompletionAddress(t.Record().Address())
	d.AddFlags(IDXD_OP_FLAG_CRAV | IDXD_OP_FLAG_RCR)
}

// Submit hands an idle task to its path. It returns the submission status;
// for a task that already failed validation it returns that status.
func (t *Task[R]) Submit() Status {
	if !t.state.CompareAndSwap(taskIdle, taskQueued) {
		return t.status
	}
	return t.submit()
}

func (t *Task[R]) submit() Status {
	if p, ok := any(t.op).(preparer); ok {
		if st := p.prepare(); st != StatusOK {
			t.fail(st)
			return st
		}
		t.prepared = true
	}
	d := t.Descriptor()
	st := t.path.Validate(d)
	if st == StatusOK {
		st = t.path.Submit(d, t.numa)
	}
	if st != StatusOK {
		t.fail(st)
		return st
	}
	t.state.Store(taskSubmitted)
	return st
}

// fail finishes the task without execution.
func (t *Task[R]) fail(st Status) {
	t.status = st
	t.result = t.op.Failed(st)
	t.done()
	t.state.Store(taskFinished)
}

func (t *Task[R]) done() {
	if t.prepared {
		t.prepared = false
		t.op.(preparer).complete()
	}
}

// Status is the validation or submission status of the task.
func (t *Task[R]) Status() Status {
	return t.status
}

// Poll reports whether the result is available without blocking.
func (t *Task[R]) Poll() bool {
	switch t.state.Load() {
	case taskFinished:
		return true
	case taskSubmitted:
		return t.Record().Done()
	}
	return false
}

// Wait blocks until the operation completed or failed before execution.
func (t *Task[R]) Wait() {
	if t.queued != nil {
		<-t.queued
	}
	if t.state.Load() == taskSubmitted {
		t.path.Wait(t.Record())
	}
}

// Get waits for completion, decodes the result and releases the task block.
// Later calls return the same result.
func (t *Task[R]) Get() R {
	t.Wait()
	if t.state.CompareAndSwap(taskSubmitted, taskFinished) {
		t.result = t.op.Decode(t.Record())
		t.done()
	}
	t.release()
	return t.result
}

func (t *Task[R]) release() {
	if t.released {
		return
	}
	t.released = true
	if t.alloc != nil {
		_ = t.alloc.Free(t.block)
	}
	t.block = nil
}

// Relocate moves the task block into s and rebinds the completion address.
// The task must not be executing.
func (t *Task[R]) Relocate(s *Storage) error {
	if t.released {
		return ErrTaskReleased
	}
	switch t.state.Load() {
	case taskQueued:
		return ErrTaskInFlight
	case taskSubmitted:
		if !t.Record().Done() {
			return ErrTaskInFlight
		}
	}
	dst := s.block()
	copy(dst, t.block)
	if t.alloc != nil {
		_ = t.alloc.Free(t.block)
	}
	t.alloc = nil
	t.block = dst
	t.bind()
	return nil
}
