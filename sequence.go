package dml

import (
	"sync/atomic"

	"github.com/dshulyak/dml/arena"
)

// Sequence is an ordered list of operations executed by one batch
// descriptor. Sub-descriptors and their completion records live in aligned
// arrays owned by the sequence.
type Sequence struct {
	noCopy noCopy

	descs []byte
	recs  []byte
	ops   []Operation
	busy  atomic.Bool
}

// NewSequence allocates room for capacity operations.
func NewSequence(capacity int) *Sequence {
	return &Sequence{
		descs: arena.AllocAligned(capacity*DescriptorSize, DescriptorAlignment),
		recs:  arena.AllocAligned(capacity*CompletionRecordSize, CompletionRecordAlignment),
		ops:   make([]Operation, 0, capacity),
	}
}

// Add validates op and appends it. Batches and drains cannot be nested.
func (s *Sequence) Add(op Operation) Status {
	switch op.Opcode() {
	case DSA_OPCODE_BATCH, DSA_OPCODE_DRAIN:
		return StatusUnsupportedOperation
	}
	if s.busy.Load() {
		return StatusError
	}
	if len(s.ops) == cap(s.ops) {
		return StatusBatchOverflow
	}
	if st := op.Validate(DefaultLimits); st != StatusOK {
		return st
	}
	i := len(s.ops)
	d := s.Descriptor(i)
	d.Reset()
	op.Populate(d)
	r := s.Record(i)
	r.Reset()
	d.SetCompletionAddress(r.Address())
	d.AddFlags(IDXD_OP_FLAG_CRAV | IDXD_OP_FLAG_RCR)
	s.ops = append(s.ops, op)
	return StatusOK
}

// Barrier orders every later operation after every earlier one.
func (s *Sequence) Barrier() Status {
	return s.Add(NewNop().Fence())
}

// Len is the number of added operations.
func (s *Sequence) Len() int { return len(s.ops) }

// Cap is the maximum number of operations.
func (s *Sequence) Cap() int { return cap(s.ops) }

// Reset removes every operation. It fails while a batch is pending.
func (s *Sequence) Reset() Status {
	if s.busy.Load() {
		return StatusError
	}
	s.ops = s.ops[:0]
	return StatusOK
}

// Address is the address of the first sub-descriptor.
func (s *Sequence) Address() uint64 {
	return AddressOf(s.descs)
}

// Descriptor returns the i-th sub-descriptor.
func (s *Sequence) Descriptor(i int) *Descriptor {
	return (*Descriptor)(s.descs[i*DescriptorSize : (i+1)*DescriptorSize])
}

// Record returns the completion record of the i-th sub-descriptor.
func (s *Sequence) Record(i int) *CompletionRecord {
	return (*CompletionRecord)(s.recs[i*CompletionRecordSize : (i+1)*CompletionRecordSize])
}

// Result decodes the outcome of the i-th operation of a completed batch.
func (s *Sequence) Result(i int) Result {
	return Decode(s.Record(i))
}

func (s *Sequence) acquire() Status {
	if !s.busy.CompareAndSwap(false, true) {
		return StatusError
	}
	for i := range s.ops {
		s.Record(i).Reset()
	}
	return StatusOK
}

func (s *Sequence) release() {
	s.busy.Store(false)
}

// Batch submits a Sequence with a single descriptor.
type Batch struct {
	seq   *Sequence
	flags uint32
}

func NewBatch(seq *Sequence) Batch {
	return Batch{seq: seq}
}

func (o Batch) Opcode() Opcode { return DSA_OPCODE_BATCH }

func (o Batch) Populate(d *Descriptor) {
	PrepBatch(d, o.seq.Address(), uint32(o.seq.Len()), o.flags)
}

func (o Batch) Decode(r *CompletionRecord) BatchResult { return decodeBatch(r) }
func (o Batch) Failed(st Status) BatchResult           { return BatchResult{Result: failed(st)} }

func (o Batch) prepare() Status { return o.seq.acquire() }
func (o Batch) complete()       { o.seq.release() }
