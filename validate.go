package dml

import "math"

// Limits are the size limits of an execution path.
type Limits struct {
	MaxTransferSize uint32
	MaxBatchSize    uint32
}

// DefaultLimits are the limits of the software path.
var DefaultLimits = Limits{
	MaxTransferSize: math.MaxUint32,
	MaxBatchSize:    1 << 16,
}

// Validate runs the pre-submission checks of op against path limits.
// Checks run in a fixed priority order and the first failure wins:
// nil buffers, empty or oversized buffers, size consistency, alignment,
// overlap, dualcast padding, delta sizes and batch length.
func Validate(op Operation, l Limits) Status {
	return op.Validate(l)
}

// checker records the first failed rule; later checks are no-ops.
type checker struct {
	st Status
}

func (c *checker) ok() bool {
	return c.st == StatusOK
}

func (c *checker) fail(st Status) {
	if c.ok() {
		c.st = st
	}
}

func (c *checker) notNil(bufs ...[]byte) {
	for _, b := range bufs {
		if b == nil {
			c.fail(StatusNullptrError)
			return
		}
	}
}

func (c *checker) notEmpty(sizes ...int) {
	for _, n := range sizes {
		if n == 0 {
			c.fail(StatusBadSize)
			return
		}
	}
}

func (c *checker) fits(l Limits, sizes ...int) {
	for _, n := range sizes {
		if uint64(n) > uint64(l.MaxTransferSize) {
			c.fail(StatusBadSize)
			return
		}
	}
}

func (c *checker) sameSize(a, b int) {
	if a != b {
		c.fail(StatusInconsistentSize)
	}
}

func (c *checker) atLeast(n, min int) {
	if n < min {
		c.fail(StatusInconsistentSize)
	}
}

func (c *checker) multiple(n, of int, st Status) {
	if n%of != 0 {
		c.fail(st)
	}
}

// disjoint fails if any pair of buffers shares memory.
func (c *checker) disjoint(bufs ...[]byte) {
	for i := range bufs {
		for j := i + 1; j < len(bufs); j++ {
			if overlaps(AddressOf(bufs[i]), len(bufs[i]), AddressOf(bufs[j]), len(bufs[j])) {
				c.fail(StatusBuffersOverlapping)
				return
			}
		}
	}
}

// disjointOrSame allows a and b to be exactly the same region.
func (c *checker) disjointOrSame(a, b []byte) {
	if AddressOf(a) == AddressOf(b) && len(a) == len(b) {
		return
	}
	c.disjoint(a, b)
}

func (c *checker) padding(a, b []byte) {
	if AddressOf(a)&DualcastPaddingMask != AddressOf(b)&DualcastPaddingMask {
		c.fail(StatusDualcastBadPadding)
	}
}

func (c *checker) deltaRecord(n int) {
	if n%DeltaRecordEntrySize != 0 || n > MaxDeltaRecordSize {
		c.fail(StatusDeltaBadSize)
	}
}

func (o Nop) Validate(Limits) Status   { return StatusOK }
func (o Drain) Validate(Limits) Status { return StatusOK }

func (o MemMove) Validate(l Limits) Status {
	var c checker
	c.notNil(o.Src, o.Dst)
	c.notEmpty(len(o.Src))
	c.fits(l, len(o.Src))
	c.atLeast(len(o.Dst), len(o.Src))
	return c.st
}

func (o Fill) Validate(l Limits) Status {
	var c checker
	c.notNil(o.Dst)
	c.notEmpty(len(o.Dst))
	c.fits(l, len(o.Dst))
	return c.st
}

func (o Compare) Validate(l Limits) Status {
	var c checker
	c.notNil(o.A, o.B)
	c.notEmpty(len(o.A), len(o.B))
	c.fits(l, len(o.A))
	c.sameSize(len(o.A), len(o.B))
	c.disjointOrSame(o.A, o.B)
	return c.st
}

func (o ComparePattern) Validate(l Limits) Status {
	var c checker
	c.notNil(o.Src)
	c.notEmpty(len(o.Src))
	c.fits(l, len(o.Src))
	return c.st
}

func (o CreateDelta) Validate(l Limits) Status {
	var c checker
	c.notNil(o.Src1, o.Src2, o.Delta)
	c.notEmpty(len(o.Src1), len(o.Src2), len(o.Delta))
	c.fits(l, len(o.Src1))
	if len(o.Src1) > MaxDeltaSourceSize {
		c.fail(StatusBadSize)
	}
	c.sameSize(len(o.Src1), len(o.Src2))
	c.multiple(len(o.Src1), DeltaBlockSize, StatusBadLength)
	c.disjointOrSame(o.Src1, o.Src2)
	c.disjoint(o.Src1, o.Delta)
	c.disjoint(o.Src2, o.Delta)
	c.deltaRecord(len(o.Delta))
	return c.st
}

func (o ApplyDelta) Validate(l Limits) Status {
	var c checker
	c.notNil(o.Delta, o.Dst)
	c.notEmpty(len(o.Dst))
	c.fits(l, len(o.Dst))
	if len(o.Dst) > MaxDeltaSourceSize {
		c.fail(StatusBadSize)
	}
	c.multiple(len(o.Dst), DeltaBlockSize, StatusBadLength)
	c.disjoint(o.Delta, o.Dst)
	if len(o.Delta) == 0 {
		c.fail(StatusDeltaDeltaEmpty)
	}
	c.deltaRecord(len(o.Delta))
	return c.st
}

func (o Dualcast) Validate(l Limits) Status {
	var c checker
	c.notNil(o.Src, o.Dst1, o.Dst2)
	c.notEmpty(len(o.Src))
	c.fits(l, len(o.Src))
	c.atLeast(len(o.Dst1), len(o.Src))
	c.atLeast(len(o.Dst2), len(o.Src))
	c.disjoint(o.Src[:len(o.Src)], o.Dst1[:min(len(o.Dst1), len(o.Src))], o.Dst2[:min(len(o.Dst2), len(o.Src))])
	c.padding(o.Dst1, o.Dst2)
	return c.st
}

func (o CRC) Validate(l Limits) Status {
	var c checker
	c.notNil(o.Src)
	c.notEmpty(len(o.Src))
	c.fits(l, len(o.Src))
	return c.st
}

func (o CopyCRC) Validate(l Limits) Status {
	var c checker
	c.notNil(o.Src, o.Dst)
	c.notEmpty(len(o.Src))
	c.fits(l, len(o.Src))
	c.atLeast(len(o.Dst), len(o.Src))
	c.disjoint(o.Src, o.Dst[:min(len(o.Dst), len(o.Src))])
	return c.st
}

func (o DIFCheck) Validate(l Limits) Status {
	var c checker
	c.notNil(o.Src)
	c.notEmpty(len(o.Src))
	c.fits(l, len(o.Src))
	c.multiple(len(o.Src), int(o.Flags.BlockSize())+DIFSize, StatusBadAlignment)
	return c.st
}

func (o DIFInsert) Validate(l Limits) Status {
	var c checker
	bs := int(o.Flags.BlockSize())
	c.notNil(o.Src, o.Dst)
	c.notEmpty(len(o.Src), len(o.Dst))
	c.fits(l, len(o.Src), len(o.Dst))
	c.sameSize(len(o.Dst), len(o.Src)/bs*(bs+DIFSize))
	c.multiple(len(o.Src), bs, StatusBadAlignment)
	c.disjoint(o.Src, o.Dst)
	return c.st
}

func (o DIFStrip) Validate(l Limits) Status {
	var c checker
	bs := int(o.Flags.BlockSize())
	c.notNil(o.Src, o.Dst)
	c.notEmpty(len(o.Src), len(o.Dst))
	c.fits(l, len(o.Src))
	c.sameSize(len(o.Dst), len(o.Src)/(bs+DIFSize)*bs)
	c.multiple(len(o.Src), bs+DIFSize, StatusBadAlignment)
	c.disjoint(o.Src, o.Dst)
	return c.st
}

func (o DIFUpdate) Validate(l Limits) Status {
	var c checker
	c.notNil(o.Src, o.Dst)
	c.notEmpty(len(o.Src), len(o.Dst))
	c.fits(l, len(o.Src))
	c.sameSize(len(o.Dst), len(o.Src))
	if o.SrcFlags.BlockSize() != o.DstFlags.BlockSize() {
		c.fail(StatusInconsistentSize)
	}
	c.multiple(len(o.Src), int(o.SrcFlags.BlockSize())+DIFSize, StatusBadAlignment)
	c.disjoint(o.Src, o.Dst)
	return c.st
}

func (o CacheFlush) Validate(l Limits) Status {
	var c checker
	c.notNil(o.Dst)
	c.notEmpty(len(o.Dst))
	c.fits(l, len(o.Dst))
	return c.st
}

func (o Batch) Validate(l Limits) Status {
	var c checker
	if o.seq == nil {
		c.fail(StatusNullptrError)
		return c.st
	}
	n := o.seq.Len()
	c.notEmpty(n)
	for i := 0; i < n && c.ok(); i++ {
		c.fail(o.seq.ops[i].Validate(l))
	}
	if uint64(n) > uint64(l.MaxBatchSize) {
		c.fail(StatusBatchOverflow)
	}
	return c.st
}
