package hardware

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshulyak/dml"
	"github.com/dshulyak/dml/software"
	"github.com/dshulyak/dml/wait"
)

// inline completes descriptors during Submit.
type inline struct {
	caps      Capabilities
	submitted int
	status    dml.Status
}

func (c *inline) Capabilities() Capabilities { return c.caps }

func (c *inline) Submit(d *dml.Descriptor, _ int) dml.Status {
	if c.status != dml.StatusOK {
		return c.status
	}
	c.submitted++
	software.Execute(d)
	return dml.StatusOK
}

func newInline() *inline {
	return &inline{caps: Capabilities{MaxTransferSize: 1 << 20, MaxBatchSize: 8, Opcodes: AllOpcodes}}
}

func TestOpcodeSet(t *testing.T) {
	set := Opcodes(dml.DSA_OPCODE_MEMMOVE, dml.DSA_OPCODE_CRCGEN)
	require.True(t, set.Has(dml.DSA_OPCODE_MEMMOVE))
	require.True(t, set.Has(dml.DSA_OPCODE_CRCGEN))
	require.False(t, set.Has(dml.DSA_OPCODE_NOOP))
	require.False(t, set.Has(200))

	set = set.Without(dml.DSA_OPCODE_CRCGEN)
	require.False(t, set.Has(dml.DSA_OPCODE_CRCGEN))
	require.True(t, set.Has(dml.DSA_OPCODE_MEMMOVE))

	require.True(t, AllOpcodes.Has(dml.DSA_OPCODE_CFLUSH))
	require.False(t, AllOpcodes.Has(0x3f))
}

func TestFeaturesString(t *testing.T) {
	require.Equal(t, "none", Features{}.String())
	require.Equal(t, "movdir64b,waitpkg", Features{MOVDIR64B: true, WAITPKG: true}.String())
	require.True(t, Features{ENQCMD: true}.Portal())
	require.False(t, Features{WAITPKG: true}.Portal())
}

func TestLimits(t *testing.T) {
	p := New(newInline(), WithWaiter(wait.Poll{}))
	require.Equal(t, dml.Limits{MaxTransferSize: 1 << 20, MaxBatchSize: 8}, p.Limits())
	require.Equal(t, "hardware", p.Name())
}

func TestExecute(t *testing.T) {
	ch := newInline()
	metrics := &dml.BasicMetrics{}
	p := New(ch, WithWaiter(wait.Poll{}), WithMetrics(metrics))

	src := []byte("0123456789abcdef")
	dst := make([]byte, len(src))
	require.NoError(t, dml.Execute(p, dml.NewMemMove(src, dst)).Err())
	require.Equal(t, src, dst)
	require.Equal(t, 1, ch.submitted)
	require.Equal(t, int64(1), metrics.Stats().Submits)
	require.Equal(t, int64(1), metrics.Submitted(dml.DSA_OPCODE_MEMMOVE))
}

func TestSubmitBusy(t *testing.T) {
	ch := newInline()
	ch.status = dml.StatusQueueBusy
	metrics := &dml.BasicMetrics{}
	p := New(ch, WithWaiter(wait.Poll{}), WithMetrics(metrics))

	res := dml.Execute(p, dml.NewFill(1, make([]byte, 8)))
	require.Equal(t, dml.StatusQueueBusy, res.Status)
	require.Equal(t, int64(1), metrics.Stats().QueueBusy)
}

func TestOversizedTransfer(t *testing.T) {
	ch := newInline()
	p := New(ch, WithWaiter(wait.Poll{}))
	buf := make([]byte, 2<<20)
	res := dml.Execute(p, dml.NewFill(1, buf))
	require.Equal(t, dml.StatusBadSize, res.Status)
	require.Equal(t, 0, ch.submitted)
}

func TestValidate(t *testing.T) {
	ch := newInline()
	ch.caps.Opcodes = AllOpcodes.Without(dml.DSA_OPCODE_DUALCAST)
	p := New(ch, WithWaiter(wait.Poll{}))

	var blk [96]byte
	rec := (dml.AddressOf(blk[:]) + 31) &^ 31
	bound := func(d *dml.Descriptor) *dml.Descriptor {
		d.SetCompletionAddress(rec)
		d.AddFlags(dml.IDXD_OP_FLAG_CRAV | dml.IDXD_OP_FLAG_RCR)
		return d
	}

	for _, tc := range []struct {
		desc   string
		build  func(d *dml.Descriptor)
		expect dml.Status
	}{
		{"no record", func(d *dml.Descriptor) { dml.PrepNop(d, 0) }, dml.StatusNullptrError},
		{"record not requested", func(d *dml.Descriptor) {
			dml.PrepNop(d, 0)
			d.SetCompletionAddress(rec)
		}, dml.StatusNullptrError},
		{"misaligned record", func(d *dml.Descriptor) {
			dml.PrepNop(d, 0)
			bound(d).SetCompletionAddress(rec + 4)
		}, dml.StatusBadAlignment},
		{"nop", func(d *dml.Descriptor) {
			dml.PrepNop(d, 0)
			bound(d)
		}, dml.StatusOK},
		{"excluded opcode", func(d *dml.Descriptor) {
			dml.PrepDualcast(d, make([]byte, 8), make([]byte, 8), make([]byte, 8), 0)
			bound(d)
		}, dml.StatusUnsupportedOperation},
		{"empty batch", func(d *dml.Descriptor) {
			dml.PrepBatch(d, 64, 0, 0)
			bound(d)
		}, dml.StatusBadSize},
		{"batch overflow", func(d *dml.Descriptor) {
			dml.PrepBatch(d, 64, 9, 0)
			bound(d)
		}, dml.StatusBatchOverflow},
		{"batch without list", func(d *dml.Descriptor) {
			dml.PrepBatch(d, 0, 2, 0)
			bound(d)
		}, dml.StatusNullptrError},
		{"misaligned list", func(d *dml.Descriptor) {
			dml.PrepBatch(d, 96, 2, 0)
			bound(d)
		}, dml.StatusBadAlignment},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			var d dml.Descriptor
			tc.build(&d)
			require.Equal(t, tc.expect, p.Validate(&d))
		})
	}
}

func TestValidateBatchMembers(t *testing.T) {
	ch := newInline()
	ch.caps.Opcodes = AllOpcodes.Without(dml.DSA_OPCODE_CRCGEN)
	p := New(ch, WithWaiter(wait.Poll{}))

	seq := dml.NewSequence(2)
	require.Equal(t, dml.StatusOK, seq.Add(dml.NewFill(1, make([]byte, 64))))
	require.NoError(t, dml.Execute(p, dml.NewBatch(seq)).Err())

	require.Equal(t, dml.StatusOK, seq.Add(dml.NewCRC([]byte("member"), 0)))
	res := dml.Execute(p, dml.NewBatch(seq))
	require.Equal(t, dml.StatusUnsupportedOperation, res.Status)
	require.Equal(t, 1, ch.submitted)

	// the guard is released after a rejected submission
	require.Equal(t, dml.StatusOK, seq.Reset())
}
