// Package software executes descriptors on the calling goroutine. It is the
// reference behavior every other path has to match.
package software

import (
	"time"

	"github.com/dshulyak/dml"
)

// Option configures a Path.
type Option func(*Path)

// WithMetrics reports every submission to m.
func WithMetrics(m dml.MetricsCollector) Option {
	return func(p *Path) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *dml.Logger) Option {
	return func(p *Path) {
		p.logger = l.WithPath("software")
	}
}

// Path completes every descriptor before Submit returns.
type Path struct {
	metrics dml.MetricsCollector
	logger  *dml.Logger
}

// New creates a software path.
func New(opts ...Option) *Path {
	p := &Path{
		metrics: dml.NoopMetrics{},
		logger:  dml.NoopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Path) Name() string { return "software" }

func (p *Path) Limits() dml.Limits { return dml.DefaultLimits }

// Validate requires a completion record to write to.
func (p *Path) Validate(d *dml.Descriptor) dml.Status {
	if d.CompletionAddress() == 0 {
		p.logger.LogRejected(p.Name(), d.Opcode(), dml.StatusNullptrError)
		return dml.StatusNullptrError
	}
	return dml.StatusOK
}

func (p *Path) Submit(d *dml.Descriptor, _ int) dml.Status {
	start := time.Now()
	Execute(d)
	p.metrics.RecordSubmit(p.Name(), d.Opcode(), dml.StatusOK, time.Since(start))
	p.logger.LogSubmit(p.Name(), d.Opcode(), dml.StatusOK)
	return dml.StatusOK
}

// Wait returns immediately, records are complete once Submit returns.
func (p *Path) Wait(*dml.CompletionRecord) {}

// Execute runs d and publishes the record at its completion address.
func Execute(d *dml.Descriptor) {
	addr := d.CompletionAddress()
	if addr == 0 {
		var scratch dml.CompletionRecord
		ExecuteInto(d, &scratch)
		return
	}
	ExecuteInto(d, dml.RecordAt(addr))
}

// ExecuteInto runs d and publishes the outcome in r.
func ExecuteInto(d *dml.Descriptor, r *dml.CompletionRecord) {
	var status, result uint8
	switch d.Opcode() {
	case dml.DSA_OPCODE_NOOP, dml.DSA_OPCODE_DRAIN:
		status = dml.DSA_COMP_SUCCESS
	case dml.DSA_OPCODE_CFLUSH:
		// no cache flush primitive is available to Go code, the range
		// is left in the cache and the flush reports success.
		status = dml.DSA_COMP_SUCCESS
	case dml.DSA_OPCODE_BATCH:
		status = batch(d, r)
	case dml.DSA_OPCODE_MEMMOVE:
		status = memMove(d)
	case dml.DSA_OPCODE_MEMFILL:
		status = fill(d)
	case dml.DSA_OPCODE_COMPARE:
		status, result = compare(d, r)
	case dml.DSA_OPCODE_COMPVAL:
		status, result = comparePattern(d, r)
	case dml.DSA_OPCODE_CR_DELTA:
		status, result = createDelta(d, r)
	case dml.DSA_OPCODE_AP_DELTA:
		status = applyDelta(d, r)
	case dml.DSA_OPCODE_DUALCAST:
		status = dualcast(d)
	case dml.DSA_OPCODE_CRCGEN:
		status = crcGen(d, r)
	case dml.DSA_OPCODE_COPY_CRC:
		status = copyCRC(d, r)
	case dml.DSA_OPCODE_DIF_CHECK:
		status, result = difCheck(d, r)
	case dml.DSA_OPCODE_DIF_INS:
		status = difInsert(d, r)
	case dml.DSA_OPCODE_DIF_STRP:
		status, result = difStrip(d, r)
	case dml.DSA_OPCODE_DIF_UPDT:
		status, result = difUpdate(d, r)
	default:
		status = dml.DSA_COMP_BAD_OPCODE
	}
	r.Complete(status, result)
}

// predicate applies the check result flag to a compare outcome.
func predicate(d *dml.Descriptor, result uint8) uint8 {
	if d.HasFlags(dml.IDXD_OP_FLAG_CR) && result != d.ExpectedResult() {
		return dml.DSA_COMP_SUCCESS_PRED
	}
	return dml.DSA_COMP_SUCCESS
}

func memMove(d *dml.Descriptor) uint8 {
	n := d.TransferSize()
	copy(dml.Bytes(d.Dst(), n), dml.Bytes(d.Src(), n))
	return dml.DSA_COMP_SUCCESS
}

func fill(d *dml.Descriptor) uint8 {
	FillPattern(dml.Bytes(d.Dst(), d.TransferSize()), d.Src())
	return dml.DSA_COMP_SUCCESS
}

// FillPattern repeats the little-endian pattern over dst, truncating the tail.
func FillPattern(dst []byte, pattern uint64) {
	var p [8]byte
	for i := range p {
		p[i] = byte(pattern >> (8 * i))
	}
	if len(dst) == 0 {
		return
	}
	n := copy(dst, p[:])
	for n < len(dst) {
		n += copy(dst[n:], dst[:n])
	}
}

func dualcast(d *dml.Descriptor) uint8 {
	n := d.TransferSize()
	src := dml.Bytes(d.Src(), n)
	copy(dml.Bytes(d.Dst(), n), src)
	copy(dml.Bytes(d.Dest2(), n), src)
	return dml.DSA_COMP_SUCCESS
}

func batch(d *dml.Descriptor, r *dml.CompletionRecord) uint8 {
	count := d.TransferSize()
	list := d.Src()
	if count == 0 || count > dml.DefaultLimits.MaxBatchSize {
		return dml.DSA_COMP_DESC_CNT_ERANGE
	}
	if list%dml.DescriptorAlignment != 0 {
		return dml.DSA_COMP_DESCLIST_ALIGN
	}
	for i := uint32(0); i < count; i++ {
		sub := dml.DescriptorAt(list + uint64(i)*dml.DescriptorSize)
		raw := RunMember(sub)
		if raw != dml.DSA_COMP_SUCCESS && raw != dml.DSA_COMP_SUCCESS_PRED {
			r.SetBytesCompleted(i)
			return dml.DSA_COMP_BATCH_FAIL
		}
	}
	r.SetBytesCompleted(count)
	return dml.DSA_COMP_SUCCESS
}

// RunMember executes one batch member and returns its raw status.
// Nested batches and drains are rejected.
func RunMember(sub *dml.Descriptor) uint8 {
	var scratch dml.CompletionRecord
	r := &scratch
	if addr := sub.CompletionAddress(); addr != 0 {
		r = dml.RecordAt(addr)
	}
	switch sub.Opcode() {
	case dml.DSA_OPCODE_BATCH, dml.DSA_OPCODE_DRAIN:
		r.Complete(dml.DSA_COMP_BAD_OPCODE, 0)
	default:
		ExecuteInto(sub, r)
	}
	return r.RawStatus()
}
