package hardware

import (
	"time"

	"github.com/dshulyak/dml"
	"github.com/dshulyak/dml/wait"
)

// Option configures a Path.
type Option func(*Path)

// WithWaiter sets the strategy used while a completion record is pending.
func WithWaiter(s wait.Strategy) Option {
	return func(p *Path) {
		p.waiter = s
	}
}

// WithLogger ...
func WithLogger(l *dml.Logger) Option {
	return func(p *Path) {
		p.logger = l
	}
}

// WithMetrics ...
func WithMetrics(m dml.MetricsCollector) Option {
	return func(p *Path) {
		p.metrics = m
	}
}

// Path executes descriptors on a device behind a Channel.
type Path struct {
	ch       Channel
	caps     Capabilities
	waiter   wait.Strategy
	logger   *dml.Logger
	metrics  dml.MetricsCollector
	features Features
}

// New creates a hardware path. Capabilities are read once.
func New(ch Channel, opts ...Option) *Path {
	p := &Path{
		ch:       ch,
		caps:     ch.Capabilities(),
		waiter:   wait.Default(),
		logger:   dml.NoopLogger(),
		metrics:  dml.NoopMetrics{},
		features: Host(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithPath(p.Name())
	p.logger.Debug("hardware path ready",
		"features", p.features,
		"waiter", p.waiter,
		"max_transfer", p.caps.MaxTransferSize,
		"max_batch", p.caps.MaxBatchSize,
	)
	return p
}

func (p *Path) Name() string { return "hardware" }

// Features are the host features probed at creation.
func (p *Path) Features() Features { return p.features }

func (p *Path) Limits() dml.Limits {
	return dml.Limits{
		MaxTransferSize: p.caps.MaxTransferSize,
		MaxBatchSize:    p.caps.MaxBatchSize,
	}
}

// Validate checks that the device can take d: a 32-byte aligned completion
// record requested through CRAV and RCR, a supported opcode and sizes within
// the queue limits. Batch members are checked as well.
func (p *Path) Validate(d *dml.Descriptor) dml.Status {
	st := p.check(d, false)
	if st != dml.StatusOK {
		p.logger.LogRejected(p.Name(), d.Opcode(), st)
	}
	return st
}

func (p *Path) check(d *dml.Descriptor, member bool) dml.Status {
	if !d.HasFlags(dml.IDXD_OP_FLAG_CRAV|dml.IDXD_OP_FLAG_RCR) || d.CompletionAddress() == 0 {
		return dml.StatusNullptrError
	}
	if d.CompletionAddress()%dml.CompletionRecordAlignment != 0 {
		return dml.StatusBadAlignment
	}
	op := d.Opcode()
	if !p.caps.Opcodes.Has(op) {
		return dml.StatusUnsupportedOperation
	}
	switch op {
	case dml.DSA_OPCODE_NOOP, dml.DSA_OPCODE_DRAIN:
		return dml.StatusOK
	case dml.DSA_OPCODE_BATCH:
		if member {
			return dml.StatusUnsupportedOperation
		}
		return p.checkBatch(d)
	}
	if d.TransferSize() > p.caps.MaxTransferSize {
		return dml.StatusBadSize
	}
	return dml.StatusOK
}

func (p *Path) checkBatch(d *dml.Descriptor) dml.Status {
	count := d.TransferSize()
	if count == 0 {
		return dml.StatusBadSize
	}
	if count > p.caps.MaxBatchSize {
		return dml.StatusBatchOverflow
	}
	list := d.Src()
	if list == 0 {
		return dml.StatusNullptrError
	}
	if list%dml.DescriptorAlignment != 0 {
		return dml.StatusBadAlignment
	}
	for i := uint32(0); i < count; i++ {
		sub := dml.DescriptorAt(list + uint64(i)*dml.DescriptorSize)
		if sub.Opcode() == dml.DSA_OPCODE_DRAIN {
			return dml.StatusUnsupportedOperation
		}
		if st := p.check(sub, true); st != dml.StatusOK {
			return st
		}
	}
	return dml.StatusOK
}

func (p *Path) Submit(d *dml.Descriptor, numa int) dml.Status {
	start := time.Now()
	st := p.ch.Submit(d, numa)
	p.metrics.RecordSubmit(p.Name(), d.Opcode(), st, time.Since(start))
	p.logger.LogSubmit(p.Name(), d.Opcode(), st)
	return st
}

func (p *Path) Wait(r *dml.CompletionRecord) {
	p.waiter.Wait(r)
}
