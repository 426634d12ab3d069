package dml

// AnyNode lets the path choose the NUMA node of a submission.
const AnyNode = -1

// Path executes descriptors.
type Path interface {
	Name() string
	// Limits bound the operations accepted by the path.
	Limits() Limits
	// Validate checks that a bound descriptor can be submitted.
	Validate(d *Descriptor) Status
	// Submit hands a validated descriptor to the executor. The completion
	// record is written asynchronously unless the path is synchronous.
	Submit(d *Descriptor, numa int) Status
	// Wait blocks until the record reaches a terminal status.
	Wait(r *CompletionRecord)
}

// Auto submits to the hardware path and retries in software once when the
// hardware path rejects or cannot accept the descriptor.
type Auto struct {
	hw, sw  Path
	logger  *Logger
	metrics MetricsCollector
}

// AutoOption configures Auto.
type AutoOption func(*Auto)

// WithAutoLogger sets the logger used for fallback events.
func WithAutoLogger(l *Logger) AutoOption {
	return func(a *Auto) {
		a.logger = l
	}
}

// WithAutoMetrics sets the collector notified about fallbacks.
func WithAutoMetrics(m MetricsCollector) AutoOption {
	return func(a *Auto) {
		a.metrics = m
	}
}

// NewAuto combines a hardware and a software path.
func NewAuto(hw, sw Path, opts ...AutoOption) *Auto {
	a := &Auto{
		hw:      hw,
		sw:      sw,
		logger:  NoopLogger(),
		metrics: NoopMetrics{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Auto) Name() string { return "auto" }

// Limits are the limits of the software path; descriptors the hardware
// cannot take are executed in software.
func (a *Auto) Limits() Limits { return a.sw.Limits() }

func (a *Auto) Validate(d *Descriptor) Status { return a.sw.Validate(d) }

func (a *Auto) Submit(d *Descriptor, numa int) Status {
	st := a.hw.Validate(d)
	if st == StatusOK {
		st = a.hw.Submit(d, numa)
		if st == StatusOK {
			return st
		}
	}
	a.logger.LogFallback(d.Opcode(), st)
	a.metrics.RecordFallback(d.Opcode(), st)
	RecordAt(d.CompletionAddress()).Reset()
	if st = a.sw.Validate(d); st != StatusOK {
		return st
	}
	return a.sw.Submit(d, numa)
}

// Wait uses the hardware strategy. Software completions are terminal
// before Submit returns.
func (a *Auto) Wait(r *CompletionRecord) {
	if r.Done() {
		return
	}
	a.hw.Wait(r)
}
