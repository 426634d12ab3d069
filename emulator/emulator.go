// Package emulator provides an in-process accelerator. It implements
// hardware.Channel with one work queue per NUMA node, a pool of engines per
// queue and asynchronous completion records, so the hardware path can run
// without a device.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/dshulyak/dml"
	"github.com/dshulyak/dml/hardware"
)

var (
	// ErrClosed is returned if the emulator was closed.
	ErrClosed = errors.New("emulator: closed")
)

const (
	defaultDepth       = 128
	defaultEngines     = 4
	defaultMaxTransfer = 1 << 31
	defaultMaxBatch    = 1024
)

// Option configures an Emulator.
type Option func(*Emulator)

// WithDepth bounds the number of descriptors a queue holds, including the
// ones being executed. Submissions beyond it report queue busy.
func WithDepth(depth int) Option {
	return func(e *Emulator) {
		e.depth = depth
	}
}

// WithEngines sets the number of engines per queue.
func WithEngines(n int) Option {
	return func(e *Emulator) {
		e.engines = n
	}
}

// WithNodes sets the number of NUMA nodes, one device each.
func WithNodes(n int) Option {
	return func(e *Emulator) {
		e.nodes = n
	}
}

// WithBandwidth limits every queue to bytesPerSecond of transferred data.
func WithBandwidth(bytesPerSecond int) Option {
	return func(e *Emulator) {
		e.bandwidth = bytesPerSecond
	}
}

// WithFaults injects page faults.
func WithFaults(f Fault) Option {
	return func(e *Emulator) {
		e.fault = f
	}
}

// WithOpcodes restricts the supported operations.
func WithOpcodes(ops hardware.OpcodeSet) Option {
	return func(e *Emulator) {
		e.caps.Opcodes = ops
	}
}

// WithMaxTransfer sets the largest transfer size.
func WithMaxTransfer(size uint32) Option {
	return func(e *Emulator) {
		e.caps.MaxTransferSize = size
	}
}

// WithMaxBatch sets the largest number of descriptors in a batch.
func WithMaxBatch(n uint32) Option {
	return func(e *Emulator) {
		e.caps.MaxBatchSize = n
	}
}

// WithLogger ...
func WithLogger(l *dml.Logger) Option {
	return func(e *Emulator) {
		e.logger = l
	}
}

// Emulator is an accelerator with a work queue per NUMA node.
type Emulator struct {
	depth     int
	engines   int
	nodes     int
	bandwidth int
	fault     Fault
	caps      hardware.Capabilities
	logger    *dml.Logger

	devices []*device
	// order picks a device for submissions to any node
	order  atomic.Uint64
	closed atomic.Bool
	wg     sync.WaitGroup
}

// New starts the engines of every device.
func New(opts ...Option) (*Emulator, error) {
	e := &Emulator{
		depth:   defaultDepth,
		engines: defaultEngines,
		nodes:   1,
		caps: hardware.Capabilities{
			MaxTransferSize: defaultMaxTransfer,
			MaxBatchSize:    defaultMaxBatch,
			Opcodes:         hardware.AllOpcodes,
		},
		logger: dml.NoopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.depth <= 0 || e.engines <= 0 || e.nodes <= 0 {
		return nil, fmt.Errorf("emulator: invalid geometry depth=%d engines=%d nodes=%d", e.depth, e.engines, e.nodes)
	}
	e.devices = make([]*device, e.nodes)
	for i := range e.devices {
		dev := &device{
			node:  i,
			work:  make(chan *job, e.depth),
			slots: semaphore.NewWeighted(int64(e.depth)),
			epoch: new(sync.WaitGroup),
			log:   e.logger.WithNode(i),
		}
		if e.bandwidth > 0 {
			dev.limiter = rate.NewLimiter(rate.Limit(e.bandwidth), max(e.bandwidth/100, 4096))
		}
		e.devices[i] = dev
		for j := 0; j < e.engines; j++ {
			e.wg.Add(1)
			go e.engine(dev)
		}
	}
	return e, nil
}

// Capabilities implements hardware.Channel.
func (e *Emulator) Capabilities() hardware.Capabilities {
	return e.caps
}

// Submit copies d into the work queue of the node. The record at the
// completion address is written by an engine.
func (e *Emulator) Submit(d *dml.Descriptor, numa int) dml.Status {
	dev := e.device(numa)
	if dev == nil {
		return dml.StatusError
	}
	if !dev.slots.TryAcquire(1) {
		dev.log.Debug("queue full", "depth", e.depth, "opcode", d.Opcode().String())
		return dml.StatusQueueBusy
	}
	if err := dev.enqueue(d); err != nil {
		dev.slots.Release(1)
		dev.log.Debug("enqueue failed", "error", err)
		return dml.StatusError
	}
	return dml.StatusOK
}

func (e *Emulator) device(numa int) *device {
	if numa == dml.AnyNode {
		return e.devices[(e.order.Add(1)-1)%uint64(len(e.devices))]
	}
	if numa < 0 || numa >= len(e.devices) {
		return nil
	}
	return e.devices[numa]
}

// Nodes is the number of devices.
func (e *Emulator) Nodes() int { return len(e.devices) }

// Pending is the number of descriptors queued or executing on node.
func (e *Emulator) Pending(node int) int {
	dev := e.device(node)
	if dev == nil {
		return 0
	}
	return int(dev.pending.Load())
}

// Close stops accepting descriptors and waits until queued ones completed.
func (e *Emulator) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	for _, dev := range e.devices {
		dev.close()
	}
	e.wg.Wait()
	return nil
}

func (e *Emulator) engine(dev *device) {
	defer e.wg.Done()
	for j := range dev.work {
		if j.desc.Opcode() == dml.DSA_OPCODE_DRAIN {
			// drains wait off the engine so earlier work keeps flowing
			e.wg.Add(1)
			go func(j *job) {
				defer e.wg.Done()
				j.prev.Wait()
				e.finish(dev, j)
			}(j)
			continue
		}
		e.finish(dev, j)
	}
}

func (e *Emulator) finish(dev *device, j *job) {
	e.throttle(dev, &j.desc)
	// the record belongs to the submitter once published
	if j.desc.Opcode() == dml.DSA_OPCODE_BATCH {
		e.batch(&j.desc)
	} else {
		e.execute(&j.desc, dml.RecordAt(j.desc.CompletionAddress()))
	}
	dev.done(j)
}

func (e *Emulator) throttle(dev *device, d *dml.Descriptor) {
	if dev.limiter == nil {
		return
	}
	n := int(d.TransferSize())
	if d.Opcode() == dml.DSA_OPCODE_BATCH {
		n = n * dml.DescriptorSize
	}
	burst := dev.limiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		_ = dev.limiter.WaitN(context.Background(), chunk)
		n -= chunk
	}
}
