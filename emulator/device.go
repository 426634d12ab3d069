package emulator

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/cpu"
	"golang.org/x/time/rate"

	"github.com/dshulyak/dml"
)

// job is a descriptor copied out of the submitter's memory.
type job struct {
	desc dml.Descriptor
	// epoch is done when this job and every job of the same epoch completed.
	epoch *sync.WaitGroup
	// prev is the epoch a drain waits for.
	prev *sync.WaitGroup
}

// device is a single work queue.
//
// Jobs are grouped into epochs separated by drains. A drain closes the
// current epoch, waits for it and opens a new epoch it belongs to.
type device struct {
	node    int
	work    chan *job
	slots   *semaphore.Weighted
	limiter *rate.Limiter
	log     *dml.Logger

	mu     sync.Mutex
	closed bool
	epoch  *sync.WaitGroup

	_       cpu.CacheLinePad
	pending atomic.Int64
	_       cpu.CacheLinePad
}

// enqueue must be called with a reserved slot, so the send never blocks.
func (d *device) enqueue(desc *dml.Descriptor) error {
	j := &job{desc: *desc}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if j.desc.Opcode() == dml.DSA_OPCODE_DRAIN {
		j.prev = d.epoch
		d.epoch = new(sync.WaitGroup)
	}
	j.epoch = d.epoch
	j.epoch.Add(1)
	d.pending.Add(1)
	d.work <- j
	return nil
}

func (d *device) done(j *job) {
	d.pending.Add(-1)
	j.epoch.Done()
	d.slots.Release(1)
}

func (d *device) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.work)
}
