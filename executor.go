package dml

import "golang.org/x/sync/errgroup"

// Executor runs deferred submissions.
type Executor interface {
	Go(f func())
}

type inline struct{}

func (inline) Go(f func()) { f() }

type spawn struct{}

func (spawn) Go(f func()) { go f() }

var (
	// Inline runs the submission on the calling goroutine.
	Inline Executor = inline{}
	// Spawn runs every submission on a new goroutine.
	Spawn Executor = spawn{}
)

// Pool runs submissions on at most limit goroutines. Go blocks while the
// pool is full.
type Pool struct {
	group errgroup.Group
}

// NewPool creates a pool. A limit of zero or less removes the bound.
func NewPool(limit int) *Pool {
	p := &Pool{}
	if limit > 0 {
		p.group.SetLimit(limit)
	}
	return p
}

func (p *Pool) Go(f func()) {
	p.group.Go(func() error {
		f()
		return nil
	})
}

// Wait blocks until every submission started by the pool returned.
func (p *Pool) Wait() {
	_ = p.group.Wait()
}
