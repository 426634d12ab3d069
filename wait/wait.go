// Package wait implements the idle strategies used while a completion
// record is pending.
package wait

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/klauspost/cpuid/v2"
)

// EnvStrategy overrides the default strategy: poll, yield or backoff.
const EnvStrategy = "DML_WAIT"

// Condition is polled until it reports true. *dml.CompletionRecord satisfies it.
type Condition interface {
	Done() bool
}

// Strategy blocks the caller until a condition holds.
type Strategy interface {
	Wait(c Condition)
	String() string
}

// Poll spins without yielding the processor.
type Poll struct{}

func (Poll) Wait(c Condition) {
	for !c.Done() {
	}
}

func (Poll) String() string { return "poll" }

// Yield gives up the processor between checks.
type Yield struct{}

func (Yield) Wait(c Condition) {
	for !c.Done() {
		runtime.Gosched()
	}
}

func (Yield) String() string { return "yield" }

// Backoff spins, then yields, then sleeps with an exponentially growing
// interval capped at Max.
type Backoff struct {
	Spins  int
	Yields int
	Min    time.Duration
	Max    time.Duration
}

// DefaultBackoff suits completions in the tens of microseconds.
var DefaultBackoff = Backoff{
	Spins:  64,
	Yields: 16,
	Min:    time.Microsecond,
	Max:    time.Millisecond,
}

func (b Backoff) Wait(c Condition) {
	for i := 0; i < b.Spins; i++ {
		if c.Done() {
			return
		}
	}
	for i := 0; i < b.Yields; i++ {
		if c.Done() {
			return
		}
		runtime.Gosched()
	}
	delay := b.Min
	for !c.Done() {
		time.Sleep(delay)
		if delay < b.Max {
			delay = min(2*delay, b.Max)
		}
	}
}

func (Backoff) String() string { return "backoff" }

// Parse returns the strategy with the given name.
func Parse(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "poll":
		return Poll{}, nil
	case "yield":
		return Yield{}, nil
	case "backoff":
		return DefaultBackoff, nil
	}
	return nil, fmt.Errorf("wait: unknown strategy %q", name)
}

// Default selects the strategy from DML_WAIT, falling back to a backoff on
// CPUs with user level wait instructions and to yielding otherwise.
func Default() Strategy {
	if name := os.Getenv(EnvStrategy); name != "" {
		if s, err := Parse(name); err == nil {
			return s
		}
	}
	if cpuid.CPU.Supports(cpuid.WAITPKG) {
		return DefaultBackoff
	}
	return Yield{}
}
