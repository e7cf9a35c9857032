package multiload

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Cycle is one LoadAll, Refresh or Retry invocation.
type Cycle struct {
	ID      string
	Sources []string
	done    chan struct{}
}

func newCycle(sources []string) *Cycle {
	return &Cycle{
		ID:      ulid.Make().String(),
		Sources: sources,
		done:    make(chan struct{}),
	}
}

// Done is closed once every source of the cycle has settled, been discarded or skipped.
func (c *Cycle) Done() <-chan struct{} { return c.done }

// Wait blocks until the cycle is done or ctx ends.
func (c *Cycle) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
