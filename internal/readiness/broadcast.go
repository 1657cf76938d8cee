package readiness

import (
	"context"
	"sync"
)

// Broadcast is a single-assignment cell. One producer publishes an Outcome
// once; any number of consumers wait for it and all observe the same value,
// whether they ask before or after publication. There is no reset.
type Broadcast struct {
	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

// NewBroadcast creates an unresolved broadcast.
func NewBroadcast() *Broadcast {
	return &Broadcast{done: make(chan struct{})}
}

// Publish sets the outcome and wakes every waiter. Only the first call has
// an effect; it reports whether this call was the one that published.
func (b *Broadcast) Publish(o Outcome) bool {
	published := false
	b.once.Do(func() {
		b.outcome = o
		close(b.done)
		published = true
	})
	return published
}

// Done is closed once the outcome is available.
func (b *Broadcast) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the outcome is published or ctx ends.
func (b *Broadcast) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-b.done:
		return b.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Peek returns the outcome without blocking. ok is false until published.
func (b *Broadcast) Peek() (o Outcome, ok bool) {
	select {
	case <-b.done:
		return b.outcome, true
	default:
		return Outcome{}, false
	}
}

// EnsureReady waits for the outcome and converts it into an error, nil
// when the backend is usable.
func (b *Broadcast) EnsureReady(ctx context.Context) error {
	o, err := b.Wait(ctx)
	if err != nil {
		return err
	}
	return o.Err
}
