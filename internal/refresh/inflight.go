package refresh

import (
	"context"
	"sync"
)

// Inflight tracks background deliveries so shutdown can wait for them.
// The zero value is ready to use.
type Inflight struct {
	wg sync.WaitGroup
}

// Go runs fn in a new goroutine tracked by f.
func (f *Inflight) Go(fn func()) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		fn()
	}()
}

// Wait blocks until every tracked goroutine has returned or ctx is done.
func (f *Inflight) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
