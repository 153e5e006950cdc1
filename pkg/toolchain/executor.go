package toolchain

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when work is submitted to a closed toolchain.
var ErrClosed = errors.New("toolchain: closed")

// executor serializes every toolchain-touching operation onto one dedicated
// goroutine. The underlying type-checker machinery is not reentrant; the
// hazard is interleaved access, not just data races, so this is an actor
// queue rather than a lock.
type executor struct {
	tasks chan func()

	closeOnce sync.Once
	closed    chan struct{}
	drained   chan struct{}
}

// executorQueueDepth bounds pending submissions. Submitters block once the
// queue is full, which is the desired backpressure.
const executorQueueDepth = 16

// newExecutor starts the executor goroutine.
func newExecutor() *executor {
	e := &executor{
		tasks:   make(chan func(), executorQueueDepth),
		closed:  make(chan struct{}),
		drained: make(chan struct{}),
	}

	go e.loop()

	return e
}

// loop runs queued tasks until close, then drains what was already queued.
func (e *executor) loop() {
	defer close(e.drained)

	for {
		select {
		case <-e.closed:
			for {
				select {
				case fn := <-e.tasks:
					fn()
				default:
					return
				}
			}
		case fn := <-e.tasks:
			fn()
		}
	}
}

// do submits fn and waits for it to finish. The context guards the wait for
// a queue slot; once fn starts it runs to completion, because abandoning the
// toolchain mid-operation would leave its global state torn.
func (e *executor) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})

	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case <-e.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case e.tasks <- wrapped:
	}

	// The send can race a concurrent close: the loop may have drained and
	// exited without ever picking wrapped up. drained closing with done
	// still open means exactly that.
	select {
	case <-done:
		return nil
	case <-e.drained:
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// close stops the executor after draining queued tasks.
func (e *executor) close() {
	e.closeOnce.Do(func() {
		close(e.closed)
	})

	<-e.drained
}
