package authcore

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher moves audit events from the login and session paths to
// the configured sink on a single worker goroutine, so a slow sink never
// stalls a request.
//
// auditDispatcher instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type auditDispatcher struct {
	sink     AuditSink
	queue    chan AuditEvent
	quit     chan struct{}
	stopping atomic.Bool
	stopOnce sync.Once
	stopped  sync.WaitGroup
	dropped  atomic.Uint64
	onDrop   func()
	blocking bool
}

// newAuditDispatcher starts the delivery worker, or returns nil when the
// audit trail is disabled. onDrop, when non-nil, fires once per event
// discarded under backpressure.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink, onDrop func()) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}

	depth := cfg.BufferSize
	if depth <= 0 {
		depth = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:     sink,
		queue:    make(chan AuditEvent, depth),
		quit:     make(chan struct{}),
		onDrop:   onDrop,
		blocking: !cfg.DropIfFull,
	}

	d.stopped.Add(1)
	go func() {
		defer d.stopped.Done()
		d.deliver()
	}()

	return d
}

func (d *auditDispatcher) deliver() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.quit:
			d.drain()
			return
		}
	}
}

// drain flushes whatever is already queued at shutdown without waiting
// for more.
func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit describes the emit operation and its observable behavior.
//
// Emit may return an error when input validation, dependency calls, or security checks fail.
// Emit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.stopping.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.blocking {
		select {
		case d.queue <- event:
		case <-ctx.Done():
		case <-d.quit:
		}
		return
	}

	select {
	case d.queue <- event:
	case <-d.quit:
	default:
		d.dropped.Add(1)
		if d.onDrop != nil {
			d.onDrop()
		}
	}
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopping.Store(true)
		close(d.quit)
		d.stopped.Wait()
	})
}

// Dropped describes the dropped operation and its observable behavior.
//
// Dropped may return an error when input validation, dependency calls, or security checks fail.
// Dropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
