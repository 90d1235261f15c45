package eventloop

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/svenslaggare/iouring-event-loop/iouring"
	"github.com/svenslaggare/iouring-event-loop/logger"
	loopErrors "github.com/svenslaggare/iouring-event-loop/pkg/errors"
)

// DefaultRingSize is the default submission queue depth to pass to
// NewEventLoop, which itself always uses the depth it is given.
const DefaultRingSize uint = 256

// waitTimeout bounds the completion wait so deferred callbacks and the
// stop signal are serviced even when no I/O completes.
const waitTimeout = 500 * time.Millisecond

// DispatchedCallback runs on the loop goroutine after being enqueued with
// Dispatch, possibly from another goroutine.
type DispatchedCallback func(loop *EventLoop)

// EventLoop is a single-goroutine io_uring reactor. Operations are
// submitted to the ring tagged with a monotonically increasing identifier
// and their state is kept in the registry until the final completion.
//
// Everything except Dispatch and the Stopper must be called on the loop
// goroutine.
type EventLoop struct {
	ring *iouring.Ring

	nextEventID uint64
	events      map[uint64]event

	dispatchedLock sync.Mutex
	dispatched     *queue.Queue

	log zerolog.Logger
}

// NewEventLoop creates a loop with the given submission queue depth.
func NewEventLoop(ringSize uint) (*EventLoop, error) {
	return NewEventLoopWithLogger(ringSize, logger.NewLogger("event-loop", logger.ErrorLevel, false))
}

func NewEventLoopWithLogger(ringSize uint, log zerolog.Logger) (*EventLoop, error) {
	ring, err := iouring.CreateRing(ringSize)
	if err != nil {
		return nil, fmt.Errorf("create ring: %w", err)
	}

	return &EventLoop{
		ring:        ring,
		nextEventID: 1,
		events:      make(map[uint64]event),
		dispatched:  queue.New(),
		log:         log,
	}, nil
}

// Close releases all outstanding operation state without running the
// continuations and tears down the ring.
func (l *EventLoop) Close() error {
	for id, pending := range l.events {
		pending.release()
		delete(l.events, id)
	}

	return l.ring.QueueExit()
}

// Run drives the loop until the stop signal is set. Each iteration waits
// for one completion with a bounded timeout, dispatches it to its handler
// and drains deferred callbacks.
func (l *EventLoop) Run(stop *Stopper) error {
	for !stop.Stopped() {
		if _, err := l.RunOnce(stop, waitTimeout); err != nil {
			return err
		}
	}

	return nil
}

// RunOnce performs a single loop iteration with a caller-supplied wait
// timeout and reports whether the stop signal is set.
func (l *EventLoop) RunOnce(stop *Stopper, timeout time.Duration) (bool, error) {
	spec := syscall.NsecToTimespec(timeout.Nanoseconds())

	cqe, err := l.ring.SubmitAndWaitTimeout(1, &spec)
	if errors.Is(err, iouring.ErrTimerExpired) {
		l.runDispatched()

		return stop.Stopped(), nil
	}

	if err != nil {
		return stop.Stopped(), fmt.Errorf("wait for completion: %w", err)
	}

	userData := cqe.UserData()
	result := cqe.Res()

	pending, found := l.events[userData]
	if !found {
		l.ring.CQESeen(cqe)

		return stop.Stopped(), loopErrors.ErrorUnknownCompletion(userData)
	}

	l.log.Trace().
		Uint64("id", userData).
		Str("event", pending.name()).
		Int32("result", result).
		Msg("Completion")

	context := EventContext{Loop: l, Stop: stop, Result: result}
	if !pending.handle(&context) {
		l.removeEvent(userData)
	}

	l.ring.CQESeen(cqe)
	l.runDispatched()

	return stop.Stopped(), nil
}

// Dispatch enqueues a callback to run on the loop goroutine. Safe to call
// from any goroutine; the callback runs within one wait timeout even when
// no I/O is in flight.
func (l *EventLoop) Dispatch(callback DispatchedCallback) {
	l.dispatchedLock.Lock()
	l.dispatched.Add(callback)
	l.dispatchedLock.Unlock()
}

func (l *EventLoop) runDispatched() {
	l.dispatchedLock.Lock()

	callbacks := make([]DispatchedCallback, 0, l.dispatched.Length())
	for l.dispatched.Length() > 0 {
		callbacks = append(callbacks, l.dispatched.Remove().(DispatchedCallback))
	}

	// Run outside the lock so callbacks can dispatch again.
	l.dispatchedLock.Unlock()

	for _, callback := range callbacks {
		callback(l)
	}
}

// nextID returns the next operation identifier. Identifiers strictly
// increase for the lifetime of the loop; 0 is never assigned.
func (l *EventLoop) nextID() uint64 {
	id := l.nextEventID
	l.nextEventID++

	return id
}

func (l *EventLoop) removeEvent(id uint64) {
	if pending, found := l.events[id]; found {
		pending.release()
		delete(l.events, id)
	}
}

// submitEvent prepares a submission entry for a registered event and
// either submits the ring or defers to the guard.
func (l *EventLoop) submitEvent(pending event, guard *SubmitGuard) error {
	sqe, err := l.ring.GetSQE()
	if err != nil {
		return fmt.Errorf("%w: %s", loopErrors.ErrRingExhausted, err)
	}

	pending.prepare(sqe)
	sqe.UserData = pending.id()

	return l.submitRing(guard)
}

// register adds a fresh event to the registry and submits it, rolling the
// record back if the submission fails.
func (l *EventLoop) register(pending event, guard *SubmitGuard) error {
	l.events[pending.id()] = pending

	if err := l.submitEvent(pending, guard); err != nil {
		l.removeEvent(pending.id())

		return err
	}

	return nil
}

// resubmit re-arms a multi-shot event from its handler. On failure the
// handler gives up its extra shot: the error is logged and the record is
// removed by the caller returning false.
func (l *EventLoop) resubmit(pending event) bool {
	if err := l.submitEvent(pending, nil); err != nil {
		l.log.Error().Err(err).Uint64("id", pending.id()).Str("event", pending.name()).Msg("Re-arm failed")

		return false
	}

	return true
}

func (l *EventLoop) submitRing(guard *SubmitGuard) error {
	if guard != nil {
		guard.pending++

		return nil
	}

	if _, err := l.ring.Submit(); err != nil {
		return fmt.Errorf("submit ring: %w", err)
	}

	return nil
}
