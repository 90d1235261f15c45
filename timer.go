package eventloop

import (
	"syscall"
	"time"

	"github.com/svenslaggare/iouring-event-loop/iouring"
)

type TimerResponse struct {
	// Elapsed is the time since the timer was armed, in seconds.
	Elapsed float64
}

// TimerCallback returns true to re-arm the timer for another period.
type TimerCallback func(ctx *EventContext, response TimerResponse) bool

type timerEvent struct {
	baseEvent
	startTime time.Time
	duration  time.Duration
	// timespec is read by the kernel after submit; it lives on the record
	// so the address stays stable until completion.
	timespec syscall.Timespec
	callback TimerCallback
}

func (e *timerEvent) name() string {
	return "Timer"
}

func (e *timerEvent) prepare(entry *iouring.SubmissionQueueEntry) {
	sleepTime := e.duration - time.Since(e.startTime)
	if sleepTime < 0 {
		sleepTime = 0
	}

	e.timespec = syscall.NsecToTimespec(sleepTime.Nanoseconds())
	entry.PrepareTimeout(&e.timespec, 1, 0)
}

func (e *timerEvent) handle(ctx *EventContext) bool {
	elapsed := time.Since(e.startTime)
	if elapsed < e.duration {
		// Fired before the deadline (e.g. another completion on the ring);
		// re-arm with the remaining delay without calling the handler.
		return ctx.Loop.resubmit(e)
	}

	if e.callback == nil {
		return false
	}

	if e.callback(ctx, TimerResponse{Elapsed: elapsed.Seconds()}) {
		e.startTime = time.Now()

		return ctx.Loop.resubmit(e)
	}

	return false
}

// Timer fires the callback after duration. The callback can return true to
// restart the timer with the same duration.
func (l *EventLoop) Timer(duration time.Duration, callback TimerCallback, guard *SubmitGuard) error {
	pending := &timerEvent{
		baseEvent: baseEvent{eventID: l.nextID()},
		startTime: time.Now(),
		duration:  duration,
		callback:  callback,
	}

	return l.register(pending, guard)
}
