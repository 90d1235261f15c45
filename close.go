package eventloop

import (
	"github.com/svenslaggare/iouring-event-loop/iouring"
)

type CloseResponse struct {
	Fd AnyFd
}

type CloseCallback func(ctx *EventContext, response CloseResponse)

type closeEvent struct {
	baseEvent
	fd       AnyFd
	callback CloseCallback
}

func (e *closeEvent) name() string {
	return "Close"
}

func (e *closeEvent) prepare(entry *iouring.SubmissionQueueEntry) {
	entry.PrepareClose(int(e.fd))
}

func (e *closeEvent) handle(ctx *EventContext) bool {
	if e.callback != nil {
		e.callback(ctx, CloseResponse{Fd: e.fd})
	}

	return false
}

// CloseFd asynchronously closes any descriptor. The callback receives the
// descriptor that was closed.
func (l *EventLoop) CloseFd(fd AnyFd, callback CloseCallback, guard *SubmitGuard) error {
	pending := &closeEvent{
		baseEvent: baseEvent{eventID: l.nextID()},
		fd:        fd,
		callback:  callback,
	}

	return l.register(pending, guard)
}
