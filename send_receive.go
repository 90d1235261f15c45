package eventloop

import (
	"github.com/svenslaggare/iouring-event-loop/iouring"
)

type SendResponse struct {
	Client Socket
	Size   int
}

type SendCallback func(ctx *EventContext, response SendResponse)

type sendEvent struct {
	baseEvent
	client   Socket
	data     Buffer
	callback SendCallback
}

func (e *sendEvent) name() string {
	return "Send"
}

func (e *sendEvent) prepare(entry *iouring.SubmissionQueueEntry) {
	entry.PrepareSend(int(e.client), e.data.dataPointer(), uint32(e.data.Size()), 0)
}

func (e *sendEvent) handle(ctx *EventContext) bool {
	if e.callback != nil {
		e.callback(ctx, SendResponse{Client: e.client, Size: ctx.ResultSize()})
	}

	return false
}

func (e *sendEvent) release() {
	e.data.Release()
}

// Send writes the buffer's window to the socket. The operation takes
// ownership of the passed buffer reference and releases it on completion;
// callers that keep using the buffer pass a Copy.
func (l *EventLoop) Send(client Socket, data Buffer, callback SendCallback, guard *SubmitGuard) error {
	pending := &sendEvent{
		baseEvent: baseEvent{eventID: l.nextID()},
		client:    client,
		data:      data,
		callback:  callback,
	}

	return l.register(pending, guard)
}

type ReceiveResponse struct {
	Client Socket
	// Data is the buffer window; the first Size bytes are the received
	// payload.
	Data []byte
	Size int
}

// ReceiveCallback returns true to re-arm the receive. A response with
// Size 0 means the peer shut down; the operation does not re-arm after it.
type ReceiveCallback func(ctx *EventContext, response ReceiveResponse) bool

type receiveEvent struct {
	baseEvent
	client   Socket
	buffer   Buffer
	callback ReceiveCallback
}

func (e *receiveEvent) name() string {
	return "Receive"
}

func (e *receiveEvent) prepare(entry *iouring.SubmissionQueueEntry) {
	entry.PrepareRecv(int(e.client), e.buffer.dataPointer(), uint32(e.buffer.Size()), 0)
}

func (e *receiveEvent) handle(ctx *EventContext) bool {
	if e.callback == nil {
		return false
	}

	if e.callback(ctx, ReceiveResponse{Client: e.client, Data: e.buffer.Data(), Size: ctx.ResultSize()}) &&
		ctx.Result > 0 {
		e.buffer.Clear()

		return ctx.Loop.resubmit(e)
	}

	return false
}

func (e *receiveEvent) release() {
	e.buffer.Release()
}

// Receive reads from the socket into the buffer and keeps re-arming while
// the callback returns true and data keeps arriving. The buffer is zeroed
// between shots. The operation takes ownership of the passed buffer
// reference.
func (l *EventLoop) Receive(client Socket, buffer Buffer, callback ReceiveCallback, guard *SubmitGuard) error {
	pending := &receiveEvent{
		baseEvent: baseEvent{eventID: l.nextID()},
		client:    client,
		buffer:    buffer,
		callback:  callback,
	}

	return l.register(pending, guard)
}
