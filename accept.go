package eventloop

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/svenslaggare/iouring-event-loop/iouring"
)

type AcceptResponse struct {
	Client Socket
	Peer   Addr
}

// AcceptCallback returns true to keep accepting further clients.
type AcceptCallback func(ctx *EventContext, response AcceptResponse) bool

type acceptEvent struct {
	baseEvent
	server Socket
	family int

	// Peer address staging written by the kernel; owned by the record.
	rawPeer    unix.RawSockaddrAny
	rawPeerLen uint32

	callback AcceptCallback
}

func (e *acceptEvent) name() string {
	return "Accept"
}

func (e *acceptEvent) sockaddrSize() uint32 {
	if e.family == unix.AF_UNIX {
		return unix.SizeofSockaddrUnix
	}

	return unix.SizeofSockaddrInet4
}

func (e *acceptEvent) prepare(entry *iouring.SubmissionQueueEntry) {
	e.rawPeerLen = e.sockaddrSize()
	entry.PrepareAccept(
		int(e.server),
		uintptr(unsafe.Pointer(&e.rawPeer)),
		uintptr(unsafe.Pointer(&e.rawPeerLen)),
		0,
	)
}

func (e *acceptEvent) handle(ctx *EventContext) bool {
	if e.callback == nil {
		return false
	}

	var peer Addr

	if ctx.Result >= 0 {
		var err error

		peer, err = decodeAddr(e.family, &e.rawPeer)
		if err != nil {
			ctx.Loop.log.Error().Err(err).Uint64("id", e.eventID).Msg("Decode peer address failed")
		}
	}

	if e.callback(ctx, AcceptResponse{Client: Socket(ctx.Result), Peer: peer}) && ctx.Result > 0 {
		// Zero the staging memory before the next shot.
		e.rawPeer = unix.RawSockaddrAny{}

		return ctx.Loop.resubmit(e)
	}

	return false
}

func (l *EventLoop) acceptSocket(server Socket, family int, callback AcceptCallback, guard *SubmitGuard) error {
	pending := &acceptEvent{
		baseEvent: baseEvent{eventID: l.nextID()},
		server:    server,
		family:    family,
		callback:  callback,
	}

	return l.register(pending, guard)
}

// Accept waits for a client on a TCP listener. The callback receives the
// accepted socket and the peer address and returns true to accept more.
func (l *EventLoop) Accept(listener *TCPListener, callback AcceptCallback, guard *SubmitGuard) error {
	return l.acceptSocket(listener.Socket(), unix.AF_INET, callback, guard)
}

// AcceptUnix waits for a client on a Unix domain listener.
func (l *EventLoop) AcceptUnix(listener *UnixListener, callback AcceptCallback, guard *SubmitGuard) error {
	return l.acceptSocket(listener.Socket(), unix.AF_UNIX, callback, guard)
}
