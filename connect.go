package eventloop

import (
	"net"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/svenslaggare/iouring-event-loop/iouring"
	"github.com/svenslaggare/iouring-event-loop/pkg/socket"
)

type ConnectResponse struct {
	Client Socket
	Server Addr
	// Err carries the connect failure, or nil on success.
	Err error
}

type ConnectCallback func(ctx *EventContext, response ConnectResponse)

type connectEvent struct {
	baseEvent
	client Socket
	server Addr

	// Encoded server address read by the kernel; owned by the record.
	rawServer    unix.RawSockaddrAny
	rawServerLen uint32

	callback ConnectCallback
}

func (e *connectEvent) name() string {
	return "Connect"
}

func (e *connectEvent) prepare(entry *iouring.SubmissionQueueEntry) {
	entry.PrepareConnect(int(e.client), uintptr(unsafe.Pointer(&e.rawServer)), uint64(e.rawServerLen))
}

func (e *connectEvent) handle(ctx *EventContext) bool {
	if e.callback != nil {
		e.callback(ctx, ConnectResponse{
			Client: e.client,
			Server: e.server,
			Err:    ResultError(ctx.Result),
		})
	}

	return false
}

func (l *EventLoop) connectAddr(fd int, server Addr, callback ConnectCallback, guard *SubmitGuard) error {
	pending := &connectEvent{
		baseEvent: baseEvent{eventID: l.nextID()},
		client:    Socket(fd),
		server:    server,
		callback:  callback,
	}

	length, err := server.encode(&pending.rawServer)
	if err != nil {
		return err
	}

	pending.rawServerLen = length

	return l.register(pending, guard)
}

// Connect creates a stream socket and connects it to an IPv4 endpoint. A
// connect failure is delivered through the response's Err field.
func (l *EventLoop) Connect(ip net.IP, port uint16, callback ConnectCallback, guard *SubmitGuard) error {
	fd, err := socket.StreamSocket(unix.AF_INET)
	if err != nil {
		return err
	}

	return l.connectAddr(fd, Inet4Addr{IP: ip, Port: port}, callback, guard)
}

// ConnectUnix creates a stream socket and connects it to a Unix domain
// socket path.
func (l *EventLoop) ConnectUnix(path string, callback ConnectCallback, guard *SubmitGuard) error {
	fd, err := socket.StreamSocket(unix.AF_UNIX)
	if err != nil {
		return err
	}

	return l.connectAddr(fd, UnixAddr{Path: path}, callback, guard)
}
