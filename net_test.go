package eventloop_test

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	. "github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	eventloop "github.com/svenslaggare/iouring-event-loop"
)

func TestTCPAcceptConnectSendReceive(t *testing.T) {
	loop := newTestLoop(t)
	stop := eventloop.NewStopper()

	listener, err := eventloop.TCPListen(net.IPv4(127, 0, 0, 1), 0, eventloop.DefaultBacklog)
	NoError(t, err)

	received := make(chan string, 1)
	peers := make(chan eventloop.Addr, 1)
	connected := make(chan eventloop.ConnectResponse, 1)

	err = loop.Accept(listener, func(ctx *eventloop.EventContext, response eventloop.AcceptResponse) bool {
		True(t, response.Client.Valid())
		peers <- response.Peer

		receiveErr := ctx.Loop.Receive(response.Client, eventloop.NewBuffer(64),
			func(ctx *eventloop.EventContext, receiveResponse eventloop.ReceiveResponse) bool {
				if receiveResponse.Size == 0 {
					return false
				}

				received <- string(receiveResponse.Data[:receiveResponse.Size])

				return true
			}, nil)
		NoError(t, receiveErr)

		return true
	}, nil)
	NoError(t, err)

	err = loop.Connect(net.IPv4(127, 0, 0, 1), listener.Addr().Port,
		func(ctx *eventloop.EventContext, response eventloop.ConnectResponse) {
			connected <- response

			if response.Err == nil {
				sendErr := ctx.Loop.Send(response.Client, eventloop.BufferFromString("hi\n"), nil, nil)
				NoError(t, sendErr)
			}
		}, nil)
	NoError(t, err)

	defer runLoop(t, loop, stop)()

	select {
	case response := <-connected:
		NoError(t, response.Err)
		Equal(t, listener.Addr().Port, response.Server.(eventloop.Inet4Addr).Port)
	case <-time.After(2 * time.Second):
		FailNow(t, "connect did not complete")
	}

	select {
	case peer := <-peers:
		_, isInet4 := peer.(eventloop.Inet4Addr)
		True(t, isInet4)
	case <-time.After(2 * time.Second):
		FailNow(t, "accept did not complete")
	}

	select {
	case message := <-received:
		Equal(t, "hi\n", message)
	case <-time.After(2 * time.Second):
		FailNow(t, "receive did not complete")
	}
}

func TestConnectRefused(t *testing.T) {
	loop := newTestLoop(t)
	stop := eventloop.NewStopper()

	// Bind a listener to grab a free port, then close it so the connect is
	// refused.
	listener, err := eventloop.TCPListen(net.IPv4(127, 0, 0, 1), 0, eventloop.DefaultBacklog)
	NoError(t, err)

	port := listener.Addr().Port
	NoError(t, unix.Close(int(listener.Socket())))

	responses := make(chan eventloop.ConnectResponse, 1)

	err = loop.Connect(net.IPv4(127, 0, 0, 1), port,
		func(ctx *eventloop.EventContext, response eventloop.ConnectResponse) {
			responses <- response
		}, nil)
	NoError(t, err)

	defer runLoop(t, loop, stop)()

	select {
	case response := <-responses:
		ErrorIs(t, response.Err, unix.ECONNREFUSED)
	case <-time.After(2 * time.Second):
		FailNow(t, "connect did not complete")
	}
}

func TestUnixAcceptConnect(t *testing.T) {
	loop := newTestLoop(t)
	stop := eventloop.NewStopper()

	path := filepath.Join(t.TempDir(), "loop_test.sock")

	listener, err := eventloop.UnixListen(path, eventloop.DefaultBacklog)
	NoError(t, err)
	Equal(t, path, listener.Addr().Path)

	received := make(chan string, 1)

	err = loop.AcceptUnix(listener, func(ctx *eventloop.EventContext, response eventloop.AcceptResponse) bool {
		receiveErr := ctx.Loop.Receive(response.Client, eventloop.NewBuffer(64),
			func(ctx *eventloop.EventContext, receiveResponse eventloop.ReceiveResponse) bool {
				if receiveResponse.Size == 0 {
					return false
				}

				received <- string(receiveResponse.Data[:receiveResponse.Size])

				return true
			}, nil)
		NoError(t, receiveErr)

		return true
	}, nil)
	NoError(t, err)

	err = loop.ConnectUnix(path, func(ctx *eventloop.EventContext, response eventloop.ConnectResponse) {
		NoError(t, response.Err)
		Equal(t, path, response.Server.(eventloop.UnixAddr).Path)

		sendErr := ctx.Loop.Send(response.Client, eventloop.BufferFromString("over unix\n"), nil, nil)
		NoError(t, sendErr)
	}, nil)
	NoError(t, err)

	defer runLoop(t, loop, stop)()

	select {
	case message := <-received:
		Equal(t, "over unix\n", message)
	case <-time.After(2 * time.Second):
		FailNow(t, "receive did not complete")
	}
}

func TestReceiveZeroBytesDisarms(t *testing.T) {
	loop := newTestLoop(t)
	stop := eventloop.NewStopper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	NoError(t, err)

	calls := make(chan int, 4)

	err = loop.Receive(eventloop.Socket(fds[0]), eventloop.NewBuffer(64),
		func(ctx *eventloop.EventContext, response eventloop.ReceiveResponse) bool {
			calls <- response.Size

			return true
		}, nil)
	NoError(t, err)

	// Shut the peer down so the receive completes with zero bytes.
	NoError(t, unix.Close(fds[1]))

	defer runLoop(t, loop, stop)()

	select {
	case size := <-calls:
		Equal(t, 0, size)
	case <-time.After(2 * time.Second):
		FailNow(t, "receive did not complete")
	}

	// The handler asked to continue, but a zero result must not re-arm.
	select {
	case size := <-calls:
		FailNow(t, "receive re-armed after zero-byte completion", "size: %d", size)
	case <-time.After(700 * time.Millisecond):
	}
}

func TestSubmitGuardBatchesSends(t *testing.T) {
	loop := newTestLoop(t)
	stop := eventloop.NewStopper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	NoError(t, err)

	defer unix.Close(fds[1])

	received := make(chan string, 4)

	err = loop.Receive(eventloop.Socket(fds[1]), eventloop.NewBuffer(64),
		func(ctx *eventloop.EventContext, response eventloop.ReceiveResponse) bool {
			if response.Size == 0 {
				return false
			}

			received <- string(response.Data[:response.Size])

			return true
		}, nil)
	NoError(t, err)

	guard := loop.NewSubmitGuard()

	output := eventloop.BufferFromString("fan-out")
	NoError(t, loop.Send(eventloop.Socket(fds[0]), output.Copy(), nil, guard))
	NoError(t, loop.Send(eventloop.Socket(fds[0]), output.Copy(), nil, guard))
	output.Release()

	Equal(t, 2, guard.Pending())
	guard.Flush()
	Equal(t, 0, guard.Pending())

	// Flushing an empty guard is a no-op.
	guard.Flush()

	defer runLoop(t, loop, stop)()

	total := 0

	for total < 2*len("fan-out") {
		select {
		case message := <-received:
			total += len(message)
		case <-time.After(2 * time.Second):
			FailNow(t, "batched sends were not delivered")
		}
	}

	Equal(t, 2*len("fan-out"), total)
}

func TestUDPReceiver(t *testing.T) {
	loop := newTestLoop(t)
	stop := eventloop.NewStopper()

	socket, err := eventloop.UDPReceiver(net.IPv4(127, 0, 0, 1), 0)
	NoError(t, err)

	sockname, err := unix.Getsockname(int(socket))
	NoError(t, err)
	port := sockname.(*unix.SockaddrInet4).Port

	received := make(chan string, 1)

	err = loop.Receive(socket, eventloop.NewBuffer(64),
		func(ctx *eventloop.EventContext, response eventloop.ReceiveResponse) bool {
			received <- string(response.Data[:response.Size])

			return false
		}, nil)
	NoError(t, err)

	// Plain blocking sender on the test goroutine.
	sender, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	NoError(t, err)

	defer unix.Close(sender)

	destination := &unix.SockaddrInet4{Port: port}
	copy(destination.Addr[:], net.IPv4(127, 0, 0, 1).To4())
	NoError(t, unix.Sendto(sender, []byte("datagram"), 0, destination))

	defer runLoop(t, loop, stop)()

	select {
	case message := <-received:
		Equal(t, "datagram", message)
	case <-time.After(2 * time.Second):
		FailNow(t, "datagram was not received")
	}
}
