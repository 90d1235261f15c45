package eventloop

import (
	"net"

	"github.com/svenslaggare/iouring-event-loop/pkg/socket"
)

// DefaultBacklog is a reasonable listen backlog for the demo scale this
// loop targets.
const DefaultBacklog = 32

// TCPListener is a bound and listening TCP socket together with the
// address it was bound to.
type TCPListener struct {
	socket Socket
	addr   Inet4Addr
}

func (l *TCPListener) Socket() Socket {
	return l.socket
}

func (l *TCPListener) Addr() Inet4Addr {
	return l.addr
}

// TCPListen binds a listening socket to (ip, port). Binding port 0 picks a
// free port; the returned address carries the actual one.
func TCPListen(ip net.IP, port uint16, backlog int) (*TCPListener, error) {
	fd, err := socket.TCPListenSocket(ip, port, backlog)
	if err != nil {
		return nil, err
	}

	boundPort, err := socket.BoundPort(fd)
	if err != nil {
		return nil, err
	}

	return &TCPListener{socket: Socket(fd), addr: Inet4Addr{IP: ip, Port: boundPort}}, nil
}

// TCPListenAny binds a listening socket to all interfaces.
func TCPListenAny(port uint16, backlog int) (*TCPListener, error) {
	return TCPListen(net.IPv4zero, port, backlog)
}

// UnixListener is a bound and listening Unix domain socket.
type UnixListener struct {
	socket Socket
	addr   UnixAddr
}

func (l *UnixListener) Socket() Socket {
	return l.socket
}

func (l *UnixListener) Addr() UnixAddr {
	return l.addr
}

// UnixListen binds a listening socket at path, removing a stale socket
// file first.
func UnixListen(path string, backlog int) (*UnixListener, error) {
	fd, err := socket.UnixListenSocket(path, backlog)
	if err != nil {
		return nil, err
	}

	return &UnixListener{socket: Socket(fd), addr: UnixAddr{Path: path}}, nil
}

// UDPReceiver binds a datagram socket to (ip, port). The socket is
// receive-only as far as the loop is concerned; pair it with Receive.
func UDPReceiver(ip net.IP, port uint16) (Socket, error) {
	fd, err := socket.UDPSocket(ip, port)
	if err != nil {
		return -1, err
	}

	return Socket(fd), nil
}
