package socket

import (
	"errors"
	"net"
	"os"

	"golang.org/x/sys/unix"

	loopErrors "github.com/svenslaggare/iouring-event-loop/pkg/errors"
)

// StreamSocket creates a blocking stream socket in the given family,
// suitable for an asynchronous connect through the ring.
func StreamSocket(family int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, os.NewSyscallError("socket", err)
	}

	return fd, nil
}

func inet4Sockaddr(ip net.IP, port uint16) (*unix.SockaddrInet4, error) {
	sockaddr := &unix.SockaddrInet4{Port: int(port)}

	ipv4 := ip.To4()
	if ipv4 == nil {
		return nil, loopErrors.ErrNotIPv4Address
	}

	copy(sockaddr.Addr[:], ipv4)

	return sockaddr, nil
}

// TCPListenSocket creates a stream socket bound to (ip, port) with address
// reuse enabled and starts listening on it.
func TCPListenSocket(ip net.IP, port uint16, backlog int) (int, error) {
	sockaddr, err := inet4Sockaddr(ip, port)
	if err != nil {
		return -1, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, os.NewSyscallError("socket", err)
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)

		return -1, os.NewSyscallError("setsockopt", err)
	}

	if err = unix.Bind(fd, sockaddr); err != nil {
		_ = unix.Close(fd)

		return -1, os.NewSyscallError("bind", err)
	}

	if err = unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)

		return -1, os.NewSyscallError("listen", err)
	}

	return fd, nil
}

// UnixListenSocket creates a stream socket listening at path. A stale
// socket file at path is removed first; a missing one is fine.
func UnixListenSocket(path string, backlog int) (int, error) {
	if err := unix.Unlink(path); err != nil && !errors.Is(err, unix.ENOENT) {
		return -1, os.NewSyscallError("unlink", err)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, os.NewSyscallError("socket", err)
	}

	if err = unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)

		return -1, os.NewSyscallError("bind", err)
	}

	if err = unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)

		return -1, os.NewSyscallError("listen", err)
	}

	return fd, nil
}

// UDPSocket creates a datagram socket bound to (ip, port).
func UDPSocket(ip net.IP, port uint16) (int, error) {
	sockaddr, err := inet4Sockaddr(ip, port)
	if err != nil {
		return -1, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return -1, os.NewSyscallError("socket", err)
	}

	if err = unix.Bind(fd, sockaddr); err != nil {
		_ = unix.Close(fd)

		return -1, os.NewSyscallError("bind", err)
	}

	return fd, nil
}

// BoundPort reports the local port of a bound socket, for listeners bound
// to port 0.
func BoundPort(fd int) (uint16, error) {
	sockaddr, err := unix.Getsockname(fd)
	if err != nil {
		return 0, os.NewSyscallError("getsockname", err)
	}

	inet4, ok := sockaddr.(*unix.SockaddrInet4)
	if !ok {
		return 0, loopErrors.ErrNotIPv4Address
	}

	return uint16(inet4.Port), nil
}
