package eventloop

import (
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/sys/unix"

	loopErrors "github.com/svenslaggare/iouring-event-loop/pkg/errors"
)

// Addr is a socket address: either IPv4 (Inet4Addr) or Unix domain
// (UnixAddr). The two cases are the only implementations.
type Addr interface {
	Network() string
	String() string

	// encode writes the address into raw and returns the encoded length.
	encode(raw *unix.RawSockaddrAny) (uint32, error)
}

type Inet4Addr struct {
	IP   net.IP
	Port uint16
}

func (a Inet4Addr) Network() string {
	return "tcp"
}

func (a Inet4Addr) String() string {
	return fmt.Sprintf("%s:%d", a.IP.String(), a.Port)
}

func (a Inet4Addr) encode(raw *unix.RawSockaddrAny) (uint32, error) {
	ipv4 := a.IP.To4()
	if ipv4 == nil {
		return 0, loopErrors.ErrNotIPv4Address
	}

	sockaddr := (*unix.RawSockaddrInet4)(unsafe.Pointer(raw))
	sockaddr.Family = unix.AF_INET
	putNetworkOrder(&sockaddr.Port, a.Port)
	copy(sockaddr.Addr[:], ipv4)

	return unix.SizeofSockaddrInet4, nil
}

type UnixAddr struct {
	Path string
}

func (a UnixAddr) Network() string {
	return "unix"
}

func (a UnixAddr) String() string {
	return a.Path
}

func (a UnixAddr) encode(raw *unix.RawSockaddrAny) (uint32, error) {
	sockaddr := (*unix.RawSockaddrUnix)(unsafe.Pointer(raw))
	if len(a.Path) >= len(sockaddr.Path) {
		return 0, loopErrors.ErrPathTooLong
	}

	sockaddr.Family = unix.AF_UNIX
	for i := range sockaddr.Path {
		sockaddr.Path[i] = 0
	}
	for i := 0; i < len(a.Path); i++ {
		sockaddr.Path[i] = int8(a.Path[i])
	}

	return unix.SizeofSockaddrUnix, nil
}

// putNetworkOrder stores port in network byte order regardless of host
// endianness; the raw sockaddr port field is raw wire memory.
func putNetworkOrder(field *uint16, port uint16) {
	bytes := (*[2]byte)(unsafe.Pointer(field))
	bytes[0] = byte(port >> 8)
	bytes[1] = byte(port)
}

func networkOrder(field uint16) uint16 {
	bytes := (*[2]byte)(unsafe.Pointer(&field))

	return uint16(bytes[0])<<8 | uint16(bytes[1])
}

// decodeAddr extracts the peer address written by the kernel into an
// accept staging buffer.
func decodeAddr(family int, raw *unix.RawSockaddrAny) (Addr, error) {
	switch family {
	case unix.AF_INET:
		sockaddr := (*unix.RawSockaddrInet4)(unsafe.Pointer(raw))
		ip := make(net.IP, net.IPv4len)
		copy(ip, sockaddr.Addr[:])

		return Inet4Addr{IP: ip, Port: networkOrder(sockaddr.Port)}, nil

	case unix.AF_UNIX:
		sockaddr := (*unix.RawSockaddrUnix)(unsafe.Pointer(raw))
		end := 0
		for end < len(sockaddr.Path) && sockaddr.Path[end] != 0 {
			end++
		}
		path := make([]byte, end)
		for i := 0; i < end; i++ {
			path[i] = byte(sockaddr.Path[i])
		}

		return UnixAddr{Path: string(path)}, nil

	default:
		return nil, loopErrors.ErrUnsupportedAddressFamily
	}
}
