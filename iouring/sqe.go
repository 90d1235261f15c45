package iouring

import (
	"sync/atomic"
	"syscall"
	"unsafe"
)

const (
	SQNeedWakeup uint32 = 1 << iota
	SQCQOverflow
	SQTaskrun
)

const (
	TimeoutAbs uint32 = 1 << iota
	TimeoutUpdate
	TimeoutBoottime
	TimeoutRealtime
)

// SubmissionQueueEntry mirrors struct io_uring_sqe.
type SubmissionQueueEntry struct {
	OpCode      uint8
	Flags       uint8
	IoPrio      uint16
	Fd          int32
	Off         uint64
	Addr        uint64
	Len         uint32
	OpcodeFlags uint32
	UserData    uint64

	BufIG       uint16
	Personality uint16
	SpliceFdIn  int32
	_pad2       [2]uint64
}

func (entry *SubmissionQueueEntry) prepareRW(opcode uint8, fd int, addr uintptr, length uint32, offset uint64) {
	entry.OpCode = opcode
	entry.Flags = 0
	entry.IoPrio = 0
	entry.Fd = int32(fd)
	entry.Off = offset
	entry.Addr = uint64(addr)
	entry.Len = length
	entry.OpcodeFlags = 0
	entry.UserData = 0
	entry.BufIG = 0
	entry.Personality = 0
	entry.SpliceFdIn = 0
	entry._pad2[0] = 0
	entry._pad2[1] = 0
}

func (entry *SubmissionQueueEntry) PrepareNop() {
	entry.prepareRW(OpNop, -1, 0, 0, 0)
}

func (entry *SubmissionQueueEntry) PrepareClose(fd int) {
	entry.prepareRW(OpClose, fd, 0, 0, 0)
}

// PrepareTimeout arms a single-shot relative timeout. The timespec is read
// by the kernel after submit; the caller must keep it alive and in place
// until the completion arrives.
func (entry *SubmissionQueueEntry) PrepareTimeout(spec *syscall.Timespec, count uint64, flags uint32) {
	entry.prepareRW(OpTimeout, -1, uintptr(unsafe.Pointer(spec)), 1, count)
	entry.OpcodeFlags = flags
}

// PrepareAccept takes pointers to peer address staging memory: addr points
// at a raw sockaddr buffer and addrLen at its socklen, both owned by the
// caller for the lifetime of the operation.
func (entry *SubmissionQueueEntry) PrepareAccept(fd int, addr, addrLen uintptr, flags uint32) {
	entry.prepareRW(OpAccept, fd, addr, 0, uint64(addrLen))
	entry.OpcodeFlags = flags
}

// PrepareConnect takes a pointer to an encoded sockaddr and its length in
// bytes (a value, unlike accept).
func (entry *SubmissionQueueEntry) PrepareConnect(fd int, addr uintptr, addrLen uint64) {
	entry.prepareRW(OpConnect, fd, addr, 0, addrLen)
}

func (entry *SubmissionQueueEntry) PrepareSend(fd int, addr uintptr, length uint32, flags uint32) {
	entry.prepareRW(OpSend, fd, addr, length, 0)
	entry.OpcodeFlags = flags
}

func (entry *SubmissionQueueEntry) PrepareRecv(fd int, addr uintptr, length uint32, flags uint32) {
	entry.prepareRW(OpRecv, fd, addr, length, 0)
	entry.OpcodeFlags = flags
}

// PrepareOpenat opens path relative to dirFd. The path must be a
// NUL-terminated byte array that stays alive and in place until completion.
func (entry *SubmissionQueueEntry) PrepareOpenat(dirFd int, path *byte, flags int, mode uint32) {
	entry.prepareRW(OpOpenat, dirFd, uintptr(unsafe.Pointer(path)), mode, 0)
	entry.OpcodeFlags = uint32(flags)
}

func (entry *SubmissionQueueEntry) PrepareRead(fd int, buffer uintptr, length uint32, offset uint64) {
	entry.prepareRW(OpRead, fd, buffer, length, offset)
}

func (entry *SubmissionQueueEntry) PrepareWrite(fd int, buffer uintptr, length uint32, offset uint64) {
	entry.prepareRW(OpWrite, fd, buffer, length, offset)
}

// PrepareStatx writes the result into statxBuffer. Path and buffer pointer
// stability rules are the same as for openat.
func (entry *SubmissionQueueEntry) PrepareStatx(dirFd int, path *byte, flags int, mask uint32, statxBuffer uintptr) {
	entry.prepareRW(OpStatx, dirFd, uintptr(unsafe.Pointer(path)), mask, uint64(statxBuffer))
	entry.OpcodeFlags = uint32(flags)
}

// GetSQE returns the next free submission queue slot or ErrSQOverflow when
// the queue is full.
func (ring *Ring) GetSQE() (*SubmissionQueueEntry, error) {
	head := atomic.LoadUint32(ring.sqRing.head)
	next := ring.sqRing.sqeTail + 1

	if next-head > *ring.sqRing.ringEntries {
		return nil, errorSQOverflow(next - head)
	}

	idx := ring.sqRing.sqeTail & *ring.sqRing.ringMask * uint32(unsafe.Sizeof(SubmissionQueueEntry{}))
	entry := (*SubmissionQueueEntry)(unsafe.Pointer(&ring.sqRing.sqeBuffer[idx]))
	ring.sqRing.sqeTail = next

	return entry, nil
}

func (ring *Ring) flushSQ() uint32 {
	mask := *ring.sqRing.ringMask
	tail := atomic.LoadUint32(ring.sqRing.tail)

	pending := ring.sqRing.sqeTail - ring.sqRing.sqeHead
	if pending == 0 {
		return tail - atomic.LoadUint32(ring.sqRing.head)
	}

	for i := pending; i > 0; i-- {
		*(*uint32)(
			unsafe.Add(unsafe.Pointer(ring.sqRing.array),
				tail&mask*uint32(unsafe.Sizeof(uint32(0))))) = ring.sqRing.sqeHead & mask
		tail++
		ring.sqRing.sqeHead++
	}

	atomic.StoreUint32(ring.sqRing.tail, tail)

	return tail - atomic.LoadUint32(ring.sqRing.head)
}

func (ring *Ring) SQReady() uint32 {
	return ring.sqRing.sqeTail - *ring.sqRing.head
}

func (ring *Ring) SQSpaceLeft() uint32 {
	return *ring.sqRing.ringEntries - ring.SQReady()
}
