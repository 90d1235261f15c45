package iouring

import (
	"os"
	"runtime"
	"sync/atomic"
	"syscall"
	"unsafe"
)

const (
	EnterGetEvents uint32 = 1 << iota
	EnterSQWakeup
	EnterSQWait
	EnterExtArg
)

const (
	CQEFBuffer uint32 = 1 << iota
	CQEFMore
	CQEFSockNonempty
	CQEFNotif
)

// CompletionQueueEvent mirrors struct io_uring_cqe.
type CompletionQueueEvent struct {
	userData uint64
	res      int32
	flags    uint32
}

func (c *CompletionQueueEvent) UserData() uint64 {
	return c.userData
}

func (c *CompletionQueueEvent) Res() int32 {
	return c.res
}

func (c *CompletionQueueEvent) Flags() uint32 {
	return c.flags
}

type getEventsArg struct {
	sigMask   uintptr
	sigMaskSz uint32
	pad       uint32
	ts        uintptr
}

func (ring *Ring) enter(submitted, waitNr, flags uint32, arg unsafe.Pointer, size int) (uint, error) {
	consumed, _, errno := syscall.Syscall6(
		sysEnter,
		uintptr(ring.fd),
		uintptr(submitted),
		uintptr(waitNr),
		uintptr(flags),
		uintptr(arg),
		uintptr(size),
	)

	switch errno {
	case 0:
		return uint(consumed), nil
	case syscall.ETIME:
		return 0, ErrTimerExpired
	case syscall.EINTR:
		return 0, ErrInterruptedSyscall
	case syscall.EAGAIN:
		return 0, ErrAgain
	default:
		return 0, os.NewSyscallError("io_uring_enter", errno)
	}
}

// Submit flushes prepared entries to the kernel without waiting for
// completions.
func (ring *Ring) Submit() (uint, error) {
	return ring.enter(ring.flushSQ(), 0, 0, nil, nSig/szDivider)
}

// SubmitAndWaitTimeout flushes prepared entries and waits for at least
// waitNr completions or, when spec is non-nil, until the timeout elapses
// (ErrTimerExpired). On success the first pending completion is returned;
// the caller marks it consumed with CQESeen.
func (ring *Ring) SubmitAndWaitTimeout(waitNr uint32, spec *syscall.Timespec) (*CompletionQueueEvent, error) {
	if spec != nil && ring.features&FeatExtArg == 0 {
		return nil, ErrNotSupported
	}

	submitted := ring.flushSQ()

	if event := ring.PeekCQE(); event != nil && submitted == 0 {
		return event, nil
	}

	var (
		arg   unsafe.Pointer
		size  = nSig / szDivider
		flags = EnterGetEvents
	)

	if spec != nil {
		eventsArg := &getEventsArg{
			sigMaskSz: nSig / szDivider,
			ts:        uintptr(unsafe.Pointer(spec)),
		}
		arg = unsafe.Pointer(eventsArg)
		size = int(unsafe.Sizeof(getEventsArg{}))
		flags |= EnterExtArg
	}

	_, err := ring.enter(submitted, waitNr, flags, arg, size)

	runtime.KeepAlive(arg)
	runtime.KeepAlive(spec)

	if err != nil {
		return nil, err
	}

	if event := ring.PeekCQE(); event != nil {
		return event, nil
	}

	return nil, ErrAgain
}

// PeekCQE returns the oldest unconsumed completion, or nil.
func (ring *Ring) PeekCQE() *CompletionQueueEvent {
	tail := atomic.LoadUint32(ring.cqRing.tail)
	head := atomic.LoadUint32(ring.cqRing.head)

	if tail == head {
		return nil
	}

	mask := *ring.cqRing.ringMask

	return (*CompletionQueueEvent)(
		unsafe.Add(unsafe.Pointer(ring.cqRing.cqeBuffer), uintptr(head&mask)*unsafe.Sizeof(CompletionQueueEvent{})),
	)
}

func (ring *Ring) CQESeen(event *CompletionQueueEvent) {
	if event != nil {
		ring.CQAdvance(1)
	}
}

func (ring *Ring) CQAdvance(n uint32) {
	atomic.StoreUint32(ring.cqRing.head, *ring.cqRing.head+n)
}
