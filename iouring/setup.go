package iouring

import (
	"os"
	"syscall"
	"unsafe"
)

const (
	SetupIOPoll uint32 = 1 << iota
	SetupSQPoll
	SetupSQAff
	SetupSQSize
	SetupClamp
	SetupAttachWQ
	SetupRDisabled
	SetupSubmitAll
	SetupCoopTaskrun
	SetupTaskrunFlag
	SetupSQE128
	SetupSQE32
	SetupSingleIssuer
	SetupDeferTaskrun
)

const (
	FeatSingleMMap uint32 = 1 << iota
	FeatNoDrop
	FeatSubmitStable
	FeatRWCurPos
	FeatCurPersonality
	FeatFastPoll
	FeatPoll32Bits
	FeatSQPollNonfixed
	FeatExtArg
	FeatNativeWorkers
	FeatRsrcTags
	FeatCQESkip
	FeatLinkedFile
)

// Magic offsets for the application to mmap the rings.
const (
	offSQRing uint64 = 0
	offCQRing uint64 = 0x8000000
	offSQEs   uint64 = 0x10000000
)

type sqRingOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	flags       uint32
	dropped     uint32
	array       uint32
	resv1       uint32
	resv2       uint64
}

type cqRingOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	overflow    uint32
	cqes        uint32
	flags       uint32
	resv1       uint32
	resv2       uint64
}

type params struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFD         uint32
	resv         [3]uint32

	sqOff sqRingOffsets
	cqOff cqRingOffsets
}

func (ring *Ring) QueueInit(entries uint, flags uint32) error {
	ring.params.flags = flags

	fd, _, errno := syscall.Syscall(sysSetup, uintptr(entries), uintptr(unsafe.Pointer(ring.params)), 0)
	if errno != 0 {
		return os.NewSyscallError("io_uring_setup", errno)
	}

	err := ring.mmap(int(fd))
	if err != nil {
		return err
	}

	ring.features = ring.params.features
	ring.fd = int(fd)
	ring.flags = ring.params.flags

	return nil
}

func (ring *Ring) mmap(fd int) error {
	ring.sqRing.ringSize = uint64(ring.params.sqOff.array) +
		uint64(ring.params.sqEntries*uint32(unsafe.Sizeof(uint32(0))))
	ring.cqRing.ringSize = uint64(ring.params.cqOff.cqes) +
		uint64(ring.params.cqEntries*uint32(unsafe.Sizeof(CompletionQueueEvent{})))

	if ring.params.features&FeatSingleMMap > 0 {
		if ring.cqRing.ringSize > ring.sqRing.ringSize {
			ring.sqRing.ringSize = ring.cqRing.ringSize
		}

		ring.cqRing.ringSize = ring.sqRing.ringSize
	}

	buffer, err := syscall.Mmap(
		fd, int64(offSQRing), int(ring.sqRing.ringSize),
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED|syscall.MAP_POPULATE,
	)
	if err != nil {
		return err
	}

	ring.sqRing.buffer = buffer

	if ring.params.features&FeatSingleMMap > 0 {
		ring.cqRing.buffer = ring.sqRing.buffer
	} else {
		buffer, err = syscall.Mmap(
			fd, int64(offCQRing), int(ring.cqRing.ringSize),
			syscall.PROT_READ|syscall.PROT_WRITE,
			syscall.MAP_SHARED|syscall.MAP_POPULATE,
		)
		if err != nil {
			ring.unmapRings()

			return err
		}

		ring.cqRing.buffer = buffer
	}

	sqStart := uintptr(unsafe.Pointer(&ring.sqRing.buffer[0]))
	ring.sqRing.head = (*uint32)(unsafe.Pointer(sqStart + uintptr(ring.params.sqOff.head)))
	ring.sqRing.tail = (*uint32)(unsafe.Pointer(sqStart + uintptr(ring.params.sqOff.tail)))
	ring.sqRing.ringMask = (*uint32)(unsafe.Pointer(sqStart + uintptr(ring.params.sqOff.ringMask)))
	ring.sqRing.ringEntries = (*uint32)(unsafe.Pointer(sqStart + uintptr(ring.params.sqOff.ringEntries)))
	ring.sqRing.flags = (*uint32)(unsafe.Pointer(sqStart + uintptr(ring.params.sqOff.flags)))
	ring.sqRing.dropped = (*uint32)(unsafe.Pointer(sqStart + uintptr(ring.params.sqOff.dropped)))
	ring.sqRing.array = (*uint32)(unsafe.Pointer(sqStart + uintptr(ring.params.sqOff.array)))

	sqeSize := uintptr(ring.params.sqEntries) * unsafe.Sizeof(SubmissionQueueEntry{})

	sqeBuffer, err := syscall.Mmap(
		fd, int64(offSQEs), int(sqeSize),
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED|syscall.MAP_POPULATE,
	)
	if err != nil {
		ring.unmapRings()

		return err
	}

	ring.sqRing.sqeBuffer = sqeBuffer

	cqStart := uintptr(unsafe.Pointer(&ring.cqRing.buffer[0]))
	ring.cqRing.head = (*uint32)(unsafe.Pointer(cqStart + uintptr(ring.params.cqOff.head)))
	ring.cqRing.tail = (*uint32)(unsafe.Pointer(cqStart + uintptr(ring.params.cqOff.tail)))
	ring.cqRing.ringMask = (*uint32)(unsafe.Pointer(cqStart + uintptr(ring.params.cqOff.ringMask)))
	ring.cqRing.ringEntries = (*uint32)(unsafe.Pointer(cqStart + uintptr(ring.params.cqOff.ringEntries)))
	ring.cqRing.overflow = (*uint32)(unsafe.Pointer(cqStart + uintptr(ring.params.cqOff.overflow)))
	ring.cqRing.cqeBuffer = (*CompletionQueueEvent)(unsafe.Pointer(cqStart + uintptr(ring.params.cqOff.cqes)))

	return nil
}

func (ring *Ring) unmapRings() {
	_ = syscall.Munmap(ring.sqRing.buffer)

	if ring.cqRing.buffer != nil && &ring.cqRing.buffer[0] != &ring.sqRing.buffer[0] {
		_ = syscall.Munmap(ring.cqRing.buffer)
	}
}

func (ring *Ring) Close() error {
	if ring.fd != 0 {
		return os.NewSyscallError("close", syscall.Close(ring.fd))
	}

	return nil
}

// QueueExit unmaps the rings and closes the ring file descriptor.
func (ring *Ring) QueueExit() error {
	ring.exited = true

	err := syscall.Munmap(ring.sqRing.sqeBuffer)
	if err != nil {
		return err
	}

	ring.unmapRings()

	return ring.Close()
}
