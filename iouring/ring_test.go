package iouring_test

import (
	"syscall"
	"testing"
	"time"

	. "github.com/stretchr/testify/require"

	"github.com/svenslaggare/iouring-event-loop/iouring"
)

func queueNOPs(t *testing.T, ring *iouring.Ring, count int, base uint64) {
	t.Helper()

	for i := 0; i < count; i++ {
		entry, err := ring.GetSQE()
		NoError(t, err)

		entry.PrepareNop()
		entry.UserData = base + uint64(i)
	}
}

func TestCreateRing(t *testing.T) {
	ring, err := iouring.CreateRing(iouring.DefaultEntries)
	NoError(t, err)
	NotNil(t, ring)
	Greater(t, ring.Fd(), 0)

	NoError(t, ring.QueueExit())
}

func TestSubmitAndWaitNop(t *testing.T) {
	ring, err := iouring.CreateRing(16)
	NoError(t, err)

	defer ring.QueueExit()

	queueNOPs(t, ring, 1, 7)

	timespec := syscall.NsecToTimespec((100 * time.Millisecond).Nanoseconds())
	cqe, err := ring.SubmitAndWaitTimeout(1, &timespec)
	NoError(t, err)
	NotNil(t, cqe)
	Equal(t, uint64(7), cqe.UserData())
	Equal(t, int32(0), cqe.Res())

	ring.CQESeen(cqe)
	Nil(t, ring.PeekCQE())
}

func TestSubmitAndWaitTimeoutExpires(t *testing.T) {
	ring, err := iouring.CreateRing(16)
	NoError(t, err)

	defer ring.QueueExit()

	timespec := syscall.NsecToTimespec((10 * time.Millisecond).Nanoseconds())

	started := time.Now()
	_, err = ring.SubmitAndWaitTimeout(1, &timespec)
	ErrorIs(t, err, iouring.ErrTimerExpired)
	GreaterOrEqual(t, time.Since(started), 10*time.Millisecond)
}

func TestSubmitBatch(t *testing.T) {
	ring, err := iouring.CreateRing(16)
	NoError(t, err)

	defer ring.QueueExit()

	queueNOPs(t, ring, 4, 100)

	submitted, err := ring.Submit()
	NoError(t, err)
	Equal(t, uint(4), submitted)

	timespec := syscall.NsecToTimespec((100 * time.Millisecond).Nanoseconds())

	seen := make(map[uint64]bool)

	for i := 0; i < 4; i++ {
		cqe, err := ring.SubmitAndWaitTimeout(1, &timespec)
		NoError(t, err)
		seen[cqe.UserData()] = true
		ring.CQESeen(cqe)
	}

	Len(t, seen, 4)
}

func TestGetSQEOverflow(t *testing.T) {
	ring, err := iouring.CreateRing(2)
	NoError(t, err)

	defer ring.QueueExit()

	_, err = ring.GetSQE()
	NoError(t, err)
	_, err = ring.GetSQE()
	NoError(t, err)

	_, err = ring.GetSQE()
	ErrorIs(t, err, iouring.ErrSQOverflow)
}

func TestSQSpaceLeft(t *testing.T) {
	ring, err := iouring.CreateRing(8)
	NoError(t, err)

	defer ring.QueueExit()

	Equal(t, uint32(8), ring.SQSpaceLeft())

	_, err = ring.GetSQE()
	NoError(t, err)
	Equal(t, uint32(7), ring.SQSpaceLeft())
}

func TestTimeoutOperation(t *testing.T) {
	ring, err := iouring.CreateRing(8)
	NoError(t, err)

	defer ring.QueueExit()

	entry, err := ring.GetSQE()
	NoError(t, err)

	spec := syscall.NsecToTimespec((20 * time.Millisecond).Nanoseconds())
	entry.PrepareTimeout(&spec, 1, 0)
	entry.UserData = 11

	wait := syscall.NsecToTimespec(time.Second.Nanoseconds())

	started := time.Now()
	cqe, err := ring.SubmitAndWaitTimeout(1, &wait)
	NoError(t, err)
	Equal(t, uint64(11), cqe.UserData())
	Equal(t, -int32(syscall.ETIME), cqe.Res())
	GreaterOrEqual(t, time.Since(started), 20*time.Millisecond)

	ring.CQESeen(cqe)
}
