package iouring

import (
	"errors"
	"fmt"
)

var (
	// ErrTimerExpired is returned by a timed completion wait when the
	// timeout elapsed before any completion arrived.
	ErrTimerExpired = errors.New("timer expired")
	// ErrInterruptedSyscall is returned when io_uring_enter was interrupted
	// by a signal.
	ErrInterruptedSyscall = errors.New("interrupted system call")
	// ErrAgain is returned when no completion is available yet.
	ErrAgain = errors.New("try again")
	// ErrNotSupported is returned when the kernel lacks a required feature.
	ErrNotSupported = errors.New("not supported")
	// ErrSQOverflow is returned by GetSQE when the submission queue is full.
	ErrSQOverflow = errors.New("submission queue overflow")
)

func errorSQOverflow(pending uint32) error {
	return fmt.Errorf("%w: %d entries pending", ErrSQOverflow, pending)
}
