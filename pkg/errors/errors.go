package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrRingExhausted occurs when the submission ring refuses a new entry.
	// Callers batching many operations under one guard may batch less
	// aggressively or submit in between.
	ErrRingExhausted = errors.New("submission ring exhausted")
	// ErrSliceOutOfRange occurs when a buffer slice window does not fit the
	// underlying storage.
	ErrSliceOutOfRange = errors.New("slice out of range")
	// ErrUnknownCompletion occurs when a completion carries a user data tag
	// that does not resolve to a registered operation.
	ErrUnknownCompletion = errors.New("completion does not match a registered operation")
	// ErrUnsupportedAddressFamily occurs when a peer address cannot be
	// decoded as IPv4 or Unix domain.
	ErrUnsupportedAddressFamily = errors.New("unsupported address family")
	// ErrNotIPv4Address occurs when a listener or connect address is not an
	// IPv4 address.
	ErrNotIPv4Address = errors.New("not an IPv4 address")
	// ErrPathTooLong occurs when a Unix socket path does not fit sun_path.
	ErrPathTooLong = errors.New("path too long")
)

func ErrorUnknownCompletion(userData uint64) error {
	return fmt.Errorf("%w, user data: %d", ErrUnknownCompletion, userData)
}

func ErrorSliceOutOfRange(offset, length, size int) error {
	return fmt.Errorf("%w, offset: %d, length: %d, storage size: %d", ErrSliceOutOfRange, offset, length, size)
}
