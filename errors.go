package eventloop

import (
	"fmt"
	"syscall"
)

// Error is an operation failure derived from a negative kernel result. It
// carries the label of the failed operation and the positive errno value.
type Error struct {
	op   string
	code int
}

func newError(op string, result int32) *Error {
	return &Error{op: op, code: int(-result)}
}

func (e *Error) Op() string {
	return e.op
}

func (e *Error) Code() int {
	return e.code
}

func (e *Error) Error() string {
	return fmt.Sprintf("Operation '%s' failed due to: %s.", e.op, syscall.Errno(e.code).Error())
}

// CheckResult maps a signed kernel result to either the non-negative
// result or an *Error labelled with op.
func CheckResult(result int32, op string) (int32, error) {
	if result < 0 {
		return 0, newError(op, result)
	}

	return result, nil
}

// ResultError translates a signed kernel result into an error, or nil for
// a non-negative result. Used to surface failures inside an otherwise
// successful completion, e.g. the error field of a connect response.
func ResultError(result int32) error {
	if result >= 0 {
		return nil
	}

	return syscall.Errno(-result)
}
