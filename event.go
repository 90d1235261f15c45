package eventloop

import (
	"syscall"
	"unsafe"

	"github.com/svenslaggare/iouring-event-loop/iouring"
)

// event is the per-operation state kept in the loop registry from
// submission until final completion: descriptors, owned buffers and paths,
// staging memory the kernel writes into, and the continuation.
type event interface {
	id() uint64
	name() string

	// prepare fills a submission entry. Every pointer handed to the kernel
	// must refer to memory owned by the event record; the kernel reads and
	// writes it after submit returns.
	prepare(entry *iouring.SubmissionQueueEntry)

	// handle processes a completion. Returning true means the event
	// re-armed itself and stays registered; false removes the record.
	handle(ctx *EventContext) bool

	// release drops any buffer references held by the record. Called when
	// the record is removed without another shot.
	release()
}

type baseEvent struct {
	eventID uint64
}

func (e *baseEvent) id() uint64 {
	return e.eventID
}

func (e *baseEvent) release() {
}

// dataPointer returns the window start for the kernel, or 0 for a null
// view or one whose offset is not inside the storage.
func (b Buffer) dataPointer() uintptr {
	if b.storage == nil || b.offset >= len(b.storage.data) {
		return 0
	}

	return uintptr(unsafe.Pointer(&b.storage.data[b.offset]))
}

// cPath copies path into a NUL-terminated byte array. The returned slice
// is stored on the event record so its backing memory stays stable between
// submission and completion.
func cPath(path string) ([]byte, error) {
	return syscall.ByteSliceFromString(path)
}
