package eventloop

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/svenslaggare/iouring-event-loop/iouring"
)

type OpenFileResponse struct {
	// File is the opened descriptor; invalid (negative) when the open
	// failed, with the error available through the context result.
	File File
}

type OpenFileCallback func(ctx *EventContext, response OpenFileResponse)

type openFileEvent struct {
	baseEvent
	// path is NUL-terminated and owned by the record; the kernel reads it
	// after submit.
	path     []byte
	flags    int
	mode     uint32
	callback OpenFileCallback
}

func (e *openFileEvent) name() string {
	return "OpenFile"
}

func (e *openFileEvent) prepare(entry *iouring.SubmissionQueueEntry) {
	entry.PrepareOpenat(unix.AT_FDCWD, &e.path[0], e.flags, e.mode)
}

func (e *openFileEvent) handle(ctx *EventContext) bool {
	if e.callback != nil {
		e.callback(ctx, OpenFileResponse{File: File(ctx.Result)})
	}

	return false
}

// OpenFile opens the path read-only.
func (l *EventLoop) OpenFile(path string, callback OpenFileCallback, guard *SubmitGuard) error {
	return l.OpenFileFlags(path, 0, 0, callback, guard)
}

// OpenFileFlags opens the path with explicit open(2) flags and mode.
func (l *EventLoop) OpenFileFlags(path string, flags int, mode uint32, callback OpenFileCallback, guard *SubmitGuard) error {
	pathBytes, err := cPath(path)
	if err != nil {
		return err
	}

	pending := &openFileEvent{
		baseEvent: baseEvent{eventID: l.nextID()},
		path:      pathBytes,
		flags:     flags,
		mode:      mode,
		callback:  callback,
	}

	return l.register(pending, guard)
}

type ReadFileResponse struct {
	File File
	// Data is the buffer window; the first Size bytes were read at Offset.
	Data   []byte
	Size   int
	Offset uint64
}

// ReadFileCallback returns true to read the next chunk. A response with
// Size 0 means end of file; the operation does not re-arm after it.
type ReadFileCallback func(ctx *EventContext, response ReadFileResponse) bool

type readFileEvent struct {
	baseEvent
	file     File
	offset   uint64
	buffer   Buffer
	callback ReadFileCallback
}

func (e *readFileEvent) name() string {
	return "ReadFile"
}

func (e *readFileEvent) prepare(entry *iouring.SubmissionQueueEntry) {
	entry.PrepareRead(int(e.file), e.buffer.dataPointer(), uint32(e.buffer.Size()), e.offset)
}

func (e *readFileEvent) handle(ctx *EventContext) bool {
	if e.callback == nil {
		return false
	}

	response := ReadFileResponse{File: e.file, Data: e.buffer.Data(), Size: ctx.ResultSize(), Offset: e.offset}
	if e.callback(ctx, response) && ctx.Result > 0 {
		e.offset += uint64(ctx.Result)
		e.buffer.Clear()

		return ctx.Loop.resubmit(e)
	}

	return false
}

func (e *readFileEvent) release() {
	e.buffer.Release()
}

// ReadFile reads from the file into the buffer starting at offset,
// advancing the offset and re-arming while the callback returns true and
// bytes keep coming. The buffer is zeroed between shots. The operation
// takes ownership of the passed buffer reference.
func (l *EventLoop) ReadFile(file File, buffer Buffer, offset uint64, callback ReadFileCallback, guard *SubmitGuard) error {
	pending := &readFileEvent{
		baseEvent: baseEvent{eventID: l.nextID()},
		file:      file,
		offset:    offset,
		buffer:    buffer,
		callback:  callback,
	}

	return l.register(pending, guard)
}

type WriteFileResponse struct {
	File File
	Size int
}

type WriteFileCallback func(ctx *EventContext, response WriteFileResponse)

type writeFileEvent struct {
	baseEvent
	file     File
	data     Buffer
	callback WriteFileCallback
}

func (e *writeFileEvent) name() string {
	return "WriteFile"
}

func (e *writeFileEvent) prepare(entry *iouring.SubmissionQueueEntry) {
	entry.PrepareWrite(int(e.file), e.data.dataPointer(), uint32(e.data.Size()), 0)
}

func (e *writeFileEvent) handle(ctx *EventContext) bool {
	if e.callback != nil {
		e.callback(ctx, WriteFileResponse{File: e.file, Size: ctx.ResultSize()})
	}

	return false
}

func (e *writeFileEvent) release() {
	e.data.Release()
}

// WriteFile writes the buffer's window to the file. The operation takes
// ownership of the passed buffer reference and releases it on completion.
func (l *EventLoop) WriteFile(file File, data Buffer, callback WriteFileCallback, guard *SubmitGuard) error {
	pending := &writeFileEvent{
		baseEvent: baseEvent{eventID: l.nextID()},
		file:      file,
		data:      data,
		callback:  callback,
	}

	return l.register(pending, guard)
}

type StatFileResponse struct {
	// Stats is the kernel stat record, or nil when the operation failed;
	// the failure is available through the context result.
	Stats *unix.Statx_t
}

type StatFileCallback func(ctx *EventContext, response StatFileResponse)

type statFileEvent struct {
	baseEvent
	path  []byte
	flags int
	mask  uint32
	// stats is written by the kernel; owned by the record.
	stats    unix.Statx_t
	callback StatFileCallback
}

func (e *statFileEvent) name() string {
	return "StatFile"
}

func (e *statFileEvent) prepare(entry *iouring.SubmissionQueueEntry) {
	entry.PrepareStatx(unix.AT_FDCWD, &e.path[0], e.flags, e.mask, uintptr(unsafe.Pointer(&e.stats)))
}

func (e *statFileEvent) handle(ctx *EventContext) bool {
	if e.callback == nil {
		return false
	}

	var response StatFileResponse
	if ctx.Result >= 0 {
		response.Stats = &e.stats
	}

	e.callback(ctx, response)

	return false
}

// StatFile reads the full stat record for a path.
func (l *EventLoop) StatFile(path string, callback StatFileCallback, guard *SubmitGuard) error {
	pathBytes, err := cPath(path)
	if err != nil {
		return err
	}

	pending := &statFileEvent{
		baseEvent: baseEvent{eventID: l.nextID()},
		path:      pathBytes,
		mask:      unix.STATX_BASIC_STATS,
		callback:  callback,
	}

	return l.register(pending, guard)
}
