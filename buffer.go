package eventloop

import (
	loopErrors "github.com/svenslaggare/iouring-event-loop/pkg/errors"
)

// bufferStorage is the heap block jointly owned by every live view.
type bufferStorage struct {
	data     []byte
	useCount int
}

func (s *bufferStorage) clear() {
	for i := range s.data {
		s.data[i] = 0
	}
}

// Buffer is a reference-counted view (offset, length) into a shared byte
// storage. Views are created by NewBuffer/BufferFrom (fresh storage),
// Copy (shared storage) and Slice (shared storage, narrowed window).
//
// Go has no destructors, so dropping a reference is explicit: every view
// obtained from one of the constructors above must be given to exactly one
// Release, Move target or loop operation (operations release their copy
// when the operation record is removed). The storage is reclaimed when the
// last view goes.
type Buffer struct {
	storage *bufferStorage
	offset  int
	length  int
}

// NewBuffer allocates zeroed storage of the given size; the view covers
// the entire storage.
func NewBuffer(size int) Buffer {
	storage := &bufferStorage{data: make([]byte, size), useCount: 1}

	return Buffer{storage: storage, offset: 0, length: size}
}

// BufferFrom allocates storage initialized with a copy of data.
func BufferFrom(data []byte) Buffer {
	buffer := NewBuffer(len(data))
	copy(buffer.storage.data, data)

	return buffer
}

// BufferFromString allocates storage initialized with the bytes of s.
func BufferFromString(s string) Buffer {
	return BufferFrom([]byte(s))
}

// Copy creates a new view sharing the same storage.
func (b Buffer) Copy() Buffer {
	if b.storage != nil {
		b.storage.useCount++
	}

	return b
}

// Move transfers the reference out of b, leaving b a null view.
func (b *Buffer) Move() Buffer {
	moved := *b
	b.storage = nil
	b.offset = 0
	b.length = 0

	return moved
}

// Release drops this view's reference. When the last view goes, the
// storage is dropped with it. b becomes a null view.
func (b *Buffer) Release() {
	if b.storage == nil {
		return
	}

	b.storage.useCount--
	if b.storage.useCount == 0 {
		b.storage.data = nil
	}

	b.storage = nil
	b.offset = 0
	b.length = 0
}

// Slice creates a new view of the same storage with the given window. The
// window is validated against the storage, not the current view.
func (b Buffer) Slice(offset, length int) (Buffer, error) {
	if b.storage == nil {
		return Buffer{}, loopErrors.ErrorSliceOutOfRange(offset, length, 0)
	}

	size := len(b.storage.data)
	if offset >= size || offset+length > size {
		return Buffer{}, loopErrors.ErrorSliceOutOfRange(offset, length, size)
	}

	b.storage.useCount++

	return Buffer{storage: b.storage, offset: offset, length: length}, nil
}

// Clear zeroes the entire storage, not just this view's window. Sliced
// sub-views observe the change; this supports re-using one buffer across
// repeated reads.
func (b Buffer) Clear() {
	if b.storage != nil {
		b.storage.clear()
	}
}

func (b Buffer) Size() int {
	if b.storage == nil {
		return 0
	}

	return b.length
}

// Data returns the window as a byte slice, or nil for a null view.
func (b Buffer) Data() []byte {
	if b.storage == nil {
		return nil
	}

	return b.storage.data[b.offset : b.offset+b.length]
}

// UseCount reports the number of live views of the storage.
func (b Buffer) UseCount() int {
	if b.storage == nil {
		return 0
	}

	return b.storage.useCount
}
