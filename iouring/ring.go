package iouring

// DefaultEntries is the default submission queue depth to pass to
// CreateRing, which itself always uses the depth it is given.
const DefaultEntries uint = 256

type submissionQueue struct {
	buffer    []byte
	sqeBuffer []byte
	ringSize  uint64

	head        *uint32
	tail        *uint32
	ringMask    *uint32
	ringEntries *uint32
	flags       *uint32
	dropped     *uint32
	array       *uint32

	sqeTail uint32
	sqeHead uint32
}

type completionQueue struct {
	buffer   []byte
	ringSize uint64

	head        *uint32
	tail        *uint32
	ringMask    *uint32
	ringEntries *uint32
	overflow    *uint32

	cqeBuffer *CompletionQueueEvent
}

// Ring is a single io_uring instance: the ring file descriptor plus the
// mmapped submission and completion queues. It is not safe for concurrent
// use; exactly one goroutine submits and reaps.
type Ring struct {
	sqRing   *submissionQueue
	cqRing   *completionQueue
	flags    uint32
	fd       int
	features uint32
	params   *params

	exited bool
}

func (ring *Ring) Fd() int {
	return ring.fd
}

func newRing() *Ring {
	return &Ring{
		params: &params{},
		sqRing: &submissionQueue{},
		cqRing: &completionQueue{},
	}
}

// CreateRing initializes a ring with the given submission queue depth.
func CreateRing(entries uint) (*Ring, error) {
	ring := newRing()

	err := ring.QueueInit(entries, 0)
	if err != nil {
		return nil, err
	}

	return ring, nil
}
