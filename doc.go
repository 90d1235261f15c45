// Package eventloop is a single-goroutine io_uring reactor. Timers,
// socket accept/connect/send/receive, file open/read/write/stat, close
// and line-oriented standard input reads are submitted to the ring and
// delivered asynchronously to caller-supplied callbacks.
//
// Callbacks run on the loop goroutine and must not block; other
// goroutines interact with the loop only through Dispatch and the
// Stopper. Multi-shot operations (timers, accept, receive, file reads)
// re-arm themselves while their callback keeps returning true.
package eventloop
