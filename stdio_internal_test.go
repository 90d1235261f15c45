package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// Drives the line reader against a pipe instead of standard input; the
// splitting logic is shared with ReadLine.
func TestReadLinesSplitsSingleRead(t *testing.T) {
	loop, err := NewEventLoop(DefaultRingSize)
	require.NoError(t, err)

	stop := NewStopper()

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))

	lines := make(chan string, 4)

	err = loop.readLines(File(fds[0]), NewBuffer(64), func(ctx *EventContext, response ReadLineResponse) bool {
		lines <- response.Line

		return true
	}, nil)
	require.NoError(t, err)

	// Both lines arrive in one read; the handler must fire once per line.
	_, err = unix.Write(fds[1], []byte("abc\ndef\n"))
	require.NoError(t, err)
	require.NoError(t, unix.Close(fds[1]))

	done := make(chan error, 1)

	go func() {
		done <- loop.Run(stop)
	}()

	for _, want := range []string{"abc\n", "def\n"} {
		select {
		case line := <-lines:
			require.Equal(t, want, line)
		case <-time.After(2 * time.Second):
			require.FailNow(t, "line was not delivered")
		}
	}

	stop.Stop()
	require.NoError(t, <-done)
	require.NoError(t, loop.Close())
}

func TestReadLinesAccumulatesPartialLines(t *testing.T) {
	loop, err := NewEventLoop(DefaultRingSize)
	require.NoError(t, err)

	stop := NewStopper()

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))

	lines := make(chan string, 4)

	err = loop.readLines(File(fds[0]), NewBuffer(64), func(ctx *EventContext, response ReadLineResponse) bool {
		lines <- response.Line

		return true
	}, nil)
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() {
		done <- loop.Run(stop)
	}()

	_, err = unix.Write(fds[1], []byte("par"))
	require.NoError(t, err)

	select {
	case line := <-lines:
		require.FailNow(t, "line delivered before newline", "line: %q", line)
	case <-time.After(100 * time.Millisecond):
	}

	_, err = unix.Write(fds[1], []byte("tial\n"))
	require.NoError(t, err)

	select {
	case line := <-lines:
		require.Equal(t, "partial\n", line)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "line was not delivered")
	}

	require.NoError(t, unix.Close(fds[1]))
	stop.Stop()
	require.NoError(t, <-done)
	require.NoError(t, loop.Close())
}
