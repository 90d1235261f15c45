package eventloop

type ReadLineResponse struct {
	// Line is a full input line including the trailing newline.
	Line string
}

// ReadLineCallback returns true to keep reading lines.
type ReadLineCallback func(ctx *EventContext, response ReadLineResponse) bool

// ReadLine reads standard input through the buffer and invokes the
// callback once per complete line. Partial lines are accumulated across
// reads; a single read containing several newlines produces one callback
// per line, in order.
func (l *EventLoop) ReadLine(buffer Buffer, callback ReadLineCallback, guard *SubmitGuard) error {
	return l.readLines(Stdin, buffer, callback, guard)
}

func (l *EventLoop) readLines(file File, buffer Buffer, callback ReadLineCallback, guard *SubmitGuard) error {
	var line []byte

	return l.ReadFile(file, buffer, 0, func(ctx *EventContext, response ReadFileResponse) bool {
		if callback == nil {
			return false
		}

		for _, current := range response.Data[:response.Size] {
			line = append(line, current)

			if current == '\n' {
				if !callback(ctx, ReadLineResponse{Line: string(line)}) {
					return false
				}

				line = line[:0]
			}
		}

		return true
	}, guard)
}

// PrintFile copies text into a fresh buffer and writes it to the file. The
// buffer reference is handed to the operation; when the write completes the
// user callback runs, and the buffer is released as the record is removed
// right after it.
func (l *EventLoop) PrintFile(file File, text string, callback WriteFileCallback, guard *SubmitGuard) error {
	return l.WriteFile(file, BufferFromString(text), callback, guard)
}

// PrintStdout writes text to standard output.
func (l *EventLoop) PrintStdout(text string, callback WriteFileCallback, guard *SubmitGuard) error {
	return l.PrintFile(Stdout, text, callback, guard)
}

// PrintStderr writes text to standard error.
func (l *EventLoop) PrintStderr(text string, callback WriteFileCallback, guard *SubmitGuard) error {
	return l.PrintFile(Stderr, text, callback, guard)
}
