package eventloop

// SubmitGuard batches ring submissions. Operations initiated with a guard
// only count themselves; the one ring submit happens in Flush, amortizing
// the syscall across a fan-out.
//
// Callers must arrange Flush on every path out of the scope that holds the
// guard, typically:
//
//	guard := loop.NewSubmitGuard()
//	defer guard.Flush()
type SubmitGuard struct {
	loop    *EventLoop
	pending int
}

func (l *EventLoop) NewSubmitGuard() *SubmitGuard {
	return &SubmitGuard{loop: l}
}

// Pending reports the number of prepared, not yet submitted entries.
func (g *SubmitGuard) Pending() int {
	return g.pending
}

// Flush submits the ring once if any operations were deferred. Flushing an
// empty guard does nothing; a guard can be reused after Flush.
func (g *SubmitGuard) Flush() {
	if g.pending > 0 {
		if _, err := g.loop.ring.Submit(); err != nil {
			g.loop.log.Error().Err(err).Int("pending", g.pending).Msg("Guard submit failed")
		}

		g.pending = 0
	}
}
