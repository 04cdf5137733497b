package rates

// Window counts events in fixed windows of game ticks.
type Window struct {
	Start uint32
	Count int
}

// Allow records one event at now. Once more than max events land in the same
// window of length ticks it refuses and reports the ticks until the window ends.
func (w *Window) Allow(now, length uint32, max int) (ok bool, cooldown uint32) {
	if length == 0 || max <= 0 {
		return true, 0
	}
	if now-w.Start >= length {
		w.Start = now
		w.Count = 0
	}
	w.Count++
	if w.Count <= max {
		return true, 0
	}
	return false, w.Start + length - now
}

// Expired reports whether the window no longer limits anything at now.
func (w *Window) Expired(now, length uint32) bool {
	return now-w.Start >= length
}
