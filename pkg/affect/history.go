package affect

// HistoryCapacity is the number of readings retained for trend detection.
const HistoryCapacity = 20

// History is a fixed-capacity ring of recent readings, oldest evicted first.
// The zero value is an empty history.
type History struct {
	buf   [HistoryCapacity]Scores
	start int
	n     int
}

// Len returns the number of readings held.
func (h *History) Len() int {
	return h.n
}

// Push appends s, evicting the oldest reading when full.
func (h *History) Push(s Scores) {
	if h.n < HistoryCapacity {
		h.buf[(h.start+h.n)%HistoryCapacity] = s
		h.n++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % HistoryCapacity
}

// Tail returns up to k of the most recent readings, oldest first.
func (h *History) Tail(k int) []Scores {
	if k > h.n {
		k = h.n
	}
	if k <= 0 {
		return nil
	}
	out := make([]Scores, k)
	first := h.n - k
	for i := 0; i < k; i++ {
		out[i] = h.buf[(h.start+first+i)%HistoryCapacity]
	}
	return out
}

// Reset empties the history.
func (h *History) Reset() {
	*h = History{}
}
