package analysis

// History is a fixed-capacity ring buffer over recent frame metrics, oldest
// first. Push evicts in O(1); the classifier looks back at most HistorySize
// frames for velocity estimation.
type History struct {
	buf   []FrameMetrics
	head  int
	count int
}

// HistorySize is the look-back window for velocity signals.
const HistorySize = 10

// NewHistory returns an empty history with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = HistorySize
	}
	return &History{buf: make([]FrameMetrics, capacity)}
}

// Push appends metrics, evicting the oldest entry when full.
func (h *History) Push(m FrameMetrics) {
	if h.count < len(h.buf) {
		h.buf[(h.head+h.count)%len(h.buf)] = m
		h.count++
		return
	}
	h.buf[h.head] = m
	h.head = (h.head + 1) % len(h.buf)
}

// Len returns the number of stored entries.
func (h *History) Len() int { return h.count }

// At returns the i-th entry, 0 being the oldest. Nil when out of range.
func (h *History) At(i int) FrameMetrics {
	if i < 0 || i >= h.count {
		return nil
	}
	return h.buf[(h.head+i)%len(h.buf)]
}

// Last returns the most recent entry, or nil when empty.
func (h *History) Last() FrameMetrics {
	return h.At(h.count - 1)
}

// Reset discards all entries.
func (h *History) Reset() {
	h.head = 0
	h.count = 0
}
