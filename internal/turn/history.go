package turn

import "sync"

// DefaultHistoryWindow bounds a session's retained exchanges when the caller
// does not configure one.
const DefaultHistoryWindow = 10

// Exchange is one completed query/response pair.
type Exchange struct {
	Query    string
	Response Result
}

// History is a session's bounded conversation log. Each session owns its own
// History; the registry hands it to the pipeline per request. Appends beyond
// the window evict the oldest exchange.
//
// History is safe for concurrent use by multiple goroutines.
type History struct {
	mu      sync.Mutex
	window  int
	entries []Exchange
}

// NewHistory creates a History retaining at most window exchanges.
// A non-positive window uses DefaultHistoryWindow.
func NewHistory(window int) *History {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &History{window: window}
}

// Append records one completed exchange, evicting the oldest entry when the
// window is full.
func (h *History) Append(query string, res Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, Exchange{Query: query, Response: res})
	if len(h.entries) > h.window {
		h.entries = h.entries[len(h.entries)-h.window:]
	}
}

// Last returns the most recent exchange, if any.
func (h *History) Last() (Exchange, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return Exchange{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Len reports the number of retained exchanges.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
