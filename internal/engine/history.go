package engine

import "strings"

// #region history

// history is the bounded ring of recent utterances feeding prompt
// context, retained across wake cycles.
type history struct {
	entries  []string
	size     int
	maxChars int
}

func newHistory(size, maxChars int) *history {
	return &history{size: size, maxChars: maxChars}
}

func (h *history) add(text string) {
	h.entries = append(h.entries, text)
	if len(h.entries) > h.size {
		h.entries = h.entries[len(h.entries)-h.size:]
	}
}

func (h *history) snapshot() []string {
	return append([]string(nil), h.entries...)
}

// text joins the ring into prompt context, trimmed from the front to
// the character budget on a word boundary.
func (h *history) text() string {
	joined := strings.Join(h.entries, " ")
	if len(joined) <= h.maxChars {
		return joined
	}
	joined = joined[len(joined)-h.maxChars:]
	if i := strings.Index(joined, " "); i >= 0 {
		joined = joined[i+1:]
	}
	return joined
}

// #endregion history
