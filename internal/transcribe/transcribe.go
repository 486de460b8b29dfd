package transcribe

import (
	"context"
	"regexp"
	"strings"
	"time"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// #region source

// Utterance is one cleaned, deduplicated piece of transcribed speech.
type Utterance struct {
	Text   string
	Source string
	At     time.Time
}

// Source produces utterances for the run loop.
type Source interface {
	// Start begins producing utterances. The channel closes when the
	// context is cancelled or the source ends.
	Start(ctx context.Context) (<-chan Utterance, error)
}

// #endregion source

// #region clean

// annotationPattern matches the non-speech annotations transcription
// models emit: [music], (coughs), *laughs*, {noise}.
var annotationPattern = regexp.MustCompile(`\[.*?\]|\(.*?\)|\*.*?\*|\{.*?\}`)

// Clean strips transcription annotations and surrounding whitespace.
func Clean(text string) string {
	return strings.TrimSpace(annotationPattern.ReplaceAllString(text, ""))
}

// #endregion clean

// #region dedup

// defaultSimilarityThreshold marks two transcriptions as the same
// utterance heard twice.
const defaultSimilarityThreshold = 85

// recentCapacity bounds the dedup ring.
const recentCapacity = 10

// Deduper suppresses near-duplicate transcriptions of the same speech,
// which overlapping audio windows produce constantly.
type Deduper struct {
	recent    []string
	threshold int
}

// NewDeduper creates a deduper at the standard similarity threshold.
func NewDeduper() *Deduper {
	return &Deduper{threshold: defaultSimilarityThreshold}
}

// Admit reports whether the cleaned text is new enough to process, and
// records it if so. Empty text is never admitted.
func (d *Deduper) Admit(text string) bool {
	if text == "" {
		return false
	}
	for _, prev := range d.recent {
		if fuzzy.Ratio(text, prev) > d.threshold {
			return false
		}
	}
	d.recent = append(d.recent, text)
	if len(d.recent) > recentCapacity {
		d.recent = d.recent[len(d.recent)-recentCapacity:]
	}
	return true
}

// #endregion dedup
