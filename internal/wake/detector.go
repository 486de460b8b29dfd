package wake

import (
	"context"
	"log"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/twinlabs/twin-controller/internal/search"
)

// #region config

// Config holds the two thresholds the detector combines.
type Config struct {
	DistanceThreshold float64 // semantic: wake-collection results must be below this
	FuzzyThreshold    int     // fuzzy: token-set ratio must be at or above this
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		DistanceThreshold: 0.30,
		FuzzyThreshold:    60,
	}
}

// DefaultPhrases returns the built-in wake phrases.
func DefaultPhrases() []string {
	return []string{"Hey computer.", "Hey twin"}
}

// #endregion config

// #region detection

// FuzzyMatch records a wake phrase that cleared the fuzzy threshold.
type FuzzyMatch struct {
	Phrase string
	Score  int
}

// Detection is the outcome of scanning one utterance for a wake trigger.
type Detection struct {
	Woke     bool
	Window   string // the matching window text, used as the session's wake phrase
	Semantic []search.Result
	Fuzzy    []FuzzyMatch
}

// #endregion detection

// #region detector

// Detector decides whether a dormant-state utterance should wake the
// system. Wake requires BOTH a semantic match and a fuzzy match on the
// same sliding window; either signal alone is too noisy.
type Detector struct {
	phrases  []string
	searcher search.Searcher
	config   Config
}

// NewDetector creates a wake detector over the given phrases and store.
func NewDetector(phrases []string, searcher search.Searcher, config Config) *Detector {
	return &Detector{phrases: phrases, searcher: searcher, config: config}
}

// #endregion detector

// #region detect

// Detect scans the utterance with a sliding window of size min(words, 2)
// and fires on the first window where the semantic and fuzzy signals
// agree. It is a pure decision function; the caller owns the transition.
func (d *Detector) Detect(ctx context.Context, text string) Detection {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) == 0 {
		return Detection{}
	}

	windowSize := len(words)
	if windowSize > 2 {
		windowSize = 2
	}

	for i := 0; i+windowSize <= len(words); i++ {
		window := strings.Join(words[i:i+windowSize], " ")

		results, err := d.searcher.Search(ctx, window, search.CollectionWake)
		if err != nil {
			// Store errors degrade to "no match" for this window.
			log.Printf("[Wake] wake search failed: %v", err)
			results = nil
		}
		semantic := search.Relevant(results, d.config.DistanceThreshold)
		if len(semantic) == 0 {
			continue
		}

		var matches []FuzzyMatch
		for _, phrase := range d.phrases {
			score := fuzzy.TokenSetRatio(window, phrase)
			if score >= d.config.FuzzyThreshold {
				matches = append(matches, FuzzyMatch{Phrase: phrase, Score: score})
			}
		}
		if len(matches) == 0 {
			continue
		}

		return Detection{
			Woke:     true,
			Window:   window,
			Semantic: semantic,
			Fuzzy:    matches,
		}
	}

	return Detection{}
}

// #endregion detect
