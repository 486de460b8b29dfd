package search

import "context"

// #region result
// Result is a single snippet returned by the vector store, with its
// distance to the query. Lower distance means more relevant.
type Result struct {
	Snippet  string
	Distance float64
}
// #endregion result

// #region searcher-interface

// Searcher abstracts the vector store client so gates can be tested
// without a real store.
type Searcher interface {
	Search(ctx context.Context, query, collection string) ([]Result, error)
}

// #endregion searcher-interface

// #region collections

// CollectionConfig names a semantic collection and its distance threshold.
// Results at or above the threshold are treated as non-matches.
type CollectionConfig struct {
	Name      string
	Threshold float64
}

// Well-known collection names. The anatomical nicknames are historical:
// amygdala holds intent/risk signal phrases, na (nucleus accumbens) holds
// candidate command snippets, hippocampus holds long-term memory snippets.
const (
	CollectionWake        = "wake"
	CollectionAmygdala    = "amygdala"
	CollectionAccumbens   = "na"
	CollectionHippocampus = "hippocampus"
	CollectionConditions  = "conditions"
	CollectionModes       = "modes"
	CollectionTools       = "tools"
)

// DefaultThresholds returns the per-collection distance thresholds.
func DefaultThresholds() map[string]float64 {
	return map[string]float64{
		CollectionWake:        0.30,
		CollectionAmygdala:    1.0,
		CollectionAccumbens:   1.4,
		CollectionHippocampus: 1.1,
		CollectionConditions:  1.0,
		CollectionModes:       1.0,
		CollectionTools:       1.4,
	}
}

// #endregion collections

// #region relevant
// Relevant filters results to those strictly below the distance threshold.
func Relevant(results []Result, threshold float64) []Result {
	var out []Result
	for _, r := range results {
		if r.Distance < threshold {
			out = append(out, r)
		}
	}
	return out
}
// #endregion relevant
