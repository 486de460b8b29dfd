package inference

import "github.com/twinlabs/twin-controller/internal/search"

// #region response

// Response is the canonical shape of one model reply after
// normalization. Every field is always present; Normalize fills
// defaults for anything the model omitted.
type Response struct {
	Commands              []string `json:"commands"`
	Response              string   `json:"response"`
	Risk                  float64  `json:"risk"`
	Confirmed             bool     `json:"confirmed"`
	Confidence            float64  `json:"confidence"`
	IntentReasoning       string   `json:"intent_reasoning"`
	RequiresAudioFeedback bool     `json:"requires_audio_feedback"`
}

// #endregion response

// #region outcome

// Outcome reports what the pipeline did with one utterance: either it
// skipped inference (with a reason) or it carries the normalized model
// response plus the raw text for the audit trail.
type Outcome struct {
	Skipped    bool
	GatePassed bool
	Reason     string
	Response   *Response
	Raw        string

	// Searches holds the unfiltered per-collection results so the
	// engine can append them to the session search log.
	Searches map[string][]search.Result
}

// #endregion outcome
