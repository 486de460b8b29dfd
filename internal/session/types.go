package session

import "time"

// #region records

// InferenceRecord captures one LLM round-trip during a session.
type InferenceRecord struct {
	SourceText  string    `json:"source_text"`
	RawResponse string    `json:"raw_response"`
	Commands    []string  `json:"commands"`
	Response    string    `json:"response"`
	Risk        float64   `json:"risk"`
	Confirmed   bool      `json:"confirmed"`
	At          time.Time `json:"at"`
}

// CommandRecord captures one attempted command execution.
type CommandRecord struct {
	Command string    `json:"command"`
	Output  string    `json:"output"`
	Error   string    `json:"error"`
	Success bool      `json:"success"`
	At      time.Time `json:"at"`
}

// SearchLogEntry is the raw per-utterance vector store audit trail.
type SearchLogEntry struct {
	Transcription string               `json:"transcription"`
	Collections   map[string][]Snippet `json:"collections"`
	At            time.Time            `json:"at"`
}

// Snippet is one search result retained for audit.
type Snippet struct {
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

// #endregion records

// #region session

// Session is the bounded record of one Active period, from wake to
// timeout. It is owned exclusively by the engine while open.
type Session struct {
	ID        string        `json:"session_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	WakePhrase string   `json:"wake_phrase"`
	PreWake    []string `json:"pre_wake_utterances"`
	PostWake   []string `json:"post_wake_utterances"`

	Inferences       []InferenceRecord `json:"inferences"`
	CommandsExecuted []CommandRecord   `json:"commands_executed"`
	SearchLog        []SearchLogEntry  `json:"search_log"`

	CompleteTranscription string `json:"complete_transcription"`
	DidInference          bool   `json:"did_inference"`
}

// #endregion session
