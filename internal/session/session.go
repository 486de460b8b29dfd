package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// #region constructor

// New creates a session at wake time. preWake is a snapshot of the
// recent-history ring buffer; the slice is copied so later history
// churn cannot mutate the record.
func New(wakePhrase string, preWake []string, now time.Time) *Session {
	return &Session{
		ID:         uuid.New().String(),
		StartTime:  now,
		WakePhrase: wakePhrase,
		PreWake:    append([]string(nil), preWake...),
	}
}

// #endregion constructor

// #region appenders

// AppendUtterance records a post-wake utterance.
func (s *Session) AppendUtterance(text string) {
	s.PostWake = append(s.PostWake, text)
}

// AppendInference records one LLM round-trip and marks the session as
// having done inference (controls the sleep cue at close).
func (s *Session) AppendInference(rec InferenceRecord) {
	s.Inferences = append(s.Inferences, rec)
	s.DidInference = true
}

// AppendCommand records one attempted command execution.
func (s *Session) AppendCommand(rec CommandRecord) {
	s.CommandsExecuted = append(s.CommandsExecuted, rec)
}

// AppendSearchLog records the raw search results for one utterance.
func (s *Session) AppendSearchLog(entry SearchLogEntry) {
	s.SearchLog = append(s.SearchLog, entry)
}

// #endregion appenders

// #region finalize

// Finalize stamps the end time, derives the duration, and joins the
// post-wake utterances into the complete transcription. Called exactly
// once, by the engine, on the Active→Dormant transition.
func (s *Session) Finalize(now time.Time) {
	s.EndTime = now
	s.Duration = now.Sub(s.StartTime)
	if s.Duration < 0 {
		s.Duration = 0
	}
	s.CompleteTranscription = strings.Join(s.PostWake, " ")
}

// #endregion finalize
