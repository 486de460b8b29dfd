package engine

import (
	"context"
	"time"

	"github.com/twinlabs/twin-controller/internal/command"
	"github.com/twinlabs/twin-controller/internal/inference"
	"github.com/twinlabs/twin-controller/internal/session"
	"github.com/twinlabs/twin-controller/internal/wake"
)

// #region mode

// Mode is the engine's listening state.
type Mode int

const (
	// Dormant scans utterances for the wake phrase only.
	Dormant Mode = iota
	// Active runs the full retrieval and inference pipeline.
	Active
)

func (m Mode) String() string {
	if m == Active {
		return "active"
	}
	return "dormant"
}

// #endregion mode

// #region config

// Config holds the engine's timing and history limits.
type Config struct {
	// WakeTimeout is how long the engine stays Active after the last
	// accepted activity.
	WakeTimeout time.Duration

	// HistorySize is the number of recent utterances kept for prompt
	// context.
	HistorySize int

	// HistoryMaxChars bounds the joined history text sent to the
	// model.
	HistoryMaxChars int
}

// DefaultConfig returns the standard engine timing.
func DefaultConfig() Config {
	return Config{
		WakeTimeout:     24 * time.Second,
		HistorySize:     4,
		HistoryMaxChars: 4000,
	}
}

// #endregion config

// #region collaborators

// WakeDetector scans one utterance for the wake phrase.
type WakeDetector interface {
	Detect(ctx context.Context, text string) wake.Detection
}

// Pipeline runs gated retrieval and inference for one text.
type Pipeline interface {
	Process(ctx context.Context, text string, relaxedGate bool) (*inference.Outcome, error)
	Persona() string
}

// Runner gates and executes a command batch.
type Runner interface {
	ExecuteBatch(ctx context.Context, commands []string, risk float64, confirmed bool, transcript, source, persona string) (command.Decision, []command.Result)
}

// Store persists sessions and engine events.
type Store interface {
	SaveSession(sess *session.Session) error
	LogEvent(ev session.Event) error
}

// Reporter generates the post-session quality control report.
type Reporter interface {
	Generate(ctx context.Context, sess *session.Session) (string, error)
}

// #endregion collaborators
