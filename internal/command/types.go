package command

import "time"

// #region config

// Config controls command execution policy.
type Config struct {
	// RiskThreshold is the highest model-reported risk executed
	// without explicit confirmation.
	RiskThreshold float64

	// CooldownPeriod suppresses repeats of an identical command.
	CooldownPeriod time.Duration

	// ExecTimeout bounds one command's runtime.
	ExecTimeout time.Duration

	// Execute must be set for commands to actually run; otherwise the
	// runner only reports what it would have done.
	Execute bool
}

// DefaultConfig returns the standard execution policy.
func DefaultConfig() Config {
	return Config{
		RiskThreshold: 0.5,
		ExecTimeout:   10 * time.Second,
	}
}

// #endregion config

// #region decision

// Decision is the risk gate's verdict over a whole command batch. The
// gate is batch-atomic: either every command may run or none do.
type Decision struct {
	Allowed bool
	Reason  string
}

// Result records one command attempt.
type Result struct {
	Command         string
	Output          string
	Error           string
	Success         bool
	SkippedCooldown bool
	At              time.Time
}

// #endregion decision
