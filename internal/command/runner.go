package command

import (
	"context"
	"fmt"
	"log"
	"time"
)

// #region runner

// Runner applies the risk gate, cooldowns, and slot resolution before
// handing commands to the executor.
type Runner struct {
	config    Config
	executor  Executor
	cooldowns *CooldownRegistry
	resolver  RoomResolver
	now       func() time.Time
}

// NewRunner creates a runner. resolver may be nil; slot resolution
// then falls back to the office default.
func NewRunner(config Config, executor Executor, resolver RoomResolver) *Runner {
	return &Runner{
		config:    config,
		executor:  executor,
		cooldowns: NewCooldownRegistry(config.CooldownPeriod),
		resolver:  resolver,
		now:       time.Now,
	}
}

// #endregion runner

// #region gate

// Gate decides whether a command batch may execute. The decision
// covers the whole batch: a reply above the risk threshold without
// confirmation executes nothing.
func (r *Runner) Gate(risk float64, confirmed bool) Decision {
	if risk <= r.config.RiskThreshold || confirmed {
		return Decision{Allowed: true, Reason: fmt.Sprintf("risk %.2f within threshold %.2f", risk, r.config.RiskThreshold)}
	}
	return Decision{
		Allowed: false,
		Reason:  fmt.Sprintf("risk %.2f exceeds threshold %.2f without confirmation", risk, r.config.RiskThreshold),
	}
}

// #endregion gate

// #region execute

// ExecuteBatch gates and runs a command batch. transcript, source, and
// persona feed room slot resolution. Refused batches return the gate
// decision and no results; individual cooldown skips and failures do
// not stop the rest of the batch.
func (r *Runner) ExecuteBatch(ctx context.Context, commands []string, risk float64, confirmed bool, transcript, source, persona string) (Decision, []Result) {
	decision := r.Gate(risk, confirmed)
	if !decision.Allowed {
		log.Printf("[Command] batch refused: %s", decision.Reason)
		return decision, nil
	}
	if !r.config.Execute {
		log.Printf("[Command] execution disabled, would run %d command(s)", len(commands))
		return decision, nil
	}

	results := make([]Result, 0, len(commands))
	for _, raw := range commands {
		resolved := ResolveSlots(raw, transcript, source, persona, r.resolver)
		if resolved != raw {
			log.Printf("[Command] resolved slots: %q -> %q", raw, resolved)
		}

		if !r.cooldowns.Allow(resolved) {
			log.Printf("[Cooldown] skipped: %s", resolved)
			results = append(results, Result{
				Command:         resolved,
				SkippedCooldown: true,
				At:              r.now(),
			})
			continue
		}

		runCtx, cancel := context.WithTimeout(ctx, r.config.ExecTimeout)
		out, errText, ok := r.executor.Run(runCtx, resolved)
		cancel()

		if ok {
			log.Printf("[Executed] %s", resolved)
		} else {
			log.Printf("[Command] failed: %s: %s", resolved, errText)
		}
		results = append(results, Result{
			Command: resolved,
			Output:  out,
			Error:   errText,
			Success: ok,
			At:      r.now(),
		})
	}
	return decision, results
}

// #endregion execute
