package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/twinlabs/twin-controller/internal/command"
	"github.com/twinlabs/twin-controller/internal/engine"
	"github.com/twinlabs/twin-controller/internal/inference"
	"github.com/twinlabs/twin-controller/internal/search"
	"github.com/twinlabs/twin-controller/internal/session"
	"github.com/twinlabs/twin-controller/internal/wake"
)

// #region results

// StepResult records engine state after one step.
type StepResult struct {
	Step     int
	Input    string
	Mode     string
	Commands []string // commands executed during this step
	Err      string
}

// Summary is the full outcome of a replay run.
type Summary struct {
	Results  []StepResult
	Sessions []*session.Session
	Events   []session.Event
}

// Check compares the summary against the fixture's expectations and
// returns one message per mismatch.
func (s *Summary) Check(f *Fixture) []string {
	var mismatches []string
	for _, exp := range f.Expected {
		res := s.Results[exp.Step]
		if exp.Mode != "" && res.Mode != exp.Mode {
			mismatches = append(mismatches, fmt.Sprintf("step %d: mode %s, expected %s", exp.Step, res.Mode, exp.Mode))
		}
		if exp.Commands != nil {
			if len(exp.Commands) != len(res.Commands) {
				mismatches = append(mismatches, fmt.Sprintf("step %d: commands %v, expected %v", exp.Step, res.Commands, exp.Commands))
				continue
			}
			for i := range exp.Commands {
				if res.Commands[i] != exp.Commands[i] {
					mismatches = append(mismatches, fmt.Sprintf("step %d: command %d is %q, expected %q", exp.Step, i, res.Commands[i], exp.Commands[i]))
				}
			}
		}
	}
	return mismatches
}

// #endregion results

// #region scripted

// scripted plays the store, model, and executor roles, serving
// whatever the current step prescribes.
type scripted struct {
	step     *Step
	executed []string
}

func (s *scripted) Search(_ context.Context, _ string, collection string) ([]search.Result, error) {
	if s.step == nil || s.step.Distances == nil {
		return nil, nil
	}
	d, ok := s.step.Distances[collection]
	if !ok {
		return nil, nil
	}
	return []search.Result{{Snippet: collection + " snippet", Distance: d}}, nil
}

func (s *scripted) Infer(_ context.Context, _ string) (string, error) {
	if s.step == nil || s.step.ModelReply == "" {
		return "", fmt.Errorf("no scripted model reply for this step")
	}
	return s.step.ModelReply, nil
}

func (s *scripted) Run(_ context.Context, cmd string) (string, string, bool) {
	s.executed = append(s.executed, cmd)
	return "ok", "", true
}

// memoryStore collects persisted sessions and events in memory.
type memoryStore struct {
	sessions []*session.Session
	events   []session.Event
}

func (m *memoryStore) SaveSession(s *session.Session) error {
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memoryStore) LogEvent(ev session.Event) error {
	m.events = append(m.events, ev)
	return nil
}

// #endregion scripted

// #region run

// Run replays a fixture through a real engine wired to scripted
// collaborators and a manual clock. Wake detection, gating,
// normalization, and the risk gate all run for real; only I/O is
// scripted.
func Run(f *Fixture) (*Summary, error) {
	script := &scripted{}
	store := &memoryStore{}

	engineConfig := engine.DefaultConfig()
	if f.Config.WakeTimeoutSeconds > 0 {
		engineConfig.WakeTimeout = time.Duration(f.Config.WakeTimeoutSeconds * float64(time.Second))
	}

	execConfig := command.DefaultConfig()
	execConfig.Execute = true
	if f.Config.RiskThreshold > 0 {
		execConfig.RiskThreshold = f.Config.RiskThreshold
	}
	if f.Config.CooldownSeconds > 0 {
		execConfig.CooldownPeriod = time.Duration(f.Config.CooldownSeconds * float64(time.Second))
	}

	detector := wake.NewDetector(wake.DefaultPhrases(), script, wake.DefaultConfig())
	pipeline := inference.NewPipeline(script, script, nil, inference.NewPersonaLoader(""))
	runner := command.NewRunner(execConfig, script, nil)
	eng := engine.New(engineConfig, detector, pipeline, runner, store, nil, nil)

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	eng.SetClock(func() time.Time { return clock })

	ctx := context.Background()
	summary := &Summary{}

	for i := range f.Steps {
		step := &f.Steps[i]
		script.step = step
		executedBefore := len(script.executed)

		var err error
		var input string
		switch {
		case step.Utterance != "":
			input = step.Utterance
			err = eng.HandleUtterance(ctx, step.Utterance, step.Source)
		case step.Inject != "":
			input = step.Inject
			err = eng.Inject(ctx, step.Inject)
		default:
			input = fmt.Sprintf("advance %.1fs", step.AdvanceSeconds)
			clock = clock.Add(time.Duration(step.AdvanceSeconds * float64(time.Second)))
			eng.CheckTimeout(ctx)
		}

		res := StepResult{
			Step:     i,
			Input:    input,
			Mode:     eng.Mode().String(),
			Commands: append([]string(nil), script.executed[executedBefore:]...),
		}
		if err != nil {
			res.Err = err.Error()
		}
		summary.Results = append(summary.Results, res)
	}

	summary.Sessions = store.sessions
	summary.Events = store.events
	return summary, nil
}

// #endregion run
