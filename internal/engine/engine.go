package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/twinlabs/twin-controller/internal/cue"
	"github.com/twinlabs/twin-controller/internal/inference"
	"github.com/twinlabs/twin-controller/internal/session"
)

// #region engine

// Engine is the wake/session state machine. It owns the mode, the
// current session, and the history ring, and drives the retrieval,
// inference, and execution collaborators. It is single-threaded: the
// run loop is the only caller.
type Engine struct {
	config   Config
	detector WakeDetector
	pipeline Pipeline
	runner   Runner
	store    Store
	player   cue.Player
	reporter Reporter

	mode         Mode
	current      *session.Session
	lastActivity time.Time
	source       string
	history      *history

	now func() time.Time
}

// New wires an engine. reporter may be nil to disable QC reports.
func New(config Config, detector WakeDetector, pipeline Pipeline, runner Runner, store Store, player cue.Player, reporter Reporter) *Engine {
	if player == nil {
		player = cue.NopPlayer{}
	}
	return &Engine{
		config:   config,
		detector: detector,
		pipeline: pipeline,
		runner:   runner,
		store:    store,
		player:   player,
		reporter: reporter,
		history:  newHistory(config.HistorySize, config.HistoryMaxChars),
		now:      time.Now,
	}
}

// Mode returns the current listening state.
func (e *Engine) Mode() Mode {
	return e.mode
}

// SetClock replaces the time source, for replay and tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// #endregion engine

// #region handle-utterance

// HandleUtterance processes one transcribed utterance. Dormant mode
// scans it for the wake phrase; the waking utterance itself then flows
// into the pipeline, matching the behavior where "hey computer, turn
// on the lights" works as a single breath. source names the audio
// source the text came from and feeds room slot resolution.
func (e *Engine) HandleUtterance(ctx context.Context, text, source string) error {
	if text == "" {
		return nil
	}
	e.source = source

	preWake := e.history.snapshot()
	e.history.add(text)

	if e.mode == Dormant {
		det := e.detector.Detect(ctx, text)
		if !det.Woke {
			return nil
		}
		e.wakeUp(ctx, det.Window, preWake)
	}

	e.current.AppendUtterance(text)
	return e.runPipeline(ctx, false)
}

// wakeUp transitions Dormant to Active and opens a session.
func (e *Engine) wakeUp(ctx context.Context, wakePhrase string, preWake []string) {
	e.mode = Active
	e.lastActivity = e.now()
	e.current = session.New(wakePhrase, preWake, e.lastActivity)

	log.Printf("[Wake] awakened by %q, session %s", wakePhrase, e.current.ID)
	e.logEvent(session.Event{SessionID: e.current.ID, Type: "wake", Detail: wakePhrase})
	e.player.Duck(ctx)
	e.player.PlayWake(ctx)
}

// #endregion handle-utterance

// #region pipeline

// runPipeline sends the joined history through the inference pipeline
// and handles the reply: record keeping, command execution, spoken
// feedback.
func (e *Engine) runPipeline(ctx context.Context, relaxedGate bool) error {
	historyText := e.history.text()
	outcome, err := e.pipeline.Process(ctx, historyText, relaxedGate)
	if outcome != nil {
		e.appendSearchLog(historyText, outcome)
		if outcome.GatePassed {
			// Activity that reaches the model keeps the session open.
			e.lastActivity = e.now()
		}
	}
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if outcome.Skipped {
		log.Printf("[Engine] inference skipped: %s", outcome.Reason)
		return nil
	}

	resp := outcome.Response
	e.current.AppendInference(session.InferenceRecord{
		SourceText:  historyText,
		RawResponse: outcome.Raw,
		Commands:    resp.Commands,
		Response:    resp.Response,
		Risk:        resp.Risk,
		Confirmed:   resp.Confirmed,
		At:          e.now(),
	})

	persona := e.pipeline.Persona()
	decision, results := e.runner.ExecuteBatch(ctx, resp.Commands, resp.Risk, resp.Confirmed, historyText, e.source, persona)
	if !decision.Allowed {
		e.logEvent(session.Event{SessionID: e.current.ID, Type: "gate_refusal", Detail: decision.Reason})
	}
	for _, res := range results {
		if res.SkippedCooldown {
			continue
		}
		e.current.AppendCommand(session.CommandRecord{
			Command: res.Command,
			Output:  res.Output,
			Error:   res.Error,
			Success: res.Success,
			At:      res.At,
		})
	}

	if resp.RequiresAudioFeedback && resp.Response != "" {
		e.player.Speak(ctx, resp.Response)
	}
	return nil
}

// appendSearchLog copies the pipeline's raw search results into the
// session audit trail.
func (e *Engine) appendSearchLog(text string, outcome *inference.Outcome) {
	if e.current == nil || len(outcome.Searches) == 0 {
		return
	}
	collections := make(map[string][]session.Snippet, len(outcome.Searches))
	for name, results := range outcome.Searches {
		snippets := make([]session.Snippet, 0, len(results))
		for _, r := range results {
			snippets = append(snippets, session.Snippet{Text: r.Snippet, Distance: r.Distance})
		}
		collections[name] = snippets
	}
	e.current.AppendSearchLog(session.SearchLogEntry{
		Transcription: text,
		Collections:   collections,
		At:            e.now(),
	})
}

// #endregion pipeline

// #region inject

// Inject feeds an externally submitted command into the engine: it
// forces Active mode, opening a session if needed, and runs the
// pipeline with the relaxed gate so a single collection match is
// enough.
func (e *Engine) Inject(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	// Injected commands arrive over HTTP and carry no audio source.
	e.source = ""

	preWake := e.history.snapshot()
	e.history.add(text)

	if e.mode == Dormant {
		e.wakeUp(ctx, "injected", preWake)
	} else {
		e.lastActivity = e.now()
	}
	e.logEvent(session.Event{SessionID: e.current.ID, Type: "inject", Detail: text})
	e.current.AppendUtterance(text)

	return e.runPipeline(ctx, true)
}

// #endregion inject

// #region timeout

// CheckTimeout closes the session once the wake window has lapsed.
// Called every loop tick.
func (e *Engine) CheckTimeout(ctx context.Context) {
	if e.mode != Active {
		return
	}
	if e.now().Sub(e.lastActivity) <= e.config.WakeTimeout {
		return
	}
	e.closeSession(ctx)
}

// closeSession finalizes and persists the current session, plays the
// sleep cue when the session did no inference, and hands the session
// to the reporter in the background.
func (e *Engine) closeSession(ctx context.Context) {
	sess := e.current
	sess.Finalize(e.now())
	e.mode = Dormant
	e.current = nil

	log.Printf("[Wake] asleep after %s, session %s (%d inference(s), %d command(s))",
		e.config.WakeTimeout, sess.ID, len(sess.Inferences), len(sess.CommandsExecuted))
	e.logEvent(session.Event{SessionID: sess.ID, Type: "sleep", Detail: sess.Duration.String()})

	if !sess.DidInference {
		e.player.PlaySleep(ctx)
	}
	e.player.Unduck(ctx)

	if err := e.store.SaveSession(sess); err != nil {
		log.Printf("[Engine] save session %s: %v", sess.ID, err)
	}

	if e.reporter != nil {
		// The report costs a full model round trip; the loop must not
		// wait on it.
		go e.generateReport(sess)
	}
}

func (e *Engine) generateReport(sess *session.Session) {
	if _, err := e.reporter.Generate(context.Background(), sess); err != nil {
		log.Printf("[Report] session %s: %v", sess.ID, err)
		e.logEvent(session.Event{SessionID: sess.ID, Type: "report_error", Detail: err.Error()})
	}
}

// #endregion timeout

// #region events

func (e *Engine) logEvent(ev session.Event) {
	if e.store == nil {
		return
	}
	if err := e.store.LogEvent(ev); err != nil {
		log.Printf("[Engine] log event %s: %v", ev.Type, err)
	}
}

// #endregion events
