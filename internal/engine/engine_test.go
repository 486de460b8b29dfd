package engine

import (
	"context"
	"testing"
	"time"

	"github.com/twinlabs/twin-controller/internal/command"
	"github.com/twinlabs/twin-controller/internal/inference"
	"github.com/twinlabs/twin-controller/internal/search"
	"github.com/twinlabs/twin-controller/internal/session"
	"github.com/twinlabs/twin-controller/internal/wake"
)

// #region fakes

type fakeDetector struct {
	wakeOn map[string]bool
}

func (f *fakeDetector) Detect(_ context.Context, text string) wake.Detection {
	if f.wakeOn[text] {
		return wake.Detection{Woke: true, Window: text}
	}
	return wake.Detection{}
}

type fakePipeline struct {
	outcome *inference.Outcome
	calls   []struct {
		text    string
		relaxed bool
	}
}

func (f *fakePipeline) Process(_ context.Context, text string, relaxed bool) (*inference.Outcome, error) {
	f.calls = append(f.calls, struct {
		text    string
		relaxed bool
	}{text, relaxed})
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &inference.Outcome{Skipped: true, Reason: "thresholds not met"}, nil
}

func (f *fakePipeline) Persona() string { return "assistant in the office" }

type fakeRunner struct {
	decision command.Decision
	results  []command.Result
	batches  [][]string
	sources  []string
}

func (f *fakeRunner) ExecuteBatch(_ context.Context, commands []string, _ float64, _ bool, _, source, _ string) (command.Decision, []command.Result) {
	f.batches = append(f.batches, commands)
	f.sources = append(f.sources, source)
	return f.decision, f.results
}

type fakeStore struct {
	saved  []*session.Session
	events []session.Event
}

func (f *fakeStore) SaveSession(s *session.Session) error { f.saved = append(f.saved, s); return nil }
func (f *fakeStore) LogEvent(ev session.Event) error      { f.events = append(f.events, ev); return nil }

func (f *fakeStore) eventTypes() []string {
	types := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		types = append(types, ev.Type)
	}
	return types
}

type fakePlayer struct {
	wakes   int
	sleeps  int
	ducked  int
	resumed int
	spoken  []string
}

func (f *fakePlayer) PlayWake(context.Context)  { f.wakes++ }
func (f *fakePlayer) PlaySleep(context.Context) { f.sleeps++ }
func (f *fakePlayer) Duck(context.Context)      { f.ducked++ }
func (f *fakePlayer) Unduck(context.Context)    { f.resumed++ }
func (f *fakePlayer) Speak(_ context.Context, text string) {
	f.spoken = append(f.spoken, text)
}

// #endregion fakes

// #region harness

type harness struct {
	engine   *Engine
	detector *fakeDetector
	pipeline *fakePipeline
	runner   *fakeRunner
	store    *fakeStore
	player   *fakePlayer
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		detector: &fakeDetector{wakeOn: map[string]bool{"hey computer": true}},
		pipeline: &fakePipeline{},
		runner:   &fakeRunner{decision: command.Decision{Allowed: true}},
		store:    &fakeStore{},
		player:   &fakePlayer{},
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	h.engine = New(DefaultConfig(), h.detector, h.pipeline, h.runner, h.store, h.player, nil)
	h.engine.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) advance(d time.Duration) { h.clock = h.clock.Add(d) }

// #endregion harness

func okOutcome(commands []string, risk float64) *inference.Outcome {
	return &inference.Outcome{
		GatePassed: true,
		Raw:        "{}",
		Response: &inference.Response{
			Commands: commands,
			Response: "done",
			Risk:     risk,
		},
		Searches: map[string][]search.Result{
			search.CollectionAmygdala: {{Snippet: "intent", Distance: 0.2}},
		},
	}
}

func TestDormantIgnoresNonWakeUtterances(t *testing.T) {
	h := newHarness(t)

	if err := h.engine.HandleUtterance(context.Background(), "what a nice day", ""); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	if h.engine.Mode() != Dormant {
		t.Fatal("must stay dormant without wake phrase")
	}
	if len(h.pipeline.calls) != 0 {
		t.Fatal("pipeline must not run while dormant")
	}
}

func TestWakeTransitionOpensSessionAndProcessesUtterance(t *testing.T) {
	h := newHarness(t)

	if err := h.engine.HandleUtterance(context.Background(), "hey computer", ""); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	if h.engine.Mode() != Active {
		t.Fatal("wake phrase must activate the engine")
	}
	if h.player.wakes != 1 {
		t.Fatal("wake cue not played")
	}
	if h.player.ducked != 1 {
		t.Fatal("media must duck on wake")
	}
	if len(h.pipeline.calls) != 1 {
		t.Fatal("the waking utterance must flow into the pipeline")
	}
	if h.pipeline.calls[0].relaxed {
		t.Fatal("voice utterances use the strict gate")
	}
	if got := h.store.eventTypes(); len(got) != 1 || got[0] != "wake" {
		t.Fatalf("events: %v", got)
	}
}

func TestTimeoutClosesSessionWithSleepCue(t *testing.T) {
	h := newHarness(t)

	if err := h.engine.HandleUtterance(context.Background(), "hey computer", ""); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}

	// Inside the window nothing happens.
	h.advance(20 * time.Second)
	h.engine.CheckTimeout(context.Background())
	if h.engine.Mode() != Active {
		t.Fatal("closed before the timeout lapsed")
	}

	h.advance(5 * time.Second)
	h.engine.CheckTimeout(context.Background())
	if h.engine.Mode() != Dormant {
		t.Fatal("must return to dormant after the timeout")
	}
	if len(h.store.saved) != 1 {
		t.Fatalf("session not persisted: %d", len(h.store.saved))
	}
	if h.player.sleeps != 1 {
		t.Fatal("sleep cue must play when no inference happened")
	}
	if h.player.resumed != 1 {
		t.Fatal("media must resume when the session closes")
	}
	sess := h.store.saved[0]
	if sess.EndTime.IsZero() || sess.CompleteTranscription == "" {
		t.Fatalf("session not finalized: %+v", sess)
	}
}

func TestNoSleepCueAfterInference(t *testing.T) {
	h := newHarness(t)
	h.pipeline.outcome = okOutcome(nil, 0.1)

	if err := h.engine.HandleUtterance(context.Background(), "hey computer", ""); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	h.advance(25 * time.Second)
	h.engine.CheckTimeout(context.Background())

	if h.engine.Mode() != Dormant {
		t.Fatal("must close after timeout")
	}
	if h.player.sleeps != 0 {
		t.Fatal("sleep cue must be suppressed when inference occurred")
	}
}

func TestGatePassExtendsWakeWindow(t *testing.T) {
	h := newHarness(t)
	h.pipeline.outcome = okOutcome(nil, 0.1)

	if err := h.engine.HandleUtterance(context.Background(), "hey computer", ""); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}

	// 20s in, another utterance reaches the model and resets the window.
	h.advance(20 * time.Second)
	if err := h.engine.HandleUtterance(context.Background(), "turn on the lights", ""); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}

	// 20s after the reset the session must still be open.
	h.advance(20 * time.Second)
	h.engine.CheckTimeout(context.Background())
	if h.engine.Mode() != Active {
		t.Fatal("window must be extended by model-reaching activity")
	}

	h.advance(5 * time.Second)
	h.engine.CheckTimeout(context.Background())
	if h.engine.Mode() != Dormant {
		t.Fatal("must eventually close")
	}
}

func TestSkippedGateDoesNotExtendWindow(t *testing.T) {
	h := newHarness(t)

	if err := h.engine.HandleUtterance(context.Background(), "hey computer", ""); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}

	// 20s in, an utterance the gate skips. The default pipeline fake
	// returns a skipped outcome, so the window must not reset.
	h.advance(20 * time.Second)
	if err := h.engine.HandleUtterance(context.Background(), "just thinking out loud", ""); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}

	h.advance(5 * time.Second)
	h.engine.CheckTimeout(context.Background())
	if h.engine.Mode() != Dormant {
		t.Fatal("skipped inference must not extend the wake window")
	}
}

func TestCommandsExecuteAndRecord(t *testing.T) {
	h := newHarness(t)
	h.pipeline.outcome = okOutcome([]string{"lights --power on --room office"}, 0.1)
	h.runner.results = []command.Result{{
		Command: "lights --power on --room office",
		Output:  "ok",
		Success: true,
	}}

	if err := h.engine.HandleUtterance(context.Background(), "hey computer", "mic-kitchen"); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}

	if len(h.runner.batches) != 1 || len(h.runner.batches[0]) != 1 {
		t.Fatalf("batches: %v", h.runner.batches)
	}
	if len(h.runner.sources) != 1 || h.runner.sources[0] != "mic-kitchen" {
		t.Fatalf("audio source not passed to the runner: %v", h.runner.sources)
	}
	h.advance(25 * time.Second)
	h.engine.CheckTimeout(context.Background())
	sess := h.store.saved[0]
	if len(sess.CommandsExecuted) != 1 || !sess.CommandsExecuted[0].Success {
		t.Fatalf("command record: %+v", sess.CommandsExecuted)
	}
	if len(sess.Inferences) != 1 {
		t.Fatalf("inference record: %+v", sess.Inferences)
	}
	if len(sess.SearchLog) != 1 {
		t.Fatalf("search log: %+v", sess.SearchLog)
	}
}

func TestGateRefusalLogsEvent(t *testing.T) {
	h := newHarness(t)
	h.pipeline.outcome = okOutcome([]string{"rm -rf /"}, 0.9)
	h.runner.decision = command.Decision{Allowed: false, Reason: "risk 0.90 exceeds threshold 0.50 without confirmation"}

	if err := h.engine.HandleUtterance(context.Background(), "hey computer", ""); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	types := h.store.eventTypes()
	found := false
	for _, tp := range types {
		if tp == "gate_refusal" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected gate_refusal event, got %v", types)
	}
}

func TestInjectForcesAwakeWithRelaxedGate(t *testing.T) {
	h := newHarness(t)
	h.pipeline.outcome = okOutcome(nil, 0.1)

	if err := h.engine.Inject(context.Background(), "turn on night mode"); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if h.engine.Mode() != Active {
		t.Fatal("inject must activate the engine")
	}
	if len(h.pipeline.calls) != 1 || !h.pipeline.calls[0].relaxed {
		t.Fatalf("inject must use the relaxed gate: %+v", h.pipeline.calls)
	}
	types := h.store.eventTypes()
	if len(types) < 2 || types[0] != "wake" || types[1] != "inject" {
		t.Fatalf("events: %v", types)
	}
}

func TestSpokenFeedbackOnlyWhenRequested(t *testing.T) {
	h := newHarness(t)
	h.pipeline.outcome = okOutcome(nil, 0.1)
	h.pipeline.outcome.Response.RequiresAudioFeedback = true

	if err := h.engine.HandleUtterance(context.Background(), "hey computer", ""); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	if len(h.player.spoken) != 1 || h.player.spoken[0] != "done" {
		t.Fatalf("spoken: %v", h.player.spoken)
	}
}

type blockingReporter struct {
	entered chan struct{}
	release chan struct{}
}

func (r *blockingReporter) Generate(context.Context, *session.Session) (string, error) {
	close(r.entered)
	<-r.release
	return "report.txt", nil
}

func TestSessionCloseDoesNotWaitForReport(t *testing.T) {
	h := newHarness(t)
	rep := &blockingReporter{entered: make(chan struct{}), release: make(chan struct{})}
	h.engine.reporter = rep

	if err := h.engine.HandleUtterance(context.Background(), "hey computer", ""); err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	h.advance(25 * time.Second)

	done := make(chan struct{})
	go func() {
		h.engine.CheckTimeout(context.Background())
		close(done)
	}()

	<-rep.entered
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("session close must not wait for the report")
	}
	close(rep.release)

	if h.engine.Mode() != Dormant {
		t.Fatal("session must be closed")
	}
}

func TestHistoryRingBoundsPromptContext(t *testing.T) {
	h := newHistory(4, 4000)
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		h.add(text)
	}
	if got := h.text(); got != "two three four five" {
		t.Fatalf("history text: %q", got)
	}

	tiny := newHistory(4, 10)
	tiny.add("aaaa bbbb cccc")
	if got := tiny.text(); got != "bbbb cccc" {
		t.Fatalf("trimmed history: %q", got)
	}
}
