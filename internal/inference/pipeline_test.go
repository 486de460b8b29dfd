package inference

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/twinlabs/twin-controller/internal/search"
)

// #region fakes

type fakeSearcher struct {
	mu        sync.Mutex
	distances map[string]float64 // collection -> distance of the single result
	calls     []string
}

func (f *fakeSearcher) Search(_ context.Context, _ string, collection string) ([]search.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, collection)
	f.mu.Unlock()
	d, ok := f.distances[collection]
	if !ok {
		return nil, nil
	}
	return []search.Result{{Snippet: collection + "-snippet", Distance: d}}, nil
}

type fakeModel struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeModel) Infer(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeTools struct {
	output string
}

func (f *fakeTools) Capture(_ context.Context, _ string) (string, error) {
	return f.output, nil
}

// #endregion fakes

func newTestPipeline(s search.Searcher, m *fakeModel, tools ToolRunner) *Pipeline {
	return NewPipeline(s, m, tools, NewPersonaLoader("/nonexistent"))
}

func TestProcessGatesOnAmygdalaAndAccumbens(t *testing.T) {
	// Accumbens matches but amygdala does not: no inference.
	searcher := &fakeSearcher{distances: map[string]float64{
		search.CollectionAccumbens: 0.5,
		search.CollectionAmygdala:  2.0,
	}}
	model := &fakeModel{reply: `{"commands": [], "risk": 0}`}

	outcome, err := newTestPipeline(searcher, model, nil).Process(context.Background(), "turn on the lights", false)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !outcome.Skipped {
		t.Fatal("expected skip when amygdala has no relevant match")
	}
	if len(model.prompts) != 0 {
		t.Fatal("model must not be called when the gate fails")
	}
	if outcome.Searches == nil {
		t.Fatal("searches must be recorded even on skip")
	}
}

func TestProcessRunsInferenceWhenGatePasses(t *testing.T) {
	searcher := &fakeSearcher{distances: map[string]float64{
		search.CollectionAmygdala:   0.5,
		search.CollectionAccumbens:  0.5,
		search.CollectionConditions: 0.5,
	}}
	model := &fakeModel{reply: `{"commands": ["lights --power on --room office"], "response": "ok", "risk": 0.1}`}

	outcome, err := newTestPipeline(searcher, model, nil).Process(context.Background(), "turn on the lights", false)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.Skipped {
		t.Fatalf("unexpected skip: %s", outcome.Reason)
	}
	if outcome.Response == nil || len(outcome.Response.Commands) != 1 {
		t.Fatalf("response: %+v", outcome.Response)
	}
	if len(model.prompts) != 1 {
		t.Fatalf("expected 1 inference call, got %d", len(model.prompts))
	}
	// Candidate commands include the accumbens and conditions snippets.
	prompt := model.prompts[0]
	if !strings.Contains(prompt, "na-snippet") || !strings.Contains(prompt, "conditions-snippet") {
		t.Fatal("candidate snippets missing from prompt")
	}
	if !strings.Contains(prompt, "turn on the lights") {
		t.Fatal("source text missing from prompt")
	}
}

func TestProcessRelaxedGateForInjectedCommands(t *testing.T) {
	// Only a modes match: strict gate fails, relaxed gate passes.
	searcher := &fakeSearcher{distances: map[string]float64{
		search.CollectionModes: 0.5,
	}}
	model := &fakeModel{reply: `{"commands": [], "response": "mode set", "risk": 0}`}
	p := newTestPipeline(searcher, model, nil)

	strict, err := p.Process(context.Background(), "night mode", false)
	if err != nil {
		t.Fatalf("Process strict: %v", err)
	}
	if !strict.Skipped {
		t.Fatal("strict gate must skip on modes-only match")
	}

	relaxed, err := p.Process(context.Background(), "night mode", true)
	if err != nil {
		t.Fatalf("Process relaxed: %v", err)
	}
	if relaxed.Skipped {
		t.Fatal("relaxed gate must pass on modes-only match")
	}
}

func TestProcessIncludesToolOutput(t *testing.T) {
	searcher := &fakeSearcher{distances: map[string]float64{
		search.CollectionAmygdala:  0.5,
		search.CollectionAccumbens: 0.5,
		search.CollectionTools:     0.5,
	}}
	model := &fakeModel{reply: `{"commands": [], "risk": 0}`}
	tools := &fakeTools{output: "3 lights on"}

	_, err := newTestPipeline(searcher, model, tools).Process(context.Background(), "status", false)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(model.prompts[0], "tools-snippet: 3 lights on") {
		t.Fatal("tool output missing from prompt")
	}
}

func TestProcessSurfacesInferenceError(t *testing.T) {
	searcher := &fakeSearcher{distances: map[string]float64{
		search.CollectionAmygdala:  0.5,
		search.CollectionAccumbens: 0.5,
	}}
	model := &fakeModel{err: errors.New("model unreachable")}

	outcome, err := newTestPipeline(searcher, model, nil).Process(context.Background(), "turn on the lights", false)
	if err == nil {
		t.Fatal("expected error from failed inference")
	}
	if outcome == nil || !outcome.Skipped {
		t.Fatal("outcome must mark the skip on inference failure")
	}
}

type erroringSearcher struct{ inner *fakeSearcher }

func (e *erroringSearcher) Search(ctx context.Context, q, collection string) ([]search.Result, error) {
	if collection == search.CollectionHippocampus {
		return nil, errors.New("store down")
	}
	return e.inner.Search(ctx, q, collection)
}

func TestProcessDegradesOnSearchError(t *testing.T) {
	searcher := &erroringSearcher{inner: &fakeSearcher{distances: map[string]float64{
		search.CollectionAmygdala:  0.5,
		search.CollectionAccumbens: 0.5,
	}}}
	model := &fakeModel{reply: `{"commands": [], "risk": 0}`}

	outcome, err := newTestPipeline(searcher, model, nil).Process(context.Background(), "turn on the lights", false)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.Skipped {
		t.Fatal("a single collection failure must not block inference")
	}
}
