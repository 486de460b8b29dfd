package inference

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/twinlabs/twin-controller/internal/llm"
	"github.com/twinlabs/twin-controller/internal/search"
)

// #region tool-runner

// ToolRunner executes a tool snippet and captures its output for
// prompt context.
type ToolRunner interface {
	Capture(ctx context.Context, command string) (string, error)
}

// #endregion tool-runner

// #region pipeline

// Pipeline runs the gated retrieval-then-inference flow for one
// utterance: fan out searches across the memory collections, decide
// whether the matches justify an LLM call, and normalize the reply.
type Pipeline struct {
	searcher   search.Searcher
	model      llm.Inferencer
	tools      ToolRunner
	persona    *PersonaLoader
	thresholds map[string]float64
}

// NewPipeline wires a pipeline from its collaborators. tools may be
// nil, in which case tool snippets are not executed.
func NewPipeline(searcher search.Searcher, model llm.Inferencer, tools ToolRunner, persona *PersonaLoader) *Pipeline {
	return &Pipeline{
		searcher:   searcher,
		model:      model,
		tools:      tools,
		persona:    persona,
		thresholds: search.DefaultThresholds(),
	}
}

// Persona returns the current persona text, used downstream for room
// slot fallback.
func (p *Pipeline) Persona() string {
	return p.persona.Load()
}

// #endregion pipeline

// #region process

var inferenceCollections = []string{
	search.CollectionAmygdala,
	search.CollectionAccumbens,
	search.CollectionHippocampus,
	search.CollectionConditions,
	search.CollectionModes,
	search.CollectionTools,
}

// Process runs the full flow for one utterance. relaxedGate is set for
// injected commands, which proceed if ANY collection matched; voice
// utterances require both an amygdala and an accumbens match. A search
// failure on one collection degrades to no matches for it.
func (p *Pipeline) Process(ctx context.Context, text string, relaxedGate bool) (*Outcome, error) {
	results := make(map[string][]search.Result, len(inferenceCollections))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, collection := range inferenceCollections {
		g.Go(func() error {
			found, err := p.searcher.Search(gctx, text, collection)
			if err != nil {
				log.Printf("[Search] %s search failed: %v", collection, err)
				found = nil
			}
			mu.Lock()
			results[collection] = found
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	relevant := make(map[string][]search.Result, len(results))
	for collection, found := range results {
		relevant[collection] = search.Relevant(found, p.thresholds[collection])
	}

	outcome := &Outcome{Searches: results}

	if gatePassed(relevant, relaxedGate) {
		outcome.GatePassed = true
	} else {
		outcome.Skipped = true
		outcome.Reason = fmt.Sprintf(
			"thresholds not met: amygdala=%t accumbens=%t",
			len(relevant[search.CollectionAmygdala]) > 0,
			len(relevant[search.CollectionAccumbens]) > 0,
		)
		return outcome, nil
	}

	candidates := snippets(relevant[search.CollectionAccumbens])
	candidates = append(candidates, snippets(relevant[search.CollectionConditions])...)
	candidates = append(candidates, snippets(relevant[search.CollectionModes])...)

	toolInfo := p.collectToolInfo(ctx, relevant[search.CollectionTools])

	prompt := BuildPrompt(p.persona.Load(), text, candidates, toolInfo)
	raw, err := p.model.Infer(ctx, prompt)
	if err != nil {
		outcome.Skipped = true
		outcome.Reason = "inference failed"
		return outcome, fmt.Errorf("infer: %w", err)
	}

	outcome.Raw = raw
	outcome.Response = Normalize(raw)
	return outcome, nil
}

// gatePassed applies the inference gate. The strict form requires both
// an intent match (amygdala) and a command match (accumbens).
func gatePassed(relevant map[string][]search.Result, relaxed bool) bool {
	if relaxed {
		return len(relevant[search.CollectionAmygdala]) > 0 ||
			len(relevant[search.CollectionAccumbens]) > 0 ||
			len(relevant[search.CollectionConditions]) > 0 ||
			len(relevant[search.CollectionModes]) > 0
	}
	return len(relevant[search.CollectionAmygdala]) > 0 &&
		len(relevant[search.CollectionAccumbens]) > 0
}

// collectToolInfo executes each relevant tool snippet and joins the
// captured output into prompt context.
func (p *Pipeline) collectToolInfo(ctx context.Context, tools []search.Result) string {
	if p.tools == nil || len(tools) == 0 {
		return ""
	}
	var lines []string
	for _, tool := range tools {
		out, err := p.tools.Capture(ctx, tool.Snippet)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s: (error: %v)", tool.Snippet, err))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", tool.Snippet, out))
	}
	return strings.Join(lines, "\n")
}

func snippets(results []search.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Snippet)
	}
	return out
}

// #endregion process
