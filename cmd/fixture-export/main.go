package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/twinlabs/twin-controller/internal/replay"
	"github.com/twinlabs/twin-controller/internal/session"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to twin.db")
	sessionID := flag.String("session", "", "session to export (most recent when empty)")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/twin.db --out path/to/scenario.json [--session id]")
		os.Exit(2)
	}

	if err := run(*dbPath, *sessionID, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath, sessionID, outPath string) error {
	store, err := session.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	var sess *session.Session
	if sessionID != "" {
		sess, err = store.GetSession(sessionID)
	} else {
		var recent []*session.Session
		recent, err = store.ListSessions(1)
		if err == nil && len(recent) == 0 {
			return fmt.Errorf("no sessions in %s", dbPath)
		}
		if err == nil {
			sess = recent[0]
		}
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	fixture := buildFixture(sess)
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Printf("Wrote fixture to %s (%d steps from session %s)\n", outPath, len(fixture.Steps), sess.ID)
	return nil
}

// buildFixture converts a recorded session into a replay scenario: one
// step per post-wake utterance, carrying the distances the store
// returned and the raw model reply when the utterance led to
// inference, then a clock advance past the wake timeout.
func buildFixture(sess *session.Session) replay.Fixture {
	f := replay.Fixture{
		Description: fmt.Sprintf("Exported session %s (%s)", sess.ID, sess.StartTime.Format("2006-01-02 15:04:05")),
	}

	for i, utterance := range sess.PostWake {
		step := replay.Step{Utterance: utterance}
		if i < len(sess.SearchLog) {
			step.Distances = minDistances(sess.SearchLog[i])
		}
		if i < len(sess.Inferences) {
			step.ModelReply = sess.Inferences[i].RawResponse
		}
		f.Steps = append(f.Steps, step)
		f.Expected = append(f.Expected, replay.Expectation{Step: i, Mode: "active"})
	}

	// Close the session the way the original run did.
	f.Steps = append(f.Steps, replay.Step{AdvanceSeconds: 25})
	f.Expected = append(f.Expected, replay.Expectation{Step: len(f.Steps) - 1, Mode: "dormant"})
	return f
}

// minDistances reduces a search log entry to the best distance per
// collection, which is what the scripted store replays.
func minDistances(entry session.SearchLogEntry) map[string]float64 {
	distances := make(map[string]float64)
	for collection, snippets := range entry.Collections {
		for _, s := range snippets {
			if d, ok := distances[collection]; !ok || s.Distance < d {
				distances[collection] = s.Distance
			}
		}
	}
	if len(distances) == 0 {
		return nil
	}
	return distances
}

// #endregion export
