package session

import (
	"path/filepath"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession(t *testing.T) *Session {
	t.Helper()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New("hey computer", []string{"pre"}, start)
	s.AppendUtterance("hey computer")
	s.AppendUtterance("turn on the lights")
	s.AppendInference(InferenceRecord{
		SourceText: "turn on the lights",
		Commands:   []string{"lights --power on --room kitchen"},
		Risk:       0.1,
		At:         start.Add(2 * time.Second),
	})
	s.AppendCommand(CommandRecord{
		Command: "lights --power on --room kitchen",
		Output:  "ok",
		Success: true,
		At:      start.Add(3 * time.Second),
	})
	s.Finalize(start.Add(30 * time.Second))
	return s
}

func TestSaveAndGetSession(t *testing.T) {
	store := tempStore(t)
	sess := sampleSession(t)

	if err := store.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := store.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.WakePhrase != "hey computer" {
		t.Fatalf("wake phrase mismatch: %q", got.WakePhrase)
	}
	if got.CompleteTranscription != sess.CompleteTranscription {
		t.Fatalf("transcript mismatch: %q", got.CompleteTranscription)
	}
	if len(got.CommandsExecuted) != 1 || !got.CommandsExecuted[0].Success {
		t.Fatalf("command records not round-tripped: %+v", got.CommandsExecuted)
	}
	if !got.DidInference {
		t.Fatal("did_inference flag lost")
	}
}

func TestListSessionsOrdersByRecency(t *testing.T) {
	store := tempStore(t)

	older := New("hey computer", nil, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	older.Finalize(older.StartTime.Add(time.Second))
	newer := New("hey twin", nil, time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC))
	newer.Finalize(newer.StartTime.Add(time.Second))

	for _, s := range []*Session{older, newer} {
		if err := store.SaveSession(s); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}

	got, err := store.ListSessions(10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	if got[0].ID != newer.ID {
		t.Fatal("expected newest session first")
	}
}

func TestEventLogRoundTrip(t *testing.T) {
	store := tempStore(t)

	if err := store.LogEvent(Event{SessionID: "s1", Type: "wake", Detail: "window: hey computer"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if err := store.LogEvent(Event{Type: "gate_refusal", Detail: "risk 0.90 > 0.50"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	events, err := store.ListEvents(10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "gate_refusal" {
		t.Fatalf("expected newest event first, got %q", events[0].Type)
	}
	if events[1].SessionID != "s1" {
		t.Fatalf("session id lost: %+v", events[1])
	}
}
