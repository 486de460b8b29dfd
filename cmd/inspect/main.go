package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/twinlabs/twin-controller/internal/session"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to twin.db")
	last := flag.Int("last", 20, "show N most recent sessions")
	sessionID := flag.String("session", "", "show single session detail")
	events := flag.Bool("events", false, "show the engine event log instead of sessions")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/twin.db [--last N] [--session id] [--events] [--json]")
		os.Exit(2)
	}

	store, err := session.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *events:
		err = runEventMode(store, *last, *jsonOut)
	case *sessionID != "":
		err = runDetailMode(store, *sessionID, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

func runListMode(store *session.Store, last int, jsonOut bool) error {
	sessions, err := store.ListSessions(last)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	if jsonOut {
		return printJSON(sessions)
	}

	fmt.Printf("%-10s  %-20s  %9s  %5s  %5s  %s\n",
		"Session", "Start", "Duration", "Inf", "Cmds", "Wake Phrase")
	fmt.Printf("%-10s  %-20s  %9s  %5s  %5s  %s\n",
		"----------", "--------------------", "---------", "-----", "-----", "--------------------")
	for _, s := range sessions {
		fmt.Printf("%-10s  %-20s  %9s  %5d  %5d  %s\n",
			shortID(s.ID),
			s.StartTime.Format("2006-01-02 15:04:05"),
			s.Duration.Truncate(1e8).String(),
			len(s.Inferences),
			len(s.CommandsExecuted),
			s.WakePhrase,
		)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(store *session.Store, id string, jsonOut bool) error {
	s, err := store.GetSession(id)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(s)
	}

	fmt.Printf("Session:     %s\n", s.ID)
	fmt.Printf("Start:       %s\n", s.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("End:         %s\n", s.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration:    %s\n", s.Duration)
	fmt.Printf("Wake phrase: %s\n", s.WakePhrase)
	fmt.Printf("Transcript:  %s\n", s.CompleteTranscription)

	if len(s.Inferences) > 0 {
		fmt.Println("\nInferences:")
		for _, inf := range s.Inferences {
			fmt.Printf("  [%s] risk=%.2f confirmed=%t\n", inf.At.Format("15:04:05"), inf.Risk, inf.Confirmed)
			fmt.Printf("    source:   %s\n", inf.SourceText)
			fmt.Printf("    response: %s\n", inf.Response)
			for _, cmd := range inf.Commands {
				fmt.Printf("    command:  %s\n", cmd)
			}
		}
	}

	if len(s.CommandsExecuted) > 0 {
		fmt.Println("\nCommands executed:")
		for _, cmd := range s.CommandsExecuted {
			status := "ok"
			if !cmd.Success {
				status = "FAILED: " + cmd.Error
			}
			fmt.Printf("  [%s] %s (%s)\n", cmd.At.Format("15:04:05"), cmd.Command, status)
		}
	}

	if len(s.SearchLog) > 0 {
		fmt.Printf("\nSearch log entries: %d\n", len(s.SearchLog))
	}
	return nil
}

// #endregion detail-mode

// #region event-mode

func runEventMode(store *session.Store, last int, jsonOut bool) error {
	events, err := store.ListEvents(last)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stderr, "no events found")
		return nil
	}

	if jsonOut {
		return printJSON(events)
	}

	fmt.Printf("%-20s  %-14s  %-10s  %s\n", "Time", "Type", "Session", "Detail")
	fmt.Printf("%-20s  %-14s  %-10s  %s\n",
		"--------------------", "--------------", "----------", "--------------------")
	for _, ev := range events {
		fmt.Printf("%-20s  %-14s  %-10s  %s\n",
			ev.CreatedAt.Format("2006-01-02 15:04:05"),
			ev.Type,
			shortID(ev.SessionID),
			ev.Detail,
		)
	}
	return nil
}

// #endregion event-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
