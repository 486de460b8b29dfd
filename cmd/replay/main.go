package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/twinlabs/twin-controller/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to scenario fixture JSON")
	verbose := flag.Bool("verbose", false, "print per-step detail")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/scenario.json [--verbose]")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(2)
	}

	summary, err := replay.Run(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(2)
	}

	if f.Description != "" {
		fmt.Printf("Scenario: %s\n\n", f.Description)
	}

	fmt.Printf("%-5s| %-40s| %-8s| %s\n", "Step", "Input", "Mode", "Commands")
	fmt.Printf("%-5s+%-41s+%-9s+%s\n", "-----", "-----------------------------------------", "---------", "--------")
	for _, res := range summary.Results {
		fmt.Printf("%-5d| %-40s| %-8s| %d\n", res.Step, truncate(res.Input, 40), res.Mode, len(res.Commands))
		if *verbose {
			for _, cmd := range res.Commands {
				fmt.Printf("      executed: %s\n", cmd)
			}
			if res.Err != "" {
				fmt.Printf("      error: %s\n", res.Err)
			}
		}
	}

	fmt.Printf("\nSessions closed: %d, events: %d\n", len(summary.Sessions), len(summary.Events))

	mismatches := summary.Check(f)
	if len(mismatches) > 0 {
		fmt.Println("\nMismatches:")
		for _, m := range mismatches {
			fmt.Printf("  %s\n", m)
		}
		os.Exit(1)
	}
	fmt.Println("\nAll expectations met.")
}

// #endregion main

// #region helpers

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// #endregion helpers
