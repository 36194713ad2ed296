// Rejoin: concurrent agent state reconciliation.
//
// Rejoin keeps the shared state of a forked agent run — the todo list,
// the virtual file store, and the conversation log — and reconciles
// divergent branch updates at every join point. The binary inspects the
// persisted runs; the merge engine itself is a library.
//
// Usage:
//
//	rejoin runs              # List persisted runs
//	rejoin show <run-id>     # Print a run's latest reconciled snapshot
//	rejoin history <run-id>  # List a run's join points
//	rejoin version           # Print the version
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/HendryAvila/rejoin/internal/checkpoint"
	"github.com/HendryAvila/rejoin/internal/config"
	"github.com/HendryAvila/rejoin/internal/run"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "runs":
		if err := listRuns(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "show":
		if err := withRunID(showRun); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "history":
		if err := withRunID(showHistory); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("rejoin v%s\n", run.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// openStore loads the configuration (REJOIN_CONFIG overrides the path)
// and opens the checkpoint store.
func openStore() (*checkpoint.Store, error) {
	cfg, err := config.Load(os.Getenv("REJOIN_CONFIG"))
	if err != nil {
		return nil, err
	}
	return checkpoint.Open(checkpoint.Config{DataDir: cfg.DataDir})
}

func withRunID(fn func(store *checkpoint.Store, runID string) error) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("missing run ID (try 'rejoin runs')")
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store, os.Args[2])
}

func listRuns() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-20s  updated %s\n", r.ID, r.Name, r.UpdatedAt)
	}
	return nil
}

func showRun(store *checkpoint.Store, runID string) error {
	entry, err := store.LoadLatest(runID)
	if err != nil {
		return err
	}

	snap := entry.Snapshot
	fmt.Printf("Run %s — join %d (%s)\n\n", entry.RunID, entry.Seq, entry.CreatedAt)

	fmt.Printf("Todos (%d):\n", len(snap.Todos))
	for _, todo := range snap.Todos {
		fmt.Printf("  [%s] %s\n", todo.Status, todo.Content)
	}

	fmt.Printf("\nFiles (%d):\n", len(snap.Files))
	for _, path := range sortedKeys(snap.Files) {
		fmt.Printf("  %s (%d bytes)\n", path, len(snap.Files[path]))
	}

	fmt.Printf("\nMessages: %d\n", len(snap.Messages))
	return nil
}

func showHistory(store *checkpoint.Store, runID string) error {
	entries, err := store.History(runID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No snapshots recorded for this run.")
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("join %3d  %s  todos=%d files=%d messages=%d\n",
			entry.Seq, entry.CreatedAt,
			len(entry.Snapshot.Todos), len(entry.Snapshot.Files), len(entry.Snapshot.Messages))
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printUsage() {
	fmt.Println(`rejoin — concurrent agent state reconciliation

Usage:
  rejoin runs              List persisted runs
  rejoin show <run-id>     Print a run's latest reconciled snapshot
  rejoin history <run-id>  List a run's join points
  rejoin version           Print the version
  rejoin help              Show this help`)
}
