// Package run wires all components and drives a forked agent run.
//
// This is the composition root (DIP): it creates the checkpoint store and
// the branch runner and injects them where needed. No merge logic lives
// here — only wiring and the per-run lifecycle.
package run

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/HendryAvila/rejoin/internal/branch"
	"github.com/HendryAvila/rejoin/internal/checkpoint"
	"github.com/HendryAvila/rejoin/internal/config"
	"github.com/HendryAvila/rejoin/internal/history"
	"github.com/HendryAvila/rejoin/internal/state"
	"github.com/rs/zerolog"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Coordinator owns one run's shared state: it forks branches, reconciles
// their updates at the join point, trims the conversation log, and
// persists the new snapshot when checkpointing is enabled.
type Coordinator struct {
	cfg    config.Config
	store  *checkpoint.Store // nil when checkpointing is disabled
	runner *branch.Runner
	log    zerolog.Logger

	mu    sync.Mutex
	runID string
	snap  state.Snapshot
}

// noop is the cleanup returned when there is nothing to clean up.
func noop() {}

// New creates a Coordinator from the given configuration.
//
// The returned cleanup function closes the checkpoint store's database
// connection and must be called on shutdown (typically via defer). It is
// always non-nil and safe to call even when checkpointing is disabled.
func New(cfg config.Config) (*Coordinator, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, noop, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, noop, fmt.Errorf("parsing log level: %w", err)
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	c := &Coordinator{
		cfg:    cfg,
		runner: branch.NewRunner(logger),
		log:    logger.With().Str("component", "coordinator").Logger(),
	}

	cleanup := noop
	if cfg.Checkpoint {
		store, err := checkpoint.Open(checkpoint.Config{DataDir: cfg.DataDir})
		if err != nil {
			return nil, noop, fmt.Errorf("opening checkpoint store: %w", err)
		}
		c.store = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing checkpoint store")
			}
		}
	}

	return c, cleanup, nil
}

// Start begins a new run with an empty snapshot and returns its ID.
func (c *Coordinator) Start(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		// No persistence: the run lives only in memory.
		c.runID = name
		c.snap = state.Snapshot{}
		return c.runID, nil
	}

	run, err := c.store.CreateRun(name)
	if err != nil {
		return "", fmt.Errorf("starting run: %w", err)
	}
	c.runID = run.ID
	c.snap = state.Snapshot{}

	c.log.Info().Str("run", run.ID).Str("name", name).Msg("run started")
	return run.ID, nil
}

// Fork runs the branches concurrently against the current snapshot,
// reconciles their updates, trims the conversation log to the configured
// budget, commits the result as the new shared state, and persists it.
func (c *Coordinator) Fork(ctx context.Context, branches ...branch.Branch) (state.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged, err := c.runner.Join(ctx, c.snap, branches...)
	if err != nil {
		return state.Snapshot{}, err
	}
	merged.Messages = history.Trim(merged.Messages, c.cfg.HistoryBudget)

	if c.store != nil && c.runID != "" {
		seq, err := c.store.SaveSnapshot(c.runID, merged)
		if err != nil {
			return state.Snapshot{}, fmt.Errorf("persisting snapshot: %w", err)
		}
		c.log.Debug().Str("run", c.runID).Int64("seq", seq).Msg("snapshot persisted")
	}

	c.snap = merged
	return merged.Clone(), nil
}

// State returns a copy of the current shared snapshot.
func (c *Coordinator) State() state.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Clone()
}

// History returns every persisted snapshot for the current run in
// sequence order. It is an error when checkpointing is disabled.
func (c *Coordinator) History() ([]checkpoint.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return nil, fmt.Errorf("checkpointing is disabled")
	}
	return c.store.History(c.runID)
}
