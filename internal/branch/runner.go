package branch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/HendryAvila/rejoin/internal/state"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Runner executes forks and folds the results back into one snapshot.
//
// Joins are serialized: the reducers assume single-threaded execution
// during their own invocation, so the Runner holds a lock for the whole
// fork/join cycle. Concurrency happens inside the fork, never across
// joins.
type Runner struct {
	mu  sync.Mutex
	log zerolog.Logger
}

// NewRunner creates a Runner logging through the given logger. The
// reducers themselves never log; only fork/join lifecycle events do.
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{log: log.With().Str("component", "runner").Logger()}
}

// Join runs the branches concurrently, each against its own clone of
// base, then folds their deltas into base in submission order and returns
// the reconciled snapshot.
//
// The fold order is the order branches were passed in, not the order they
// finish, so the result is deterministic: the last-submitted branch wins
// file collisions, while todo statuses resolve to the per-identity
// maximum regardless of order.
//
// A branch that fails aborts the join and its error is returned. A branch
// that returns a context.Canceled error is treated as cancelled and
// simply contributes nothing — unless the caller's own context is done,
// in which case the join fails with that error.
func (r *Runner) Join(ctx context.Context, base state.Snapshot, branches ...Branch) (state.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(branches) == 0 {
		return base.Clone(), nil
	}

	deltas := make([]state.Delta, len(branches))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range branches {
		i, b := i, b
		g.Go(func() error {
			d, err := b.Run(gctx, base.Clone())
			if err != nil {
				if errors.Is(err, context.Canceled) {
					// A cancelled branch never contributes an update.
					r.log.Debug().Str("branch", b.Name).Str("id", b.ID).
						Msg("branch cancelled, contributes nothing")
					return nil
				}
				return fmt.Errorf("branch %s (%s): %w", b.Name, b.ID, err)
			}
			deltas[i] = d
			return nil
		})
	}

	err := g.Wait()
	if cerr := ctx.Err(); cerr != nil {
		return state.Snapshot{}, cerr
	}
	if err != nil {
		return state.Snapshot{}, err
	}

	merged, err := base.Apply(deltas...)
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("reconciling branch updates: %w", err)
	}

	r.log.Info().
		Int("branches", len(branches)).
		Int("todos", len(merged.Todos)).
		Int("files", len(merged.Files)).
		Msg("join complete")

	return merged, nil
}
