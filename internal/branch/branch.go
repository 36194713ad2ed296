// Package branch runs concurrent agent branches against private copies of
// the shared run state and reconciles their updates at the join point.
//
// The model is optimistic: branches never coordinate while running and
// never see each other's in-flight writes. All conflict handling is
// deferred to the fold over their deltas, which the Runner performs
// single-threaded once every branch has finished.
package branch

import (
	"context"

	"github.com/HendryAvila/rejoin/internal/state"
	"github.com/google/uuid"
)

// Func is the work a branch performs: given a private snapshot of the
// shared state, it returns the branch's candidate update. Returning the
// zero Delta contributes nothing. The context is cancelled when a sibling
// branch fails or the caller cancels the join.
type Func func(ctx context.Context, snap state.Snapshot) (state.Delta, error)

// Branch is one independently executing unit of work in a fork.
type Branch struct {
	ID   string
	Name string
	Run  Func
}

// New creates a branch with a generated ID.
func New(name string, run Func) Branch {
	return Branch{ID: uuid.NewString(), Name: name, Run: run}
}
