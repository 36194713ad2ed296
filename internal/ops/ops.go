// Package ops provides the built-in operations a branch can apply to its
// private view of the run state: todo planning and the virtual file store.
//
// Every operation is a typed command: it reads a snapshot and produces a
// state.Delta plus a human-readable result, never touching shared state.
// The branch accumulates the deltas; reconciliation happens later at the
// join point. Dispatch goes through an explicit Registry passed into the
// branch context — there is no process-wide registration.
package ops

import (
	"fmt"
	"sort"

	"github.com/HendryAvila/rejoin/internal/state"
)

// Op is a single typed state operation.
type Op interface {
	// Name identifies the operation in a Registry.
	Name() string
	// Apply computes the operation against a snapshot. It returns the
	// delta to fold into the branch's pending update and a result string
	// for the caller. Apply is pure: no I/O, no mutation of the snapshot.
	Apply(snap state.Snapshot) (state.Delta, string, error)
}

// Operation names.
const (
	OpWriteTodos = "write_todos"
	OpWriteFile  = "write_file"
	OpReadFile   = "read_file"
	OpEditFile   = "edit_file"
	OpLs         = "ls"
)

// All returns the names of every built-in operation.
func All() []string {
	return []string{OpWriteTodos, OpWriteFile, OpReadFile, OpEditFile, OpLs}
}

// Registry is the set of operations enabled for a branch. It is an
// explicit configuration object: construct one per branch context and
// pass it in.
type Registry struct {
	enabled map[string]bool
}

// NewRegistry creates a registry with the given operations enabled.
// With no arguments, every built-in operation is enabled. Unknown names
// are rejected.
func NewRegistry(names ...string) (*Registry, error) {
	if len(names) == 0 {
		names = All()
	}
	known := map[string]bool{}
	for _, n := range All() {
		known[n] = true
	}
	enabled := make(map[string]bool, len(names))
	for _, n := range names {
		if !known[n] {
			return nil, fmt.Errorf("unknown operation %q", n)
		}
		enabled[n] = true
	}
	return &Registry{enabled: enabled}, nil
}

// Enabled reports whether the named operation may be applied.
func (r *Registry) Enabled(name string) bool {
	return r.enabled[name]
}

// Apply dispatches an operation if it is enabled in this registry.
func (r *Registry) Apply(snap state.Snapshot, op Op) (state.Delta, string, error) {
	if !r.enabled[op.Name()] {
		return state.Delta{}, "", fmt.Errorf("operation %q is not enabled", op.Name())
	}
	return op.Apply(snap)
}

// --- write_todos ---

// WriteTodos replaces the branch's view of the todo list. The replacement
// is local to the branch: statuses another branch advanced in the meantime
// are restored by the merge at the join point, so a stale pending entry
// here cannot downgrade completed work.
type WriteTodos struct {
	Todos []state.Todo
}

func (WriteTodos) Name() string { return OpWriteTodos }

func (o WriteTodos) Apply(state.Snapshot) (state.Delta, string, error) {
	for i, todo := range o.Todos {
		if err := todo.Validate(); err != nil {
			return state.Delta{}, "", fmt.Errorf("todo[%d] (%q): %w", i, todo.Content, err)
		}
	}
	todos := append([]state.Todo{}, o.Todos...)
	return state.Delta{Todos: todos},
		fmt.Sprintf("Updated todo list to %d items", len(todos)), nil
}

// --- write_file ---

// WriteFile creates or overwrites one file in the virtual store.
type WriteFile struct {
	Path    string
	Content string
}

func (WriteFile) Name() string { return OpWriteFile }

func (o WriteFile) Apply(state.Snapshot) (state.Delta, string, error) {
	if o.Path == "" {
		return state.Delta{}, "", fmt.Errorf("write_file: path is required")
	}
	return state.Delta{Files: map[string]string{o.Path: o.Content}},
		fmt.Sprintf("Updated file %s", o.Path), nil
}

// --- ls ---

// Ls lists the paths in the virtual file store, sorted.
type Ls struct{}

func (Ls) Name() string { return OpLs }

func (Ls) Apply(snap state.Snapshot) (state.Delta, string, error) {
	paths := make([]string, 0, len(snap.Files))
	for path := range snap.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	out := ""
	for i, path := range paths {
		if i > 0 {
			out += "\n"
		}
		out += path
	}
	return state.Delta{}, out, nil
}
