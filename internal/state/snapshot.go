package state

import (
	"fmt"

	"github.com/HendryAvila/rejoin/internal/history"
)

// Snapshot is the shared state of a run at a synchronization point: the
// reconciled todo list, the virtual file store, and the conversation log.
// Snapshots are treated as immutable — branches receive a Clone and the
// reducers always build fresh values.
type Snapshot struct {
	Todos    []Todo            `json:"todos,omitempty"`
	Files    map[string]string `json:"files,omitempty"`
	Messages []history.Message `json:"messages,omitempty"`
}

// Delta is one branch's candidate update to the shared snapshot. A nil
// field means the branch never touched that part of the state; a non-nil
// empty value is a deliberate (if vacuous) update. A cancelled branch is
// represented by the zero Delta.
type Delta struct {
	Todos    []Todo            `json:"todos,omitempty"`
	Files    map[string]string `json:"files,omitempty"`
	Messages []history.Message `json:"messages,omitempty"`
}

// Clone returns a deep copy of the snapshot. Branches mutate their clone
// freely without observing each other's in-flight writes.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{}
	if s.Todos != nil {
		out.Todos = append([]Todo{}, s.Todos...)
	}
	if s.Files != nil {
		out.Files = make(map[string]string, len(s.Files))
		for path, content := range s.Files {
			out.Files[path] = content
		}
	}
	if s.Messages != nil {
		out.Messages = append([]history.Message{}, s.Messages...)
	}
	return out
}

// Apply folds branch deltas into the snapshot in the order given and
// returns the reconciled snapshot. Todos merge through MergeTodos, so the
// fold order only affects positions of new todos, never resolved statuses.
// Files merge through MergeFiles, which is right-biased — the convention
// is to fold branches in submission order, so the last-submitted branch
// wins file collisions. Messages are appended in fold order.
//
// Apply is pure: the receiver is not mutated, and a validation failure in
// any delta fails the whole fold with no partial result.
func (s Snapshot) Apply(deltas ...Delta) (Snapshot, error) {
	out := s.Clone()
	for i, d := range deltas {
		if d.Todos != nil {
			merged, err := MergeTodos(out.Todos, d.Todos)
			if err != nil {
				return Snapshot{}, fmt.Errorf("merging todos from update %d: %w", i, err)
			}
			out.Todos = merged
		}
		if d.Files != nil {
			out.Files = MergeFiles(out.Files, d.Files)
		}
		if d.Messages != nil {
			out.Messages = history.Append(out.Messages, d.Messages)
		}
	}
	return out, nil
}
