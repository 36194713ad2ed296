package state

import "fmt"

// MergeTodos combines two todo lists that descend from a common baseline
// and were mutated independently by concurrent branches.
//
// A nil operand means the branch never touched the list and is absorbed:
// the other operand is returned (copied). Otherwise the merge builds an
// ordered index keyed by Content, seeded from left in its given order,
// then folds right in:
//
//   - an identity not yet indexed is appended (new work contributed by the
//     right branch takes the next position);
//   - an identity already indexed keeps whichever status ranks higher in
//     the total order, so a status advanced by either branch never
//     regresses; on equal rank the existing entry stands.
//
// Duplicate identities within a single input are not an error: the first
// occurrence wins the position. A duplicate on the left overwrites the
// seeded value outright (within one branch there is no conflict, just a
// later write); a duplicate on the right is resolved through the status
// order like any other indexed identity.
//
// The output preserves the union of identities with no duplicates, in
// first-seen order, left before right. The inputs are never mutated and
// the result is always a fresh non-nil slice. Any record with a status
// outside the enum fails the whole merge before any combining happens.
func MergeTodos(left, right []Todo) ([]Todo, error) {
	if err := validateTodos("left", left); err != nil {
		return nil, err
	}
	if err := validateTodos("right", right); err != nil {
		return nil, err
	}

	// A branch that never touched the list contributes nothing.
	if left == nil {
		return append([]Todo{}, right...), nil
	}
	if right == nil {
		return append([]Todo{}, left...), nil
	}

	index := make(map[string]int, len(left)+len(right))
	merged := make([]Todo, 0, len(left)+len(right))

	for _, todo := range left {
		if i, ok := index[todo.Content]; ok {
			// Same branch wrote the identity twice: later write wins.
			merged[i] = todo
			continue
		}
		index[todo.Content] = len(merged)
		merged = append(merged, todo)
	}

	for _, todo := range right {
		i, ok := index[todo.Content]
		if !ok {
			index[todo.Content] = len(merged)
			merged = append(merged, todo)
			continue
		}
		if todo.Status.Priority() > merged[i].Status.Priority() {
			merged[i] = todo
		}
	}

	return merged, nil
}

// MergeFiles combines two path→content maps with a right-biased override:
// the result holds the union of keys, and on a key present in both inputs
// the right value wins unconditionally. There is no ordering over file
// contents, so no status-style reconciliation applies. Nil operands are
// absorbed; the result is always a fresh non-nil map and the inputs are
// never mutated.
func MergeFiles(left, right map[string]string) map[string]string {
	out := make(map[string]string, len(left)+len(right))
	for path, content := range left {
		out[path] = content
	}
	for path, content := range right {
		out[path] = content
	}
	return out
}

func validateTodos(side string, todos []Todo) error {
	for i, todo := range todos {
		if err := todo.Validate(); err != nil {
			return fmt.Errorf("%s[%d] (%q): %w", side, i, todo.Content, err)
		}
	}
	return nil
}
