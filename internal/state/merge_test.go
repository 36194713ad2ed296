package state

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

// --- Helpers ---

func todosEqual(t *testing.T, got, want []Todo) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d todos, want %d (%v vs %v)", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("todo[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

// --- MergeTodos base cases ---

func TestMergeTodos_BothNil(t *testing.T) {
	got, err := MergeTodos(nil, nil)
	if err != nil {
		t.Fatalf("MergeTodos(nil, nil) error: %v", err)
	}
	if got == nil {
		t.Fatal("MergeTodos(nil, nil) returned nil, want empty list")
	}
	if len(got) != 0 {
		t.Errorf("MergeTodos(nil, nil) = %v, want empty", got)
	}
}

func TestMergeTodos_LeftNil(t *testing.T) {
	right := []Todo{{Content: "A", Status: StatusPending}}
	got, err := MergeTodos(nil, right)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	todosEqual(t, got, right)
}

func TestMergeTodos_RightNil(t *testing.T) {
	left := []Todo{{Content: "A", Status: StatusCompleted}}
	got, err := MergeTodos(left, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	todosEqual(t, got, left)
}

func TestMergeTodos_NilAbsorptionCopies(t *testing.T) {
	right := []Todo{{Content: "A", Status: StatusPending}}
	got, _ := MergeTodos(nil, right)
	got[0].Status = StatusCompleted
	if right[0].Status != StatusPending {
		t.Error("MergeTodos returned a list aliasing its input")
	}
}

// --- MergeTodos conflict resolution ---

func TestMergeTodos_HigherStatusWins(t *testing.T) {
	got, err := MergeTodos(
		[]Todo{{Content: "A", Status: StatusPending}},
		[]Todo{{Content: "A", Status: StatusCompleted}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	todosEqual(t, got, []Todo{{Content: "A", Status: StatusCompleted}})
}

func TestMergeTodos_StatusNeverRegresses(t *testing.T) {
	// "pending" arrives second but must not downgrade the completed todo.
	got, err := MergeTodos(
		[]Todo{{Content: "A", Status: StatusCompleted}},
		[]Todo{{Content: "A", Status: StatusPending}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	todosEqual(t, got, []Todo{{Content: "A", Status: StatusCompleted}})
}

func TestMergeTodos_EqualStatusIsNoOp(t *testing.T) {
	got, err := MergeTodos(
		[]Todo{{Content: "A", Status: StatusInProgress}},
		[]Todo{{Content: "A", Status: StatusInProgress}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	todosEqual(t, got, []Todo{{Content: "A", Status: StatusInProgress}})
}

func TestMergeTodos_NewTodosAppendAfterLeft(t *testing.T) {
	got, err := MergeTodos(
		[]Todo{{Content: "A", Status: StatusPending}},
		[]Todo{{Content: "B", Status: StatusPending}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	todosEqual(t, got, []Todo{
		{Content: "A", Status: StatusPending},
		{Content: "B", Status: StatusPending},
	})
}

func TestMergeTodos_ContentIsCaseSensitive(t *testing.T) {
	got, err := MergeTodos(
		[]Todo{{Content: "research go", Status: StatusCompleted}},
		[]Todo{{Content: "Research go", Status: StatusPending}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("case-differing contents merged: %v", got)
	}
}

func TestMergeTodos_EmptyContentIsValidIdentity(t *testing.T) {
	got, err := MergeTodos(
		[]Todo{{Content: "", Status: StatusPending}},
		[]Todo{{Content: "", Status: StatusInProgress}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	todosEqual(t, got, []Todo{{Content: "", Status: StatusInProgress}})
}

// --- Duplicate identities within one side ---

func TestMergeTodos_DuplicateInLeft_LastWriteWinsFirstPosition(t *testing.T) {
	got, err := MergeTodos(
		[]Todo{
			{Content: "A", Status: StatusCompleted},
			{Content: "B", Status: StatusPending},
			{Content: "A", Status: StatusPending}, // later write, no conflict resolution
		},
		nil,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Nil right absorbs: left is returned as given, duplicates included.
	if len(got) != 3 {
		t.Fatalf("nil absorption should not rewrite left, got %v", got)
	}

	// With a present (empty) right, the index applies.
	got, err = MergeTodos(
		[]Todo{
			{Content: "A", Status: StatusCompleted},
			{Content: "B", Status: StatusPending},
			{Content: "A", Status: StatusPending},
		},
		[]Todo{},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	todosEqual(t, got, []Todo{
		{Content: "A", Status: StatusPending}, // last occurrence's status, first occurrence's slot
		{Content: "B", Status: StatusPending},
	})
}

func TestMergeTodos_DuplicateInRight_ResolvedThroughStatusOrder(t *testing.T) {
	// Once the first right occurrence is indexed, the second goes through
	// the same max-status rule as a cross-branch conflict.
	got, err := MergeTodos(
		[]Todo{},
		[]Todo{
			{Content: "A", Status: StatusCompleted},
			{Content: "A", Status: StatusPending},
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	todosEqual(t, got, []Todo{{Content: "A", Status: StatusCompleted}})
}

// --- Spec'd list properties ---

func TestMergeTodos_Idempotence(t *testing.T) {
	x := []Todo{
		{Content: "A", Status: StatusPending},
		{Content: "B", Status: StatusInProgress},
		{Content: "C", Status: StatusCompleted},
	}
	got, err := MergeTodos(x, x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	todosEqual(t, got, x)
}

func TestMergeTodos_NoIdentityLossAndUniqueness(t *testing.T) {
	left := []Todo{
		{Content: "A", Status: StatusPending},
		{Content: "B", Status: StatusCompleted},
	}
	right := []Todo{
		{Content: "B", Status: StatusPending},
		{Content: "C", Status: StatusInProgress},
	}
	got, err := MergeTodos(left, right)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[string]bool{}
	for _, todo := range got {
		if seen[todo.Content] {
			t.Errorf("duplicate identity %q in output", todo.Content)
		}
		seen[todo.Content] = true
	}
	for _, want := range []string{"A", "B", "C"} {
		if !seen[want] {
			t.Errorf("identity %q lost in merge", want)
		}
	}
	if len(seen) != 3 {
		t.Errorf("output has %d identities, want 3", len(seen))
	}
}

func TestMergeTodos_InputsNotMutated(t *testing.T) {
	left := []Todo{{Content: "A", Status: StatusPending}}
	right := []Todo{{Content: "A", Status: StatusCompleted}}
	if _, err := MergeTodos(left, right); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if left[0].Status != StatusPending {
		t.Error("left input was mutated")
	}
	if right[0].Status != StatusCompleted {
		t.Error("right input was mutated")
	}
}

// TestMergeTodos_StatusResolutionIsAssociative checks that for any merge
// tree over a set of branch lists, each identity ends at the maximum
// status any branch ever assigned it, regardless of pairing order.
func TestMergeTodos_StatusResolutionIsAssociative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	statuses := []Status{StatusPending, StatusInProgress, StatusCompleted}

	for trial := 0; trial < 50; trial++ {
		// Generate branch lists over a small identity pool.
		branches := make([][]Todo, 2+rng.Intn(4))
		expected := map[string]int{}
		for i := range branches {
			n := rng.Intn(6)
			for j := 0; j < n; j++ {
				content := fmt.Sprintf("task-%d", rng.Intn(5))
				status := statuses[rng.Intn(len(statuses))]
				branches[i] = append(branches[i], Todo{Content: content, Status: status})
				if status.Priority() > expected[content] {
					expected[content] = status.Priority()
				}
			}
		}

		// Left fold.
		leftFold := []Todo{}
		for _, b := range branches {
			var err error
			leftFold, err = MergeTodos(leftFold, b)
			if err != nil {
				t.Fatalf("trial %d: left fold: %v", trial, err)
			}
		}

		// Right fold.
		rightFold := []Todo{}
		for i := len(branches) - 1; i >= 0; i-- {
			var err error
			rightFold, err = MergeTodos(branches[i], rightFold)
			if err != nil {
				t.Fatalf("trial %d: right fold: %v", trial, err)
			}
		}

		for _, fold := range [][]Todo{leftFold, rightFold} {
			got := map[string]int{}
			for _, todo := range fold {
				got[todo.Content] = todo.Status.Priority()
			}
			if len(got) != len(expected) {
				t.Fatalf("trial %d: identity set %v, want %v", trial, got, expected)
			}
			for content, want := range expected {
				if got[content] != want {
					t.Errorf("trial %d: %q resolved to priority %d, want %d",
						trial, content, got[content], want)
				}
			}
		}
	}
}

// --- Validation ---

func TestMergeTodos_RejectsUnknownStatus(t *testing.T) {
	_, err := MergeTodos(
		[]Todo{{Content: "A", Status: Status("done")}},
		[]Todo{{Content: "B", Status: StatusPending}},
	)
	if err == nil {
		t.Fatal("expected validation error for unknown status")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error %v is not a ValidationError", err)
	}
}

func TestMergeTodos_FailsFastBeforeMerging(t *testing.T) {
	// The invalid record sits on the right; validation must reject the
	// call before the left list is combined at all.
	_, err := MergeTodos(
		[]Todo{{Content: "A", Status: StatusPending}},
		[]Todo{
			{Content: "B", Status: StatusCompleted},
			{Content: "C", Status: Status("")},
		},
	)
	if err == nil {
		t.Fatal("expected validation error")
	}
}

// --- MergeFiles ---

func TestMergeFiles_BothNil(t *testing.T) {
	got := MergeFiles(nil, nil)
	if got == nil {
		t.Fatal("MergeFiles(nil, nil) returned nil, want empty map")
	}
	if len(got) != 0 {
		t.Errorf("MergeFiles(nil, nil) = %v, want empty", got)
	}
}

func TestMergeFiles_NilAbsorption(t *testing.T) {
	files := map[string]string{"a.txt": "1"}
	if got := MergeFiles(nil, files); len(got) != 1 || got["a.txt"] != "1" {
		t.Errorf("MergeFiles(nil, x) = %v, want %v", got, files)
	}
	if got := MergeFiles(files, nil); len(got) != 1 || got["a.txt"] != "1" {
		t.Errorf("MergeFiles(x, nil) = %v, want %v", got, files)
	}
}

func TestMergeFiles_RightBiasAndKeyUnion(t *testing.T) {
	got := MergeFiles(
		map[string]string{"a.txt": "1"},
		map[string]string{"a.txt": "2", "b.txt": "3"},
	)
	want := map[string]string{"a.txt": "2", "b.txt": "3"}
	if len(got) != len(want) {
		t.Fatalf("MergeFiles = %v, want %v", got, want)
	}
	for path, content := range want {
		if got[path] != content {
			t.Errorf("got[%q] = %q, want %q", path, got[path], content)
		}
	}
}

func TestMergeFiles_NoKeyLoss(t *testing.T) {
	got := MergeFiles(
		map[string]string{"left.txt": "l", "both.txt": "old"},
		map[string]string{"right.txt": "r", "both.txt": "new"},
	)
	for _, path := range []string{"left.txt", "right.txt", "both.txt"} {
		if _, ok := got[path]; !ok {
			t.Errorf("key %q lost in merge", path)
		}
	}
	if got["both.txt"] != "new" {
		t.Errorf("both.txt = %q, want right side's %q", got["both.txt"], "new")
	}
}

func TestMergeFiles_InputsNotMutated(t *testing.T) {
	left := map[string]string{"a.txt": "1"}
	right := map[string]string{"a.txt": "2"}
	got := MergeFiles(left, right)
	got["a.txt"] = "3"
	if left["a.txt"] != "1" || right["a.txt"] != "2" {
		t.Error("MergeFiles aliased an input map")
	}
}
