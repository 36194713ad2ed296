package ops

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/rejoin/internal/state"
)

const (
	// defaultReadLimit is the number of lines ReadFile returns when no
	// limit is given.
	defaultReadLimit = 2000
	// maxLineLength is the column at which ReadFile truncates long lines.
	maxLineLength = 2000
)

// --- read_file ---

// ReadFile reads a file from the virtual store with cat -n style line
// numbers. Offset is the zero-based first line to return; Limit caps the
// number of lines (defaultReadLimit when zero).
type ReadFile struct {
	Path   string
	Offset int
	Limit  int
}

func (ReadFile) Name() string { return OpReadFile }

func (o ReadFile) Apply(snap state.Snapshot) (state.Delta, string, error) {
	content, ok := snap.Files[o.Path]
	if !ok {
		return state.Delta{}, "", fmt.Errorf("file %q not found", o.Path)
	}
	if content == "" {
		return state.Delta{}, "", nil
	}

	limit := o.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	offset := o.Offset
	if offset < 0 {
		offset = 0
	}

	lines := strings.Split(content, "\n")
	if offset >= len(lines) {
		return state.Delta{}, "", fmt.Errorf(
			"offset %d is past the end of %q (%d lines)", offset, o.Path, len(lines))
	}
	end := offset + limit
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := offset; i < end; i++ {
		line := lines[i]
		if len(line) > maxLineLength {
			line = line[:maxLineLength] + "..."
		}
		if i > offset {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%6d\t%s", i+1, line)
	}
	return state.Delta{}, b.String(), nil
}

// --- edit_file ---

// EditFile replaces OldText with NewText in a file. OldText must occur in
// the file, and unless ReplaceAll is set it must occur exactly once —
// an ambiguous edit is an error, not a guess.
type EditFile struct {
	Path       string
	OldText    string
	NewText    string
	ReplaceAll bool
}

func (EditFile) Name() string { return OpEditFile }

func (o EditFile) Apply(snap state.Snapshot) (state.Delta, string, error) {
	content, ok := snap.Files[o.Path]
	if !ok {
		return state.Delta{}, "", fmt.Errorf("file %q not found", o.Path)
	}
	if o.OldText == "" {
		return state.Delta{}, "", fmt.Errorf("edit_file: old text is required")
	}

	count := strings.Count(content, o.OldText)
	if count == 0 {
		return state.Delta{}, "", fmt.Errorf("text not found in %q", o.Path)
	}

	var updated string
	var replaced int
	if o.ReplaceAll {
		updated = strings.ReplaceAll(content, o.OldText, o.NewText)
		replaced = count
	} else {
		if count > 1 {
			return state.Delta{}, "", fmt.Errorf(
				"text occurs %d times in %q; provide more context or set replace-all", count, o.Path)
		}
		updated = strings.Replace(content, o.OldText, o.NewText, 1)
		replaced = 1
	}

	return state.Delta{Files: map[string]string{o.Path: updated}},
		fmt.Sprintf("Replaced %d occurrence(s) in %s", replaced, o.Path), nil
}
