// Package history models the conversation log attached to a run's shared
// state. Unlike the todo and file reducers, the log needs no conflict
// resolution: branch contributions are simply appended in fold order.
//
// The package also provides Trim, which bounds the log between join points
// so long-running forks don't grow the shared snapshot without limit.
package history

// Message roles. The merge and trim logic only distinguishes system and
// user messages; everything else is carried through untouched.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in a run's conversation log.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Append merges a branch's log contribution into the base log. This is the
// append-only counterpart to the todo and file reducers: nothing is
// deduplicated, reordered, or dropped. A nil operand behaves as an empty
// log; the result is always a fresh non-nil slice.
func Append(base, update []Message) []Message {
	out := make([]Message, 0, len(base)+len(update))
	out = append(out, base...)
	out = append(out, update...)
	return out
}

// Trim bounds the log to roughly budget characters of content, keeping the
// most recent messages. Two rules are always honored:
//
//   - The leading block of system messages is kept unconditionally and does
//     not count against the budget.
//   - The kept window never opens on an assistant or tool message; it is
//     advanced to the next user message so the log resumes on a coherent
//     turn boundary.
//
// A budget <= 0 disables trimming. The input slice is never mutated.
func Trim(msgs []Message, budget int) []Message {
	if budget <= 0 {
		return Append(msgs, nil)
	}

	// Leading system messages are exempt.
	head := 0
	for head < len(msgs) && msgs[head].Role == RoleSystem {
		head++
	}
	system := msgs[:head]
	rest := msgs[head:]

	// Walk backwards until the budget is spent.
	start := len(rest)
	used := 0
	for start > 0 {
		c := len(rest[start-1].Content)
		if used+c > budget {
			break
		}
		used += c
		start--
	}

	// Open the window on a user turn.
	for start < len(rest) && rest[start].Role != RoleUser {
		start++
	}

	out := make([]Message, 0, len(system)+len(rest)-start)
	out = append(out, system...)
	out = append(out, rest[start:]...)
	return out
}
