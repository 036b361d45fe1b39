package memory

import "github.com/blueberrycongee/memgate/pkg/types"

// History helpers are pure functions over a message slice. They never mutate
// their input; callers pass the result back to Store.Commit.

// UpsertSystemMessage removes any existing system-role message and inserts
// msg at position 0. At most one system message exists in a history and it is
// always the first element.
func UpsertSystemMessage(history []types.Message, msg types.Message) []types.Message {
	out := make([]types.Message, 0, len(history)+1)
	out = append(out, msg)
	for _, m := range history {
		if m.Role != types.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// AppendUserMessage appends a user-role message to the history.
func AppendUserMessage(history []types.Message, content string) []types.Message {
	return appendCopy(history, types.UserMessage(content))
}

// AppendAssistantMessage appends an assistant-role message to the history.
func AppendAssistantMessage(history []types.Message, content string) []types.Message {
	return appendCopy(history, types.AssistantMessage(content))
}

// Truncate bounds the history to maxMessages. System messages are kept in
// full; the oldest non-system messages are dropped first. The returned slice
// is ordered system-first followed by the retained non-system messages in
// their original relative order.
func Truncate(history []types.Message, maxMessages int) []types.Message {
	if maxMessages <= 0 || len(history) <= maxMessages {
		return history
	}

	var system, other []types.Message
	for _, m := range history {
		if m.Role == types.RoleSystem {
			system = append(system, m)
		} else {
			other = append(other, m)
		}
	}

	keep := maxMessages - len(system)
	if keep < 0 {
		keep = 0
	}
	if len(other) > keep {
		other = other[len(other)-keep:]
	}

	out := make([]types.Message, 0, len(system)+len(other))
	out = append(out, system...)
	out = append(out, other...)
	return out
}

func appendCopy(history []types.Message, msg types.Message) []types.Message {
	out := make([]types.Message, 0, len(history)+1)
	out = append(out, history...)
	return append(out, msg)
}
