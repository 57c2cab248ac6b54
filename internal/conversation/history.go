package conversation

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnexpectedToolMessage = errors.New("tool message does not answer an open tool call")
	ErrDanglingToolCalls     = errors.New("previous tool calls are not answered yet")
	ErrSystemMessage         = errors.New("system message can only start the history")
)

// History is the ordered message log of one chat session. It always starts with
// the system instruction and refuses appends that would break tool call closure:
// tool messages must answer an open call of the latest assistant message, and no
// other message may follow until every open call is answered.
type History struct {
	systemPrompt string
	messages     []Message
	pending      []string
}

func NewHistory(systemPrompt string) *History {
	h := &History{systemPrompt: systemPrompt}
	h.Reset()
	return h
}

// Reset replaces the history with a single system message.
func (h *History) Reset() {
	h.messages = []Message{SystemMessage(h.systemPrompt)}
	h.pending = nil
}

func (h *History) Append(msg Message) error {
	switch msg.Role {
	case RoleSystem:
		return ErrSystemMessage
	case RoleTool:
		idx := slices.Index(h.pending, msg.ToolCallID)
		if idx == -1 {
			return fmt.Errorf("%w: %q", ErrUnexpectedToolMessage, msg.ToolCallID)
		}
		h.pending = slices.Delete(h.pending, idx, idx+1)
	default:
		if len(h.pending) > 0 {
			return fmt.Errorf("%w: %v", ErrDanglingToolCalls, h.pending)
		}
		if msg.Role == RoleAssistant {
			for _, call := range msg.ToolCalls {
				h.pending = append(h.pending, call.ID)
			}
		}
	}

	h.messages = append(h.messages, msg)
	return nil
}

// Messages returns a copy of the history.
func (h *History) Messages() []Message {
	return slices.Clone(h.messages)
}

func (h *History) Len() int {
	return len(h.messages)
}

// Last returns the most recent message.
func (h *History) Last() Message {
	return h.messages[len(h.messages)-1]
}

// PendingCalls returns the IDs of tool calls that are not answered yet.
func (h *History) PendingCalls() []string {
	return slices.Clone(h.pending)
}
