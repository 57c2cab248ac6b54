package orchestrator

type FragmentKind string

const (
	// ProgressFragment announces work that is about to start.
	ProgressFragment FragmentKind = "progress"
	// ContentFragment carries intermediate output: tool summaries and assistant text sent along with tool calls.
	ContentFragment FragmentKind = "content"
	// AnswerFragment is the final assistant text of a turn.
	AnswerFragment FragmentKind = "answer"
)

const FinalizingMarker = "Finalizing response..."

// Fragment is one piece of output streamed during a turn.
type Fragment struct {
	Kind FragmentKind `json:"kind"`
	Text string       `json:"text"`
}

// ResetBanner is shown to the user after the conversation is reset.
const ResetBanner = "CONVERSATION RESET - You can ask me anything about finding jobs or optimizing your resume."
