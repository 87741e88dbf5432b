package domain

// Chat roles accepted by the agent endpoint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SuggestionConfirmPrefix starts the user message sent when a suggestion is
// applied. The quoted suggestion title follows it.
const SuggestionConfirmPrefix = "Okay, I will try to apply suggestion: "

// ChatMessage is the provider-agnostic chat message shape exchanged with the agent.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Suggestion is an actionable proposal attached to an assistant reply.
type Suggestion struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ValidRole reports whether role is one the agent accepts.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
