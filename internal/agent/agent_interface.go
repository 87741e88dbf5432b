package agent

import (
	"context"

	"github.com/ashureev/fabric-console/internal/domain"
)

// Responder answers a conversation. The last message is the current query.
type Responder interface {
	Respond(ctx context.Context, messages []domain.ChatMessage) (*Reply, error)
}

var (
	_ Responder = (*OpenAIResponder)(nil)
	_ Responder = (*RuleResponder)(nil)
)
