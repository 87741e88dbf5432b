package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/fabric-console/internal/domain"
)

// ErrNoMessages is returned when a conversation has nothing to answer.
var ErrNoMessages = errors.New("no messages array provided")

// Service validates conversations and runs them through a Responder.
type Service struct {
	responder Responder
	timeout   time.Duration
}

// NewService creates a service. A zero timeout disables the deadline.
func NewService(responder Responder, timeout time.Duration) *Service {
	return &Service{responder: responder, timeout: timeout}
}

// Chat answers the conversation. Messages with unknown roles or blank content
// are dropped before the responder sees them.
func (s *Service) Chat(ctx context.Context, messages []domain.ChatMessage) (*Reply, error) {
	cleaned := make([]domain.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if !domain.ValidRole(m.Role) || strings.TrimSpace(m.Content) == "" {
			continue
		}
		cleaned = append(cleaned, m)
	}
	if len(cleaned) == 0 {
		return nil, ErrNoMessages
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.responder.Respond(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("respond: %w", err)
	}
	if reply == nil {
		reply = &Reply{}
	}
	if strings.TrimSpace(reply.Text) == "" {
		reply.Text = NoResponseText
	}

	slog.Debug("Agent replied",
		"type", reply.Type,
		"tools_used", reply.ToolsUsed,
		"duration", time.Since(start))
	return reply, nil
}
