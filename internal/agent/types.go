// Package agent implements the Fabric Intelligence assistant endpoint.
package agent

import (
	"github.com/ashureev/fabric-console/internal/domain"
)

// NoResponseText replaces an empty final answer.
const NoResponseText = "No specific response generated."

// ChatRequest is the body of POST /api/fabric-intelligence-chat.
type ChatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

// ChatResponse is the endpoint reply. Exactly one of Response or Error is set.
type ChatResponse struct {
	Response    string              `json:"response,omitempty"`
	Error       string              `json:"error,omitempty"`
	Suggestions []domain.Suggestion `json:"suggestions,omitempty"`
	ToolsUsed   []string            `json:"tools_used,omitempty"`
}

// ResponseType identifies which responder produced a reply.
type ResponseType string

const (
	// ResponseTypeRule indicates a deterministic rule-based reply.
	ResponseTypeRule ResponseType = "rule"
	// ResponseTypeLLM indicates a model-generated reply.
	ResponseTypeLLM ResponseType = "llm"
)

// Reply is a responder's answer to one conversation.
type Reply struct {
	Text        string
	Suggestions []domain.Suggestion
	ToolsUsed   []string
	Type        ResponseType
}
