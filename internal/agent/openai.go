package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// ErrToolRoundsExceeded is returned when the model keeps requesting tools.
var ErrToolRoundsExceeded = errors.New("tool call rounds exceeded")

const rootSystemPrompt = `You are Fabric Intelligence, the assistant inside an order management console.
Answer questions about customer orders and product inventory.
Use the tools to look up orders by ID, orders for a customer, inventory by SKU, and stock by product name.
For preorder and backorder items you can give an ETA, check alternative sourcing, and notify the customer.
Only notify a customer when the user asks you to.
Never invent order numbers, SKUs, or quantities; if a lookup finds nothing, say so.
Keep answers short and mention the order number or SKU you are describing.`

// chatCompleter is the slice of the OpenAI client the responder uses.
type chatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIResponder answers with an OpenAI chat-completions tool loop.
type OpenAIResponder struct {
	completions chatCompleter
	tools       *Toolbox
	model       string
	maxRounds   int
}

// NewOpenAIResponder creates a responder backed by the OpenAI API.
func NewOpenAIResponder(apiKey, model string, maxRounds int, tools *Toolbox) *OpenAIResponder {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return newOpenAIResponder(&client.Chat.Completions, model, maxRounds, tools)
}

func newOpenAIResponder(completions chatCompleter, model string, maxRounds int, tools *Toolbox) *OpenAIResponder {
	if maxRounds <= 0 {
		maxRounds = 5
	}
	return &OpenAIResponder{
		completions: completions,
		tools:       tools,
		model:       model,
		maxRounds:   maxRounds,
	}
}

// Respond runs the tool loop until the model answers without tool calls.
func (o *OpenAIResponder) Respond(ctx context.Context, messages []domain.ChatMessage) (*Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: buildMessages(messages),
		Tools:    toolDefinitions(),
	}

	out, err := runToolLoop(ctx, o.completions, params, o.maxRounds, o.tools.Invoke, "")
	if err != nil {
		return nil, err
	}

	var inventory []*domain.InventoryItem
	for _, r := range out.results {
		inventory = append(inventory, inventoryFromResult(r)...)
	}
	return &Reply{
		Text:        out.content,
		Suggestions: reorderSuggestions(inventory),
		ToolsUsed:   out.toolsUsed,
		Type:        ResponseTypeLLM,
	}, nil
}

type toolInvoker func(ctx context.Context, name, arguments string) (ToolResult, error)

// loopOutcome is how a tool loop ended: with a final answer in content, or
// with the model calling the stop tool, whose arguments are in stopArgs.
type loopOutcome struct {
	content   string
	stopArgs  string
	stopped   bool
	toolsUsed []string
	results   []ToolResult
}

// runToolLoop drives a chat-completions conversation, executing requested
// tools, until the model answers in text or calls stopTool. An empty stopTool
// disables the early exit.
func runToolLoop(ctx context.Context, completions chatCompleter, params openai.ChatCompletionNewParams, maxRounds int, invoke toolInvoker, stopTool string) (*loopOutcome, error) {
	out := &loopOutcome{}
	for round := 0; round < maxRounds; round++ {
		completion, err := completions.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return nil, errors.New("chat completion returned no choices")
		}
		msg := completion.Choices[0].Message

		if len(msg.ToolCalls) == 0 {
			out.content = strings.TrimSpace(msg.Content)
			return out, nil
		}

		if stopTool != "" {
			for _, tc := range msg.ToolCalls {
				if tc.Function.Name == stopTool {
					out.stopped = true
					out.stopArgs = tc.Function.Arguments
					out.toolsUsed = append(out.toolsUsed, stopTool)
					return out, nil
				}
			}
		}

		workflowLogger(ctx).Debug("Model requested tools", "round", round, "count", len(msg.ToolCalls))

		toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   tc.ID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		params.Messages = append(params.Messages, openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Content: openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: param.NewOpt(msg.Content),
				},
				ToolCalls: toolCalls,
			},
		})

		for _, tc := range msg.ToolCalls {
			result, err := invoke(ctx, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", tc.Function.Name, err)
			}
			content, err := encodeToolResult(result)
			if err != nil {
				return nil, err
			}
			out.toolsUsed = append(out.toolsUsed, tc.Function.Name)
			out.results = append(out.results, result)
			params.Messages = append(params.Messages, openai.ToolMessage(content, tc.ID))
		}
	}

	return nil, fmt.Errorf("%w after %d rounds", ErrToolRoundsExceeded, maxRounds)
}

func buildMessages(history []domain.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	out = append(out, openai.SystemMessage(rootSystemPrompt))
	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case domain.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		}
	}
	return out
}

func toolDefinitions() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		stringTool(ToolGetOrderStatusByID,
			"Fetches the current status and shipping information for a specific order ID.",
			"order_id", "The ID of the order to query."),
		stringTool(ToolFindOrdersForCustomer,
			"Fetches a list of recent orders for a given customer identifier.",
			"customer_identifier", "Customer name (or part of it) or exact order ID."),
		stringTool(ToolGetInventoryDetailsForSKU,
			"Fetches detailed inventory information for a specific SKU, including stock levels, location and channel.",
			"sku", "The SKU code of the product to query."),
		stringTool(ToolGetOverallStockForProduct,
			"Fetches summarized stock information for products matching a product name query.",
			"product_name_query", "A query string for the product name (e.g., 'Bookcase', 'Red Chair')."),
		stringTool(ToolGetProductETA,
			"Fetches the expected arrival or restock date for a preorder or backorder SKU.",
			"sku", "The SKU code of the product."),
		functionTool(ToolCheckAlternativeSourcing,
			"Checks whether an item on an order can be sourced from another location.",
			toolParam{name: "sku", kind: "string", description: "The SKU of the item.", required: true},
			toolParam{name: "original_order_id", kind: "string", description: "The order containing the item.", required: true}),
		functionTool(ToolNotifyCustomer,
			"Sends the customer a message about their preorder or backorder.",
			toolParam{name: "customer_id", kind: "string", description: "The ID of the customer to notify.", required: true},
			toolParam{name: "order_id", kind: "string", description: "The order the message is about.", required: true},
			toolParam{name: "message", kind: "string", description: "The message to send.", required: true}),
	}
}

// toolParam is one argument of a function tool.
type toolParam struct {
	name        string
	kind        string
	description string
	required    bool
}

func stringTool(name, description, argName, argDescription string) openai.ChatCompletionToolParam {
	return functionTool(name, description, toolParam{name: argName, kind: "string", description: argDescription, required: true})
}

func functionTool(name, description string, params ...toolParam) openai.ChatCompletionToolParam {
	properties := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		properties[p.name] = map[string]any{
			"type":        p.kind,
			"description": p.description,
		}
		if p.required {
			required = append(required, p.name)
		}
	}
	return rawTool(name, description, shared.FunctionParameters{
		"type":       "object",
		"properties": properties,
		"required":   required,
	})
}

func rawTool(name, description string, parameters shared.FunctionParameters) openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        name,
			Description: openai.String(description),
			Parameters:  parameters,
		},
	}
}
