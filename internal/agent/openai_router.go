package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ToolTransferToOrderRouting ends intake and hands the processed order to the
// routing stage.
const ToolTransferToOrderRouting = "transfer_to_order_routing"

const intakeSystemPrompt = `You are the order intake agent of the Fabric order routing workflow.
You receive JSON with a raw_order (product_id, quantity, customer_id) and a business_priority.
1. Call get_customer_details with the customer_id.
2. If the lookup does not succeed, stop and answer with JSON only: {"error": "<the tool message>"}.
3. Otherwise call transfer_to_order_routing with the processed order and the business_priority.
Copy product_id, quantity and customer_id unchanged and take name, zip code and tier from the lookup.
Never invent customer data.`

const routingSystemPrompt = `You are the order routing decision agent of the Fabric order routing workflow.
You receive JSON with a processed_order and a business_priority.
1. Call get_customer_zone with the customer's zip code.
2. Call get_inventory with the product_id and quantity to find locations that can fulfill the order.
3. Call get_shipping_options for each of those locations with the customer's zone and the product_id.
4. Pick one shipping option for the priority:
   MINIMIZE_COST: lowest cost.
   MINIMIZE_CO2: lowest co2_kg.
   PRIORITIZE_GOLD_TIER_SPEED: fewest days for gold tier customers; for other tiers balance cost and days.
   BALANCED_COST_TIME: best balance of cost and days.
Answer with JSON only, no prose and no code fences:
{"recommendation": {"location_id": "", "zone": "", "sku": "", "carrier": "", "cost": 0, "days": 0, "co2_kg": 0},
 "reasoning": "", "alternatives_considered": [<options in the same shape>]}
If no location has enough stock or no shipping option exists, answer {"error": "<why>"}.`

// OpenAIRouter routes with two model stages joined by a handoff tool call.
type OpenAIRouter struct {
	completions chatCompleter
	tools       *Toolbox
	model       string
	maxRounds   int
}

// NewOpenAIRouter creates a router backed by the OpenAI API.
func NewOpenAIRouter(apiKey, model string, maxRounds int, tools *Toolbox) *OpenAIRouter {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return newOpenAIRouter(&client.Chat.Completions, model, maxRounds, tools)
}

func newOpenAIRouter(completions chatCompleter, model string, maxRounds int, tools *Toolbox) *OpenAIRouter {
	if maxRounds <= 0 {
		maxRounds = 8
	}
	return &OpenAIRouter{
		completions: completions,
		tools:       tools,
		model:       model,
		maxRounds:   maxRounds,
	}
}

type rawOrder struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	CustomerID string `json:"customer_id"`
}

type intakeInput struct {
	RawOrder         rawOrder `json:"raw_order"`
	BusinessPriority string   `json:"business_priority"`
}

// routingHandoff is the argument document of the handoff tool.
type routingHandoff struct {
	ProcessedOrder   domain.ProcessedOrder `json:"processed_order"`
	BusinessPriority string                `json:"business_priority"`
}

// Route runs intake until it hands off, then runs routing until it answers.
func (o *OpenAIRouter) Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteDecision, error) {
	log := workflowLogger(ctx)
	log.Info("Intake started", "customer_id", req.CustomerID, "product_id", req.ProductID, "quantity", req.Quantity)

	input, err := json.Marshal(intakeInput{
		RawOrder:         rawOrder{ProductID: req.ProductID, Quantity: req.Quantity, CustomerID: req.CustomerID},
		BusinessPriority: req.BusinessPriority,
	})
	if err != nil {
		return nil, fmt.Errorf("encode intake input: %w", err)
	}
	intake, err := runToolLoop(ctx, o.completions, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(intakeSystemPrompt),
			openai.UserMessage(string(input)),
		},
		Tools: intakeTools(),
	}, o.maxRounds, o.tools.Invoke, ToolTransferToOrderRouting)
	if err != nil {
		return nil, fmt.Errorf("intake: %w", err)
	}
	if !intake.stopped {
		return nil, rejectionFromAnswer(intake.content)
	}

	var handoff routingHandoff
	if err := json.Unmarshal([]byte(intake.stopArgs), &handoff); err != nil {
		return nil, fmt.Errorf("decode handoff: %w", err)
	}
	if handoff.ProcessedOrder.CustomerZipCode == "" {
		return nil, errors.New("handoff is missing the customer zip code")
	}
	// Intake enriches the order; it does not get to change it.
	handoff.ProcessedOrder.ProductID = req.ProductID
	handoff.ProcessedOrder.Quantity = req.Quantity
	handoff.ProcessedOrder.CustomerID = req.CustomerID
	handoff.BusinessPriority = req.BusinessPriority
	log.Info("Handoff to order routing",
		"customer_name", handoff.ProcessedOrder.CustomerName,
		"zip_code", handoff.ProcessedOrder.CustomerZipCode,
		"tier", handoff.ProcessedOrder.CustomerTier,
		"priority", handoff.BusinessPriority)

	routingInput, err := json.Marshal(handoff)
	if err != nil {
		return nil, fmt.Errorf("encode handoff: %w", err)
	}
	routing, err := runToolLoop(ctx, o.completions, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(routingSystemPrompt),
			openai.UserMessage(string(routingInput)),
		},
		Tools: routingTools(),
	}, o.maxRounds, o.tools.Invoke, "")
	if err != nil {
		return nil, fmt.Errorf("routing: %w", err)
	}

	decision, err := parseRoutingAnswer(routing.content)
	if err != nil {
		return nil, err
	}
	log.Info("Route chosen", "location", decision.Recommendation.LocationID, "carrier", decision.Recommendation.Carrier)
	return decision, nil
}

type routingAnswer struct {
	domain.RouteDecision
	Error string `json:"error"`
}

func parseRoutingAnswer(content string) (*domain.RouteDecision, error) {
	var answer routingAnswer
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &answer); err != nil {
		return nil, fmt.Errorf("decode routing answer: %w", err)
	}
	if answer.Error != "" {
		return nil, &RouteRejectedError{Reason: answer.Error}
	}
	if answer.Recommendation == nil {
		return nil, errors.New("routing answer has no recommendation")
	}
	return &answer.RouteDecision, nil
}

// rejectionFromAnswer turns an intake answer that skipped the handoff into a
// rejection, preferring the {"error": ...} document the prompt asks for.
func rejectionFromAnswer(content string) error {
	var answer struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &answer); err == nil && answer.Error != "" {
		return &RouteRejectedError{Reason: answer.Error}
	}
	if content != "" {
		return &RouteRejectedError{Reason: content}
	}
	return errors.New("intake ended without a handoff")
}

// stripCodeFence removes a surrounding Markdown code fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func intakeTools() []openai.ChatCompletionToolParam {
	str := func(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }
	return []openai.ChatCompletionToolParam{
		stringTool(ToolGetCustomerDetails,
			"Fetches the customer's name, shipping zip code and loyalty tier from the CRM.",
			"customer_id", "The ID of the customer placing the order."),
		rawTool(ToolTransferToOrderRouting,
			"Hands the validated order to the order routing decision agent.",
			shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"processed_order": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"product_id":        str("Product SKU from the raw order."),
							"quantity":          map[string]any{"type": "integer", "description": "Units ordered."},
							"customer_id":       str("Customer ID from the raw order."),
							"customer_name":     str("Customer name from the CRM."),
							"customer_zip_code": str("Shipping zip code from the CRM."),
							"customer_tier":     str("Loyalty tier from the CRM."),
						},
						"required": []string{"product_id", "quantity", "customer_id", "customer_name", "customer_zip_code", "customer_tier"},
					},
					"business_priority": map[string]any{
						"type": "string",
						"enum": []string{domain.PriorityGoldTierSpeed, domain.PriorityMinimizeCost, domain.PriorityMinimizeCO2, domain.PriorityBalanced},
					},
				},
				"required": []string{"processed_order", "business_priority"},
			}),
	}
}

func routingTools() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		stringTool(ToolGetCustomerZone,
			"Determines the shipping zone for a customer zip code.",
			"customer_zip_code", "The customer's zip code."),
		functionTool(ToolGetInventory,
			"Lists the fulfillment locations holding at least the requested quantity of a product.",
			toolParam{name: "product_id", kind: "string", description: "The product SKU.", required: true},
			toolParam{name: "quantity", kind: "integer", description: "Units required.", required: true}),
		functionTool(ToolGetShippingOptions,
			"Lists carrier services with cost, days and CO2 for a product from a location to a zone.",
			toolParam{name: "source_location_id", kind: "string", description: "The fulfillment location.", required: true},
			toolParam{name: "destination_zone_id", kind: "string", description: "The customer's shipping zone.", required: true},
			toolParam{name: "product_id", kind: "string", description: "The product SKU.", required: true}),
	}
}
