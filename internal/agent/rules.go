package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/ashureev/fabric-console/internal/progress"
)

const (
	greetingReply = "Hello! I can look up orders by number, orders for a customer, inventory by SKU, and stock by product name."
	fallbackReply = "I can help with orders and inventory. Try asking about an order number (for example 7201122334455), " +
		"a customer name, a SKU such as 100084-000012-2, or a product like \"bookcase\"."
	maxEntitiesPerQuery = 3
)

var (
	orderIDPattern  = regexp.MustCompile(`\b\d{13}\b`)
	skuPattern      = regexp.MustCompile(`\b[A-Z0-9]+(?:-[A-Z0-9]+){2,}\b`)
	customerPattern = regexp.MustCompile(`(?i)\borders?\s+(?:for|from|of|by)\s+([a-z][a-z .'@-]*[a-z])`)
	possessive      = regexp.MustCompile(`(?i)\b([a-z]+(?:\s+[a-z]+)?)'s\s+orders?\b`)
	stockPattern    = regexp.MustCompile(`(?i)\b(?:stock|inventory|available|availability|in store|on hand)\b`)
	productPhrase   = regexp.MustCompile(`(?i)\b(?:for|of|on)\s+(?:the\s+|a\s+|an\s+)?([a-z][a-z0-9 /&-]*[a-z0-9])`)
	etaPattern      = regexp.MustCompile(`(?i)\b(?:eta|restock(?:ed)?|back in stock|arriv(?:e|al)|expected|when will)\b`)
	greetingPattern = regexp.MustCompile(`(?i)^\s*(?:hi|hello|hey|good (?:morning|afternoon|evening)|thanks|thank you)\b`)
	wordPattern     = regexp.MustCompile(`[a-z]+`)
)

var stopWords = map[string]bool{
	"what": true, "much": true, "many": true, "stock": true, "inventory": true, "have": true,
	"there": true, "left": true, "available": true, "availability": true, "show": true,
	"tell": true, "about": true, "level": true, "levels": true, "with": true, "does": true,
	"this": true, "that": true, "your": true, "store": true, "hand": true, "check": true,
	"please": true, "could": true, "would": true, "products": true, "product": true, "items": true,
}

// RuleResponder answers from the store without a language model.
type RuleResponder struct {
	tools *Toolbox
}

// NewRuleResponder creates the deterministic fallback responder.
func NewRuleResponder(tools *Toolbox) *RuleResponder {
	return &RuleResponder{tools: tools}
}

// Respond answers the latest user message.
func (r *RuleResponder) Respond(ctx context.Context, messages []domain.ChatMessage) (*Reply, error) {
	query := lastUserMessage(messages)
	reply := &Reply{Type: ResponseTypeRule}
	if query == "" {
		reply.Text = fallbackReply
		return reply, nil
	}

	if title, ok := appliedSuggestion(query); ok {
		return r.applySuggestion(ctx, reply, title)
	}

	var parts []string
	var inventory []*domain.InventoryItem

	for _, id := range firstN(orderIDPattern.FindAllString(query, -1), maxEntitiesPerQuery) {
		res, err := r.tools.GetOrderStatusByID(ctx, id)
		if err != nil {
			return nil, err
		}
		reply.ToolsUsed = append(reply.ToolsUsed, ToolGetOrderStatusByID)
		parts = append(parts, describeOrderResult(id, res))
	}

	wantsETA := etaPattern.MatchString(query)
	for _, sku := range firstN(findSKUs(query), maxEntitiesPerQuery) {
		if wantsETA {
			res, err := r.tools.GetProductETA(ctx, sku)
			if err != nil {
				return nil, err
			}
			reply.ToolsUsed = append(reply.ToolsUsed, ToolGetProductETA)
			parts = append(parts, res.Message)
			continue
		}
		res, err := r.tools.GetInventoryDetailsForSKU(ctx, sku)
		if err != nil {
			return nil, err
		}
		reply.ToolsUsed = append(reply.ToolsUsed, ToolGetInventoryDetailsForSKU)
		items := inventoryFromResult(res)
		inventory = append(inventory, items...)
		if len(items) == 0 {
			parts = append(parts, res.Message+".")
			continue
		}
		parts = append(parts, describeItem(items[0]))
	}

	if len(parts) == 0 {
		if customer := customerQuery(query); customer != "" {
			res, err := r.tools.FindOrdersForCustomer(ctx, customer)
			if err != nil {
				return nil, err
			}
			reply.ToolsUsed = append(reply.ToolsUsed, ToolFindOrdersForCustomer)
			parts = append(parts, describeCustomerOrders(customer, res))
		}
	}

	if len(parts) == 0 && stockPattern.MatchString(query) {
		text, items, err := r.stockLookup(ctx, query)
		if err != nil {
			return nil, err
		}
		if text != "" {
			reply.ToolsUsed = append(reply.ToolsUsed, ToolGetOverallStockForProduct)
			inventory = append(inventory, items...)
			parts = append(parts, text)
		}
	}

	switch {
	case len(parts) > 0:
		reply.Text = strings.Join(parts, "\n\n")
	case greetingPattern.MatchString(query):
		reply.Text = greetingReply
	default:
		reply.Text = fallbackReply
	}
	reply.Suggestions = reorderSuggestions(inventory)
	return reply, nil
}

func (r *RuleResponder) applySuggestion(ctx context.Context, reply *Reply, title string) (*Reply, error) {
	sku := skuFromSuggestionTitle(title)
	if sku == "" {
		reply.Text = fmt.Sprintf("I've noted your request to apply %q. A fulfillment specialist will follow up.", title)
		return reply, nil
	}

	res, err := r.tools.GetInventoryDetailsForSKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	reply.ToolsUsed = append(reply.ToolsUsed, ToolGetInventoryDetailsForSKU)
	items := inventoryFromResult(res)
	if len(items) == 0 {
		reply.Text = res.Message + ". No reorder was drafted."
		return reply, nil
	}
	item := items[0]
	reply.Text = fmt.Sprintf(
		"Reorder request drafted for %s (%s) at %s. Current position: %d available to purchase, %d on backorder, %d on preorder.",
		item.ProductName, item.SKUCode, item.Location,
		item.AvailToPurchase, item.AvailToBackorder, item.AvailToPreorder)
	return reply, nil
}

func (r *RuleResponder) stockLookup(ctx context.Context, query string) (string, []*domain.InventoryItem, error) {
	for _, candidate := range productCandidates(query) {
		res, err := r.tools.GetOverallStockForProduct(ctx, candidate)
		if err != nil {
			return "", nil, err
		}
		items := inventoryFromResult(res)
		if len(items) == 0 {
			continue
		}
		var b strings.Builder
		b.WriteString(res.Message)
		for _, item := range items {
			fmt.Fprintf(&b, "\n- %s (%s): %s, %d available to purchase at %s",
				item.ProductName, item.SKUCode, item.Status, item.AvailToPurchase, item.Location)
		}
		return b.String(), items, nil
	}
	return "", nil, nil
}

func lastUserMessage(messages []domain.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

func findSKUs(query string) []string {
	var out []string
	for _, m := range skuPattern.FindAllString(query, -1) {
		if strings.ContainsAny(m, "0123456789") {
			out = append(out, m)
		}
	}
	return out
}

func customerQuery(query string) string {
	if m := customerPattern.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := possessive.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// productCandidates returns the phrase after "for/of/on" first, then each
// significant word of the query.
func productCandidates(query string) []string {
	var out []string
	if m := productPhrase.FindStringSubmatch(query); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	for _, w := range wordPattern.FindAllString(strings.ToLower(query), -1) {
		if len(w) < 4 || stopWords[w] {
			continue
		}
		out = append(out, strings.TrimSuffix(w, "s"))
	}
	return out
}

func describeOrderResult(id string, res ToolResult) string {
	order, ok := res.Data.(*domain.Order)
	if !ok {
		return fmt.Sprintf("I couldn't find an order with ID %s.", id)
	}

	var b strings.Builder
	listing := order.Listing()
	fmt.Fprintf(&b, "Order %s for %s is %s (payment: %s, total %s).",
		displayID(order), fallback(order.CustomerName, "an unknown customer"),
		fallback(order.Status, "Unknown"), listing.PaymentStatus, listing.OrderTotal)
	if order.TrackingNumber != nil && *order.TrackingNumber != "" {
		fmt.Fprintf(&b, " Tracking number: %s.", *order.TrackingNumber)
	}
	if order.EstimatedDelivery != "" {
		fmt.Fprintf(&b, " Estimated delivery: %s.", order.EstimatedDelivery)
	}
	for _, g := range order.ShippingGroups {
		for _, item := range g.LineItems {
			bar := progress.RenderCanonical(item.StatusProgress)
			stage := "not started"
			if n := len(item.StatusProgress); n > 0 {
				stage = item.StatusProgress[n-1]
			}
			fmt.Fprintf(&b, "\n- %s: %s (%d of %d stages)",
				fallback(item.ProductName, item.SKU), stage, bar.CompletedCount(), len(bar.Steps))
		}
	}
	return b.String()
}

func describeCustomerOrders(customer string, res ToolResult) string {
	orders, ok := res.Data.([]*domain.Order)
	if !ok || len(orders) == 0 {
		return fmt.Sprintf("I couldn't find any orders for %s.", customer)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d order(s) for %s:", len(orders), customer)
	for _, o := range orders {
		listing := o.Listing()
		fmt.Fprintf(&b, "\n- %s: %s, %s", displayID(o), fallback(o.Status, "Unknown"), listing.OrderTotal)
	}
	return b.String()
}

func describeItem(item *domain.InventoryItem) string {
	text := fmt.Sprintf("SKU %s (%s) at %s via %s is %s. Available to purchase: %d, backorder: %d, preorder: %d.",
		item.SKUCode, item.ProductName, item.Location, item.Channel, item.Status,
		item.AvailToPurchase, item.AvailToBackorder, item.AvailToPreorder)
	if item.ETA != "" {
		text += " ETA: " + item.ETA + "."
	}
	if item.NeedsReorder() {
		text += " Stock is short; consider a reorder."
	}
	return text
}

func displayID(o *domain.Order) string {
	if o.DisplayOrderID != "" {
		return o.DisplayOrderID
	}
	return "#" + o.OrderID
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
