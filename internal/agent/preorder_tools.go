package agent

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/ashureev/fabric-console/internal/domain"
)

// Restock estimates for preorder and backorder items without a recorded ETA
// fall in [minRestockDays, maxRestockDays] from today.
const (
	minRestockDays = 7
	maxRestockDays = 45
)

type etaInfo struct {
	SKU string `json:"sku"`
	ETA string `json:"eta"`
}

type sourcingInfo struct {
	SKU     string                 `json:"sku"`
	OrderID string                 `json:"order_id,omitempty"`
	Sources []domain.LocationStock `json:"sources,omitempty"`
}

// restockOffsetDays is a stable per-SKU offset so repeated questions get the
// same estimate.
func restockOffsetDays(sku string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sku))
	return minRestockDays + int(h.Sum32()%uint32(maxRestockDays-minRestockDays+1))
}

// GetProductETA reports when a SKU is expected. Recorded ETAs win; preorder
// and backorder items without one get an estimate. Items that can be bought
// now have no restock date.
func (t *Toolbox) GetProductETA(ctx context.Context, sku string) (ToolResult, error) {
	sku = strings.TrimSpace(sku)
	item, err := t.store.GetInventoryItem(ctx, sku)
	if err != nil {
		return ToolResult{}, fmt.Errorf("get inventory %s: %w", sku, err)
	}
	if item == nil {
		return ToolResult{Status: toolStatusNotFound, Message: fmt.Sprintf("SKU %s not found in inventory records.", sku)}, nil
	}

	switch {
	case item.ETA != "":
		return ToolResult{
			Status:  toolStatusSuccess,
			Message: fmt.Sprintf("ETA for %s is %s.", sku, item.ETA),
			Data:    etaInfo{SKU: sku, ETA: item.ETA},
		}, nil
	case item.Status == domain.InventoryPreorder || item.Status == domain.InventoryBackorder:
		eta := t.now().AddDate(0, 0, restockOffsetDays(sku)).Format("2006-01-02")
		return ToolResult{
			Status:  toolStatusSuccess,
			Message: fmt.Sprintf("Estimated restock for %s is around %s.", sku, eta),
			Data:    etaInfo{SKU: sku, ETA: eta},
		}, nil
	default:
		return ToolResult{
			Status:  toolStatusNotApplicable,
			Message: fmt.Sprintf("%s is currently '%s', no specific ETA applies for restock.", sku, item.Status),
		}, nil
	}
}

// CheckAlternativeSourcing looks for stock of sku at locations other than the
// one its inventory row is listed under.
func (t *Toolbox) CheckAlternativeSourcing(ctx context.Context, sku, orderID string) (ToolResult, error) {
	sku, orderID = strings.TrimSpace(sku), strings.TrimSpace(orderID)
	if sku == "" {
		return ToolResult{Status: toolStatusError, Message: "sku is required."}, nil
	}

	item, err := t.store.GetInventoryItem(ctx, sku)
	if err != nil {
		return ToolResult{}, fmt.Errorf("get inventory %s: %w", sku, err)
	}
	primary := ""
	if item != nil {
		primary = item.Location
	}

	stock, err := t.store.StockForSKU(ctx, sku)
	if err != nil {
		return ToolResult{}, fmt.Errorf("stock for %s: %w", sku, err)
	}
	info := sourcingInfo{SKU: sku, OrderID: orderID}
	total := 0
	for _, st := range stock {
		if st.Quantity > 0 && st.LocationID != primary {
			info.Sources = append(info.Sources, *st)
			total += st.Quantity
		}
	}
	if len(info.Sources) == 0 {
		return ToolResult{
			Status:  toolStatusNotFound,
			Message: fmt.Sprintf("No immediate alternative sourcing found for %s.", sku),
			Data:    info,
		}, nil
	}
	msg := fmt.Sprintf("Alternative sourcing found for %s: %d units across %d other location(s).",
		sku, total, len(info.Sources))
	return ToolResult{Status: toolStatusFound, Message: msg, Data: info}, nil
}

// NotifyCustomer records a message to a known customer about an order.
func (t *Toolbox) NotifyCustomer(ctx context.Context, customerID, orderID, message string) (ToolResult, error) {
	customerID, orderID, message = strings.TrimSpace(customerID), strings.TrimSpace(orderID), strings.TrimSpace(message)
	if customerID == "" || message == "" {
		return ToolResult{Status: toolStatusError, Message: "customer_id and message are required."}, nil
	}

	c, err := t.store.GetCustomer(ctx, customerID)
	if err != nil {
		return ToolResult{}, fmt.Errorf("get customer %s: %w", customerID, err)
	}
	if c == nil {
		return ToolResult{Status: toolStatusNotFound, Message: fmt.Sprintf("Customer ID '%s' not found in CRM.", customerID)}, nil
	}

	n := &domain.CustomerNotification{CustomerID: customerID, OrderID: orderID, Message: message, CreatedAt: t.now()}
	if err := t.store.RecordNotification(ctx, n); err != nil {
		return ToolResult{}, fmt.Errorf("record notification for %s: %w", customerID, err)
	}
	return ToolResult{Status: toolStatusSuccess, Message: "Customer notification recorded.", Data: n}, nil
}
