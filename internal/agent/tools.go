package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/fabric-console/internal/domain"
)

// Tool names exposed to the model.
const (
	ToolGetOrderStatusByID        = "get_order_status_by_id"
	ToolFindOrdersForCustomer     = "find_orders_for_customer"
	ToolGetInventoryDetailsForSKU = "get_inventory_details_for_sku"
	ToolGetOverallStockForProduct = "get_overall_stock_for_product"

	ToolGetProductETA            = "get_product_eta"
	ToolCheckAlternativeSourcing = "check_alternative_sourcing"
	ToolNotifyCustomer           = "notify_customer"

	ToolGetCustomerDetails = "get_customer_details"
	ToolGetCustomerZone    = "get_customer_zone"
	ToolGetInventory       = "get_inventory"
	ToolGetShippingOptions = "get_shipping_options"

	maxCustomerOrders = 5
	maxStockMatches   = 10
)

// ToolStore is the repository surface the tools read.
type ToolStore interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	FindOrdersForCustomer(ctx context.Context, query string, limit int) ([]*domain.Order, error)
	GetInventoryItem(ctx context.Context, sku string) (*domain.InventoryItem, error)
	SearchInventory(ctx context.Context, query string, limit int) ([]*domain.InventoryItem, error)

	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
	ZoneForZip(ctx context.Context, zipCode string) (string, error)
	StockForSKU(ctx context.Context, sku string) ([]*domain.LocationStock, error)
	ShippingOptions(ctx context.Context, locationID, zone, sku string) ([]*domain.ShippingOption, error)
	RecordNotification(ctx context.Context, n *domain.CustomerNotification) error
}

// ToolResult is the JSON document returned to the model for a tool call.
type ToolResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

const (
	toolStatusSuccess       = "success"
	toolStatusFound         = "found"
	toolStatusNotFound      = "not_found"
	toolStatusNotApplicable = "not_applicable"
	toolStatusError         = "error"
)

// Toolbox executes order, inventory and routing lookups.
type Toolbox struct {
	store ToolStore
	now   func() time.Time
}

// NewToolbox creates a toolbox over store.
func NewToolbox(store ToolStore) *Toolbox {
	return &Toolbox{store: store, now: time.Now}
}

// GetOrderStatusByID fetches the full order document.
func (t *Toolbox) GetOrderStatusByID(ctx context.Context, orderID string) (ToolResult, error) {
	orderID = strings.TrimPrefix(strings.TrimSpace(orderID), "#")
	order, err := t.store.GetOrder(ctx, orderID)
	if err != nil {
		return ToolResult{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if order == nil {
		return ToolResult{Status: toolStatusNotFound, Message: "Order details not found for ID: " + orderID}, nil
	}
	return ToolResult{Status: toolStatusSuccess, Data: order}, nil
}

// FindOrdersForCustomer matches a customer name fragment or an order ID.
func (t *Toolbox) FindOrdersForCustomer(ctx context.Context, identifier string) (ToolResult, error) {
	orders, err := t.store.FindOrdersForCustomer(ctx, identifier, maxCustomerOrders)
	if err != nil {
		return ToolResult{}, fmt.Errorf("find orders for %q: %w", identifier, err)
	}
	if len(orders) == 0 {
		return ToolResult{Status: toolStatusNotFound, Message: "No orders found for customer: " + identifier}, nil
	}
	return ToolResult{Status: toolStatusSuccess, Data: orders}, nil
}

// GetInventoryDetailsForSKU fetches one inventory row by exact SKU.
func (t *Toolbox) GetInventoryDetailsForSKU(ctx context.Context, sku string) (ToolResult, error) {
	sku = strings.TrimSpace(sku)
	item, err := t.store.GetInventoryItem(ctx, sku)
	if err != nil {
		return ToolResult{}, fmt.Errorf("get inventory %s: %w", sku, err)
	}
	if item == nil {
		return ToolResult{Status: toolStatusNotFound, Message: "Inventory details not found for SKU: " + sku}, nil
	}
	return ToolResult{Status: toolStatusSuccess, Data: item}, nil
}

// GetOverallStockForProduct summarizes rows whose product name matches query.
func (t *Toolbox) GetOverallStockForProduct(ctx context.Context, query string) (ToolResult, error) {
	items, err := t.store.SearchInventory(ctx, query, maxStockMatches)
	if err != nil {
		return ToolResult{}, fmt.Errorf("search inventory %q: %w", query, err)
	}
	if len(items) == 0 {
		return ToolResult{Status: toolStatusNotFound, Message: fmt.Sprintf("No products found matching query: '%s'", query)}, nil
	}
	return ToolResult{
		Status:  toolStatusSuccess,
		Message: fmt.Sprintf("Found %d items matching '%s'.", len(items), query),
		Data:    items,
	}, nil
}

// Call dispatches a model tool call and returns the JSON result.
func (t *Toolbox) Call(ctx context.Context, name, arguments string) (string, error) {
	result, err := t.Invoke(ctx, name, arguments)
	if err != nil {
		return "", err
	}
	return encodeToolResult(result)
}

// Invoke dispatches a tool call by name. Unknown tools and bad arguments
// produce an error result rather than a Go error so the model can recover.
func (t *Toolbox) Invoke(ctx context.Context, name, arguments string) (ToolResult, error) {
	var args struct {
		OrderID            string `json:"order_id"`
		CustomerIdentifier string `json:"customer_identifier"`
		SKU                string `json:"sku"`
		ProductNameQuery   string `json:"product_name_query"`
		OriginalOrderID    string `json:"original_order_id"`
		CustomerID         string `json:"customer_id"`
		Message            string `json:"message"`
		CustomerZipCode    string `json:"customer_zip_code"`
		ProductID          string `json:"product_id"`
		Quantity           int    `json:"quantity"`
		SourceLocationID   string `json:"source_location_id"`
		DestinationZoneID  string `json:"destination_zone_id"`
	}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return ToolResult{Status: toolStatusError, Message: "invalid arguments: " + err.Error()}, nil
		}
	}

	var (
		result ToolResult
		err    error
	)
	switch name {
	case ToolGetOrderStatusByID:
		result, err = t.GetOrderStatusByID(ctx, args.OrderID)
	case ToolFindOrdersForCustomer:
		result, err = t.FindOrdersForCustomer(ctx, args.CustomerIdentifier)
	case ToolGetInventoryDetailsForSKU:
		result, err = t.GetInventoryDetailsForSKU(ctx, args.SKU)
	case ToolGetOverallStockForProduct:
		result, err = t.GetOverallStockForProduct(ctx, args.ProductNameQuery)
	case ToolGetProductETA:
		result, err = t.GetProductETA(ctx, args.SKU)
	case ToolCheckAlternativeSourcing:
		result, err = t.CheckAlternativeSourcing(ctx, args.SKU, args.OriginalOrderID)
	case ToolNotifyCustomer:
		result, err = t.NotifyCustomer(ctx, args.CustomerID, args.OrderID, args.Message)
	case ToolGetCustomerDetails:
		result, err = t.GetCustomerDetails(ctx, args.CustomerID)
	case ToolGetCustomerZone:
		result, err = t.GetCustomerZone(ctx, args.CustomerZipCode)
	case ToolGetInventory:
		result, err = t.GetInventory(ctx, args.ProductID, args.Quantity)
	case ToolGetShippingOptions:
		result, err = t.GetShippingOptions(ctx, args.SourceLocationID, args.DestinationZoneID, args.ProductID)
	default:
		result = ToolResult{Status: toolStatusError, Message: "unknown tool: " + name}
	}
	if err != nil {
		return ToolResult{}, err
	}
	return result, nil
}

func encodeToolResult(r ToolResult) (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(raw), nil
}
