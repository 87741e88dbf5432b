package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/fabric-console/internal/domain"
)

type workflowLogKey struct{}

// withWorkflowLogger attaches the logger that records a routing run.
func withWorkflowLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, workflowLogKey{}, l)
}

// workflowLogger returns the run's logger, or the default logger outside a run.
func workflowLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(workflowLogKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

func logToolResult(ctx context.Context, tool string, r ToolResult) ToolResult {
	level := slog.LevelInfo
	if r.Status != toolStatusSuccess && r.Status != toolStatusFound {
		level = slog.LevelWarn
	}
	workflowLogger(ctx).Log(ctx, level, "Tool result", "tool", tool, "status", r.Status, "message", r.Message)
	return r
}

// customerDetails is what intake learns about the ordering customer.
type customerDetails struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	ZipCode    string `json:"zip_code"`
	Tier       string `json:"tier"`
}

type zoneInfo struct {
	ZipCode string `json:"zip_code"`
	Zone    string `json:"zone"`
}

// GetCustomerDetails fetches the CRM fields routing needs. A customer without
// a ZIP code cannot be routed and is reported as an error.
func (t *Toolbox) GetCustomerDetails(ctx context.Context, customerID string) (ToolResult, error) {
	customerID = strings.TrimSpace(customerID)
	workflowLogger(ctx).Info("Tool call", "tool", ToolGetCustomerDetails, "customer_id", customerID)

	if customerID == "" {
		return logToolResult(ctx, ToolGetCustomerDetails, ToolResult{
			Status:  toolStatusError,
			Message: "Invalid customer_id format. Must be a non-empty string.",
		}), nil
	}
	c, err := t.store.GetCustomer(ctx, customerID)
	if err != nil {
		return ToolResult{}, fmt.Errorf("get customer %s: %w", customerID, err)
	}
	if c == nil {
		return logToolResult(ctx, ToolGetCustomerDetails, ToolResult{
			Status:  toolStatusNotFound,
			Message: fmt.Sprintf("Customer ID '%s' not found in CRM.", customerID),
		}), nil
	}
	if strings.TrimSpace(c.ZipCode) == "" {
		return logToolResult(ctx, ToolGetCustomerDetails, ToolResult{
			Status:  toolStatusError,
			Message: fmt.Sprintf("Customer ID '%s' found, but essential zip_code is missing from CRM data.", customerID),
		}), nil
	}

	details := customerDetails{
		CustomerID: c.CustomerID,
		Name:       c.Name,
		ZipCode:    strings.TrimSpace(c.ZipCode),
		Tier:       strings.ToLower(strings.TrimSpace(c.Tier)),
	}
	if details.Name == "" {
		details.Name = "N/A"
	}
	if details.Tier == "" {
		details.Tier = domain.RoutingDefaultTier
	}
	return logToolResult(ctx, ToolGetCustomerDetails, ToolResult{Status: toolStatusSuccess, Data: details}), nil
}

// GetCustomerZone maps a ZIP code to its shipping zone. Unmapped codes fall
// back to domain.DefaultZone.
func (t *Toolbox) GetCustomerZone(ctx context.Context, zipCode string) (ToolResult, error) {
	zipCode = strings.TrimSpace(zipCode)
	workflowLogger(ctx).Info("Tool call", "tool", ToolGetCustomerZone, "zip_code", zipCode)

	zone, err := t.store.ZoneForZip(ctx, zipCode)
	if err != nil {
		return ToolResult{}, fmt.Errorf("zone for %s: %w", zipCode, err)
	}
	msg := ""
	if zone == "" {
		zone = domain.DefaultZone
		msg = fmt.Sprintf("ZIP code %s has no zone mapping, using %s.", zipCode, zone)
	}
	return logToolResult(ctx, ToolGetCustomerZone, ToolResult{
		Status:  toolStatusSuccess,
		Message: msg,
		Data:    zoneInfo{ZipCode: zipCode, Zone: zone},
	}), nil
}

// GetInventory lists the locations holding at least quantity units of productID.
func (t *Toolbox) GetInventory(ctx context.Context, productID string, quantity int) (ToolResult, error) {
	productID = strings.TrimSpace(productID)
	workflowLogger(ctx).Info("Tool call", "tool", ToolGetInventory, "product_id", productID, "quantity", quantity)

	if productID == "" {
		return logToolResult(ctx, ToolGetInventory, ToolResult{Status: toolStatusError, Message: "product_id is required."}), nil
	}
	if quantity <= 0 {
		return logToolResult(ctx, ToolGetInventory, ToolResult{Status: toolStatusError, Message: "quantity must be a positive integer."}), nil
	}

	stock, err := t.store.StockForSKU(ctx, productID)
	if err != nil {
		return ToolResult{}, fmt.Errorf("stock for %s: %w", productID, err)
	}
	if len(stock) == 0 {
		return logToolResult(ctx, ToolGetInventory, ToolResult{
			Status:  toolStatusNotFound,
			Message: fmt.Sprintf("Product ID %s not found at any location.", productID),
		}), nil
	}

	var sufficient []domain.LocationStock
	for _, st := range stock {
		if st.Quantity >= quantity {
			sufficient = append(sufficient, *st)
		}
	}
	if len(sufficient) == 0 {
		return logToolResult(ctx, ToolGetInventory, ToolResult{
			Status:  toolStatusNotFound,
			Message: fmt.Sprintf("No location has %d units of %s in stock.", quantity, productID),
		}), nil
	}
	return logToolResult(ctx, ToolGetInventory, ToolResult{
		Status:  toolStatusSuccess,
		Message: fmt.Sprintf("%d location(s) can fulfill %d units of %s.", len(sufficient), quantity, productID),
		Data:    sufficient,
	}), nil
}

// GetShippingOptions lists carrier services for productID from a location to a zone.
func (t *Toolbox) GetShippingOptions(ctx context.Context, locationID, zone, productID string) (ToolResult, error) {
	locationID, zone, productID = strings.TrimSpace(locationID), strings.TrimSpace(zone), strings.TrimSpace(productID)
	workflowLogger(ctx).Info("Tool call", "tool", ToolGetShippingOptions, "product_id", productID, "source", locationID, "zone", zone)

	if locationID == "" || zone == "" || productID == "" {
		return logToolResult(ctx, ToolGetShippingOptions, ToolResult{
			Status:  toolStatusError,
			Message: "source_location_id, destination_zone_id and product_id are required.",
		}), nil
	}

	options, err := t.store.ShippingOptions(ctx, locationID, zone, productID)
	if err != nil {
		return ToolResult{}, fmt.Errorf("shipping options %s->%s: %w", locationID, zone, err)
	}
	if len(options) == 0 {
		return logToolResult(ctx, ToolGetShippingOptions, ToolResult{
			Status:  toolStatusNotFound,
			Message: fmt.Sprintf("No shipping options found for product %s from %s to %s.", productID, locationID, zone),
		}), nil
	}
	out := make([]domain.ShippingOption, 0, len(options))
	for _, o := range options {
		out = append(out, *o)
	}
	return logToolResult(ctx, ToolGetShippingOptions, ToolResult{
		Status:  toolStatusSuccess,
		Message: fmt.Sprintf("Found %d shipping option(s).", len(out)),
		Data:    out,
	}), nil
}
