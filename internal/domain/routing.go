package domain

import "time"

// Business priorities accepted by route optimization.
const (
	PriorityGoldTierSpeed = "PRIORITIZE_GOLD_TIER_SPEED"
	PriorityMinimizeCost  = "MINIMIZE_COST"
	PriorityMinimizeCO2   = "MINIMIZE_CO2"
	PriorityBalanced      = "BALANCED_COST_TIME"
)

// DefaultZone is the shipping zone for ZIP codes without a mapping.
const DefaultZone = "ZONE_1"

// RoutingDefaultTier is the tier routing assumes when the CRM has none.
const RoutingDefaultTier = "standard"

// TierGold is the loyalty tier that earns the fastest route under
// PriorityGoldTierSpeed.
const TierGold = "gold"

// ValidPriority reports whether p is a known business priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityGoldTierSpeed, PriorityMinimizeCost, PriorityMinimizeCO2, PriorityBalanced:
		return true
	}
	return false
}

// RouteRequest asks for a fulfillment route for one order line.
type RouteRequest struct {
	ProductID        string `json:"product_id"`
	Quantity         int    `json:"quantity"`
	CustomerID       string `json:"customer_id"`
	BusinessPriority string `json:"business_priority"`
}

// ProcessedOrder is a route request after intake has enriched it from the CRM.
type ProcessedOrder struct {
	ProductID       string `json:"product_id"`
	Quantity        int    `json:"quantity"`
	CustomerID      string `json:"customer_id"`
	CustomerName    string `json:"customer_name"`
	CustomerZipCode string `json:"customer_zip_code"`
	CustomerTier    string `json:"customer_tier"`
}

// ZipZone maps a ZIP code to a shipping zone.
type ZipZone struct {
	ZipCode string `json:"zip_code"`
	Zone    string `json:"zone"`
}

// LocationStock is the on-hand quantity of a SKU at one fulfillment location.
type LocationStock struct {
	LocationID string `json:"location_id"`
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
}

// ShippingOption is one carrier service for a SKU from a location to a zone.
type ShippingOption struct {
	LocationID string  `json:"location_id"`
	Zone       string  `json:"zone"`
	SKU        string  `json:"sku"`
	Carrier    string  `json:"carrier"`
	Cost       float64 `json:"cost"`
	Days       int     `json:"days"`
	CO2Kg      float64 `json:"co2_kg"`
}

// RouteDecision is the chosen route and the candidates it beat.
type RouteDecision struct {
	Recommendation         *ShippingOption  `json:"recommendation"`
	Reasoning              string           `json:"reasoning"`
	AlternativesConsidered []ShippingOption `json:"alternatives_considered"`
}

// RouteResponse is the body of POST /api/optimize-route. Error is set instead
// of the decision when the workflow rejected the order. Logs holds the
// workflow trace either way.
type RouteResponse struct {
	Recommendation         *ShippingOption  `json:"recommendation,omitempty"`
	Reasoning              string           `json:"reasoning,omitempty"`
	AlternativesConsidered []ShippingOption `json:"alternatives_considered,omitempty"`
	Error                  string           `json:"error,omitempty"`
	Logs                   []string         `json:"logs"`
}

// CustomerNotification is a message recorded for a customer about an order.
type CustomerNotification struct {
	ID         int64     `json:"id"`
	CustomerID string    `json:"customer_id"`
	OrderID    string    `json:"order_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
