package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ashureev/fabric-console/internal/domain"
)

// Router picks a fulfillment route for a validated request.
type Router interface {
	Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteDecision, error)
}

// RouteRejectedError reports an order the workflow could not route: an
// unknown customer, no stock, or no shipping lane.
type RouteRejectedError struct {
	Reason string
}

func (e *RouteRejectedError) Error() string { return e.Reason }

func reject(format string, args ...any) error {
	return &RouteRejectedError{Reason: fmt.Sprintf(format, args...)}
}

// RuleRouter routes with the routing tools and a fixed scoring per priority.
type RuleRouter struct {
	tools *Toolbox
}

// NewRuleRouter creates the deterministic router.
func NewRuleRouter(tools *Toolbox) *RuleRouter {
	return &RuleRouter{tools: tools}
}

// Route runs intake (customer lookup) and routing (zone, stock, lanes) and
// scores every candidate lane.
func (r *RuleRouter) Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteDecision, error) {
	log := workflowLogger(ctx)
	log.Info("Intake started", "customer_id", req.CustomerID, "product_id", req.ProductID, "quantity", req.Quantity)

	res, err := r.tools.GetCustomerDetails(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if res.Status != toolStatusSuccess {
		return nil, reject("%s", res.Message)
	}
	customer := res.Data.(customerDetails)
	order := domain.ProcessedOrder{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		CustomerID:      customer.CustomerID,
		CustomerName:    customer.Name,
		CustomerZipCode: customer.ZipCode,
		CustomerTier:    customer.Tier,
	}
	log.Info("Handoff to order routing", "customer_name", order.CustomerName, "zip_code", order.CustomerZipCode,
		"tier", order.CustomerTier, "priority", req.BusinessPriority)

	res, err = r.tools.GetCustomerZone(ctx, order.CustomerZipCode)
	if err != nil {
		return nil, err
	}
	zone := res.Data.(zoneInfo).Zone

	res, err = r.tools.GetInventory(ctx, order.ProductID, order.Quantity)
	if err != nil {
		return nil, err
	}
	if res.Status != toolStatusSuccess {
		return nil, reject("%s", res.Message)
	}
	stocked := res.Data.([]domain.LocationStock)

	var candidates []domain.ShippingOption
	for _, st := range stocked {
		res, err := r.tools.GetShippingOptions(ctx, st.LocationID, zone, order.ProductID)
		if err != nil {
			return nil, err
		}
		if res.Status == toolStatusSuccess {
			candidates = append(candidates, res.Data.([]domain.ShippingOption)...)
		}
	}
	if len(candidates) == 0 {
		return nil, reject("No shipping options found for product %s to %s from any location with %d units in stock.",
			order.ProductID, zone, order.Quantity)
	}

	decision := chooseRoute(req.BusinessPriority, order.CustomerTier, candidates)
	log.Info("Route chosen", "location", decision.Recommendation.LocationID, "carrier", decision.Recommendation.Carrier,
		"cost", decision.Recommendation.Cost, "days", decision.Recommendation.Days, "co2_kg", decision.Recommendation.CO2Kg)
	return decision, nil
}

// chooseRoute ranks candidates for the priority and returns the best with the
// rest as alternatives, best first. candidates must be non-empty.
func chooseRoute(priority, tier string, candidates []domain.ShippingOption) *domain.RouteDecision {
	ranked := append([]domain.ShippingOption(nil), candidates...)

	var less func(a, b domain.ShippingOption) bool
	var why string
	switch {
	case priority == domain.PriorityMinimizeCost:
		less = byKeys(scoreCost, scoreDays, scoreCO2)
		why = "it is the cheapest option"
	case priority == domain.PriorityMinimizeCO2:
		less = byKeys(scoreCO2, scoreCost, scoreDays)
		why = "it has the lowest CO2 footprint"
	case priority == domain.PriorityGoldTierSpeed && tier == domain.TierGold:
		less = byKeys(scoreDays, scoreCost, scoreCO2)
		why = "the customer is gold tier, so the fastest delivery wins"
	default:
		maxCost, maxDays := 0.0, 0.0
		for _, c := range ranked {
			maxCost = max(maxCost, c.Cost)
			maxDays = max(maxDays, float64(c.Days))
		}
		balanced := func(o domain.ShippingOption) float64 {
			return ratio(o.Cost, maxCost) + ratio(float64(o.Days), maxDays)
		}
		less = byKeys(balanced, scoreCost, scoreDays)
		why = "it has the best combined cost and delivery time"
		if priority == domain.PriorityGoldTierSpeed {
			why = fmt.Sprintf("the customer is %s tier, not gold, so cost and time are balanced and %s", tier, why)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })

	best := ranked[0]
	reasoning := fmt.Sprintf("%s: ship from %s with %s (%s, %d day(s), %.2f kg CO2) because %s. %d candidate(s) considered.",
		priority, best.LocationID, best.Carrier, formatMoney(best.Cost), best.Days, best.CO2Kg, why, len(ranked))
	return &domain.RouteDecision{
		Recommendation:         &best,
		Reasoning:              reasoning,
		AlternativesConsidered: ranked[1:],
	}
}

type scoreFunc func(domain.ShippingOption) float64

func scoreCost(o domain.ShippingOption) float64 { return o.Cost }
func scoreDays(o domain.ShippingOption) float64 { return float64(o.Days) }
func scoreCO2(o domain.ShippingOption) float64  { return o.CO2Kg }

// byKeys orders by the first key, breaking ties with the following ones.
func byKeys(keys ...scoreFunc) func(a, b domain.ShippingOption) bool {
	return func(a, b domain.ShippingOption) bool {
		for _, k := range keys {
			if ka, kb := k(a), k(b); ka != kb {
				return ka < kb
			}
		}
		return false
	}
}

func ratio(v, maxV float64) float64 {
	if maxV == 0 {
		return 0
	}
	return v / maxV
}

func formatMoney(v float64) string {
	return "$" + strings.TrimSuffix(fmt.Sprintf("%.2f", v), ".00")
}
