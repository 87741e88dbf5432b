package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/fabric-console/internal/domain"
)

// ErrInvalidRouteRequest wraps every validation failure of a route request.
var ErrInvalidRouteRequest = errors.New("invalid route request")

// RoutingService validates route requests and runs them through a Router,
// capturing the workflow trace of each run.
type RoutingService struct {
	router  Router
	timeout time.Duration
}

// NewRoutingService creates a routing service. A zero timeout disables the
// deadline.
func NewRoutingService(router Router, timeout time.Duration) *RoutingService {
	return &RoutingService{router: router, timeout: timeout}
}

// RouteRun is one optimization: the decision, or nil on failure, and the
// workflow log lines written while producing it.
type RouteRun struct {
	Decision *domain.RouteDecision
	Logs     []string
}

// Optimize routes req. The returned run is never nil, so callers can report
// the trace of a failed run too. An empty priority means
// domain.PriorityGoldTierSpeed.
func (s *RoutingService) Optimize(ctx context.Context, req domain.RouteRequest) (*RouteRun, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.BusinessPriority = strings.ToUpper(strings.TrimSpace(req.BusinessPriority))
	if req.BusinessPriority == "" {
		req.BusinessPriority = domain.PriorityGoldTierSpeed
	}
	if err := validateRouteRequest(req); err != nil {
		return &RouteRun{Logs: []string{}}, err
	}

	var buf bytes.Buffer
	trace := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{ReplaceAttr: dropTime}))
	ctx = withWorkflowLogger(ctx, trace)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	decision, err := s.router.Route(ctx, req)
	if err != nil {
		trace.Warn("Routing failed", "error", err)
	}
	run := &RouteRun{Decision: decision, Logs: splitLines(buf.String())}
	if err != nil {
		var rejected *RouteRejectedError
		if errors.As(err, &rejected) {
			return run, err
		}
		return run, fmt.Errorf("route: %w", err)
	}
	if decision == nil || decision.Recommendation == nil {
		return run, errors.New("route: router returned no recommendation")
	}

	slog.Debug("Route optimized",
		"product_id", req.ProductID,
		"priority", req.BusinessPriority,
		"location", decision.Recommendation.LocationID,
		"duration", time.Since(start))
	return run, nil
}

func validateRouteRequest(req domain.RouteRequest) error {
	switch {
	case req.ProductID == "":
		return fmt.Errorf("%w: product_id is required", ErrInvalidRouteRequest)
	case req.CustomerID == "":
		return fmt.Errorf("%w: customer_id is required", ErrInvalidRouteRequest)
	case req.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be a positive integer", ErrInvalidRouteRequest)
	case !domain.ValidPriority(req.BusinessPriority):
		return fmt.Errorf("%w: unknown business_priority %q", ErrInvalidRouteRequest, req.BusinessPriority)
	}
	return nil
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

func splitLines(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
