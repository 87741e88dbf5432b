package agent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/fabric-console/internal/api"
	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/ashureev/fabric-console/internal/identity"
	"github.com/go-chi/chi/v5"
)

// RouteHandler serves the order routing endpoint.
type RouteHandler struct {
	routing     *RoutingService
	rateLimiter *RateLimiter
	maxBodySize int64
}

// NewRouteHandler creates a routing handler. A nil rate limiter disables limiting.
func NewRouteHandler(routing *RoutingService, rateLimiter *RateLimiter) *RouteHandler {
	return &RouteHandler{
		routing:     routing,
		rateLimiter: rateLimiter,
		maxBodySize: defaultMaxRequestBodySize,
	}
}

// RegisterRoutes registers routing routes under the /api router.
func (h *RouteHandler) RegisterRoutes(r chi.Router) {
	r.Post("/optimize-route", h.HandleOptimizeRoute)
}

// HandleOptimizeRoute handles POST /api/optimize-route.
func (h *RouteHandler) HandleOptimizeRoute(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	limitKey := userID
	if limitKey == "" {
		limitKey = identity.IPFromRequest(r)
	}
	if h.rateLimiter != nil && !h.rateLimiter.Allow(limitKey) {
		api.JSON(w, http.StatusTooManyRequests, domain.RouteResponse{Error: "rate limit exceeded", Logs: []string{}})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	var req domain.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.JSON(w, http.StatusRequestEntityTooLarge, domain.RouteResponse{Error: "request body too large", Logs: []string{}})
			return
		}
		slog.Warn("Bad route request body", "user_id", userID, "error", err)
		api.JSON(w, http.StatusBadRequest, domain.RouteResponse{Error: "invalid JSON body", Logs: []string{}})
		return
	}

	slog.Info("Route optimization request",
		"user_id", userID,
		"product_id", req.ProductID,
		"quantity", req.Quantity,
		"customer_id", req.CustomerID,
		"priority", req.BusinessPriority,
	)

	run, err := h.routing.Optimize(r.Context(), req)
	resp := domain.RouteResponse{Logs: run.Logs}
	var rejected *RouteRejectedError
	switch {
	case errors.Is(err, ErrInvalidRouteRequest):
		resp.Error = err.Error()
		api.JSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &rejected):
		slog.Info("Route rejected", "user_id", userID, "reason", rejected.Reason)
		resp.Error = rejected.Reason
		api.JSON(w, http.StatusUnprocessableEntity, resp)
	case err != nil:
		slog.Error("Route optimization failed", "user_id", userID, "error", err)
		resp.Error = "Internal server error: " + err.Error()
		api.JSON(w, http.StatusInternalServerError, resp)
	default:
		resp.Recommendation = run.Decision.Recommendation
		resp.Reasoning = run.Decision.Reasoning
		resp.AlternativesConsidered = run.Decision.AlternativesConsidered
		api.JSON(w, http.StatusOK, resp)
	}
}
