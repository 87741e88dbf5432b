package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/ashureev/fabric-console/internal/identity"
	"github.com/ashureev/fabric-console/internal/progress"
	"github.com/go-chi/chi/v5"
)

// ErrOrderNotFound is the body of a 404 from GET /api/orders/{orderId}.
const ErrOrderNotFound = "Order not found"

// Catalog is the read side of the repository served by the API.
type Catalog interface {
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)
	ListInventory(ctx context.Context) ([]*domain.InventoryItem, error)
}

// CatalogHandler serves orders, customers and inventory.
type CatalogHandler struct {
	catalog   Catalog
	aiEnabled bool
}

// NewCatalogHandler creates a catalog handler. aiEnabled is reported by /api/config.
func NewCatalogHandler(catalog Catalog, aiEnabled bool) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, aiEnabled: aiEnabled}
}

// RegisterRoutes registers catalog routes.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.ListOrders)
	r.Get("/orders/{orderId}", h.GetOrder)
	r.Get("/customers", h.ListCustomers)
	r.Get("/inventory", h.ListInventory)
	r.Get("/config", h.GetConfig)
	r.Get("/me", h.GetMe)
}

// ListOrders returns one summary row per order.
func (h *CatalogHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.catalog.ListOrders(r.Context())
	if err != nil {
		slog.Error("Failed to list orders", "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	listings := make([]domain.OrderListing, 0, len(orders))
	for _, o := range orders {
		listings = append(listings, o.Listing())
	}
	slog.Debug("Returning order summaries", "count", len(listings))
	JSON(w, http.StatusOK, listings)
}

// GetOrder returns the full order document.
func (h *CatalogHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	order, err := h.catalog.GetOrder(r.Context(), orderID)
	if err != nil {
		slog.Error("Failed to get order", "order_id", orderID, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if order == nil {
		slog.Warn("Order not found", "order_id", orderID)
		Error(w, http.StatusNotFound, ErrOrderNotFound)
		return
	}

	warnInvalidProgress(order)
	JSON(w, http.StatusOK, order)
}

// warnInvalidProgress logs line items whose progress breaks the canonical
// ordering. The order is still served; rendering tolerates bad data.
func warnInvalidProgress(order *domain.Order) {
	for _, g := range order.ShippingGroups {
		for _, item := range g.LineItems {
			if err := progress.Validate(item.StatusProgress, progress.CanonicalStages); err != nil {
				slog.Warn("Line item has invalid status progress",
					"order_id", order.OrderID,
					"sku", item.SKU,
					"error", err)
			}
		}
	}
}

// ListCustomers returns the CRM customer list.
func (h *CatalogHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.catalog.ListCustomers(r.Context())
	if err != nil {
		slog.Error("Failed to list customers", "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if customers == nil {
		customers = []*domain.Customer{}
	}
	JSON(w, http.StatusOK, customers)
}

// ListInventory returns every inventory row.
func (h *CatalogHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListInventory(r.Context())
	if err != nil {
		slog.Error("Failed to list inventory", "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []*domain.InventoryItem{}
	}
	JSON(w, http.StatusOK, items)
}

// GetConfig returns the server configuration for the frontend.
func (h *CatalogHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"ai_enabled":       h.aiEnabled,
		"canonical_stages": progress.CanonicalStages,
	})
}

// GetMe returns the caller's anonymous identity.
func (h *CatalogHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	JSON(w, http.StatusOK, map[string]string{
		"user_id":    userID,
		"username":   identity.UsernameFromContext(r.Context()),
		"session_id": identity.SessionIDFromContext(r.Context()),
	})
}
