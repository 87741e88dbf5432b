package console

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

var pageFiles = map[string]string{
	"home":      "home.html",
	"orders":    "orders.html",
	"order":     "order.html",
	"customers": "customers.html",
	"inventory": "inventory.html",
}

// layoutData is what layout.html renders; Page is the page model.
type layoutData struct {
	Title     string
	Nav       string
	AIEnabled bool
	Page      any
}

// PageHandler renders the console pages.
type PageHandler struct {
	src       Source
	pages     map[string]*template.Template
	aiEnabled bool
}

// NewPageHandler parses the page templates from templates. Each page is
// layout.html plus its own file.
func NewPageHandler(src Source, templates fs.FS, aiEnabled bool) (*PageHandler, error) {
	h := &PageHandler{
		src:       src,
		pages:     make(map[string]*template.Template, len(pageFiles)),
		aiEnabled: aiEnabled,
	}
	for name, file := range pageFiles {
		t, err := template.ParseFS(templates, "layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", file, err)
		}
		h.pages[name] = t
	}
	return h, nil
}

// RegisterRoutes registers the page routes.
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/orders", h.Orders)
	r.Get("/orders/{orderId}", h.OrderDetail)
	r.Get("/customers", h.Customers)
	r.Get("/inventory", h.Inventory)
}

// Home handles GET /.
func (h *PageHandler) Home(w http.ResponseWriter, _ *http.Request) {
	h.render(w, "home", "Home", "home", nil)
}

// Orders handles GET /orders.
func (h *PageHandler) Orders(w http.ResponseWriter, r *http.Request) {
	h.render(w, "orders", "Orders", "orders", LoadOrdersPage(r.Context(), h.src))
}

// OrderDetail handles GET /orders/{orderId}.
func (h *PageHandler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	page := LoadOrderDetailPage(r.Context(), h.src, orderID)
	h.render(w, "order", "Order "+orderID, "orders", page)
}

// Customers handles GET /customers.
func (h *PageHandler) Customers(w http.ResponseWriter, r *http.Request) {
	h.render(w, "customers", "Customers", "customers", LoadCustomersPage(r.Context(), h.src))
}

// Inventory handles GET /inventory.
func (h *PageHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	h.render(w, "inventory", "Inventory", "inventory", LoadInventoryPage(r.Context(), h.src))
}

func (h *PageHandler) render(w http.ResponseWriter, name, title, nav string, page any) {
	var buf bytes.Buffer
	err := h.pages[name].ExecuteTemplate(&buf, "layout", layoutData{
		Title:     title,
		Nav:       nav,
		AIEnabled: h.aiEnabled,
		Page:      page,
	})
	if err != nil {
		slog.Error("Failed to render page", "page", name, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("Failed to write page", "page", name, "error", err)
	}
}
