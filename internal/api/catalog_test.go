package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/ashureev/fabric-console/internal/identity"
	"github.com/ashureev/fabric-console/internal/store"
	"github.com/go-chi/chi/v5"
)

func newSeededRouter(t *testing.T) http.Handler {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "fabric.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, err := store.Seed(context.Background(), s); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return newRouter(NewCatalogHandler(s, false))
}

func newRouter(h *CatalogHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", h.RegisterRoutes)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListOrders(t *testing.T) {
	t.Parallel()
	w := get(t, newSeededRouter(t), "/api/orders")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var listings []domain.OrderListing
	if err := json.NewDecoder(w.Body).Decode(&listings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listings) != 5 {
		t.Fatalf("expected 5 listings, got %d", len(listings))
	}
	alice := listings[1]
	if alice.OrderNumber != "7201122334455" || alice.OrderTotal != "$275.00" || alice.PaymentStatus != "Paid" {
		t.Errorf("unexpected listing: %+v", alice)
	}
}

func TestGetOrder(t *testing.T) {
	t.Parallel()
	router := newSeededRouter(t)

	w := get(t, router, "/api/orders/7201122334455")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var order domain.Order
	if err := json.NewDecoder(w.Body).Decode(&order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.DisplayOrderID != "#7201122334455" || len(order.ShippingGroups) != 1 {
		t.Errorf("unexpected order: %+v", order)
	}

	w = get(t, router, "/api/orders/does-not-exist")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Order not found" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestListCustomersAndInventory(t *testing.T) {
	t.Parallel()
	router := newSeededRouter(t)

	var customers []domain.Customer
	if err := json.NewDecoder(get(t, router, "/api/customers").Body).Decode(&customers); err != nil {
		t.Fatalf("decode customers: %v", err)
	}
	if len(customers) != 15 {
		t.Errorf("expected 15 customers, got %d", len(customers))
	}

	var items []domain.InventoryItem
	if err := json.NewDecoder(get(t, router, "/api/inventory").Body).Decode(&items); err != nil {
		t.Fatalf("decode inventory: %v", err)
	}
	if len(items) != 12 || items[0].SKUCode != "100084-000012-2" {
		t.Errorf("unexpected inventory: %d rows", len(items))
	}
}

func TestGetConfig(t *testing.T) {
	t.Parallel()
	router := newRouter(NewCatalogHandler(&failingCatalog{}, true))

	var cfg struct {
		AIEnabled       bool     `json:"ai_enabled"`
		CanonicalStages []string `json:"canonical_stages"`
	}
	if err := json.NewDecoder(get(t, router, "/api/config").Body).Decode(&cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !cfg.AIEnabled || len(cfg.CanonicalStages) != 5 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestGetMe(t *testing.T) {
	t.Parallel()
	router := newRouter(NewCatalogHandler(&failingCatalog{}, false))

	if w := get(t, router, "/api/me"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(identity.WithIdentity(req.Context(), "anon_0123456789abcdef0123456789abcdef", "tab-9"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var me map[string]string
	if err := json.NewDecoder(w.Body).Decode(&me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if me["session_id"] != "tab-9" || me["username"] != "anon-89abcdef" {
		t.Errorf("unexpected identity: %+v", me)
	}
}

type failingCatalog struct{}

var errCatalog = errors.New("database is closed")

func (failingCatalog) ListOrders(context.Context) ([]*domain.Order, error) { return nil, errCatalog }
func (failingCatalog) GetOrder(context.Context, string) (*domain.Order, error) {
	return nil, errCatalog
}
func (failingCatalog) ListCustomers(context.Context) ([]*domain.Customer, error) {
	return nil, errCatalog
}
func (failingCatalog) ListInventory(context.Context) ([]*domain.InventoryItem, error) {
	return nil, errCatalog
}

func TestCatalogErrorsReturn500(t *testing.T) {
	t.Parallel()
	router := newRouter(NewCatalogHandler(failingCatalog{}, false))

	for _, path := range []string{"/api/orders", "/api/orders/1", "/api/customers", "/api/inventory"} {
		w := get(t, router, path)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected 500, got %d", path, w.Code)
			continue
		}
		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if body["error"] != errCatalog.Error() {
			t.Errorf("%s: error = %q", path, body["error"])
		}
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ping       error
		wantStatus int
		wantState  string
	}{
		{name: "healthy", wantStatus: http.StatusOK, wantState: "healthy"},
		{name: "degraded", ping: errors.New("unreachable"), wantStatus: http.StatusServiceUnavailable, wantState: "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHealthHandler(pingFunc(func(context.Context) error { return tt.ping }), 0)
			r := chi.NewRouter()
			h.RegisterHealth(r)

			w := get(t, r, "/health")
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]any
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != tt.wantState {
				t.Errorf("state = %v, want %s", body["status"], tt.wantState)
			}
		})
	}
}
