package store

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ashureev/fabric-console/internal/domain"
)

//go:embed fixtures/*.json
var fixtures embed.FS

// Fixtures is the demo catalog bundled with the binary.
type Fixtures struct {
	Orders    []*domain.Order
	Customers []*domain.Customer
	Inventory []*domain.InventoryItem
	Routing   RoutingFixtures
}

// RoutingFixtures is the network data route optimization reads.
type RoutingFixtures struct {
	Zones    []*domain.ZipZone        `json:"zones"`
	Stock    []*domain.LocationStock  `json:"stock"`
	Shipping []*domain.ShippingOption `json:"shipping"`
}

// LoadFixtures decodes the embedded demo catalog.
func LoadFixtures() (*Fixtures, error) {
	var f Fixtures
	if err := readFixture("fixtures/orders.json", &f.Orders); err != nil {
		return nil, err
	}
	if err := readFixture("fixtures/customers.json", &f.Customers); err != nil {
		return nil, err
	}
	if err := readFixture("fixtures/inventory.json", &f.Inventory); err != nil {
		return nil, err
	}
	if err := readFixture("fixtures/routing.json", &f.Routing); err != nil {
		return nil, err
	}
	return &f, nil
}

func readFixture(name string, dst any) error {
	raw, err := fixtures.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return nil
}

// Seed loads the embedded catalog into repo when it holds no orders.
// It reports whether anything was written.
func Seed(ctx context.Context, repo Repository) (bool, error) {
	existing, err := repo.ListOrders(ctx)
	if err != nil {
		return false, fmt.Errorf("check existing orders: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	f, err := LoadFixtures()
	if err != nil {
		return false, err
	}

	for _, o := range f.Orders {
		if err := repo.UpsertOrder(ctx, o); err != nil {
			return false, fmt.Errorf("seed order %s: %w", o.OrderID, err)
		}
	}
	for _, c := range f.Customers {
		if err := repo.UpsertCustomer(ctx, c); err != nil {
			return false, fmt.Errorf("seed customer %s: %w", c.CustomerID, err)
		}
	}
	for _, item := range f.Inventory {
		if err := repo.UpsertInventoryItem(ctx, item); err != nil {
			return false, fmt.Errorf("seed inventory %s: %w", item.SKUCode, err)
		}
	}

	if err := seedRouting(ctx, repo, f.Routing); err != nil {
		return false, err
	}

	slog.Info("Seeded demo catalog",
		"orders", len(f.Orders),
		"customers", len(f.Customers),
		"inventory", len(f.Inventory),
		"stock_positions", len(f.Routing.Stock),
		"shipping_options", len(f.Routing.Shipping))
	return true, nil
}

func seedRouting(ctx context.Context, repo Repository, r RoutingFixtures) error {
	for _, z := range r.Zones {
		if err := repo.UpsertZipZone(ctx, z); err != nil {
			return fmt.Errorf("seed zone %s: %w", z.ZipCode, err)
		}
	}
	for _, st := range r.Stock {
		if err := repo.UpsertLocationStock(ctx, st); err != nil {
			return fmt.Errorf("seed stock %s@%s: %w", st.SKU, st.LocationID, err)
		}
	}
	for _, o := range r.Shipping {
		if err := repo.UpsertShippingOption(ctx, o); err != nil {
			return fmt.Errorf("seed shipping %s %s->%s: %w", o.Carrier, o.LocationID, o.Zone, err)
		}
	}
	return nil
}
