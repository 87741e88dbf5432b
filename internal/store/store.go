// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/fabric-console/internal/domain"
)

// Repository defines the interface for persisting console data.
type Repository interface {
	// ListOrders returns every order in insertion order.
	ListOrders(ctx context.Context) ([]*domain.Order, error)

	// GetOrder retrieves an order by ID. It returns nil, nil when absent.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// UpsertOrder creates or replaces an order document.
	UpsertOrder(ctx context.Context, order *domain.Order) error

	// FindOrdersForCustomer returns up to limit orders whose customer name
	// contains query or whose order ID equals it, case-insensitively.
	FindOrdersForCustomer(ctx context.Context, query string, limit int) ([]*domain.Order, error)

	// ListCustomers returns every customer ordered by customer ID.
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)

	// GetCustomer retrieves a customer by ID. It returns nil, nil when absent.
	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)

	// UpsertCustomer creates or updates a customer record.
	UpsertCustomer(ctx context.Context, customer *domain.Customer) error

	// ListInventory returns every inventory row in insertion order.
	ListInventory(ctx context.Context) ([]*domain.InventoryItem, error)

	// GetInventoryItem retrieves a row by exact SKU. It returns nil, nil when absent.
	GetInventoryItem(ctx context.Context, sku string) (*domain.InventoryItem, error)

	// SearchInventory returns up to limit rows whose product name contains query.
	SearchInventory(ctx context.Context, query string, limit int) ([]*domain.InventoryItem, error)

	// UpsertInventoryItem creates or updates an inventory row.
	UpsertInventoryItem(ctx context.Context, item *domain.InventoryItem) error

	// ZoneForZip returns the shipping zone of a ZIP code, or "" when unmapped.
	ZoneForZip(ctx context.Context, zipCode string) (string, error)

	// UpsertZipZone creates or updates a ZIP to zone mapping.
	UpsertZipZone(ctx context.Context, z *domain.ZipZone) error

	// StockForSKU returns the on-hand quantity of sku at every location that
	// carries it, ordered by location.
	StockForSKU(ctx context.Context, sku string) ([]*domain.LocationStock, error)

	// UpsertLocationStock creates or updates one location's quantity for a SKU.
	UpsertLocationStock(ctx context.Context, stock *domain.LocationStock) error

	// ShippingOptions returns the carrier services for sku from location to
	// zone, cheapest first.
	ShippingOptions(ctx context.Context, locationID, zone, sku string) ([]*domain.ShippingOption, error)

	// UpsertShippingOption creates or updates a carrier service.
	UpsertShippingOption(ctx context.Context, option *domain.ShippingOption) error

	// RecordNotification stores a customer notification and fills in its ID
	// and creation time.
	RecordNotification(ctx context.Context, n *domain.CustomerNotification) error

	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// DeleteIdleUsers removes users idle longer than ttl and returns their IDs.
	DeleteIdleUsers(ctx context.Context, ttl time.Duration) ([]string, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
