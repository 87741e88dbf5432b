package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/fabric-console/internal/domain"
)

// ListOrders returns every order in insertion order.
func (s *SQLiteStore) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT details_json FROM orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer closeRows(rows, "orders")

	return scanOrders(rows, 0)
}

// GetOrder retrieves an order by ID.
func (s *SQLiteStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT details_json FROM orders WHERE order_id = ?`, orderID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan order row: %w", err)
	}
	return decodeOrder(raw)
}

// UpsertOrder creates or replaces an order document.
func (s *SQLiteStore) UpsertOrder(ctx context.Context, order *domain.Order) error {
	if order == nil || order.OrderID == "" {
		return errors.New("upsert order: order id is required")
	}
	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.OrderID, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO orders (order_id, customer_id, customer_name, status, details_json, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(order_id) DO UPDATE SET
		customer_id = excluded.customer_id,
		customer_name = excluded.customer_name,
		status = excluded.status,
		details_json = excluded.details_json,
		updated_at = excluded.updated_at`

	var customerID any
	if order.CustomerID != "" {
		customerID = order.CustomerID
	}

	if _, err := s.db.ExecContext(ctx, query,
		order.OrderID, customerID, order.CustomerName, order.Status,
		string(raw), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	return nil
}

// FindOrdersForCustomer matches a customer name substring or an exact order ID.
func (s *SQLiteStore) FindOrdersForCustomer(ctx context.Context, query string, limit int) ([]*domain.Order, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT details_json FROM orders
		WHERE instr(lower(customer_name), ?) > 0 OR lower(order_id) = ?
		ORDER BY id LIMIT ?`, q, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query customer orders: %w", err)
	}
	defer closeRows(rows, "customer orders")

	return scanOrders(rows, limit)
}

func scanOrders(rows *sql.Rows, capHint int) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0, capHint)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order, err := decodeOrder(raw)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func decodeOrder(raw string) (*domain.Order, error) {
	var order domain.Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &order, nil
}

// ListCustomers returns every customer ordered by customer ID.
func (s *SQLiteStore) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, name, email, zip_code, tier
		FROM customers ORDER BY customer_id`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer closeRows(rows, "customers")

	var customers []*domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.Email, &c.ZipCode, &c.Tier); err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		customers = append(customers, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}

// GetCustomer retrieves a customer by ID.
func (s *SQLiteStore) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT customer_id, name, email, zip_code, tier
		FROM customers WHERE customer_id = ?`, customerID,
	).Scan(&c.CustomerID, &c.Name, &c.Email, &c.ZipCode, &c.Tier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan customer row: %w", err)
	}
	return &c, nil
}

// UpsertCustomer creates or updates a customer record.
func (s *SQLiteStore) UpsertCustomer(ctx context.Context, c *domain.Customer) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO customers (customer_id, name, email, zip_code, tier)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(customer_id) DO UPDATE SET
		name = excluded.name,
		email = excluded.email,
		zip_code = excluded.zip_code,
		tier = excluded.tier`

	if _, err := s.db.ExecContext(ctx, query, c.CustomerID, c.Name, c.Email, c.ZipCode, c.Tier); err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

const inventoryColumns = `sku_code, product_name, location, channel, status,
	avail_to_purchase, avail_to_backorder, avail_to_preorder, eta`

// ListInventory returns every inventory row in insertion order.
func (s *SQLiteStore) ListInventory(ctx context.Context) ([]*domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+inventoryColumns+` FROM inventory ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer closeRows(rows, "inventory")

	return scanInventory(rows)
}

// GetInventoryItem retrieves a row by exact SKU.
func (s *SQLiteStore) GetInventoryItem(ctx context.Context, sku string) (*domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE sku_code = ?`, sku)
	if err != nil {
		return nil, fmt.Errorf("query inventory item: %w", err)
	}
	defer closeRows(rows, "inventory item")

	items, err := scanInventory(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// SearchInventory matches a case-insensitive product name substring.
func (s *SQLiteStore) SearchInventory(ctx context.Context, query string, limit int) ([]*domain.InventoryItem, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+inventoryColumns+` FROM inventory
		WHERE instr(lower(product_name), ?) > 0
		ORDER BY id LIMIT ?`, q, limit)
	if err != nil {
		return nil, fmt.Errorf("search inventory: %w", err)
	}
	defer closeRows(rows, "inventory search")

	return scanInventory(rows)
}

func scanInventory(rows *sql.Rows) ([]*domain.InventoryItem, error) {
	var items []*domain.InventoryItem
	for rows.Next() {
		var item domain.InventoryItem
		var eta sql.NullString
		if err := rows.Scan(
			&item.SKUCode, &item.ProductName, &item.Location, &item.Channel, &item.Status,
			&item.AvailToPurchase, &item.AvailToBackorder, &item.AvailToPreorder, &eta,
		); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		item.ETA = eta.String
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return items, nil
}

// UpsertInventoryItem creates or updates an inventory row keyed by SKU.
func (s *SQLiteStore) UpsertInventoryItem(ctx context.Context, item *domain.InventoryItem) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO inventory (` + inventoryColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(sku_code) DO UPDATE SET
		product_name = excluded.product_name,
		location = excluded.location,
		channel = excluded.channel,
		status = excluded.status,
		avail_to_purchase = excluded.avail_to_purchase,
		avail_to_backorder = excluded.avail_to_backorder,
		avail_to_preorder = excluded.avail_to_preorder,
		eta = excluded.eta`

	var eta any
	if item.ETA != "" {
		eta = item.ETA
	}

	if _, err := s.db.ExecContext(ctx, query,
		item.SKUCode, item.ProductName, item.Location, item.Channel, item.Status,
		item.AvailToPurchase, item.AvailToBackorder, item.AvailToPreorder, eta,
	); err != nil {
		return fmt.Errorf("upsert inventory item: %w", err)
	}
	return nil
}
