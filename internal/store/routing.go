package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/fabric-console/internal/domain"
)

// ZoneForZip returns the shipping zone of a ZIP code.
func (s *SQLiteStore) ZoneForZip(ctx context.Context, zipCode string) (string, error) {
	var zone string
	err := s.db.QueryRowContext(ctx, `SELECT zone FROM zip_zones WHERE zip_code = ?`,
		strings.TrimSpace(zipCode)).Scan(&zone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scan zip zone: %w", err)
	}
	return zone, nil
}

// UpsertZipZone creates or updates a ZIP to zone mapping.
func (s *SQLiteStore) UpsertZipZone(ctx context.Context, z *domain.ZipZone) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO zip_zones (zip_code, zone) VALUES (?, ?)
	ON CONFLICT(zip_code) DO UPDATE SET zone = excluded.zone`

	if _, err := s.db.ExecContext(ctx, query, z.ZipCode, z.Zone); err != nil {
		return fmt.Errorf("upsert zip zone: %w", err)
	}
	return nil
}

// StockForSKU returns per-location quantities for sku.
func (s *SQLiteStore) StockForSKU(ctx context.Context, sku string) ([]*domain.LocationStock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT location_id, sku, quantity FROM location_stock
		WHERE sku = ? ORDER BY location_id`, sku)
	if err != nil {
		return nil, fmt.Errorf("query location stock: %w", err)
	}
	defer closeRows(rows, "location stock")

	var out []*domain.LocationStock
	for rows.Next() {
		var ls domain.LocationStock
		if err := rows.Scan(&ls.LocationID, &ls.SKU, &ls.Quantity); err != nil {
			return nil, fmt.Errorf("scan location stock: %w", err)
		}
		out = append(out, &ls)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate location stock: %w", err)
	}
	return out, nil
}

// UpsertLocationStock creates or updates one location's quantity for a SKU.
func (s *SQLiteStore) UpsertLocationStock(ctx context.Context, stock *domain.LocationStock) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO location_stock (location_id, sku, quantity) VALUES (?, ?, ?)
	ON CONFLICT(location_id, sku) DO UPDATE SET quantity = excluded.quantity`

	if _, err := s.db.ExecContext(ctx, query, stock.LocationID, stock.SKU, stock.Quantity); err != nil {
		return fmt.Errorf("upsert location stock: %w", err)
	}
	return nil
}

// ShippingOptions returns carrier services for sku from a location to a zone.
func (s *SQLiteStore) ShippingOptions(ctx context.Context, locationID, zone, sku string) ([]*domain.ShippingOption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT location_id, zone, sku, carrier, cost, days, co2_kg
		FROM shipping_options
		WHERE location_id = ? AND zone = ? AND sku = ?
		ORDER BY cost, days, id`, locationID, zone, sku)
	if err != nil {
		return nil, fmt.Errorf("query shipping options: %w", err)
	}
	defer closeRows(rows, "shipping options")

	var out []*domain.ShippingOption
	for rows.Next() {
		var o domain.ShippingOption
		if err := rows.Scan(&o.LocationID, &o.Zone, &o.SKU, &o.Carrier, &o.Cost, &o.Days, &o.CO2Kg); err != nil {
			return nil, fmt.Errorf("scan shipping option: %w", err)
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipping options: %w", err)
	}
	return out, nil
}

// UpsertShippingOption creates or updates a carrier service keyed by
// location, zone, SKU and carrier.
func (s *SQLiteStore) UpsertShippingOption(ctx context.Context, o *domain.ShippingOption) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO shipping_options (location_id, zone, sku, carrier, cost, days, co2_kg)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(location_id, zone, sku, carrier) DO UPDATE SET
		cost = excluded.cost,
		days = excluded.days,
		co2_kg = excluded.co2_kg`

	if _, err := s.db.ExecContext(ctx, query,
		o.LocationID, o.Zone, o.SKU, o.Carrier, o.Cost, o.Days, o.CO2Kg,
	); err != nil {
		return fmt.Errorf("upsert shipping option: %w", err)
	}
	return nil
}

// RecordNotification stores a customer notification.
func (s *SQLiteStore) RecordNotification(ctx context.Context, n *domain.CustomerNotification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO customer_notifications (customer_id, order_id, message, created_at)
		VALUES (?, ?, ?, ?)`,
		n.CustomerID, n.OrderID, n.Message, n.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("notification id: %w", err)
	}
	n.ID = id
	return nil
}
