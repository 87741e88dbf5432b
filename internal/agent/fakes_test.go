package agent

import (
	"context"
	"strings"

	"github.com/ashureev/fabric-console/internal/domain"
)

type fakeStore struct {
	orders        []*domain.Order
	inventory     []*domain.InventoryItem
	customers     []*domain.Customer
	zones         map[string]string
	stock         []*domain.LocationStock
	shipping      []*domain.ShippingOption
	notifications []*domain.CustomerNotification
	err           error
}

func newFakeStore() *fakeStore {
	tracking := "TN123456789"
	return &fakeStore{
		orders: []*domain.Order{
			{
				OrderID:        "7201122334455",
				DisplayOrderID: "#7201122334455",
				CustomerName:   "Alice Wonderland",
				Status:         "Shipped",
				TrackingNumber: &tracking,
				OrderSummary:   &domain.OrderSummary{Total: "275.00", Currency: "USD"},
				ShippingGroups: []domain.ShippingGroup{{
					Type: domain.ShippingTypeDelivery,
					LineItems: []domain.LineItem{{
						SKU:            "product_A",
						ProductName:    "3-Shelf Bookcase / Grey / Small",
						StatusProgress: []string{"Created", "Allocated", "Shipped"},
					}},
				}},
			},
			{OrderID: "8302233445566", CustomerName: "Bob The Builder", Status: "Processing"},
		},
		inventory: []*domain.InventoryItem{
			{SKUCode: "100084-000012-2", ProductName: "3-Shelf Bookcase / Grey / Small", Location: "Warehouse East", Channel: "Online Store", Status: domain.InventoryLowStock, AvailToPurchase: 130, AvailToBackorder: 18, AvailToPreorder: 15},
			{SKUCode: "B001-CHAIR-RED", ProductName: "Ergonomic Office Chair / Red Mesh", Location: "Showroom Central", Channel: "Retail Outlet A", Status: domain.InventoryAvailable, AvailToPurchase: 75},
			{SKUCode: "420081-000015-2", ProductName: "Oceanside Sectional Sofa / White Linen", Location: "Warehouse West", Channel: "Online Store", Status: domain.InventoryPreorder, AvailToPreorder: 135, ETA: "2025-08-15"},
			{SKUCode: "760083-000015-2", ProductName: "Minimalist Coffee Table / Oak / Small", Location: "Warehouse East", Channel: "Retail Outlet B", Status: domain.InventoryBackorder, AvailToPurchase: 274, AvailToBackorder: 15},
		},
		customers: []*domain.Customer{
			{CustomerID: "cust123", Name: "Alice Wonderland", ZipCode: "10001", Tier: "gold"},
			{CustomerID: "cust456", Name: "Bob The Builder", ZipCode: "90210", Tier: "silver"},
			{CustomerID: "cust789", Name: "Charlie Brown", ZipCode: "60606", Tier: ""},
			{CustomerID: "cust000", Name: "No Zip"},
		},
		zones: map[string]string{"10001": "ZONE_1", "60606": "ZONE_1", "90210": "ZONE_2"},
		stock: []*domain.LocationStock{
			{LocationID: "Showroom Central", SKU: "100084-000012-2", Quantity: 3},
			{LocationID: "Warehouse East", SKU: "100084-000012-2", Quantity: 10},
			{LocationID: "Warehouse West", SKU: "100084-000012-2", Quantity: 7},
			{LocationID: "Warehouse East", SKU: "760083-000015-2", Quantity: 0},
		},
		shipping: []*domain.ShippingOption{
			{LocationID: "Warehouse East", Zone: "ZONE_1", SKU: "100084-000012-2", Carrier: "CarrierX_Std", Cost: 10, Days: 3, CO2Kg: 0.5},
			{LocationID: "Warehouse East", Zone: "ZONE_1", SKU: "100084-000012-2", Carrier: "CarrierY_Exp", Cost: 15, Days: 1, CO2Kg: 0.8},
			{LocationID: "Warehouse West", Zone: "ZONE_1", SKU: "100084-000012-2", Carrier: "CarrierZ_Std", Cost: 22, Days: 5, CO2Kg: 1.1},
			{LocationID: "Showroom Central", Zone: "ZONE_1", SKU: "100084-000012-2", Carrier: "LocalCourier_Std", Cost: 20, Days: 2, CO2Kg: 0.2},
			{LocationID: "Warehouse East", Zone: "ZONE_2", SKU: "100084-000012-2", Carrier: "CarrierX_Std", Cost: 25, Days: 5, CO2Kg: 1.2},
			{LocationID: "Warehouse West", Zone: "ZONE_2", SKU: "100084-000012-2", Carrier: "CarrierZ_Std", Cost: 9, Days: 3, CO2Kg: 0.4},
			{LocationID: "Warehouse West", Zone: "ZONE_2", SKU: "100084-000012-2", Carrier: "CarrierW_Exp", Cost: 14, Days: 1, CO2Kg: 0.6},
		},
	}
}

func (f *fakeStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, o := range f.orders {
		if o.OrderID == id {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindOrdersForCustomer(_ context.Context, q string, limit int) ([]*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	q = strings.ToLower(q)
	var out []*domain.Order
	for _, o := range f.orders {
		if strings.Contains(strings.ToLower(o.CustomerName), q) || strings.ToLower(o.OrderID) == q {
			out = append(out, o)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GetInventoryItem(_ context.Context, sku string) (*domain.InventoryItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, i := range f.inventory {
		if i.SKUCode == sku {
			return i, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SearchInventory(_ context.Context, q string, limit int) ([]*domain.InventoryItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	q = strings.ToLower(q)
	var out []*domain.InventoryItem
	for _, i := range f.inventory {
		if strings.Contains(strings.ToLower(i.ProductName), q) {
			out = append(out, i)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.customers {
		if c.CustomerID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ZoneForZip(_ context.Context, zip string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.zones[zip], nil
}

func (f *fakeStore) StockForSKU(_ context.Context, sku string) ([]*domain.LocationStock, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.LocationStock
	for _, st := range f.stock {
		if st.SKU == sku {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStore) ShippingOptions(_ context.Context, location, zone, sku string) ([]*domain.ShippingOption, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.ShippingOption
	for _, o := range f.shipping {
		if o.LocationID == location && o.Zone == zone && o.SKU == sku {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) RecordNotification(_ context.Context, n *domain.CustomerNotification) error {
	if f.err != nil {
		return f.err
	}
	n.ID = int64(len(f.notifications) + 1)
	f.notifications = append(f.notifications, n)
	return nil
}

func userMsg(content string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "Hi there! How can I help you with Fabric Intelligence today?"},
		{Role: domain.RoleUser, Content: content},
	}
}
