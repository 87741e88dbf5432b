package console

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/ashureev/fabric-console/internal/progress"
)

// Display defaults for missing values.
const (
	notAvailable      = "N/A"
	unknownStatus     = "Unknown"
	defaultGroupTitle = "Shipping Group"
	zeroAmount        = "0.00"
)

var whitespace = regexp.MustCompile(`\s+`)

// Source is the data the console pages are built from. *Client implements it.
type Source interface {
	Orders(ctx context.Context) ([]domain.OrderListing, error)
	Order(ctx context.Context, orderID string) (*domain.Order, error)
	Customers(ctx context.Context) ([]domain.Customer, error)
	Inventory(ctx context.Context) ([]domain.InventoryItem, error)
}

var _ Source = (*Client)(nil)

// Badge is a status label with its CSS class.
type Badge struct {
	Label string
	Class string
}

// StatusBadge builds the badge for an order, payment, or stock status.
func StatusBadge(status string) Badge {
	if status == "" {
		return Badge{Label: unknownStatus, Class: "status-unknown"}
	}
	return Badge{Label: status, Class: "status-" + StatusSlug(status)}
}

// StatusSlug lower-cases s and replaces each whitespace run with "-".
func StatusSlug(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(s), "-")
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func orZero(s string) string {
	if s == "" {
		return zeroAmount
	}
	return s
}

// OrderRow is one row of the orders table.
type OrderRow struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	OrderTotal    string
	OrderStatus   Badge
	PaymentStatus Badge
}

// OrdersPage is the "Manage orders" view.
type OrdersPage struct {
	Rows  []OrderRow
	Error string
}

// NewOrdersPage maps order listings to table rows.
func NewOrdersPage(listings []domain.OrderListing) OrdersPage {
	rows := make([]OrderRow, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, OrderRow{
			OrderNumber:   l.OrderNumber,
			CustomerName:  orNA(l.CustomerName),
			CustomerEmail: orNA(l.CustomerEmail),
			OrderTotal:    orNA(l.OrderTotal),
			OrderStatus:   StatusBadge(l.OrderStatus),
			PaymentStatus: StatusBadge(l.PaymentStatus),
		})
	}
	return OrdersPage{Rows: rows}
}

// LineItemView is one purchased item with its progress bar.
type LineItemView struct {
	SKU         string
	ProductName string
	ImageURL    string
	Quantity    int
	Total       string
	Progress    progress.Bar
}

// GroupView is one shipping group of an order.
type GroupView struct {
	Title           string
	Type            string
	TypeClass       string
	Pickup          *domain.PickupDetails
	DeliveryAddress string
	Items           []LineItemView
}

// SummaryLine is one row of the order summary sidebar.
type SummaryLine struct {
	Label  string
	Amount string
	Total  bool
}

// OrderDetailPage is the single order view.
type OrderDetailPage struct {
	OrderID         string
	Title           string
	Status          Badge
	InternalOrderID string
	OrderType       string
	DateCreated     string
	Groups          []GroupView
	Summary         []SummaryLine
	Error           string
}

// NewOrderDetailPage builds the detail view, rendering one progress bar per
// line item against the canonical stages.
func NewOrderDetailPage(o *domain.Order) OrderDetailPage {
	title := o.DisplayOrderID
	if title == "" {
		title = o.OrderID
	}
	page := OrderDetailPage{
		OrderID:         o.OrderID,
		Title:           "Order " + title,
		Status:          StatusBadge(o.Status),
		InternalOrderID: orNA(o.InternalOrderID),
		OrderType:       orNA(o.OrderType),
		DateCreated:     orNA(o.DateCreated),
		Summary:         summaryLines(o.OrderSummary),
	}

	for _, g := range o.ShippingGroups {
		gv := GroupView{
			Title:     g.GroupTitle,
			Type:      g.Type,
			TypeClass: "status-type-" + strings.ToLower(g.Type),
		}
		if gv.Title == "" {
			gv.Title = defaultGroupTitle
		}
		switch {
		case g.Type == domain.ShippingTypePickUp && g.PickupDetails != nil:
			gv.Pickup = &domain.PickupDetails{
				PickUpBy:       orNA(g.PickupDetails.PickUpBy),
				PickUpLocation: orNA(g.PickupDetails.PickUpLocation),
			}
		case g.Type == domain.ShippingTypeDelivery:
			gv.DeliveryAddress = g.DeliveryAddress
		}
		for _, item := range g.LineItems {
			qty := item.Quantity
			if qty == 0 {
				qty = 1
			}
			gv.Items = append(gv.Items, LineItemView{
				SKU:         item.SKU,
				ProductName: orNA(item.ProductName),
				ImageURL:    item.ImageURL,
				Quantity:    qty,
				Total:       domain.CurrencySymbol(item.Currency) + orNA(item.ItemTotal),
				Progress:    progress.RenderCanonical(item.StatusProgress),
			})
		}
		page.Groups = append(page.Groups, gv)
	}
	return page
}

func summaryLines(s *domain.OrderSummary) []SummaryLine {
	if s == nil {
		return nil
	}
	sym := domain.CurrencySymbol(s.Currency)
	return []SummaryLine{
		{Label: "Subtotal", Amount: sym + orZero(s.Subtotal)},
		{Label: "Discount", Amount: "-" + sym + orZero(s.Discount)},
		{Label: "Shipping", Amount: sym + orZero(s.Shipping)},
		{Label: "Fees", Amount: sym + orZero(s.Fees)},
		{Label: "Adjustments", Amount: sym + orZero(s.Adjustments)},
		{Label: "Taxes", Amount: sym + orZero(s.Taxes)},
		{Label: "Total", Amount: sym + orZero(s.Total), Total: true},
	}
}

// CustomerRow is one row of the customers table.
type CustomerRow struct {
	Name    string
	Email   string
	ZipCode string
	Tier    Badge
}

// CustomersPage is the customer list view.
type CustomersPage struct {
	Rows  []CustomerRow
	Error string
}

// NewCustomersPage maps customers to table rows.
func NewCustomersPage(customers []domain.Customer) CustomersPage {
	rows := make([]CustomerRow, 0, len(customers))
	for _, c := range customers {
		tier := c.Tier
		if tier == "" {
			tier = domain.DefaultTier
		}
		rows = append(rows, CustomerRow{
			Name:    orNA(c.Name),
			Email:   orNA(c.Email),
			ZipCode: orNA(c.ZipCode),
			Tier:    Badge{Label: tier, Class: "status-tier-" + strings.ToLower(tier)},
		})
	}
	return CustomersPage{Rows: rows}
}

// InventoryRow is one row of the inventory table.
type InventoryRow struct {
	ProductName      string
	SKUCode          string
	Location         string
	Channel          string
	Status           Badge
	AvailToPurchase  int
	AvailToBackorder int
	AvailToPreorder  int
	ETA              string
}

// InventoryPage is the inventory table view.
type InventoryPage struct {
	Rows  []InventoryRow
	Error string
}

// NewInventoryPage maps stock positions to table rows.
func NewInventoryPage(items []domain.InventoryItem) InventoryPage {
	rows := make([]InventoryRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, InventoryRow{
			ProductName:      orNA(it.ProductName),
			SKUCode:          it.SKUCode,
			Location:         orNA(it.Location),
			Channel:          orNA(it.Channel),
			Status:           StatusBadge(it.Status),
			AvailToPurchase:  it.AvailToPurchase,
			AvailToBackorder: it.AvailToBackorder,
			AvailToPreorder:  it.AvailToPreorder,
			ETA:              it.ETA,
		})
	}
	return InventoryPage{Rows: rows}
}

// LoadOrdersPage fetches and maps the orders list. Failures end up in Error.
func LoadOrdersPage(ctx context.Context, src Source) OrdersPage {
	listings, err := src.Orders(ctx)
	if err != nil {
		slog.Warn("Error fetching orders", "kind", Kind(err), "error", err)
		return OrdersPage{Error: "Error loading orders: " + err.Error()}
	}
	return NewOrdersPage(listings)
}

// LoadOrderDetailPage fetches and maps one order. Failures end up in Error.
func LoadOrderDetailPage(ctx context.Context, src Source, orderID string) OrderDetailPage {
	order, err := src.Order(ctx, orderID)
	if err != nil {
		slog.Warn("Error fetching order details", "order_id", orderID, "kind", Kind(err), "error", err)
		return OrderDetailPage{OrderID: orderID, Error: "Error loading order details: " + err.Error()}
	}
	return NewOrderDetailPage(order)
}

// LoadCustomersPage fetches and maps the customer list. Failures end up in Error.
func LoadCustomersPage(ctx context.Context, src Source) CustomersPage {
	customers, err := src.Customers(ctx)
	if err != nil {
		slog.Warn("Error fetching customer data", "kind", Kind(err), "error", err)
		return CustomersPage{Error: "Error loading customer data: " + err.Error()}
	}
	return NewCustomersPage(customers)
}

// LoadInventoryPage fetches and maps the inventory. Failures end up in Error.
func LoadInventoryPage(ctx context.Context, src Source) InventoryPage {
	items, err := src.Inventory(ctx)
	if err != nil {
		slog.Warn("Error fetching inventory", "kind", Kind(err), "error", err)
		return InventoryPage{Error: "Error loading inventory: " + err.Error()}
	}
	return NewInventoryPage(items)
}
