package domain

import "strings"

// Shipping group types.
const (
	ShippingTypeDelivery = "Delivery"
	ShippingTypePickUp   = "Pick Up"
)

// DefaultPaymentStatus is reported when an order has no payment status recorded.
const DefaultPaymentStatus = "Paid"

// Order is the full order document served by GET /api/orders/{orderId}.
type Order struct {
	OrderID           string          `json:"orderId"`
	DisplayOrderID    string          `json:"displayOrderId,omitempty"`
	Status            string          `json:"status,omitempty"`
	PaymentStatus     string          `json:"paymentStatus,omitempty"`
	OrderType         string          `json:"orderType,omitempty"`
	DateCreated       string          `json:"dateCreated,omitempty"`
	InternalOrderID   string          `json:"internalOrderId,omitempty"`
	CustomerID        string          `json:"customerId,omitempty"`
	CustomerName      string          `json:"customerName,omitempty"`
	CustomerEmail     string          `json:"customerEmail,omitempty"`
	TrackingNumber    *string         `json:"trackingNumber"`
	EstimatedDelivery string          `json:"estimatedDelivery,omitempty"`
	OrderSummary      *OrderSummary   `json:"orderSummary,omitempty"`
	ShippingGroups    []ShippingGroup `json:"shippingGroups"`
}

// OrderSummary is the money breakdown of an order. Amounts are decimal strings.
type OrderSummary struct {
	Subtotal    string `json:"subtotal"`
	Discount    string `json:"discount"`
	Shipping    string `json:"shipping"`
	Fees        string `json:"fees"`
	Adjustments string `json:"adjustments"`
	Taxes       string `json:"taxes"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
}

// ShippingGroup groups line items that ship or are picked up together.
type ShippingGroup struct {
	GroupTitle      string         `json:"groupTitle,omitempty"`
	Type            string         `json:"type"`
	DeliveryAddress string         `json:"deliveryAddress,omitempty"`
	PickupDetails   *PickupDetails `json:"pickupDetails,omitempty"`
	LineItems       []LineItem     `json:"lineItems"`
}

// PickupDetails describes an in-store pickup.
type PickupDetails struct {
	PickUpBy       string `json:"pickUpBy,omitempty"`
	PickUpLocation string `json:"pickUpLocation,omitempty"`
}

// LineItem is one product entry within a shipping group.
type LineItem struct {
	SKU            string   `json:"sku"`
	ProductName    string   `json:"productName,omitempty"`
	ImageURL       string   `json:"imageUrl,omitempty"`
	Quantity       int      `json:"quantity,omitempty"`
	ItemTotal      string   `json:"itemTotal,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	StatusProgress []string `json:"statusProgress"`
}

// OrderListing is one row of GET /api/orders.
type OrderListing struct {
	OrderNumber   string `json:"orderNumber"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	OrderTotal    string `json:"orderTotal"`
	OrderStatus   string `json:"orderStatus"`
	PaymentStatus string `json:"paymentStatus"`
}

// Listing derives the summary row for an order.
func (o *Order) Listing() OrderListing {
	total := "0.00"
	currency := ""
	if o.OrderSummary != nil {
		if o.OrderSummary.Total != "" {
			total = o.OrderSummary.Total
		}
		currency = o.OrderSummary.Currency
	}
	payment := o.PaymentStatus
	if payment == "" {
		payment = DefaultPaymentStatus
	}
	return OrderListing{
		OrderNumber:   o.OrderID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		OrderTotal:    CurrencySymbol(currency) + total,
		OrderStatus:   o.Status,
		PaymentStatus: payment,
	}
}

// LineItemCount returns the number of line items across all shipping groups.
func (o *Order) LineItemCount() int {
	n := 0
	for _, g := range o.ShippingGroups {
		n += len(g.LineItems)
	}
	return n
}

// CurrencySymbol returns "$" for USD and the currency code otherwise.
func CurrencySymbol(currency string) string {
	if strings.EqualFold(currency, "USD") {
		return "$"
	}
	return currency
}
