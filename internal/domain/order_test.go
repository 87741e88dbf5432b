package domain

import "testing"

func TestOrderListingFormatsTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		order   Order
		total   string
		payment string
	}{
		{
			name: "usd symbol",
			order: Order{
				OrderID:       "7201122334455",
				PaymentStatus: "Authorized",
				OrderSummary:  &OrderSummary{Total: "275.00", Currency: "USD"},
			},
			total:   "$275.00",
			payment: "Authorized",
		},
		{
			name: "other currency uses code",
			order: Order{
				OrderID:      "1",
				OrderSummary: &OrderSummary{Total: "10.00", Currency: "EUR"},
			},
			total:   "EUR10.00",
			payment: DefaultPaymentStatus,
		},
		{
			name:    "missing summary",
			order:   Order{OrderID: "2"},
			total:   "0.00",
			payment: DefaultPaymentStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.order.Listing()
			if got.OrderTotal != tt.total {
				t.Errorf("OrderTotal = %q, want %q", got.OrderTotal, tt.total)
			}
			if got.PaymentStatus != tt.payment {
				t.Errorf("PaymentStatus = %q, want %q", got.PaymentStatus, tt.payment)
			}
			if got.OrderNumber != tt.order.OrderID {
				t.Errorf("OrderNumber = %q, want %q", got.OrderNumber, tt.order.OrderID)
			}
		})
	}
}

func TestLineItemCount(t *testing.T) {
	o := Order{ShippingGroups: []ShippingGroup{
		{LineItems: []LineItem{{SKU: "a"}, {SKU: "b"}}},
		{LineItems: []LineItem{{SKU: "c"}}},
	}}
	if n := o.LineItemCount(); n != 3 {
		t.Fatalf("LineItemCount = %d, want 3", n)
	}
}
