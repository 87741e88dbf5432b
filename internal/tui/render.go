package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ashureev/fabric-console/internal/console"
	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/ashureev/fabric-console/internal/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers(headers...)
}

func badge(b console.Badge) string {
	return statusStyle(b.Class).Render(b.Label)
}

// RenderOrders renders the orders table.
func RenderOrders(page console.OrdersPage) string {
	if page.Error != "" {
		return errorStyle.Render(page.Error)
	}
	if len(page.Rows) == 0 {
		return "No orders found."
	}
	t := newTable("Order Number", "Customer", "Email", "Order Total", "Order Status", "Payment Status")
	for _, r := range page.Rows {
		t.Row(r.OrderNumber, r.CustomerName, r.CustomerEmail, r.OrderTotal, badge(r.OrderStatus), badge(r.PaymentStatus))
	}
	return titleStyle.Render("Manage orders") + "\n" + t.String()
}

// RenderCustomers renders the customer table.
func RenderCustomers(page console.CustomersPage) string {
	if page.Error != "" {
		return errorStyle.Render(page.Error)
	}
	if len(page.Rows) == 0 {
		return "No customer data found."
	}
	t := newTable("Name", "Email", "ZIP Code", "Tier")
	for _, r := range page.Rows {
		t.Row(r.Name, r.Email, r.ZipCode, r.Tier.Label)
	}
	return titleStyle.Render("Customers") + "\n" + t.String()
}

// RenderInventory renders the inventory table.
func RenderInventory(page console.InventoryPage) string {
	if page.Error != "" {
		return errorStyle.Render(page.Error)
	}
	if len(page.Rows) == 0 {
		return "No inventory found."
	}
	t := newTable("Product", "SKU", "Location", "Channel", "Status", "Purchase", "Backorder", "Preorder", "ETA")
	for _, r := range page.Rows {
		t.Row(r.ProductName, r.SKUCode, r.Location, r.Channel, badge(r.Status),
			strconv.Itoa(r.AvailToPurchase), strconv.Itoa(r.AvailToBackorder), strconv.Itoa(r.AvailToPreorder), r.ETA)
	}
	return titleStyle.Render("Inventory") + "\n" + t.String()
}

// RenderProgress draws a progress bar as one line of markers and connectors
// followed by the completed count.
func RenderProgress(bar progress.Bar) string {
	var b strings.Builder
	for i, step := range bar.Steps {
		switch {
		case step.Active:
			b.WriteString(stepActiveStyle.Render("◉ " + step.Name))
		case step.Completed:
			b.WriteString(stepDoneStyle.Render("● " + step.Name))
		default:
			b.WriteString(stepPendingStyle.Render("○ " + step.Name))
		}
		if i < len(bar.Connectors) {
			if bar.Connectors[i].Completed {
				b.WriteString(stepDoneStyle.Render(" ━━ "))
			} else {
				b.WriteString(stepPendingStyle.Render(" ── "))
			}
		}
	}
	fmt.Fprintf(&b, "  %s", mutedStyle.Render(fmt.Sprintf("(%d/%d)", bar.CompletedCount(), len(bar.Steps))))
	return b.String()
}

// RenderOrder renders the order detail view.
func RenderOrder(page console.OrderDetailPage) string {
	if page.Error != "" {
		return errorStyle.Render(page.Error)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(page.Title) + "  " + badge(page.Status) + "\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Order ID:"), page.InternalOrderID)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Order type:"), page.OrderType)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Date Created:"), page.DateCreated)

	if len(page.Groups) == 0 {
		b.WriteString("\nNo shipping groups for this order.\n")
	}
	for _, g := range page.Groups {
		fmt.Fprintf(&b, "\n%s [%s]\n", headerStyle.Render(g.Title), g.Type)
		if g.Pickup != nil {
			fmt.Fprintf(&b, "  Pick up by: %s\n  Pick up location: %s\n", g.Pickup.PickUpBy, g.Pickup.PickUpLocation)
		}
		if g.DeliveryAddress != "" {
			fmt.Fprintf(&b, "  Delivery Address: %s\n", g.DeliveryAddress)
		}
		if len(g.Items) == 0 {
			b.WriteString("  No line items in this group.\n")
		}
		for _, item := range g.Items {
			fmt.Fprintf(&b, "  %s  %s  Qty: %d  Total: %s\n", item.SKU, item.ProductName, item.Quantity, item.Total)
			fmt.Fprintf(&b, "    %s\n", RenderProgress(item.Progress))
		}
	}

	b.WriteString("\n" + headerStyle.Render("Order Summary") + "\n")
	if len(page.Summary) == 0 {
		b.WriteString("Summary not available.\n")
	}
	for _, line := range page.Summary {
		text := fmt.Sprintf("  %-12s %s", line.Label+":", line.Amount)
		if line.Total {
			text = headerStyle.Render(text)
		}
		b.WriteString(text + "\n")
	}
	return b.String()
}

// RenderRoute renders a route recommendation and the lanes it beat. A failed
// request renders as an error line; withLogs appends the workflow trace.
func RenderRoute(resp *domain.RouteResponse, err error, withLogs bool) string {
	if err != nil {
		return errorStyle.Render("Could not route order: " + err.Error())
	}

	var b strings.Builder
	rec := resp.Recommendation
	b.WriteString(titleStyle.Render("Recommended route") + "\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Ship from:"), rec.LocationID)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Carrier:"), rec.Carrier)
	fmt.Fprintf(&b, "%s $%.2f, %d day(s), %.2f kg CO2\n", labelStyle.Render("Lane:"), rec.Cost, rec.Days, rec.CO2Kg)
	if resp.Reasoning != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Why:"), resp.Reasoning)
	}

	if len(resp.AlternativesConsidered) > 0 {
		t := newTable("Location", "Carrier", "Zone", "Cost", "Days", "CO2 (kg)")
		for _, o := range resp.AlternativesConsidered {
			t.Row(o.LocationID, o.Carrier, o.Zone, fmt.Sprintf("$%.2f", o.Cost), strconv.Itoa(o.Days), fmt.Sprintf("%.2f", o.CO2Kg))
		}
		b.WriteString("\n" + headerStyle.Render("Alternatives considered") + "\n" + t.String() + "\n")
	}

	if withLogs && len(resp.Logs) > 0 {
		b.WriteString("\n" + headerStyle.Render("Workflow log") + "\n")
		for _, line := range resp.Logs {
			b.WriteString(mutedStyle.Render(line) + "\n")
		}
	}
	return b.String()
}
