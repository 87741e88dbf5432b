package agent

import (
	"context"
	"strings"
	"testing"
	"time"
)

func fixedToolbox(store *fakeStore, now time.Time) *Toolbox {
	tb := NewToolbox(store)
	tb.now = func() time.Time { return now }
	return tb
}

func TestGetProductETA(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	tb := fixedToolbox(newFakeStore(), now)
	ctx := context.Background()

	res, err := tb.GetProductETA(ctx, "420081-000015-2")
	if err != nil {
		t.Fatalf("GetProductETA: %v", err)
	}
	if res.Status != toolStatusSuccess || res.Data.(etaInfo).ETA != "2025-08-15" {
		t.Errorf("recorded eta = %+v", res)
	}

	res, err = tb.GetProductETA(ctx, "760083-000015-2")
	if err != nil {
		t.Fatalf("GetProductETA: %v", err)
	}
	eta, err := time.Parse("2006-01-02", res.Data.(etaInfo).ETA)
	if err != nil {
		t.Fatalf("parse estimate: %v", err)
	}
	days := int(eta.Sub(now.Truncate(24*time.Hour)).Hours() / 24)
	if days < minRestockDays || days > maxRestockDays {
		t.Errorf("estimate %s is %d days out", eta.Format("2006-01-02"), days)
	}
	again, _ := tb.GetProductETA(ctx, "760083-000015-2")
	if again.Data.(etaInfo).ETA != res.Data.(etaInfo).ETA {
		t.Errorf("estimate changed between calls: %v then %v", res.Data, again.Data)
	}

	res, _ = tb.GetProductETA(ctx, "B001-CHAIR-RED")
	if res.Status != toolStatusNotApplicable || !strings.Contains(res.Message, "currently 'Available'") {
		t.Errorf("available item = %+v", res)
	}

	res, _ = tb.GetProductETA(ctx, "NOPE-0000-1")
	if res.Status != toolStatusNotFound {
		t.Errorf("unknown sku = %+v", res)
	}
}

func TestRestockOffsetDaysInRange(t *testing.T) {
	t.Parallel()

	for _, sku := range []string{"", "a", "760083-000015-2", "T009-TABLE-WHT", "S007-SOFA-GRN", strings.Repeat("x", 200)} {
		if d := restockOffsetDays(sku); d < minRestockDays || d > maxRestockDays {
			t.Errorf("restockOffsetDays(%q) = %d", sku, d)
		}
	}
}

func TestCheckAlternativeSourcing(t *testing.T) {
	t.Parallel()

	tb := NewToolbox(newFakeStore())
	ctx := context.Background()

	res, err := tb.CheckAlternativeSourcing(ctx, "100084-000012-2", "7201122334455")
	if err != nil {
		t.Fatalf("CheckAlternativeSourcing: %v", err)
	}
	info := res.Data.(sourcingInfo)
	if res.Status != toolStatusFound || len(info.Sources) != 2 {
		t.Fatalf("result = %+v", res)
	}
	for _, src := range info.Sources {
		if src.LocationID == "Warehouse East" {
			t.Errorf("primary location offered as alternative: %+v", src)
		}
	}
	if !strings.Contains(res.Message, "10 units across 2 other location(s)") {
		t.Errorf("message = %q", res.Message)
	}

	res, err = tb.CheckAlternativeSourcing(ctx, "760083-000015-2", "8302233445566")
	if err != nil {
		t.Fatalf("CheckAlternativeSourcing: %v", err)
	}
	if res.Status != toolStatusNotFound {
		t.Errorf("backordered coffee table = %+v", res)
	}
}

func TestNotifyCustomer(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	tb := fixedToolbox(store, now)
	ctx := context.Background()

	res, err := tb.NotifyCustomer(ctx, "cust456", "8302233445566", "  Your order is delayed.  ")
	if err != nil {
		t.Fatalf("NotifyCustomer: %v", err)
	}
	if res.Status != toolStatusSuccess || res.Message != "Customer notification recorded." {
		t.Fatalf("result = %+v", res)
	}
	if len(store.notifications) != 1 {
		t.Fatalf("notifications = %d", len(store.notifications))
	}
	n := store.notifications[0]
	if n.Message != "Your order is delayed." || !n.CreatedAt.Equal(now) || n.ID == 0 {
		t.Errorf("notification = %+v", n)
	}

	res, _ = tb.NotifyCustomer(ctx, "cust999", "1", "hi")
	if res.Status != toolStatusNotFound {
		t.Errorf("unknown customer = %+v", res)
	}
	res, _ = tb.NotifyCustomer(ctx, "cust456", "1", " ")
	if res.Status != toolStatusError {
		t.Errorf("blank message = %+v", res)
	}
	if len(store.notifications) != 1 {
		t.Errorf("rejected notifications were stored: %d", len(store.notifications))
	}
}
