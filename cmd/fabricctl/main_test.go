package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"orderNumber":"7201122334455","customerName":"Alice","orderTotal":"$275.00","orderStatus":"Shipped","paymentStatus":"Paid"}]`))
	})
	mux.HandleFunc("/api/orders/7201122334455", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"orderId":"7201122334455","status":"Shipped","shippingGroups":[{"type":"Delivery","lineItems":[{"sku":"A-1-1","statusProgress":["Created","Allocated","Picked Up"]}]}]}`))
	})
	mux.HandleFunc("/api/orders/404", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Order not found"}`))
	})
	mux.HandleFunc("/api/customers", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Bob","tier":"Gold"}]`))
	})
	mux.HandleFunc("/api/inventory", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"db down"}`))
	})
	mux.HandleFunc("/api/optimize-route", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CustomerID string `json:"customer_id"`
			Priority   string `json:"business_priority"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.CustomerID == "nobody" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"Customer ID 'nobody' not found in CRM.","logs":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"recommendation":{"location_id":"Warehouse West","carrier":"CarrierZ_Std","cost":9,"days":3,"co2_kg":0.4},"reasoning":"` + req.Priority + `: cheapest","logs":["level=INFO msg=\"Route chosen\""]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTableCommands(t *testing.T) {
	t.Parallel()

	srv := fakeAPI(t)
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"orders"}, []string{"7201122334455", "Alice", "$275.00"}},
		{[]string{"order", "7201122334455"}, []string{"Order 7201122334455", "◉ Picked Up", "(3/5)"}},
		{[]string{"order", "404"}, []string{"Error loading order details: Order not found"}},
		{[]string{"customers"}, []string{"Bob", "Gold"}},
		{[]string{"inventory"}, []string{"Error loading inventory: db down"}},
		{[]string{"route", "--product", "100084-000012-2", "--customer", "cust456"}, []string{"Warehouse West", "CarrierZ_Std", "MINIMIZE_COST: cheapest"}},
		{[]string{"route", "--product", "p", "--customer", "cust456", "--priority", "MINIMIZE_CO2", "--logs"}, []string{"MINIMIZE_CO2: cheapest", "Route chosen"}},
		{[]string{"route", "--product", "p", "--customer", "nobody"}, []string{"Could not route order: Customer ID 'nobody' not found in CRM."}},
	}
	for _, tt := range tests {
		out, err := runCmd(t, append(tt.args, "--api", srv.URL)...)
		if err != nil {
			t.Errorf("%v: unexpected error %v", tt.args, err)
			continue
		}
		for _, w := range tt.want {
			if !strings.Contains(out, w) {
				t.Errorf("%v: output missing %q:\n%s", tt.args, w, out)
			}
		}
	}
}

func TestMisuseFails(t *testing.T) {
	t.Parallel()

	if _, err := runCmd(t, "order"); err == nil {
		t.Error("order without id should fail")
	}
	if _, err := runCmd(t, "route", "--product", "p"); err == nil {
		t.Error("route without customer should fail")
	}
	if _, err := runCmd(t, "orders", "--api", "::bad"); err == nil {
		t.Error("invalid api url should fail")
	}
}

func TestUnreachableAPIPrintsInline(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out, err := runCmd(t, "customers", "--api", url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Error loading customer data:") {
		t.Errorf("output = %q", out)
	}
}
