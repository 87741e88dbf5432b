package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/fabric-console/internal/chat"
	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/ashureev/fabric-console/internal/identity"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	return newTestClientOpts(t, h, WithSessionID("tab-1"))
}

func newTestClientOpts(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClientOrders(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var gotSession string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotSession = r.Header.Get(identity.SessionHeaderName)
		mu.Unlock()
		if r.URL.Path != "/api/orders" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"orderNumber":"1","customerName":"Ann","orderTotal":"$1.00","orderStatus":"Shipped","paymentStatus":"Paid"}]`))
	}))

	orders, err := c.Orders(context.Background())
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(orders) != 1 || orders[0].CustomerName != "Ann" {
		t.Fatalf("unexpected orders: %+v", orders)
	}
	mu.Lock()
	defer mu.Unlock()
	if gotSession != "tab-1" {
		t.Errorf("session header = %q", gotSession)
	}
}

func TestClientKeepsCookies(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if ck, err := r.Cookie(identity.AnonCookieName); err == nil {
			seen = append(seen, ck.Value)
		} else {
			http.SetCookie(w, &http.Cookie{Name: identity.AnonCookieName, Value: "anon_abc", Path: "/"})
			seen = append(seen, "")
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	for i := 0; i < 2; i++ {
		if _, err := c.Customers(context.Background()); err != nil {
			t.Fatalf("Customers: %v", err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "" || seen[1] != "anon_abc" {
		t.Fatalf("cookie not kept between calls: %v", seen)
	}
}

func TestClientWithAnonID(t *testing.T) {
	t.Parallel()

	got := make(chan string, 1)
	c := newTestClientOpts(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(identity.AnonCookieName)
		if err != nil {
			got <- ""
		} else {
			got <- ck.Value
		}
		_, _ = w.Write([]byte(`[]`))
	}), WithAnonID("anon_0123"))

	if _, err := c.Inventory(context.Background()); err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if v := <-got; v != "anon_0123" {
		t.Errorf("anon cookie = %q", v)
	}
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
		wantMsg  string
	}{
		{"error field", http.StatusNotFound, `{"error":"Order not found"}`, KindHTTP, "Order not found"},
		{"unparsable body", http.StatusBadGateway, `<html>bad gateway</html>`, KindHTTP, unparsableErrorBody},
		{"no error field", http.StatusServiceUnavailable, `{"detail":"x"}`, KindHTTP, "HTTP error! Status: 503"},
		{"malformed success", http.StatusOK, `{"orderId":`, KindMalformed, "malformed response"},
		{"missing order id", http.StatusOK, `{"status":"Shipped"}`, KindMalformed, "order has no orderId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := c.Order(context.Background(), "42")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := Kind(err); got != tt.wantKind {
				t.Errorf("Kind = %s, want %s", got, tt.wantKind)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, tt.status)
			}
		})
	}
}

func TestClientNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.Inventory(context.Background())
	if Kind(err) != KindNetwork {
		t.Fatalf("Kind = %s, want network (err=%v)", Kind(err), err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("not a url"); err == nil {
		t.Fatal("expected error for invalid base url")
	}
}

func TestKind(t *testing.T) {
	t.Parallel()

	if Kind(nil) != KindNone {
		t.Error("nil should be KindNone")
	}
	if Kind(context.Canceled) != KindOther {
		t.Error("plain errors should be KindOther")
	}
}

func TestClientChatWithManager(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var requests [][]domain.ChatMessage
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		var body struct {
			Messages []domain.ChatMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		requests = append(requests, body.Messages)
		if len(requests) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"agent offline"}`))
			return
		}
		_, _ = w.Write([]byte(`{"response":"Order is on its way.","suggestions":[{"id":"s1","title":"Track it"}]}`))
	}))

	m := chat.NewManager(c, nil)
	m.Initialize()
	ctx := context.Background()

	m.Submit(ctx, "where is my order")
	m.Submit(ctx, "try again")

	history := m.History()
	want := []string{
		chat.Greeting,
		"where is my order",
		"Sorry, I encountered an error: agent offline",
		"try again",
		"Order is on its way.",
	}
	if len(history) != len(want) {
		t.Fatalf("history = %+v", history)
	}
	for i, w := range want {
		if history[i].Content != w {
			t.Errorf("history[%d] = %q, want %q", i, history[i].Content, w)
		}
	}
	mu.Lock()
	if len(requests) != 2 || len(requests[1]) != 4 {
		t.Errorf("second request should carry 4 messages, got %+v", requests)
	}
	mu.Unlock()
	if err := m.SuggestionClick(ctx, "s1"); err != nil {
		t.Errorf("SuggestionClick: %v", err)
	}
}

type memUsers struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	created int
}

func (m *memUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUsers) UpsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.UserID]; !ok {
		m.created++
	}
	cp := *u
	m.users[u.UserID] = &cp
	return nil
}

func (m *memUsers) UpdateLastSeen(context.Context, string, time.Time) error { return nil }

// A production-mode identity middleware reached over plain http must keep the
// preset user across calls.
func TestClientKeepsAnonIDBehindProductionIdentity(t *testing.T) {
	t.Parallel()

	const anonID = "anon_0123456789abcdef0123456789abcdef"
	users := &memUsers{users: make(map[string]*domain.User)}

	var mu sync.Mutex
	var seen []string
	h := identity.Middleware(users, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, identity.UserIDFromContext(r.Context()))
		mu.Unlock()
		_, _ = w.Write([]byte(`[]`))
	}))
	c := newTestClientOpts(t, h, WithAnonID(anonID), WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))

	for i := 0; i < 3; i++ {
		if _, err := c.Orders(context.Background()); err != nil {
			t.Fatalf("Orders #%d: %v", i+1, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, id := range seen {
		if id != anonID {
			t.Errorf("call %d ran as %q, want %q", i+1, id, anonID)
		}
	}
	users.mu.Lock()
	defer users.mu.Unlock()
	if users.created != 1 {
		t.Errorf("users created = %d, want 1", users.created)
	}
}

func TestWithHTTPClientLeavesCallerClientAlone(t *testing.T) {
	t.Parallel()

	hc := &http.Client{Timeout: time.Second}
	c, err := NewClient("http://127.0.0.1:5001/", WithHTTPClient(hc))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if hc.Jar != nil {
		t.Error("caller's client got a cookie jar")
	}
	if c.BaseURL() != "http://127.0.0.1:5001" {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
	if c.SessionID() == "" {
		t.Error("expected a generated session id")
	}
}

func TestClientOptimizeRoute(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var got domain.RouteRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/optimize-route" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		customer := got.CustomerID
		mu.Unlock()
		if customer == "nobody" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"Customer ID 'nobody' not found in CRM.","logs":["level=INFO msg=\"Intake started\""]}`))
			return
		}
		_, _ = w.Write([]byte(`{"recommendation":{"location_id":"Warehouse East","carrier":"CarrierX_Std","cost":10,"days":3},"reasoning":"cheapest","logs":["level=INFO msg=\"Route chosen\""]}`))
	}))

	resp, err := c.OptimizeRoute(context.Background(), domain.RouteRequest{
		ProductID: "100084-000012-2", Quantity: 2, CustomerID: "cust123", BusinessPriority: domain.PriorityMinimizeCost,
	})
	if err != nil {
		t.Fatalf("OptimizeRoute: %v", err)
	}
	if resp.Recommendation.LocationID != "Warehouse East" || len(resp.Logs) != 1 {
		t.Errorf("response = %+v", resp)
	}
	mu.Lock()
	if got.Quantity != 2 || got.BusinessPriority != domain.PriorityMinimizeCost {
		t.Errorf("server got %+v", got)
	}
	mu.Unlock()

	_, err = c.OptimizeRoute(context.Background(), domain.RouteRequest{ProductID: "p", Quantity: 1, CustomerID: "nobody"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("err = %v, want a 422 HTTPError", err)
	}
	if httpErr.Message != "Customer ID 'nobody' not found in CRM." {
		t.Errorf("message = %q", httpErr.Message)
	}
}
