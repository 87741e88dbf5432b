// Package console is the Fabric Console front end: an HTTP client for the
// backend API, the page view models built from its data, and the handler that
// renders them.
package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/fabric-console/internal/chat"
	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/ashureev/fabric-console/internal/identity"
	"github.com/google/uuid"
)

const (
	defaultTimeout  = 90 * time.Second
	maxResponseBody = 4 << 20
)

// Client talks to the Fabric backend API.
type Client struct {
	baseURL   string
	http      *http.Client
	sessionID string
	anonID    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses a copy of hc for requests. A cookie jar is added to the
// copy when hc has none, so hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		c.http = &cp
	}
}

// WithSessionID sets the per-tab session identifier sent on every request.
func WithSessionID(id string) Option {
	return func(c *Client) { c.sessionID = id }
}

// WithAnonID presets the anonymous identity cookie so requests act on behalf
// of an existing user.
func WithAnonID(id string) Option {
	return func(c *Client) { c.anonID = id }
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultTimeout},
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	if c.anonID != "" {
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		c.http.Jar.SetCookies(u, []*http.Cookie{{Name: identity.AnonCookieName, Value: c.anonID, Path: "/"}})
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// SessionID returns the session identifier sent with each request.
func (c *Client) SessionID() string { return c.sessionID }

// Orders lists order summaries.
func (c *Client) Orders(ctx context.Context) ([]domain.OrderListing, error) {
	var out []domain.OrderListing
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Order fetches one order document.
func (c *Client) Order(ctx context.Context, orderID string) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil, &out); err != nil {
		return nil, err
	}
	if out.OrderID == "" {
		return nil, &MalformedResponseError{Err: errors.New("order has no orderId")}
	}
	return &out, nil
}

// Customers lists CRM customers.
func (c *Client) Customers(ctx context.Context) ([]domain.Customer, error) {
	var out []domain.Customer
	if err := c.do(ctx, http.MethodGet, "/api/customers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Inventory lists stock positions.
func (c *Client) Inventory(ctx context.Context) ([]domain.InventoryItem, error) {
	var out []domain.InventoryItem
	if err := c.do(ctx, http.MethodGet, "/api/inventory", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Chat sends the transcript to the agent endpoint.
func (c *Client) Chat(ctx context.Context, history []domain.ChatMessage) (*chat.Reply, error) {
	body := struct {
		Messages []domain.ChatMessage `json:"messages"`
	}{Messages: history}

	var out chat.Reply
	if err := c.do(ctx, http.MethodPost, "/api/fabric-intelligence-chat", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OptimizeRoute asks the routing workflow for a fulfillment route. A rejected
// order comes back as an *HTTPError with status 422 and the rejection reason.
func (c *Client) OptimizeRoute(ctx context.Context, req domain.RouteRequest) (*domain.RouteResponse, error) {
	var out domain.RouteResponse
	if err := c.do(ctx, http.MethodPost, "/api/optimize-route", req, &out); err != nil {
		return nil, err
	}
	if out.Recommendation == nil {
		return nil, &MalformedResponseError{Err: errors.New("route has no recommendation")}
	}
	return &out, nil
}

var _ chat.Agent = (*Client)(nil)

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	target := c.baseURL + path

	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionID != "" {
		req.Header.Set(identity.SessionHeaderName, c.sessionID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return &NetworkError{URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &NetworkError{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpErrorFromBody(resp.StatusCode, body)
	}
	if err := jsonUnmarshal(body, out); err != nil {
		return &MalformedResponseError{Err: err}
	}
	return nil
}

func jsonUnmarshal(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(body, v)
}
