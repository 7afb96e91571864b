package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

// tradeTimeout applies to refresh, quote, and all trade commands,
// independent of the snapshot-fetch timeout.
const tradeTimeout = 30 * time.Second

// StatusError is returned when an agent replies with a non-2xx status. The
// trade proxy surfaces Code and Body back to the caller verbatim.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("agent returned status %d: %s", e.Code, e.Body)
}

// Client is the REST client for one terminal agent.
type Client struct {
	name    string
	baseURL string
	pool    *Pool
	timeout time.Duration // snapshot-fetch timeout
}

// NewClient creates a client for the agent at baseURL. timeout bounds
// snapshot fetches; trade operations use their own fixed 30s deadline.
func NewClient(name, baseURL string, pool *Pool, timeout time.Duration) *Client {
	return &Client{
		name:    name,
		baseURL: baseURL,
		pool:    pool,
		timeout: timeout,
	}
}

// Name returns the agent's configured name.
func (c *Client) Name() string { return c.name }

// BaseURL returns the agent's base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// GetAccounts fetches the agent's account snapshot(s). Agents fronting a
// single terminal return one object; the method also accepts a list and
// always normalises to a slice.
func (c *Client) GetAccounts(ctx context.Context) ([]domain.AccountSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodGet, "/accounts", nil)
	if err != nil {
		return nil, err
	}
	return normaliseAccounts(body)
}

// Refresh asks the agent to reconnect its terminal session.
func (c *Client) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, tradeTimeout)
	defer cancel()

	_, err := c.do(ctx, http.MethodPost, "/refresh", nil)
	return err
}

// GetQuote fetches the current quote for symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, tradeTimeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodGet, "/quote/"+url.PathEscape(symbol), nil)
	if err != nil {
		return domain.Quote{}, err
	}

	var q domain.Quote
	if err := json.Unmarshal(body, &q); err != nil {
		return domain.Quote{}, fmt.Errorf("agent %s: decode quote: %w", c.name, err)
	}
	return q, nil
}

// GetPositions lists the agent's open positions.
func (c *Client) GetPositions(ctx context.Context) ([]domain.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, tradeTimeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodGet, "/positions", nil)
	if err != nil {
		return nil, err
	}

	var positions []domain.Position
	if err := json.Unmarshal(body, &positions); err != nil {
		return nil, fmt.Errorf("agent %s: decode positions: %w", c.name, err)
	}
	return positions, nil
}

// Open places a market order.
func (c *Client) Open(ctx context.Context, req domain.OpenRequest) (domain.TradeResult, error) {
	return c.trade(ctx, http.MethodPost, "/positions/open", req)
}

// Close closes an open position by ticket.
func (c *Client) Close(ctx context.Context, req domain.CloseRequest) (domain.TradeResult, error) {
	return c.trade(ctx, http.MethodPost, "/positions/close", req)
}

// Modify adjusts the stops of an open position. Stops are absolute prices
// here, unlike Open which takes pip distances.
func (c *Client) Modify(ctx context.Context, req domain.ModifyRequest) (domain.TradeResult, error) {
	return c.trade(ctx, http.MethodPut, "/positions/modify", req)
}

// TradeHistory fetches closed trades. When fromDate is set the fetch is
// incremental; otherwise days controls the lookback window.
func (c *Client) TradeHistory(ctx context.Context, fromDate *time.Time, days int) (domain.TradeHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	if fromDate != nil {
		params.Set("from_date", fromDate.UTC().Format(time.RFC3339))
	}
	if days > 0 {
		params.Set("days", strconv.Itoa(days))
	}

	path := "/trade-history"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.TradeHistory{}, err
	}

	var hist domain.TradeHistory
	if err := json.Unmarshal(body, &hist); err != nil {
		return domain.TradeHistory{}, fmt.Errorf("agent %s: decode trade history: %w", c.name, err)
	}
	return hist, nil
}

// trade issues a trade command with the fixed trade timeout and decodes the
// agent's TradeResult.
func (c *Client) trade(ctx context.Context, method, path string, payload any) (domain.TradeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, tradeTimeout)
	defer cancel()

	body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return domain.TradeResult{}, err
	}

	var res domain.TradeResult
	if err := json.Unmarshal(body, &res); err != nil {
		return domain.TradeResult{}, fmt.Errorf("agent %s: decode trade result: %w", c.name, err)
	}
	return res, nil
}

// do performs one HTTP round trip and returns the response body. Transport
// failures are classified into the domain error taxonomy; non-2xx responses
// become *StatusError.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("agent %s: marshal request: %w", c.name, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("agent %s: create request: %w", c.name, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.pool.Client().Do(req)
	if err != nil {
		return nil, classify(c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("agent %s: read response: %w", c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// classify maps transport errors onto the domain taxonomy so the aggregator
// can distinguish timeouts from unreachable agents.
func classify(name string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return fmt.Errorf("agent %s: %w", name, domain.ErrTimeout)
		}
		return fmt.Errorf("agent %s: %w: %v", name, domain.ErrAgentUnavailable, urlErr.Err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("agent %s: %w", name, domain.ErrTimeout)
	}
	return fmt.Errorf("agent %s: %w", name, err)
}

// normaliseAccounts accepts either a single snapshot object or a list and
// returns a slice in both cases.
func normaliseAccounts(body []byte) ([]domain.AccountSnapshot, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []domain.AccountSnapshot
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode account list: %w", err)
		}
		return list, nil
	}

	var single domain.AccountSnapshot
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return []domain.AccountSnapshot{single}, nil
}
