// Package api provides the HTTP client for the remote titan trading
// backend. All authenticated calls carry the session's bearer credential;
// request pacing and a single 429 retry are handled here so callers only
// see typed errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/adirathodd/titan-trading/internal/errors"
)

const (
	defaultTimeout = 30 * time.Second
	rateLimitWait  = 10 * time.Second
)

// TokenSource supplies the bearer credential for authenticated requests.
// The second return is false when no live credential is held.
type TokenSource interface {
	AccessToken() (string, bool)
}

// Client is an HTTP client for the titan backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     TokenSource
	log        *slog.Logger
}

// Options configures optional client behaviour.
type Options struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// NewClient creates a client for the backend at baseURL. tokens may be nil
// for a client that only performs unauthenticated calls.
func NewClient(baseURL string, tokens TokenSource, log *slog.Logger, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	perSecond := opts.RatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 10
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		tokens:     tokens,
		log:        log,
	}
}

// Register creates a new account. Field-level server validation errors are
// returned as a validation error carrying the per-field messages.
func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	resp, body, err := c.do(ctx, http.MethodPost, "/api/register/", req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		// Error payload: {"field": ["message", ...], ...}
		var fields map[string][]string
		if err := json.Unmarshal(body, &fields); err == nil && len(fields) > 0 {
			details := make(map[string]any, len(fields))
			first := ""
			for field, msgs := range fields {
				details[field] = msgs
				if first == "" && len(msgs) > 0 {
					first = msgs[0]
				}
			}
			return nil, apperrors.Validation(first).WithDetails(details)
		}
		return nil, apperrors.Validation("Registration failed.")
	}

	out := &RegisterResponse{}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, apperrors.FetchFailed(err)
	}
	return out, nil
}

// Login exchanges a username and password for a credential pair plus the
// identity label and starting cash balance.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	req := map[string]string{"username": username, "password": password}
	resp, body, err := c.do(ctx, http.MethodPost, "/api/login/", req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		msg := eb.message()
		if msg == "" {
			msg = "Login failed."
		}
		return nil, apperrors.New(apperrors.ErrUnauthorized, msg)
	}

	out := &LoginResponse{}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, apperrors.FetchFailed(err)
	}
	return out, nil
}

// VerifyEmail follows an emailed verification link and returns a fresh
// credential pair on success.
func (c *Client) VerifyEmail(ctx context.Context, uidb64, token string) (*VerifyResponse, error) {
	path := fmt.Sprintf("/api/verify/%s/%s/", url.PathEscape(uidb64), url.PathEscape(token))
	resp, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		msg := eb.message()
		if msg == "" {
			msg = "Verification link is invalid or has expired."
		}
		return nil, apperrors.New(apperrors.ErrInvalidCredential, msg)
	}

	out := &VerifyResponse{}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, apperrors.FetchFailed(err)
	}
	return out, nil
}

// SearchTickers returns autocomplete suggestions for a partial symbol or
// company name.
func (c *Client) SearchTickers(ctx context.Context, query string) ([]TickerSuggestion, error) {
	path := "/api/tickers?query=" + url.QueryEscape(query)
	resp, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.FetchFailed(fmt.Errorf("status %d", resp.StatusCode))
	}

	var out []TickerSuggestion
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperrors.FetchFailed(err)
	}
	return out, nil
}

// GetSnapshot fetches the combined stock details, historical series, and
// current holdings for one symbol over one period. A response the server
// marks invalid comes back as a ticker-not-found error carrying the server
// message.
func (c *Client) GetSnapshot(ctx context.Context, ticker, period string) (*SnapshotResponse, error) {
	path := fmt.Sprintf("/api/search/%s/?period=%s", url.PathEscape(ticker), url.QueryEscape(period))
	resp, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		return nil, apperrors.TickerNotFound(eb.message())
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.FetchFailed(fmt.Errorf("status %d", resp.StatusCode))
	}

	out := &SnapshotResponse{}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, apperrors.FetchFailed(err)
	}
	if !out.StockDetails.Valid {
		return nil, apperrors.TickerNotFound(out.Message)
	}
	return out, nil
}

// Buy submits a buy order for the given quantity of shares.
func (c *Client) Buy(ctx context.Context, ticker string, quantity float64) (*BuyResponse, error) {
	path := fmt.Sprintf("/api/buy-stock/%s/", url.PathEscape(ticker))
	resp, body, err := c.do(ctx, http.MethodPost, path, &TradeRequest{Quantity: quantity})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		return nil, apperrors.TradeFailed(eb.message(), nil)
	}

	out := &BuyResponse{}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, apperrors.FetchFailed(err)
	}
	return out, nil
}

// Sell submits a sell order for the given quantity of shares.
func (c *Client) Sell(ctx context.Context, ticker string, quantity float64) (*SellResponse, error) {
	path := fmt.Sprintf("/api/sell-stock/%s/", url.PathEscape(ticker))
	resp, body, err := c.do(ctx, http.MethodPost, path, &TradeRequest{Quantity: quantity})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		return nil, apperrors.TradeFailed(eb.message(), nil)
	}

	out := &SellResponse{}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, apperrors.FetchFailed(err)
	}
	return out, nil
}

// Dashboard fetches portfolio history and current holdings.
func (c *Client) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/api/dashboard", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.FetchFailed(fmt.Errorf("status %d", resp.StatusCode))
	}

	out := &DashboardResponse{}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, apperrors.FetchFailed(err)
	}
	return out, nil
}

// do executes one request with pacing, auth headers, and a single retry on
// 429. It returns the response (body already closed) and the full body.
// Transport failures surface as fetch errors.
func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, apperrors.FetchFailed(err)
	}

	resp, body, err := c.doOnce(ctx, method, path, payload)
	if err != nil {
		return nil, nil, err
	}

	// Back off and retry once on 429.
	if resp.StatusCode == http.StatusTooManyRequests {
		c.log.Warn("rate limited by backend, retrying", "path", path)
		select {
		case <-ctx.Done():
			return nil, nil, apperrors.FetchFailed(ctx.Err())
		case <-time.After(rateLimitWait):
		}
		return c.doOnce(ctx, method, path, payload)
	}

	return resp, body, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload any) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token, ok := c.tokens.AccessToken(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, apperrors.FetchFailed(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, apperrors.FetchFailed(err)
	}
	return resp, body, nil
}
