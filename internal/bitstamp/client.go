package bitstamp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"bitstamp-trade-bot-go/internal/config"
	"bitstamp-trade-bot-go/internal/metrics"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://www.bitstamp.net/api"

	// invalidNonceMessage is the literal error string the exchange returns
	// for a stale or reused nonce.
	invalidNonceMessage = "Invalid nonce"

	// requestWindow is the trailing period over which issued requests are
	// tracked for observability.
	requestWindow = 10 * time.Minute
)

// ClientInterface defines the typed Bitstamp API surface the watchers use.
type ClientInterface interface {
	Ticker(ctx context.Context) (*Ticker, error)
	AccountBalance(ctx context.Context) (*Balance, error)
	UserTransactions(ctx context.Context, offset, limit int, descending bool) ([]Transaction, error)
	OpenOrders(ctx context.Context) ([]Order, error)
	BuyLimitOrder(ctx context.Context, amount, price decimal.Decimal) (*Order, error)
	SellLimitOrder(ctx context.Context, amount, price decimal.Decimal) (*Order, error)
	CancelOrder(ctx context.Context, id int64) error
}

// Client is an authenticated Bitstamp REST API client.
//
// It owns the nonce sequence: a strictly increasing counter seeded from
// wall-clock time at construction and incremented under a mutex on every
// authenticated request. Two in-flight requests never share or reorder
// nonces because issuance is linearized at authParams.
type Client struct {
	client   *resty.Client
	username string
	key      string
	secret   string
	logger   *zap.Logger
	limiter  *rate.Limiter

	nonceMu sync.Mutex
	nonce   int64

	reqMu    sync.Mutex
	requests []time.Time
}

var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Bitstamp REST API client.
func NewClient(cfg *config.Bitstamp, logger *zap.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}

	return &Client{
		client:   resty.New().SetBaseURL(base),
		username: cfg.Username,
		key:      cfg.APIKey,
		secret:   cfg.APISecret,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		nonce:    time.Now().Unix(),
	}
}

// authParams returns the key/signature/nonce parameters for one
// authenticated request, consuming the next nonce.
func (c *Client) authParams() url.Values {
	c.nonceMu.Lock()
	nonce := c.nonce
	c.nonce++
	c.nonceMu.Unlock()

	nonceStr := strconv.FormatInt(nonce, 10)
	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write([]byte(nonceStr + c.username + c.key))
	signature := strings.ToUpper(hex.EncodeToString(h.Sum(nil)))

	params := url.Values{}
	params.Set("key", c.key)
	params.Set("signature", signature)
	params.Set("nonce", nonceStr)
	return params
}

// trackRequest records one issued request in the trailing window,
// pruning entries that fell out of it.
func (c *Client) trackRequest(now time.Time) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	cutoff := now.Add(-requestWindow)
	kept := c.requests[:0]
	for _, t := range c.requests {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	c.requests = append(kept, now)
	c.logger.Debug("requests in window", zap.Int("count", len(c.requests)))
}

// RequestsInWindow returns how many requests were issued in the trailing
// ten minutes.
func (c *Client) RequestsInWindow() int {
	now := time.Now()
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	cutoff := now.Add(-requestWindow)
	n := 0
	for _, t := range c.requests {
		if !t.Before(cutoff) {
			n++
		}
	}
	return n
}

// get performs an unauthenticated GET and decodes the response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.do(ctx, "GET", path, nil, out)
}

// post performs an authenticated POST: the signed auth parameters are merged
// into the form body alongside the call's own parameters.
func (c *Client) post(ctx context.Context, path string, params url.Values, out any) error {
	form := c.authParams()
	for k, vs := range params {
		for _, v := range vs {
			form.Set(k, v)
		}
	}
	return c.do(ctx, "POST", path, form, out)
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	c.trackRequest(time.Now())
	metrics.ExchangeRequests.Inc()

	req := c.client.R().SetContext(ctx)
	if form != nil {
		req.SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody(form.Encode())
	}

	c.logger.Debug("executing request", zap.String("method", method), zap.String("path", path))
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if err := c.decodeResponse(resp, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

// decodeResponse maps a raw exchange response onto the error taxonomy and,
// when the body is a well-formed payload, decodes it strictly into out.
// Unknown fields in the payload fail the call: they mean the API contract
// drifted under us.
func (c *Client) decodeResponse(resp *resty.Response, out any) error {
	contentType := resp.Header().Get("Content-Type")
	if !strings.Contains(contentType, "json") {
		return &ClientError{Message: fmt.Sprintf("not a JSON response (%s)", contentType)}
	}

	body := resp.Body()
	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return &ClientError{Message: fmt.Sprintf("could not decode response JSON: %v", err)}
	}

	if obj, ok := probe.(map[string]any); ok {
		if msg, found := obj["error"]; found {
			if s, ok := msg.(string); ok && s == invalidNonceMessage {
				return ErrInvalidNonce
			}
			return &ClientError{Message: fmt.Sprint(msg)}
		}
	}

	if out == nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &SchemaViolationError{
			Model:  fmt.Sprintf("%T", out),
			Detail: err.Error(),
		}
	}
	return nil
}

// Ticker fetches the current market snapshot.
func (c *Client) Ticker(ctx context.Context) (*Ticker, error) {
	var ticker Ticker
	if err := c.get(ctx, "/ticker/", nil, &ticker); err != nil {
		return nil, err
	}
	return &ticker, nil
}

// AccountBalance fetches the account's current balance and fee.
func (c *Client) AccountBalance(ctx context.Context) (*Balance, error) {
	var balance Balance
	if err := c.post(ctx, "/balance/", nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// UserTransactions fetches one page of the account's transaction feed.
func (c *Client) UserTransactions(ctx context.Context, offset, limit int, descending bool) ([]Transaction, error) {
	sort := "asc"
	if descending {
		sort = "desc"
	}
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", sort)

	var transactions []Transaction
	if err := c.post(ctx, "/user_transactions/", params, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

// OpenOrders fetches the account's currently open orders.
func (c *Client) OpenOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.post(ctx, "/open_orders/", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// BuyLimitOrder places a limit order to buy amount BTC at price.
func (c *Client) BuyLimitOrder(ctx context.Context, amount, price decimal.Decimal) (*Order, error) {
	return c.limitOrder(ctx, "/buy/", amount, price)
}

// SellLimitOrder places a limit order to sell amount BTC at price.
func (c *Client) SellLimitOrder(ctx context.Context, amount, price decimal.Decimal) (*Order, error) {
	return c.limitOrder(ctx, "/sell/", amount, price)
}

func (c *Client) limitOrder(ctx context.Context, path string, amount, price decimal.Decimal) (*Order, error) {
	params := url.Values{}
	params.Set("amount", amount.String())
	params.Set("price", price.String())

	var order Order
	if err := c.post(ctx, path, params, &order); err != nil {
		return nil, err
	}
	c.logger.Info("placed limit order",
		zap.String("path", path),
		zap.String("amount", amount.String()),
		zap.String("price", price.String()),
		zap.Int64("order_id", order.ID),
	)
	return &order, nil
}

// CancelOrder cancels the open order with the given id.
func (c *Client) CancelOrder(ctx context.Context, id int64) error {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(id, 10))

	var ok bool
	if err := c.post(ctx, "/cancel_order/", params, &ok); err != nil {
		return err
	}
	if !ok {
		return &ClientError{Message: fmt.Sprintf("order %d was not cancelled", id)}
	}
	return nil
}
