package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/weatherdesk/tradecore/internal/config"
	"github.com/weatherdesk/tradecore/internal/domain"
)

// Client is a signed REST client for the exchange's trade API, rate
// limited to the documented 10 requests/second with a burst of 10.
type Client struct {
	cfg            *config.Config
	key            *PrivateKey
	http           *http.Client
	baseURL        string
	basePathPrefix string
	limiter        *rate.Limiter
	log            zerolog.Logger
}

// NewClient loads the configured private key and constructs a client
// bound to the configured environment's base URL.
func NewClient(cfg *config.Config, log zerolog.Logger) (*Client, error) {
	key, err := LoadPrivateKey(cfg.KalshiPrivKeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading kalshi key: %w", err)
	}

	parsed, err := url.Parse(cfg.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	return &Client{
		cfg:            cfg,
		key:            key,
		http:           &http.Client{Timeout: 10 * time.Second},
		baseURL:        cfg.BaseURL(),
		basePathPrefix: parsed.Path,
		limiter:        rate.NewLimiter(rate.Limit(10), 10),
		log:            log.With().Str("module", "MARKET").Logger(),
	}, nil
}

// signPath returns the full API path used in the signature, e.g.
// "/portfolio/balance" -> "/trade-api/v2/portfolio/balance".
func (c *Client) signPath(path string) string {
	return c.basePathPrefix + path
}

// --- API Types ---

type Market struct {
	Ticker                 string  `json:"ticker"`
	EventTicker            string  `json:"event_ticker"`
	Title                  string  `json:"title"`
	Status                 string  `json:"status"`
	YesBid                 int     `json:"yes_bid"`
	YesAsk                 int     `json:"yes_ask"`
	NoBid                  int     `json:"no_bid"`
	NoAsk                  int     `json:"no_ask"`
	LastPrice              int     `json:"last_price"`
	Volume                 int     `json:"volume"`
	OpenInterest           int     `json:"open_interest"`
	FloorStrike            float64 `json:"floor_strike"`
	CapStrike              float64 `json:"cap_strike"`
	CloseTime              string  `json:"close_time"`
	OpenTime               string  `json:"open_time"`
	ExpirationTime         string  `json:"expiration_time"`
	ExpectedExpirationTime string  `json:"expected_expiration_time"`
	Result                 string  `json:"result"`
	Subtitle               string  `json:"subtitle"`
	YesSubTitle            string  `json:"yes_sub_title"`
	NoSubTitle             string  `json:"no_sub_title"`
	RulesPrimary           string  `json:"rules_primary"`
}

var strikeRe = regexp.MustCompile(`is at least ([\d.]+)`)

// StrikePrice extracts the market's strike temperature, preferring the
// exchange's structured floor/cap fields and falling back to parsing
// the rules text for markets that only describe it prose-style.
func (m *Market) StrikePrice() float64 {
	if m.CapStrike > 0 {
		return m.CapStrike
	}
	if m.FloorStrike > 0 {
		return m.FloorStrike
	}
	if m.RulesPrimary != "" {
		if matches := strikeRe.FindStringSubmatch(m.RulesPrimary); len(matches) > 1 {
			if strike, err := strconv.ParseFloat(matches[1], 64); err == nil {
				return strike
			}
		}
	}
	return 0
}

func (m *Market) ExpirationParsed() (time.Time, error) {
	if m.ExpectedExpirationTime != "" {
		return time.Parse(time.RFC3339, m.ExpectedExpirationTime)
	}
	return time.Parse(time.RFC3339, m.ExpirationTime)
}

func (m *Market) CloseTimeParsed() (time.Time, error) {
	if m.CloseTime == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, m.CloseTime)
}

type Orderbook struct {
	Ticker string  `json:"ticker"`
	Yes    [][]int `json:"yes"`
	No     [][]int `json:"no"`
}

func (ob *Orderbook) BestYesBid() int {
	if len(ob.Yes) > 0 && len(ob.Yes[0]) >= 2 {
		return ob.Yes[0][0]
	}
	return 0
}

func (ob *Orderbook) BestYesAsk() int {
	if len(ob.No) > 0 && len(ob.No[0]) >= 2 {
		return 100 - ob.No[0][0]
	}
	return 100
}

type Balance struct {
	Balance int `json:"balance"`
}

type Position struct {
	Ticker             string `json:"ticker"`
	MarketExposure     int    `json:"market_exposure"`
	RestingOrdersCount int    `json:"resting_orders_count"`
	TotalTraded        int    `json:"total_traded"`
	RealizedPnl        int    `json:"realized_pnl"`
	Position           int    `json:"position"`
}

type OrderRequest struct {
	Ticker      string `json:"ticker"`
	Action      string `json:"action"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	Count       int    `json:"count"`
	YesPrice    int    `json:"yes_price,omitempty"`
	NoPrice     int    `json:"no_price,omitempty"`
	TimeInForce string `json:"time_in_force,omitempty"`
}

type Order struct {
	OrderID        string `json:"order_id"`
	Ticker         string `json:"ticker"`
	Status         string `json:"status"`
	Action         string `json:"action"`
	Side           string `json:"side"`
	Type           string `json:"type"`
	YesPrice       int    `json:"yes_price"`
	NoPrice        int    `json:"no_price"`
	RemainingCount int    `json:"remaining_count"`
	FilledCount    int    `json:"place_count"`
}

type Fill struct {
	FillID      string `json:"fill_id"`
	OrderID     string `json:"order_id"`
	Ticker      string `json:"ticker"`
	Side        string `json:"side"`
	Action      string `json:"action"`
	Count       int    `json:"count"`
	YesPrice    int    `json:"yes_price"`
	NoPrice     int    `json:"no_price"`
	IsTaker     bool   `json:"is_taker"`
	CreatedTime string `json:"created_time"`
}

// --- API Methods ---

func (c *Client) GetMarket(ctx context.Context, ticker string) (*Market, error) {
	var response struct {
		Market Market `json:"market"`
	}
	if err := c.get(ctx, "/markets/"+ticker, nil, &response); err != nil {
		return nil, err
	}
	return &response.Market, nil
}

func (c *Client) GetMarkets(ctx context.Context, seriesTicker, status string) ([]Market, error) {
	params := url.Values{}
	if seriesTicker != "" {
		params.Set("series_ticker", seriesTicker)
	}
	if status != "" {
		params.Set("status", status)
	}
	params.Set("limit", "200")

	var result struct {
		Markets []Market `json:"markets"`
		Cursor  string   `json:"cursor"`
	}
	if err := c.get(ctx, "/markets", params, &result); err != nil {
		return nil, err
	}
	return result.Markets, nil
}

func (c *Client) GetOrderbook(ctx context.Context, ticker string, depth int) (*Orderbook, error) {
	params := url.Values{}
	if depth > 0 {
		params.Set("depth", fmt.Sprintf("%d", depth))
	}

	var result struct {
		Orderbook Orderbook `json:"orderbook"`
	}
	if err := c.get(ctx, "/markets/"+ticker+"/orderbook", params, &result); err != nil {
		return nil, err
	}
	return &result.Orderbook, nil
}

func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	var result Balance
	if err := c.get(ctx, "/portfolio/balance", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetPositions(ctx context.Context, eventTicker string) ([]Position, error) {
	params := url.Values{}
	if eventTicker != "" {
		params.Set("event_ticker", eventTicker)
	}
	params.Set("limit", "200")

	var result struct {
		Positions []Position `json:"market_positions"`
	}
	if err := c.get(ctx, "/portfolio/positions", params, &result); err != nil {
		return nil, err
	}
	return result.Positions, nil
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var result struct {
		Order Order `json:"order"`
	}
	if err := c.post(ctx, "/portfolio/orders", req, &result); err != nil {
		return nil, err
	}
	return &result.Order, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.delete(ctx, "/portfolio/orders/"+orderID)
}

func (c *Client) GetFills(ctx context.Context, params url.Values) ([]Fill, string, error) {
	var result struct {
		Fills  []Fill `json:"fills"`
		Cursor string `json:"cursor"`
	}
	if err := c.get(ctx, "/portfolio/fills", params, &result); err != nil {
		return nil, "", err
	}
	return result.Fills, result.Cursor, nil
}

// --- HTTP helpers ---

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.NewInputError("building request", map[string]any{"err": err.Error()})
	}

	headers, err := AuthHeaders(c.cfg, c.key, http.MethodGet, c.signPath(path))
	if err != nil {
		return domain.NewAuthFailure("signing request", map[string]any{"err": err.Error()})
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")

	return c.doRequest(ctx, req, out, false)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return domain.NewInputError("marshaling request body", map[string]any{"err": err.Error()})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(data)))
	if err != nil {
		return domain.NewInputError("building request", map[string]any{"err": err.Error()})
	}

	headers, err := AuthHeaders(c.cfg, c.key, http.MethodPost, c.signPath(path))
	if err != nil {
		return domain.NewAuthFailure("signing request", map[string]any{"err": err.Error()})
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.doRequest(ctx, req, out, true)
}

func (c *Client) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return domain.NewInputError("building request", map[string]any{"err": err.Error()})
	}

	headers, err := AuthHeaders(c.cfg, c.key, http.MethodDelete, c.signPath(path))
	if err != nil {
		return domain.NewAuthFailure("signing request", map[string]any{"err": err.Error()})
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.doRequest(ctx, req, nil, true)
}

// doRequest waits for the rate limiter, executes the request, and maps
// the response into the closed error taxonomy on failure. isOrderEndpoint
// distinguishes the order-placement/cancellation endpoints from plain
// reads, since the two surfaces map 400s differently.
func (c *Client) doRequest(ctx context.Context, req *http.Request, out interface{}, isOrderEndpoint bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.NewRateLimited("rate limiter wait cancelled", map[string]any{"err": err.Error()})
	}

	c.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("kalshi request")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewConnectionFailure("kalshi request failed", map[string]any{"err": err.Error(), "url": req.URL.String()})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewConnectionFailure("reading response", map[string]any{"err": err.Error()})
	}

	if resp.StatusCode >= 400 {
		c.log.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("kalshi API error")
		return mapStatusError(resp.StatusCode, string(body), isOrderEndpoint)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return domain.NewApiError("decoding response", map[string]any{"err": err.Error(), "body": string(body)})
		}
	}

	return nil
}

// mapStatusError maps an HTTP error response into the closed error
// taxonomy. A 400 on an order endpoint means the exchange rejected the
// order itself (OrderRejected); a 400 anywhere else, and any other
// 4xx/5xx response, is a generic ApiError. ConnectionFailure is reserved
// for transport failures, handled separately in doRequest.
func mapStatusError(status int, body string, isOrderEndpoint bool) error {
	ctx := map[string]any{"status": status, "body": body}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.NewAuthFailure("kalshi authentication rejected", ctx)
	case status == http.StatusTooManyRequests:
		return domain.NewRateLimited("kalshi rate limit exceeded", ctx)
	case status == http.StatusBadRequest && isOrderEndpoint:
		return domain.NewOrderRejected("kalshi rejected the order", ctx)
	default:
		return domain.NewApiError(fmt.Sprintf("kalshi API error %d", status), ctx)
	}
}
