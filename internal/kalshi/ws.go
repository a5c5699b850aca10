package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/weatherdesk/tradecore/internal/config"
)

const (
	wsReadTimeout   = 30 * time.Second
	wsHeartbeatTick = 10 * time.Second
	wsMaxBackoff    = 5
)

// WSClient manages a WebSocket connection to the exchange for
// real-time ticker and orderbook_delta streams.
type WSClient struct {
	cfg *config.Config
	key *PrivateKey
	log zerolog.Logger

	conn *websocket.Conn
	mu   sync.RWMutex

	orderbooks map[string]*OrderbookState
	obMu       sync.RWMutex

	lastTicker   map[string]TickerUpdate
	lastTickerMu sync.RWMutex

	subscribedTickers map[string]bool
	subMu             sync.RWMutex
}

// OrderbookState holds the current state of an orderbook for a ticker.
type OrderbookState struct {
	Ticker     string
	Yes        []PriceLevel
	No         []PriceLevel
	LastUpdate time.Time
}

type PriceLevel struct {
	Price    int
	Quantity int
}

func (ob *OrderbookState) BestYesBid() int {
	if len(ob.Yes) > 0 {
		return ob.Yes[0].Price
	}
	return 0
}

func (ob *OrderbookState) BestYesAsk() int {
	if len(ob.No) > 0 {
		return 100 - ob.No[0].Price
	}
	return 100
}

// AskDepth returns ask-side depth for buying a given side, sorted best
// (lowest ask price) first. Buying YES walks the NO side and vice versa.
func (ob *OrderbookState) AskDepth(side string) []PriceLevel {
	var source []PriceLevel
	if side == "yes" {
		source = ob.No
	} else {
		source = ob.Yes
	}

	levels := make([]PriceLevel, 0, len(source))
	for _, l := range source {
		levels = append(levels, PriceLevel{Price: 100 - l.Price, Quantity: l.Quantity})
	}
	return levels
}

// TickerUpdate is the last-trade snapshot delivered on the "ticker" channel.
type TickerUpdate struct {
	Ticker    string
	Price     int
	YesBid    int
	YesAsk    int
	Volume    int
	UpdatedAt time.Time
}

func NewWSClient(cfg *config.Config, log zerolog.Logger) (*WSClient, error) {
	key, err := LoadPrivateKey(cfg.KalshiPrivKeyPath)
	if err != nil {
		return nil, err
	}

	return &WSClient{
		cfg:               cfg,
		key:               key,
		log:               log.With().Str("module", "FEED").Logger(),
		orderbooks:        make(map[string]*OrderbookState),
		lastTicker:        make(map[string]TickerUpdate),
		subscribedTickers: make(map[string]bool),
	}, nil
}

// Run connects to the exchange WebSocket and reconnects with
// exponential backoff (1s, 2s, 4s, 8s) capped at 5 consecutive
// attempts, returning an error after the 5th failure to the caller, who
// decides whether to restart the feed entirely.
func (ws *WSClient) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ws.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempt++
			ws.log.Warn().Err(err).Int("attempt", attempt).Msg("kalshi ws disconnected")
			if attempt >= wsMaxBackoff {
				return fmt.Errorf("kalshi ws: exceeded %d reconnect attempts: %w", wsMaxBackoff, err)
			}
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		attempt = 0
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (ws *WSClient) connect(ctx context.Context) error {
	wsURL := ws.cfg.WSBaseURL()

	headers, err := AuthHeaders(ws.cfg, ws.key, "GET", "/trade-api/ws/v2")
	if err != nil {
		return fmt.Errorf("generating ws auth: %w", err)
	}

	dialer := websocket.Dialer{}
	httpHeaders := make(map[string][]string)
	for k, v := range headers {
		httpHeaders[k] = []string{v}
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, httpHeaders)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}

	ws.mu.Lock()
	ws.conn = conn
	ws.mu.Unlock()

	defer func() {
		conn.Close()
		ws.mu.Lock()
		ws.conn = nil
		ws.mu.Unlock()
	}()

	ws.log.Info().Msg("kalshi ws connected")

	if tickers := ws.subscribedTickerList(); len(tickers) > 0 {
		if err := ws.sendSubscribe(conn, tickers); err != nil {
			ws.log.Warn().Err(err).Int("tickers", len(tickers)).Msg("kalshi ws resubscribe failed")
		} else {
			ws.log.Info().Int("tickers", len(tickers)).Msg("kalshi ws resubscribed")
		}
	}

	heartbeat := time.NewTicker(wsHeartbeatTick)
	defer heartbeat.Stop()

	msgCh := make(chan []byte, 64)
	errCh := make(chan error, 1)
	go func() {
		for {
			conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			msgCh <- msg
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case msg := <-msgCh:
			ws.handleMessage(msg)
		case <-heartbeat.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("heartbeat ping: %w", err)
			}
		}
	}
}

// Subscribe tracks tickers for the ticker and orderbook_delta channels
// and sends a live subscription if already connected.
func (ws *WSClient) Subscribe(tickers []string) error {
	ws.subMu.Lock()
	for _, t := range tickers {
		ws.subscribedTickers[t] = true
	}
	ws.subMu.Unlock()

	ws.mu.RLock()
	conn := ws.conn
	ws.mu.RUnlock()

	if conn == nil {
		return nil
	}
	return ws.sendSubscribe(conn, tickers)
}

// Unsubscribe removes tickers from tracking, used when markets settle.
func (ws *WSClient) Unsubscribe(tickers []string) {
	ws.subMu.Lock()
	for _, t := range tickers {
		delete(ws.subscribedTickers, t)
	}
	ws.subMu.Unlock()

	ws.obMu.Lock()
	for _, t := range tickers {
		delete(ws.orderbooks, t)
	}
	ws.obMu.Unlock()

	ws.lastTickerMu.Lock()
	for _, t := range tickers {
		delete(ws.lastTicker, t)
	}
	ws.lastTickerMu.Unlock()
}

func (ws *WSClient) sendSubscribe(conn *websocket.Conn, tickers []string) error {
	cmd := wsCommand{
		ID:  1,
		Cmd: "subscribe",
		Params: wsSubscribeParams{
			Channels:      []string{"ticker", "orderbook_delta"},
			MarketTickers: tickers,
		},
	}
	return conn.WriteJSON(cmd)
}

func (ws *WSClient) subscribedTickerList() []string {
	ws.subMu.RLock()
	defer ws.subMu.RUnlock()
	tickers := make([]string, 0, len(ws.subscribedTickers))
	for t := range ws.subscribedTickers {
		tickers = append(tickers, t)
	}
	return tickers
}

// GetOrderbook returns the current orderbook state for a ticker.
func (ws *WSClient) GetOrderbook(ticker string) *OrderbookState {
	ws.obMu.RLock()
	defer ws.obMu.RUnlock()
	return ws.orderbooks[ticker]
}

// GetTicker returns the last-trade snapshot for a ticker, if any.
func (ws *WSClient) GetTicker(ticker string) (TickerUpdate, bool) {
	ws.lastTickerMu.RLock()
	defer ws.lastTickerMu.RUnlock()
	t, ok := ws.lastTicker[ticker]
	return t, ok
}

// Connected reports whether the WebSocket is currently dialed in.
func (ws *WSClient) Connected() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.conn != nil
}

type wsCommand struct {
	ID     int               `json:"id"`
	Cmd    string            `json:"cmd"`
	Params wsSubscribeParams `json:"params"`
}

type wsSubscribeParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
}

type wsMessage struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

type wsOrderbookSnapshot struct {
	Ticker string  `json:"market_ticker"`
	Yes    [][]int `json:"yes"`
	No     [][]int `json:"no"`
}

type wsOrderbookDelta struct {
	Ticker string `json:"market_ticker"`
	Price  int    `json:"price"`
	Delta  int    `json:"delta"`
	Side   string `json:"side"`
}

type wsTicker struct {
	Ticker string `json:"market_ticker"`
	Price  int    `json:"price"`
	YesBid int    `json:"yes_bid"`
	YesAsk int    `json:"yes_ask"`
	Volume int    `json:"volume"`
}

func (ws *WSClient) handleMessage(data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "orderbook_snapshot":
		var snap wsOrderbookSnapshot
		if err := json.Unmarshal(msg.Msg, &snap); err != nil {
			ws.log.Warn().Err(err).Msg("bad orderbook snapshot")
			return
		}
		ws.applySnapshot(snap)

	case "orderbook_delta":
		var delta wsOrderbookDelta
		if err := json.Unmarshal(msg.Msg, &delta); err != nil {
			ws.log.Warn().Err(err).Msg("bad orderbook delta")
			return
		}
		ws.applyDelta(delta)

	case "ticker":
		var t wsTicker
		if err := json.Unmarshal(msg.Msg, &t); err != nil {
			ws.log.Warn().Err(err).Msg("bad ticker message")
			return
		}
		ws.lastTickerMu.Lock()
		ws.lastTicker[t.Ticker] = TickerUpdate{
			Ticker: t.Ticker, Price: t.Price, YesBid: t.YesBid, YesAsk: t.YesAsk,
			Volume: t.Volume, UpdatedAt: time.Now(),
		}
		ws.lastTickerMu.Unlock()

	default:
		ws.log.Debug().Str("type", msg.Type).Msg("kalshi ws unhandled message")
	}
}

func (ws *WSClient) applySnapshot(snap wsOrderbookSnapshot) {
	ob := &OrderbookState{Ticker: snap.Ticker}

	for _, level := range snap.Yes {
		if len(level) >= 2 {
			ob.Yes = append(ob.Yes, PriceLevel{Price: level[0], Quantity: level[1]})
		}
	}
	for _, level := range snap.No {
		if len(level) >= 2 {
			ob.No = append(ob.No, PriceLevel{Price: level[0], Quantity: level[1]})
		}
	}

	ob.LastUpdate = time.Now()

	ws.obMu.Lock()
	ws.orderbooks[snap.Ticker] = ob
	ws.obMu.Unlock()
}

func (ws *WSClient) applyDelta(delta wsOrderbookDelta) {
	ws.obMu.Lock()
	defer ws.obMu.Unlock()

	ob := ws.orderbooks[delta.Ticker]
	if ob == nil {
		return
	}
	ob.LastUpdate = time.Now()

	var levels *[]PriceLevel
	if delta.Side == "yes" {
		levels = &ob.Yes
	} else {
		levels = &ob.No
	}

	for i, l := range *levels {
		if l.Price == delta.Price {
			newQty := l.Quantity + delta.Delta
			if newQty <= 0 {
				*levels = append((*levels)[:i], (*levels)[i+1:]...)
			} else {
				(*levels)[i].Quantity = newQty
			}
			return
		}
	}

	if delta.Delta > 0 {
		*levels = append(*levels, PriceLevel{Price: delta.Price, Quantity: delta.Delta})
		for i := len(*levels) - 1; i > 0; i-- {
			if (*levels)[i].Price > (*levels)[i-1].Price {
				(*levels)[i], (*levels)[i-1] = (*levels)[i-1], (*levels)[i]
			}
		}
	}
}
