package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rs/zerolog"
)

// ExecUpdate is the fill shape the core consumes from the user-data stream.
type ExecUpdate struct {
	Symbol    string
	Side      Side
	LastQty   float64
	LastPrice float64
}

// BalanceDelta reports one asset balance change.
type BalanceDelta struct {
	Asset string
	Delta float64
	TsMs  int64
}

// UserStream consumes the venue's out-of-band account events (execution
// reports and balance deltas) and republishes them on channels. Only the API
// key is needed; the listen-key endpoint requires no request signing.
type UserStream struct {
	apiKey  string
	testnet bool
	log     zerolog.Logger
	client  *http.Client

	restOverride string // test hook
}

// NewUserStream builds a stream client for the given API key.
func NewUserStream(apiKey string, testnet bool, log zerolog.Logger) *UserStream {
	return &UserStream{
		apiKey:  apiKey,
		testnet: testnet,
		log:     log,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (u *UserStream) restBase() string {
	if u.restOverride != "" {
		return u.restOverride
	}
	if u.testnet {
		return "https://testnet.binance.vision"
	}
	return "https://api.binance.com"
}

func (u *UserStream) wsBase() string {
	if u.testnet {
		return "wss://testnet.binance.vision/ws"
	}
	return "wss://stream.binance.com:9443/ws"
}

func (u *UserStream) obtainListenKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.restBase()+"/api/v3/userDataStream", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-MBX-APIKEY", u.apiKey)
	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("listen key request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("listen key body: %w", err)
	}
	var parsed struct {
		ListenKey string `json:"listenKey"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.ListenKey == "" {
		return "", fmt.Errorf("listen key response %q unusable", string(body))
	}
	return parsed.ListenKey, nil
}

// Run connects and republishes events until the context is canceled.
// Reconnects with capped backoff; a nil balances channel skips balance events.
func (u *UserStream) Run(ctx context.Context, fills chan<- ExecUpdate, balances chan<- BalanceDelta) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := u.consume(ctx, fills, balances)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		u.log.Warn().Err(err).Msg("user-data stream disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
	}
}

func (u *UserStream) consume(ctx context.Context, fills chan<- ExecUpdate, balances chan<- BalanceDelta) error {
	key, err := u.obtainListenKey(ctx)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.wsBase()+"/"+key, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	u.log.Info().Msg("user-data stream connected")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		u.dispatch(ctx, message, fills, balances)
	}
}

func (u *UserStream) dispatch(ctx context.Context, message []byte, fills chan<- ExecUpdate, balances chan<- BalanceDelta) {
	var head struct {
		EventType string `json:"e"`
		EventTime int64  `json:"E"`
	}
	if err := json.Unmarshal(message, &head); err != nil {
		u.log.Warn().Err(err).Msg("failed to decode user-data event")
		return
	}

	switch head.EventType {
	case "executionReport":
		var rep struct {
			Symbol    string `json:"s"`
			Side      string `json:"S"`
			LastQty   string `json:"l"`
			LastPrice string `json:"L"`
		}
		if err := json.Unmarshal(message, &rep); err != nil {
			u.log.Warn().Err(err).Msg("failed to decode execution report")
			return
		}
		qty, err1 := strconv.ParseFloat(rep.LastQty, 64)
		px, err2 := strconv.ParseFloat(rep.LastPrice, 64)
		if err1 != nil || err2 != nil || qty <= 0 {
			return
		}
		update := ExecUpdate{Symbol: rep.Symbol, Side: Side(rep.Side), LastQty: qty, LastPrice: px}
		select {
		case fills <- update:
		case <-ctx.Done():
		}

	case "balanceUpdate":
		if balances == nil {
			return
		}
		var bal struct {
			Asset string `json:"a"`
			Delta string `json:"d"`
		}
		if err := json.Unmarshal(message, &bal); err != nil {
			return
		}
		delta, err := strconv.ParseFloat(bal.Delta, 64)
		if err != nil {
			return
		}
		select {
		case balances <- BalanceDelta{Asset: bal.Asset, Delta: delta, TsMs: head.EventTime}:
		case <-ctx.Done():
		}
	}
}
