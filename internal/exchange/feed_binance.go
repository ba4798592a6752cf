package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Wame555/hesoyam/internal/market"
	"github.com/Wame555/hesoyam/internal/metrics"
)

type binanceKlineEnvelope struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Kline     struct {
		OpenTime int64  `json:"t"`
		Open     string `json:"o"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Close    string `json:"c"`
		Volume   string `json:"v"`
		IsClosed bool   `json:"x"`
	} `json:"k"`
}

func (f *Feed) runBinance(ctx context.Context, bars chan<- market.Bar, ticks chan<- market.Tick) error {
	if f.symbol == "" {
		return fmt.Errorf("binance feed requires a symbol")
	}

	stream := strings.ToLower(f.symbol) + "@kline_" + string(f.timeframe)
	url := fmt.Sprintf("wss://stream.binance.com:9443/ws/%s", stream)
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeBinanceStream(ctx, url, bars, ticks); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("binance feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeBinanceStream(ctx context.Context, url string, bars chan<- market.Bar, ticks chan<- market.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Str("symbol", f.symbol).
		Str("tf", string(f.timeframe)).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

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

		var env binanceKlineEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		if env.EventType != "kline" {
			continue
		}

		closePx, err := strconv.ParseFloat(env.Kline.Close, 64)
		if err != nil {
			f.log.Warn().Err(err).Msg("invalid close price from binance")
			continue
		}

		// every kline update carries the latest price
		select {
		case ticks <- market.Tick{Symbol: env.Symbol, Price: closePx, TsMs: env.Kline.OpenTime}:
		default:
		}

		if !env.Kline.IsClosed {
			continue
		}
		bar, ok := parseBinanceKline(env)
		if !ok {
			f.log.Warn().Str("sym", env.Symbol).Msg("unparseable kline payload")
			continue
		}
		select {
		case bars <- bar:
			metrics.BarsTotal.WithLabelValues(env.Symbol).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func parseBinanceKline(env binanceKlineEnvelope) (market.Bar, bool) {
	fields := []string{env.Kline.Open, env.Kline.High, env.Kline.Low, env.Kline.Close, env.Kline.Volume}
	vals := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Bar{}, false
		}
		vals[i] = v
	}
	return market.Bar{
		OpenTime: env.Kline.OpenTime,
		Open:     vals[0], High: vals[1], Low: vals[2], Close: vals[3],
		Volume: vals[4],
	}, true
}
