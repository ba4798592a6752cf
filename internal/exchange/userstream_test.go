package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestDispatchExecutionReport(t *testing.T) {
	u := NewUserStream("key", true, zerolog.Nop())
	fills := make(chan ExecUpdate, 1)

	msg := []byte(`{"e":"executionReport","E":1700000000000,"s":"BTCUSDT","S":"BUY","l":"0.25","L":"42000.5"}`)
	u.dispatch(context.Background(), msg, fills, nil)

	select {
	case fill := <-fills:
		if fill.Symbol != "BTCUSDT" || fill.Side != Buy {
			t.Fatalf("unexpected fill: %+v", fill)
		}
		if fill.LastQty != 0.25 || fill.LastPrice != 42000.5 {
			t.Fatalf("unexpected fill amounts: %+v", fill)
		}
	default:
		t.Fatalf("expected a fill event")
	}
}

func TestDispatchZeroQtyReportDropped(t *testing.T) {
	u := NewUserStream("key", true, zerolog.Nop())
	fills := make(chan ExecUpdate, 1)

	msg := []byte(`{"e":"executionReport","s":"BTCUSDT","S":"BUY","l":"0.0","L":"42000"}`)
	u.dispatch(context.Background(), msg, fills, nil)
	if len(fills) != 0 {
		t.Fatalf("zero-quantity report must not emit a fill")
	}
}

func TestDispatchBalanceUpdate(t *testing.T) {
	u := NewUserStream("key", true, zerolog.Nop())
	balances := make(chan BalanceDelta, 1)

	msg := []byte(`{"e":"balanceUpdate","E":1700000000123,"a":"USDT","d":"-25.5"}`)
	u.dispatch(context.Background(), msg, nil, balances)

	select {
	case delta := <-balances:
		if delta.Asset != "USDT" || delta.Delta != -25.5 || delta.TsMs != 1700000000123 {
			t.Fatalf("unexpected balance delta: %+v", delta)
		}
	default:
		t.Fatalf("expected a balance event")
	}
}

func TestDispatchMalformedEventIgnored(t *testing.T) {
	u := NewUserStream("key", true, zerolog.Nop())
	fills := make(chan ExecUpdate, 1)
	u.dispatch(context.Background(), []byte(`not json`), fills, nil)
	u.dispatch(context.Background(), []byte(`{"e":"somethingElse"}`), fills, nil)
	if len(fills) != 0 {
		t.Fatalf("malformed events must be ignored")
	}
}

func TestObtainListenKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MBX-APIKEY") != "key" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(`{"listenKey":"abc123"}`))
	}))
	defer srv.Close()

	u := NewUserStream("key", true, zerolog.Nop())
	u.restOverride = srv.URL

	key, err := u.obtainListenKey(context.Background())
	if err != nil {
		t.Fatalf("obtainListenKey returned error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("unexpected listen key: %s", key)
	}
}

func TestObtainListenKeyBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":-2014,"msg":"API-key format invalid."}`))
	}))
	defer srv.Close()

	u := NewUserStream("key", true, zerolog.Nop())
	u.restOverride = srv.URL
	if _, err := u.obtainListenKey(context.Background()); err == nil {
		t.Fatalf("expected error on unusable response")
	}
}
