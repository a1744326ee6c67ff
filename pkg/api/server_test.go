package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voltexchange/voltex/pkg/app"
	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine"
	"github.com/voltexchange/voltex/pkg/engine/book"
	"github.com/voltexchange/voltex/pkg/funds"
	"github.com/voltexchange/voltex/pkg/storage"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	registry := asset.NewRegistry(asset.InternalAssetList()...)
	journal, err := storage.NewJournal(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	t.Cleanup(func() { journal.Close() })

	handle := engine.Spawn(registry, engine.Options{
		OnExecution: journal.Append,
	})
	t.Cleanup(handle.Shutdown)

	cx := &app.AppCx{
		Engine:     handle,
		Funds:      funds.NewCoordinator(funds.NewMemStore(), nil),
		Assets:     registry,
		Journal:    journal,
		EngineWait: 2 * time.Second,
		Log:        zap.NewNop().Sugar(),
	}
	s := NewServer(cx)
	ts := httptest.NewServer(s.router)
	t.Cleanup(ts.Close)
	return s, ts
}

func doJSON(t *testing.T, method, url string, owner uuid.UUID, body interface{}, out interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if owner != uuid.Nil {
		req.Header.Set("X-User-ID", owner.String())
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp
}

func placeReq(side string, price, qty int64) PlaceOrderRequest {
	return PlaceOrderRequest{
		Side:      side,
		OrderType: "limit",
		Quantity:  qty,
		Price:     price,
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPlaceOrder(t *testing.T) {
	_, ts := newTestServer(t)
	alice, bob := uuid.New(), uuid.New()
	orderURL := ts.URL + "/api/v1/trade/BTC/order"

	var sell PlaceOrderResponse
	resp := doJSON(t, "POST", orderURL, alice, placeReq("sell", 100, 5), &sell)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sell status = %d, want 200", resp.StatusCode)
	}
	if sell.Status != "resting" || len(sell.Executions) != 0 {
		t.Errorf("sell = %+v, want resting with no executions", sell)
	}

	var buy PlaceOrderResponse
	resp = doJSON(t, "POST", orderURL, bob, placeReq("buy", 100, 5), &buy)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("buy status = %d, want 200", resp.StatusCode)
	}
	if buy.Status != "filled" {
		t.Errorf("buy status = %q, want filled", buy.Status)
	}
	if len(buy.Executions) != 1 || buy.Executions[0].Price != 100 || buy.Executions[0].Qty != 5 {
		t.Errorf("executions = %+v, want one 5-lot fill at 100", buy.Executions)
	}
}

func TestPlaceOrderRejections(t *testing.T) {
	_, ts := newTestServer(t)
	owner := uuid.New()

	tests := []struct {
		name       string
		url        string
		owner      uuid.UUID
		body       interface{}
		wantStatus int
	}{
		{"missing identity", "/api/v1/trade/BTC/order", uuid.Nil, placeReq("buy", 100, 1), http.StatusUnauthorized},
		{"unknown asset", "/api/v1/trade/DOGE/order", owner, placeReq("buy", 100, 1), http.StatusNotFound},
		{"bad side", "/api/v1/trade/BTC/order", owner, placeReq("hold", 100, 1), http.StatusBadRequest},
		{"zero quantity", "/api/v1/trade/BTC/order", owner, placeReq("buy", 100, 0), http.StatusBadRequest},
		{"zero price", "/api/v1/trade/BTC/order", owner, placeReq("buy", 0, 1), http.StatusBadRequest},
		{"garbage body", "/api/v1/trade/BTC/order", owner, "not json", http.StatusBadRequest},
		{"price out of range", "/api/v1/trade/BTC/order", owner, placeReq("buy", 1<<40, 1), http.StatusBadRequest},
		{"quantity out of range", "/api/v1/trade/BTC/order", owner, placeReq("buy", 100, 1<<40), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, "POST", ts.URL+tt.url, tt.owner, tt.body, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestMarketOrderRequiresPrice(t *testing.T) {
	_, ts := newTestServer(t)

	// Price bounds the fund reservation, so it is required even for
	// market orders.
	req := PlaceOrderRequest{Side: "buy", OrderType: "market", Quantity: 1}
	resp := doJSON(t, "POST", ts.URL+"/api/v1/trade/BTC/order", uuid.New(), req, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCancelOrder(t *testing.T) {
	_, ts := newTestServer(t)
	alice, mallory := uuid.New(), uuid.New()

	var placed PlaceOrderResponse
	doJSON(t, "POST", ts.URL+"/api/v1/trade/BTC/order", alice, placeReq("buy", 100, 5), &placed)

	cancelURL := ts.URL + "/api/v1/orders/" + placed.OrderID

	// A different user cannot cancel it.
	resp := doJSON(t, "DELETE", cancelURL, mallory, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign cancel status = %d, want 404", resp.StatusCode)
	}

	var cancelled CancelOrderResponse
	resp = doJSON(t, "DELETE", cancelURL, alice, nil, &cancelled)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	if cancelled.Status != "cancelled" || cancelled.OrderID != placed.OrderID {
		t.Errorf("cancel response = %+v", cancelled)
	}

	// Already gone.
	resp = doJSON(t, "DELETE", cancelURL, alice, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("double cancel status = %d, want 404", resp.StatusCode)
	}
}

func TestOrderbookEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	alice := uuid.New()

	doJSON(t, "POST", ts.URL+"/api/v1/trade/BTC/order", alice, placeReq("buy", 99, 2), nil)
	doJSON(t, "POST", ts.URL+"/api/v1/trade/BTC/order", alice, placeReq("sell", 101, 3), nil)

	var snap OrderbookSnapshot
	resp := doJSON(t, "GET", ts.URL+"/api/v1/markets/BTC/orderbook", uuid.Nil, nil, &snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if snap.Asset != "BTC" {
		t.Errorf("asset = %q, want BTC", snap.Asset)
	}
	if len(snap.Bids) != 1 || snap.Bids[0].Price != 99 || snap.Bids[0].Qty != 2 {
		t.Errorf("bids = %+v, want [{99 2}]", snap.Bids)
	}
	if len(snap.Asks) != 1 || snap.Asks[0].Price != 101 || snap.Asks[0].Qty != 3 {
		t.Errorf("asks = %+v, want [{101 3}]", snap.Asks)
	}
}

func TestAssetsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	var assets []AssetInfo
	resp := doJSON(t, "GET", ts.URL+"/api/v1/assets", uuid.Nil, nil, &assets)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(assets) != len(asset.InternalAssetList()) {
		t.Errorf("got %d assets, want %d", len(assets), len(asset.InternalAssetList()))
	}
	for _, a := range assets {
		if !a.Enabled {
			t.Errorf("asset %s not enabled by default", a.Asset)
		}
	}
}

func TestBuildPlaceOrderBounds(t *testing.T) {
	owner := uuid.New()

	// The largest accepted order still yields a positive reservation amount.
	cmd, err := buildPlaceOrder(owner, asset.Bitcoin, placeReq("buy", maxOrderInput, maxOrderInput))
	if err != nil {
		t.Fatalf("build at bound: %v", err)
	}
	if hold := app.ReserveAmount(cmd); hold <= 0 {
		t.Errorf("reservation amount overflowed: %d", hold)
	}

	if _, err := buildPlaceOrder(owner, asset.Bitcoin, placeReq("buy", maxOrderInput+1, 1)); err == nil {
		t.Errorf("price above bound accepted")
	}
	if _, err := buildPlaceOrder(owner, asset.Bitcoin, placeReq("buy", 1, maxOrderInput+1)); err == nil {
		t.Errorf("quantity above bound accepted")
	}
}

func TestBuildPlaceOrderDefaults(t *testing.T) {
	owner := uuid.New()
	cmd, err := buildPlaceOrder(owner, asset.Bitcoin, placeReq("buy", 100, 1))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cmd.TIF != book.GTC {
		t.Errorf("default TIF = %v, want GTC", cmd.TIF)
	}
	if cmd.STP != book.CancelNewest {
		t.Errorf("default STP = %v, want cancel_newest", cmd.STP)
	}
}
