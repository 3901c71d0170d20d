package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"signal_hub/internal/domain"
	"signal_hub/internal/infra"
	"signal_hub/internal/service"

	"github.com/shopspring/decimal"
)

const testInternalKey = "internal-secret"

type fakeOracle struct {
	keys []string
	err  error
}

func (o *fakeOracle) ValidKey(key string, _ time.Time) (bool, error) {
	if o.err != nil {
		return false, o.err
	}
	for _, k := range o.keys {
		if k == key {
			return true, nil
		}
	}
	return false, nil
}

func (o *fakeOracle) EligibleKeys(_ time.Time) ([]string, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.keys, nil
}

func newTestServer(t *testing.T, oracle service.Oracle) *httptest.Server {
	t.Helper()
	infra.GlobalMetrics.Reset()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	positions := service.NewPositionMemory(8 * time.Hour)
	cache := service.NewSignalCache(300 * time.Second)
	symbols := domain.NewSymbolTable(map[string]string{
		"XAUUSD": "XAUUSD", "XAUUSDC": "XAUUSD", "GOLD": "XAUUSD",
	}, "XAUUSD")
	broadcaster := service.NewBroadcaster(positions, cache, oracle, symbols, decimal.NewFromFloat(100.0), testInternalKey, log)

	feedback, err := infra.NewFeedbackLog(filepath.Join(t.TempDir(), "feedback.json"))
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(NewServer(broadcaster, oracle, feedback, NewHub(oracle, log), testInternalKey, log).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func submitBody(entry float64) map[string]any {
	ticket := domain.Ticket{
		Type:       domain.OrderBuy,
		Entry:      decimal.NewFromFloat(entry),
		StopLoss:   decimal.NewFromFloat(entry - 15),
		TakeProfit: decimal.NewFromFloat(entry + 30),
	}
	return map[string]any{
		"api_key":     testInternalKey,
		"symbol":      "XAUUSD",
		"signal":      "BUY",
		"signal_json": ticket.Flatten("XAUUSD"),
	}
}

func TestSubmitThenGet_RoundTrip(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{keys: []string{"S1"}})

	resp := postJSON(t, srv.URL+"/api/internal/submit_signal", submitBody(1900))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	submitted := decodeBody(t, resp)
	if submitted["signal_id"] == "" {
		t.Fatal("submit response must carry the signal id")
	}

	getResp, err := http.Get(srv.URL + "/api/get_signal?key=S1&symbol=XAUUSDc")
	if err != nil {
		t.Fatal(err)
	}
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", getResp.StatusCode)
	}
	signal := decodeBody(t, getResp)
	if signal["order_type"] != "BUY" {
		t.Errorf("expected BUY, got %v", signal["order_type"])
	}
	if signal["signal_id"] != submitted["signal_id"] {
		t.Errorf("pulled id %v != submitted id %v", signal["signal_id"], submitted["signal_id"])
	}
	if signal["BuyEntry"] != "1900" {
		t.Errorf("payload must round-trip, got %v", signal["BuyEntry"])
	}
}

func TestGetSignal_Unauthorized(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{keys: []string{"S1"}})

	resp, err := http.Get(srv.URL + "/api/get_signal?key=expired")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] == "" {
		t.Error("expected an error message")
	}
}

func TestGetSignal_EmptyCacheIsWait(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{keys: []string{"S1"}})

	resp, err := http.Get(srv.URL + "/api/get_signal?key=S1")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("no-signal pull must not error, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["order_type"] != "WAIT" {
		t.Errorf("expected WAIT, got %v", body["order_type"])
	}
}

func TestSubmit_Conflict(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{keys: []string{"S1"}})

	if resp := postJSON(t, srv.URL+"/api/internal/submit_signal", submitBody(1900)); resp.StatusCode != http.StatusOK {
		t.Fatalf("first submit status = %d", resp.StatusCode)
	}

	resp := postJSON(t, srv.URL+"/api/internal/submit_signal", submitBody(1950))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for near-duplicate entry, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] == "" {
		t.Error("conflict response must name the rejection")
	}

	snap := infra.GlobalMetrics.Snapshot()
	if snap.SignalsRejected != 1 {
		t.Errorf("expected 1 rejected in metrics, got %d", snap.SignalsRejected)
	}
}

func TestSubmit_UnknownSubmitterKey(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{keys: []string{"S1"}})

	body := submitBody(1900)
	body["api_key"] = "not-a-subscriber"
	resp := postJSON(t, srv.URL+"/api/internal/submit_signal", body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown submitter, got %d", resp.StatusCode)
	}
}

func TestSubmit_MalformedBody(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{keys: []string{"S1"}})

	resp, err := http.Post(srv.URL+"/api/internal/submit_signal", "application/json", bytes.NewReader([]byte("{broken")))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSubmit_ServerBuildsPayload(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{keys: []string{"S1"}})

	resp := postJSON(t, srv.URL+"/api/internal/submit_signal", map[string]any{
		"api_key":    testInternalKey,
		"symbol":     "XAUUSD",
		"signal":     "SELL",
		"order_type": "SELL_LIMIT",
		"entry":      1980.0,
		"sl":         1995.0,
		"tp":         1950.0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}

	getResp, err := http.Get(srv.URL + "/api/get_signal?key=S1")
	if err != nil {
		t.Fatal(err)
	}
	signal := decodeBody(t, getResp)
	if signal["SellLimit"] != "1980" {
		t.Errorf("expected flattened SellLimit 1980, got %v", signal["SellLimit"])
	}
	if signal["order_type"] != "SELL_LIMIT" {
		t.Errorf("expected SELL_LIMIT, got %v", signal["order_type"])
	}
}

func TestSubmit_OracleDownIsServerError(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{err: io.ErrUnexpectedEOF})

	body := submitBody(1900)
	delete(body, "api_key") // internal submitter, skips key validation
	resp := postJSON(t, srv.URL+"/api/internal/submit_signal", body)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("licensing failure must be a 500, got %d", resp.StatusCode)
	}
}

func TestFeedback_AppendAndValidate(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{keys: []string{"S1"}})

	resp := postJSON(t, srv.URL+"/api/feedback_trade", map[string]any{
		"signal_id": "abc123",
		"result":    "TP_HIT",
		"profit":    42.5,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feedback status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "success" {
		t.Errorf("expected success, got %v", body["status"])
	}

	empty, err := http.Post(srv.URL+"/api/feedback_trade", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	if empty.StatusCode != http.StatusBadRequest {
		t.Errorf("empty feedback must be rejected, got %d", empty.StatusCode)
	}
}

func TestStatus_Snapshot(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{keys: []string{"S1"}})

	postJSON(t, srv.URL+"/api/internal/submit_signal", submitBody(1900))
	http.Get(srv.URL + "/api/get_signal?key=S1")

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	snap := decodeBody(t, resp)
	if snap["signals_accepted"] != float64(1) {
		t.Errorf("expected 1 accepted, got %v", snap["signals_accepted"])
	}
	if snap["cache_hits"] != float64(1) {
		t.Errorf("expected 1 cache hit, got %v", snap["cache_hits"])
	}
	if snap["fanout_writes"] != float64(1) {
		t.Errorf("expected 1 fanout write for 1 subscriber, got %v", snap["fanout_writes"])
	}
}
