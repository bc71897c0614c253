package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/bitcoinswap/htlc-engine/internal/backend"
	"github.com/bitcoinswap/htlc-engine/internal/orders"
)

// fakeBackend is a fixed-response stand-in for a real Bitcoin backend, used
// so handler tests never make network calls.
type fakeBackend struct {
	tip     int64
	txInfo  *backend.TransactionInfo
	txErr   error
	fees    *backend.FeeRate
	bcastID string
	bcastErr error
}

func (f *fakeBackend) Type() backend.Type { return backend.TypeRestExplorer }
func (f *fakeBackend) TipHeight(ctx context.Context) (int64, error) { return f.tip, nil }
func (f *fakeBackend) GetTx(ctx context.Context, txid string) (*backend.TransactionInfo, error) {
	return f.txInfo, f.txErr
}
func (f *fakeBackend) ListUTXOs(ctx context.Context, address string) ([]backend.UTXO, error) {
	return nil, nil
}
func (f *fakeBackend) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	return f.bcastID, f.bcastErr
}
func (f *fakeBackend) FeeEstimates(ctx context.Context) (*backend.FeeRate, error) {
	return f.fees, nil
}

var _ backend.Backend = (*fakeBackend)(nil)

func newTestServer(t *testing.T, b *fakeBackend) *Server {
	t.Helper()
	store, err := orders.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if b == nil {
		b = &fakeBackend{tip: 100, fees: &backend.FeeRate{FastestFee: 5, HalfHourFee: 3, HourFee: 2, EconomyFee: 1}}
	}

	return NewServer(Config{
		Addr:    "127.0.0.1:0",
		Store:   store,
		Machine: orders.NewMachine(store),
		Backend: b,
		Network: &chaincfg.TestNet3Params,
	})
}

func doRequest(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "test-key")

	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	var handler http.Handler = requestIDMiddleware(mux)
	handler = s.apiKeyMiddleware(handler)
	handler = corsMiddleware(handler)
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthDoesNotRequireAPIKey(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	var handler http.Handler = mux
	handler = requestIDMiddleware(handler)
	handler = s.apiKeyMiddleware(handler)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/health = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestMissingAPIKeyRejected(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/fees/estimate", nil)
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	var handler http.Handler = mux
	handler = requestIDMiddleware(handler)
	handler = s.apiKeyMiddleware(handler)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing API key = %d, want 401", rec.Code)
	}
	var errResp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if errResp.Code != "MISSING_API_KEY" {
		t.Errorf("code = %q, want MISSING_API_KEY", errResp.Code)
	}
}

func TestEmptyAPIKeyRejected(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/fees/estimate", nil)
	req.Header.Set("X-API-Key", "")
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	var handler http.Handler = mux
	handler = requestIDMiddleware(handler)
	handler = s.apiKeyMiddleware(handler)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("empty API key = %d, want 401", rec.Code)
	}
	var errResp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if errResp.Code != "INVALID_API_KEY" {
		t.Errorf("code = %q, want INVALID_API_KEY", errResp.Code)
	}
}

const (
	testRecipientPubKey = "02deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	testSenderPubKey    = "03beefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdead"
	testPreimageHash    = "a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1"
	testPreimage        = "0000000000000000000000000000000000000000000000000000000000000000"
)

func validCreateOrderRequest() CreateOrderRequest {
	return CreateOrderRequest{
		Direction:                     "BTC_TO_EVM",
		PreimageHash:                  testPreimageHash,
		ResolverPublicKey:             testRecipientPubKey,
		BitcoinTimeoutBlocks:          144,
		EthereumTimeoutBlocks:         7200,
		BitcoinConfirmationsRequired:  3,
		EthereumConfirmationsRequired: 12,
	}
}

func TestCreateOrderAndGet(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doRequest(s, http.MethodPost, "/v1/orders", validCreateOrderRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order = %d: %s", rec.Code, rec.Body.String())
	}
	var created OrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != "created" {
		t.Errorf("status = %q, want created", created.Status)
	}

	rec = doRequest(s, http.MethodGet, "/v1/orders/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get order = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateOrderRejectsBadPreimageHash(t *testing.T) {
	s := newTestServer(t, nil)
	req := validCreateOrderRequest()
	req.PreimageHash = "not-hex"
	rec := doRequest(s, http.MethodPost, "/v1/orders", req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("create order with bad hash = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}

func TestGetOrderNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doRequest(s, http.MethodGet, "/v1/orders/00000000-0000-0000-0000-000000000000", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get missing order = %d, want 404", rec.Code)
	}
}

func TestObservePreimageRejectedBeforeFunding(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doRequest(s, http.MethodPost, "/v1/orders", validCreateOrderRequest())
	var created OrderResponse
	json.Unmarshal(rec.Body.Bytes(), &created)

	rec = doRequest(s, http.MethodPost, "/v1/orders/"+created.ID+"/preimage", ObservePreimageRequest{
		Preimage: testPreimage,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("premature preimage observation = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestHtlcBuildAndVerify(t *testing.T) {
	s := newTestServer(t, nil)
	buildReq := HtlcBuildRequest{
		RecipientPubKey: testRecipientPubKey,
		SenderPubKey:    testSenderPubKey,
		PaymentHash:     testPreimageHash,
		TimeoutHeight:   500000,
	}
	rec := doRequest(s, http.MethodPost, "/v1/htlc/build", buildReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("htlc build = %d: %s", rec.Code, rec.Body.String())
	}
	var built HtlcBuildResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &built); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if built.Address == "" || built.RedeemScript == "" {
		t.Fatalf("expected address and redeem script, got %+v", built)
	}

	verifyReq := HtlcVerifyRequest{
		RecipientPubKey: buildReq.RecipientPubKey,
		SenderPubKey:    buildReq.SenderPubKey,
		PaymentHash:     buildReq.PaymentHash,
		TimeoutHeight:   buildReq.TimeoutHeight,
		RedeemScript:    built.RedeemScript,
	}
	rec = doRequest(s, http.MethodPost, "/v1/htlc/verify", verifyReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("htlc verify = %d: %s", rec.Code, rec.Body.String())
	}
	var verified HtlcVerifyResponse
	json.Unmarshal(rec.Body.Bytes(), &verified)
	if !verified.Valid {
		t.Error("expected verify to report valid=true for a freshly built script")
	}
}

func TestFeeEstimate(t *testing.T) {
	s := newTestServer(t, &fakeBackend{
		fees: &backend.FeeRate{FastestFee: 10, HalfHourFee: 5, HourFee: 3, EconomyFee: 1},
	})
	rec := doRequest(s, http.MethodGet, "/v1/fees/estimate?urgent=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("fee estimate = %d: %s", rec.Code, rec.Body.String())
	}
	var resp FeeEstimateResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.BitcoinNetworkFee != 10*typicalSpendVBytes {
		t.Errorf("bitcoin_network_fee = %d, want %d", resp.BitcoinNetworkFee, 10*typicalSpendVBytes)
	}
	if resp.TotalFee != resp.BitcoinNetworkFee+resp.ResolverFee {
		t.Error("total_fee should equal network fee + resolver fee")
	}
}

func TestCreateWebhookGeneratesSecretWhenOmitted(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doRequest(s, http.MethodPost, "/v1/webhooks", WebhookRequest{
		URL:    "https://example.com/hook",
		Events: []string{"order.completed"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create webhook = %d: %s", rec.Code, rec.Body.String())
	}
	var resp WebhookResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Secret == "" {
		t.Error("expected a generated secret when none was supplied")
	}
	if resp.ID == "" {
		t.Error("expected a non-empty webhook id")
	}
}

func TestCreateWebhookRejectsUnknownEvent(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doRequest(s, http.MethodPost, "/v1/webhooks", WebhookRequest{
		URL:    "https://example.com/hook",
		Events: []string{"not.a.real.event"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("create webhook with unknown event = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}
