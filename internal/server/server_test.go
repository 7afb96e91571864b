package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sinfolonokojo/mt5-monitor/internal/agent"
	"github.com/Sinfolonokojo/mt5-monitor/internal/aggregator"
	"github.com/Sinfolonokojo/mt5-monitor/internal/auth"
	"github.com/Sinfolonokojo/mt5-monitor/internal/cache"
	"github.com/Sinfolonokojo/mt5-monitor/internal/config"
	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
	"github.com/Sinfolonokojo/mt5-monitor/internal/routing"
	"github.com/Sinfolonokojo/mt5-monitor/internal/server/handler"
	"github.com/Sinfolonokojo/mt5-monitor/internal/service"
	"github.com/Sinfolonokojo/mt5-monitor/internal/store/jsonfile"
	"github.com/Sinfolonokojo/mt5-monitor/internal/versus"
)

const testPassword = "hunter2"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestAPI wires a full server against one fake agent fronting three
// connected accounts and returns the API base URL plus a valid bearer token.
func newTestAPI(t *testing.T, trading, versusEnabled bool) (string, string) {
	t.Helper()

	fakeAgent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"account_id":100,"balance":10000,"status":"connected"},
		                 {"account_id":200,"balance":5000,"status":"connected"},
		                 {"account_id":300,"balance":2500,"status":"connected"}]`))
	}))
	t.Cleanup(fakeAgent.Close)

	logger := testLogger()
	pool := agent.NewPool()
	t.Cleanup(pool.Close)

	registry := agent.NewRegistry([]config.AgentConfig{{Name: "agent-1", URL: fakeAgent.URL}}, pool, 2*time.Second)
	routes := routing.NewMap()
	snapshots := cache.New(time.Minute)
	agg := aggregator.New(registry, routes, nil, logger)

	dir := t.TempDir()
	phases, err := jsonfile.NewPhaseStore(filepath.Join(dir, "phases.json"), logger)
	require.NoError(t, err)
	vsStore, err := jsonfile.NewVSStore(filepath.Join(dir, "vs.json"), logger)
	require.NoError(t, err)
	versusStore, err := jsonfile.NewVersusStore(filepath.Join(dir, "versus.json"), logger)
	require.NoError(t, err)
	history, err := jsonfile.NewTradeHistoryStore(filepath.Join(dir, "trades.json"), logger)
	require.NoError(t, err)

	engine := versus.NewEngine(versusStore, agg, snapshots, nil, logger)

	accounts := service.NewAccountService(agg, snapshots, phases, vsStore, history, nil, logger)
	trades := service.NewTradeService(agg, snapshots, logger)
	versusSvc := service.NewVersusService(versusStore, engine, snapshots, nil, versusEnabled, logger)

	tokens := auth.New("test-secret", time.Hour)

	srv := New(Config{
		Host:           "127.0.0.1",
		Port:           0,
		CORSOrigins:    []string{"*"},
		TradingEnabled: trading,
		VersusEnabled:  versusEnabled,
	}, Handlers{
		Root:     handler.NewRootHandler("test"),
		Auth:     handler.NewAuthHandler(tokens, testPassword),
		Accounts: handler.NewAccountsHandler(accounts),
		Trade:    handler.NewTradeHandler(trades),
		Versus:   handler.NewVersusHandler(versusSvc),
		Export:   handler.NewExportHandler(accounts, nil),
	}, tokens, nil, logger)

	api := httptest.NewServer(srv.Handler())
	t.Cleanup(api.Close)

	return api.URL, tokens.Issue()
}

func doJSON(t *testing.T, method, url, token string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestRootIsPublic(t *testing.T) {
	base, _ := newTestAPI(t, false, false)

	resp, body := doJSON(t, http.MethodGet, base+"/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "mt5-monitor")
}

func TestUnknownRootPathIs404(t *testing.T) {
	base, token := newTestAPI(t, false, false)

	resp, _ := doJSON(t, http.MethodGet, base+"/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	base, _ := newTestAPI(t, false, false)

	resp, body := doJSON(t, http.MethodGet, base+"/api/accounts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "not authenticated")

	resp, _ = doJSON(t, http.MethodGet, base+"/api/accounts", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginAndVerify(t *testing.T) {
	base, _ := newTestAPI(t, false, false)

	resp, _ := doJSON(t, http.MethodPost, base+"/api/auth/login", "", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, base+"/api/auth/login", "", map[string]string{"password": testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	assert.True(t, login.Success)
	require.NotEmpty(t, login.Token)

	resp, body = doJSON(t, http.MethodGet, base+"/api/auth/verify", login.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"valid":true`)

	resp, body = doJSON(t, http.MethodGet, base+"/api/auth/verify", "garbage", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"valid":false`)
}

func TestListAccountsAggregates(t *testing.T) {
	base, token := newTestAPI(t, false, false)

	resp, body := doJSON(t, http.MethodGet, base+"/api/accounts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var agg domain.AggregatedAccounts
	require.NoError(t, json.Unmarshal(body, &agg))
	assert.Equal(t, 3, agg.TotalAccounts)
	assert.Equal(t, 3, agg.ConnectedAccounts)
	assert.InDelta(t, 17500.0, agg.TotalBalance, 1e-9)
}

func TestVSGroupCapEnforcedOverHTTP(t *testing.T) {
	base, token := newTestAPI(t, false, false)

	for _, id := range []uint64{100, 200} {
		resp, _ := doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/accounts/%d/vs", base, id), token,
			map[string]string{"vs_group": "G1"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPut, base+"/api/accounts/300/vs", token,
		map[string]string{"vs_group": "G1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "detail")
}

func TestPhaseUpdateRequiresValue(t *testing.T) {
	base, token := newTestAPI(t, false, false)

	resp, _ := doJSON(t, http.MethodPut, base+"/api/accounts/100/phase", token,
		map[string]string{"phase": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, base+"/api/accounts/100/phase", token,
		map[string]string{"phase": "F2"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTradingGateBlocksTradeRoutes(t *testing.T) {
	base, token := newTestAPI(t, false, true)

	resp, body := doJSON(t, http.MethodPost, base+"/api/accounts/100/trade/open", token,
		map[string]any{"symbol": "EURUSD", "lots": 0.1, "side": "BUY"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "detail")

	// Reads stay open while trading is disabled.
	resp, _ = doJSON(t, http.MethodGet, base+"/api/accounts/100/positions", token, nil)
	assert.NotEqual(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestVersusGateBlocksAllButFeatureStatus(t *testing.T) {
	base, token := newTestAPI(t, true, false)

	resp, _ := doJSON(t, http.MethodGet, base+"/api/versus", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, base+"/api/versus/feature-status", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"enabled":false`)
}

func TestVersusLifecycleOverHTTP(t *testing.T) {
	base, token := newTestAPI(t, true, true)

	resp, body := doJSON(t, http.MethodPost, base+"/api/versus", token, map[string]any{
		"account_a": 100,
		"account_b": 200,
		"symbol":    "EURUSD",
		"lots":      1,
		"side":      "BUY",
		"tp_usd_a":  50,
		"sl_usd_a":  25,
		"tp_usd_b":  50,
		"sl_usd_b":  25,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var rec domain.VersusRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, domain.VersusPending, rec.Status)
	require.NotEmpty(t, rec.ID)

	resp, body = doJSON(t, http.MethodGet, base+"/api/versus", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), rec.ID)

	// Same-account pairs are rejected before any agent call.
	resp, _ = doJSON(t, http.MethodPost, base+"/api/versus", token, map[string]any{
		"account_a": 100,
		"account_b": 100,
		"symbol":    "EURUSD",
		"lots":      1,
		"side":      "BUY",
		"tp_usd_a":  50,
		"sl_usd_a":  25,
		"tp_usd_b":  50,
		"sl_usd_b":  25,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, base+"/api/versus/"+rec.ID, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, base+"/api/versus/"+rec.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORSPreflightBypassesAuth(t *testing.T) {
	base, _ := newTestAPI(t, false, false)

	req, err := http.NewRequest(http.MethodOptions, base+"/api/accounts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://ui.test")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestErrorBodiesCarryCORSHeaders(t *testing.T) {
	base, _ := newTestAPI(t, false, false)

	req, err := http.NewRequest(http.MethodGet, base+"/api/accounts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://ui.test")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestExportDisabledReturns503(t *testing.T) {
	base, token := newTestAPI(t, false, false)

	resp, body := doJSON(t, http.MethodPost, base+"/api/export/accounts", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "detail")
}
