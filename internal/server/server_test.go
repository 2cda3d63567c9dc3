package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/barissdev/polylook/internal/config"
	"github.com/barissdev/polylook/internal/feed"
	"github.com/barissdev/polylook/internal/fetch"
	"github.com/barissdev/polylook/internal/markets"
	"github.com/barissdev/polylook/internal/polymarket/dataapi"
	"github.com/barissdev/polylook/internal/polymarket/gammaapi"
	"github.com/barissdev/polylook/internal/reconcile"
	"github.com/barissdev/polylook/internal/whales"
)

func testServer(t *testing.T) (*Server, *atomic.Int64, *atomic.Pointer[string]) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var hits atomic.Int64
	var lastQuery atomic.Pointer[string]
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.RawQuery
		lastQuery.Store(&q)
		w.Write([]byte("[]"))
	}))
	t.Cleanup(upstream.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		Environment:             "test",
		DataAPIBaseURL:          upstream.URL,
		GammaAPIBaseURL:         upstream.URL,
		DataAPIAuthMode:         config.AuthModeNone,
		HTTPTimeout:             5 * time.Second,
		FetchInitialDelay:       time.Millisecond,
		FetchMaxDelay:           time.Millisecond,
		FetchBackoffMultiplier:  2.0,
		PositionsPageLimit:      200,
		WalletPositionsLimit:    500,
		ClosedPositionsPageSize: 50,
		ClosedPositionsMaxPages: 10,
		TradesPageLimit:         500,
		ActivityPageLimit:       200,
		ActivityVolumeLimit:     1000,
		DefaultWindowDays:       30,
		MaxWindowDays:           3650,
		FeedLookbackMinutes:     60,
		WhaleThresholdUSD:       5000,
		WhaleResultCap:          100,
		WhaleWindowMinutes:      60,
		FeedWorkers:             3,
		DataAPITradesRPS:        1000,
		DataAPIActivityRPS:      1000,
		DataAPIPositionsRPS:     1000,
		DataAPILeaderboardRPS:   1000,
		GammaAPIEventsRPS:       1000,
	}

	fc := fetch.New(cfg, log)
	data := dataapi.NewClient(cfg, fc)
	gamma := gammaapi.NewClient(cfg, fc)

	srv := New(
		cfg,
		log,
		data,
		reconcile.New(data, cfg, log),
		feed.New(data, cfg, log),
		whales.NewDetector(data, cfg, log),
		markets.NewService(gamma, log),
	)
	return srv, &hits, &lastQuery
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := testServer(t)

	for _, path := range []string{"/health", "/ready"} {
		rec := doRequest(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s returned %d, want 200", path, rec.Code)
		}
	}
}

func TestWalletRejectsMalformedAddressBeforeUpstream(t *testing.T) {
	srv, hits, _ := testServer(t)

	tests := []string{
		"/api/wallet?address=vitalik.eth",
		"/api/wallet?address=0x123",
		"/api/wallet?address=0xZZaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	}
	for _, path := range tests {
		rec := doRequest(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s returned %d, want 400", path, rec.Code)
		}
	}
	if hits.Load() != 0 {
		t.Errorf("malformed addresses must not reach upstream, got %d requests", hits.Load())
	}
}

func TestWalletMissingAddressParam(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/wallet", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rec.Code)
	}
}

func TestPnlCardValidation(t *testing.T) {
	srv, hits, _ := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"bad address", `{"address":"nope"}`},
		{"not json", `address=0x123`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/pnl-card", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("got %d, want 400", rec.Code)
			}
		})
	}
	if hits.Load() != 0 {
		t.Errorf("invalid bodies must not reach upstream, got %d requests", hits.Load())
	}
}

func TestPnlCardAcceptsUppercaseAddress(t *testing.T) {
	srv, _, _ := testServer(t)

	body := `{"address":"0xABABABABABABABABABABABABABABABABABABABAB","days":7}`
	rec := doRequest(t, srv, http.MethodPost, "/api/pnl-card", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"address":"0xabababababababababababababababababababab"`) {
		t.Errorf("address not normalized in response: %s", rec.Body.String())
	}
}

func TestWalletFeedRequiresWalletsArray(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/wallet-feed", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/wallet-feed", `{"wallets":[]}`)
	if rec.Code != http.StatusOK {
		t.Errorf("empty wallets array should be a 200 with an empty feed, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array body, got %s", rec.Body.String())
	}
}

func TestLeaderboardClampsAndMapsParams(t *testing.T) {
	srv, _, lastQuery := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/leaderboard", `{"timePeriod":"WEEKLY","metric":"VOLUME","limit":999}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}

	q := *lastQuery.Load()
	for _, want := range []string{"timePeriod=WEEK", "orderBy=VOL", "limit=100", "category=OVERALL"} {
		if !strings.Contains(q, want) {
			t.Errorf("upstream query %q missing %q", q, want)
		}
	}
}

func TestWhalesReturnsEnvelope(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/whales", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, field := range []string{`"windowMinutes":60`, `"thresholdUsd":5000`, `"whales":[]`} {
		if !strings.Contains(body, field) {
			t.Errorf("envelope missing %s: %s", field, body)
		}
	}
}

func TestNewMarketsEnvelope(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/new-markets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"markets":[]`) {
		t.Errorf("expected markets envelope, got %s", rec.Body.String())
	}
}
