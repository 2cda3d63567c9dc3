package watcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/barissdev/polylook/internal/config"
	"github.com/barissdev/polylook/internal/fetch"
	"github.com/barissdev/polylook/internal/polymarket/dataapi"
	"github.com/barissdev/polylook/internal/whales"
	"github.com/sirupsen/logrus"
)

type captureSender struct {
	sent []whales.Alert
}

func (s *captureSender) Name() string { return "capture" }

func (s *captureSender) Send(ctx context.Context, alert *whales.Alert) error {
	s.sent = append(s.sent, *alert)
	return nil
}

func testWatcher(t *testing.T, payloads []string) (*Watcher, *captureSender) {
	t.Helper()

	var call atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(call.Add(1)) - 1
		if n >= len(payloads) {
			n = len(payloads) - 1
		}
		w.Write([]byte(payloads[n]))
	}))
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		DataAPIBaseURL:         srv.URL,
		DataAPIAuthMode:        config.AuthModeNone,
		HTTPTimeout:            5 * time.Second,
		FetchInitialDelay:      time.Millisecond,
		FetchMaxDelay:          time.Millisecond,
		FetchBackoffMultiplier: 2.0,
		WhaleThresholdUSD:      5000,
		WhaleResultCap:         100,
		WhaleWindowMinutes:     60,
		DataAPITradesRPS:       1000,
	}

	detector := whales.NewDetector(dataapi.NewClient(cfg, fetch.New(cfg, log)), cfg, log)
	sender := &captureSender{}
	return New(detector, sender, time.Minute, log), sender
}

func TestScanPrimesThenAlertsOnlyOnFreshWhales(t *testing.T) {
	existing := `{"conditionId":"old","size":20000,"price":1,"timestamp":1700000000,"title":"Old whale"}`
	fresh := `{"conditionId":"new","size":30000,"price":1,"timestamp":1700000500,"title":"New whale"}`

	w, sender := testWatcher(t, []string{
		"[" + existing + "]",
		"[" + fresh + "," + existing + "]",
		"[" + fresh + "," + existing + "]",
	})

	ctx := context.Background()

	// Priming scan: sees the old whale but must not announce it.
	w.scan(ctx, false)
	if len(sender.sent) != 0 {
		t.Fatalf("priming scan must not alert, sent %d", len(sender.sent))
	}

	// A fresh whale appears: exactly one alert.
	w.scan(ctx, true)
	if len(sender.sent) != 1 || sender.sent[0].MarketID != "new" {
		t.Fatalf("expected one alert for the fresh whale, got %+v", sender.sent)
	}

	// Same page again: nothing new to announce.
	w.scan(ctx, true)
	if len(sender.sent) != 1 {
		t.Errorf("duplicate whales must not be re-announced, sent %d", len(sender.sent))
	}
}
