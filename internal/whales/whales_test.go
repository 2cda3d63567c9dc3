package whales

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/barissdev/polylook/internal/config"
	"github.com/barissdev/polylook/internal/fetch"
	"github.com/barissdev/polylook/internal/polymarket/dataapi"
	"github.com/sirupsen/logrus"
)

func testDetector(t *testing.T, payload string) *Detector {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
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

	return NewDetector(dataapi.NewClient(cfg, fetch.New(cfg, log)), cfg, log)
}

func trade(condition string, size, price float64, ts int64, extra string) string {
	if extra != "" {
		extra = "," + extra
	}
	return fmt.Sprintf(`{"conditionId":%q,"size":%v,"price":%v,"timestamp":%d%s}`, condition, size, price, ts, extra)
}

func TestDetectRecomputesNotionalLocally(t *testing.T) {
	payload := "[" +
		trade("big", 10000, 0.6, 1700000100, `"title":"Big market"`) + "," +
		trade("edge", 49999.9, 0.1, 1700000200, `"title":"Just under"`) + "," +
		trade("exact", 10000, 0.5, 1700000300, `"title":"Exactly at threshold"`) +
		"]"

	report, err := testDetector(t, payload).Detect(context.Background(), 5000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.ThresholdUsd != 5000 || report.WindowMinutes != 60 {
		t.Errorf("unexpected envelope: %+v", report)
	}
	if len(report.Whales) != 2 {
		t.Fatalf("got %d whales, want 2: %+v", len(report.Whales), report.Whales)
	}
	for _, w := range report.Whales {
		if w.MarketID == "edge" {
			t.Errorf("4999.99 notional must be excluded at a 5000 threshold")
		}
	}
	// Newest first.
	if report.Whales[0].MarketID != "exact" || report.Whales[1].MarketID != "big" {
		t.Errorf("whales not sorted newest first: %+v", report.Whales)
	}
	if report.Whales[1].AmountUsd != 6000 {
		t.Errorf("amountUsd = %v, want 6000 (10000 x 0.6)", report.Whales[1].AmountUsd)
	}
}

func TestDetectTruncatesToCap(t *testing.T) {
	body := "["
	for i := 0; i < 10; i++ {
		if i > 0 {
			body += ","
		}
		body += trade(fmt.Sprintf("m%d", i), 20000, 1, int64(1700000000+i), "")
	}
	body += "]"

	report, err := testDetector(t, body).Detect(context.Background(), 5000, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Whales) != 3 {
		t.Fatalf("got %d whales, want cap of 3", len(report.Whales))
	}
	if report.Whales[0].MarketID != "m9" {
		t.Errorf("truncation must keep the newest trades, got %+v", report.Whales[0])
	}
}

func TestDetectURLDerivation(t *testing.T) {
	payload := "[" +
		trade("a", 20000, 1, 4, `"eventSlug":"event-slug","slug":"market-slug","title":"The Title"`) + "," +
		trade("b", 20000, 1, 3, `"slug":"market-slug","title":"The Title"`) + "," +
		trade("c", 20000, 1, 2, `"title":"Will It  Happen"`) + "," +
		trade("d", 20000, 1, 1, "") +
		"]"

	report, err := testDetector(t, payload).Detect(context.Background(), 5000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Whales) != 4 {
		t.Fatalf("got %d whales, want 4", len(report.Whales))
	}

	wantURLs := map[string]string{
		"a": "https://polymarket.com/event/event-slug",
		"b": "https://polymarket.com/event/market-slug",
		"c": "https://polymarket.com/event/will-it-happen",
		"d": "",
	}
	wantQuestions := map[string]string{
		"a": "The Title",
		"b": "The Title",
		"c": "Will It  Happen",
		"d": "Unknown market",
	}
	for _, w := range report.Whales {
		if w.URL != wantURLs[w.MarketID] {
			t.Errorf("market %s url = %q, want %q", w.MarketID, w.URL, wantURLs[w.MarketID])
		}
		if w.MarketQuestion != wantQuestions[w.MarketID] {
			t.Errorf("market %s question = %q, want %q", w.MarketID, w.MarketQuestion, wantQuestions[w.MarketID])
		}
	}
}

func TestOutcomeTextClassifier(t *testing.T) {
	tests := []struct {
		name    string
		outcome string
		rawSide string
		want    Side
	}{
		{"no text wins", "No", "BUY", SideNo},
		{"no beats yes in combined text", "Yes or No", "BUY", SideNo},
		{"yes text", "Yes", "SELL", SideYes},
		{"case insensitive", "YES", "SELL", SideYes},
		{"sell without outcome", "", "SELL", SideNo},
		{"buy without outcome", "", "BUY", SideYes},
		{"non-binary outcome falls to raw side", "Over 3.5", "SELL", SideNo},
		{"non-binary outcome defaults to yes", "Lakers", "BUY", SideYes},
	}

	var c OutcomeTextClassifier
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.outcome, tt.rawSide); got != tt.want {
				t.Errorf("Classify(%q, %q) = %q, want %q", tt.outcome, tt.rawSide, got, tt.want)
			}
		})
	}
}
