package markets

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
	"github.com/barissdev/polylook/internal/polymarket/gammaapi"
	"github.com/sirupsen/logrus"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testService(t *testing.T, payload string) *Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		GammaAPIBaseURL:        srv.URL,
		DataAPIAuthMode:        config.AuthModeNone,
		HTTPTimeout:            5 * time.Second,
		FetchInitialDelay:      time.Millisecond,
		FetchMaxDelay:          time.Millisecond,
		FetchBackoffMultiplier: 2.0,
		GammaAPIEventsRPS:      1000,
	}

	svc := NewService(gammaapi.NewClient(cfg, fetch.New(cfg, log)), log)
	svc.now = func() time.Time { return testNow }
	return svc
}

func event(id int, title, createdAt, tags string) string {
	return fmt.Sprintf(`{"id":%d,"slug":"slug-%d","title":%q,"createdAt":%q,"tags":[%s],"volume":1000,"liquidity":500}`,
		id, id, title, createdAt, tags)
}

func TestRecentFiltersChurnAndStaleEvents(t *testing.T) {
	fresh := testNow.Add(-time.Hour).Format(time.RFC3339)
	stale := testNow.Add(-7 * time.Hour).Format(time.RFC3339)

	payload := "[" +
		event(1, "Will it rain in Paris?", fresh, "") + "," +
		event(2, "Too old to matter", stale, "") + "," +
		event(3, "Bitcoin Up or Down - 3pm ET", fresh, "") + "," +
		event(4, "ETH hourly", fresh, `"crypto","up-down"`) + "," +
		event(5, "Will the Chiefs win?", fresh, `"Sports"`) + "," +
		event(6, "NBA finals MVP", fresh, "") + "," +
		event(7, "Fed cuts rates in June?", fresh, "") +
		"]"

	markets, err := testService(t, payload).Recent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]bool{"1": true, "7": true}
	if len(markets) != len(want) {
		t.Fatalf("got %d markets, want %d: %+v", len(markets), len(want), markets)
	}
	for _, m := range markets {
		if !want[m.ID] {
			t.Errorf("market %s (%s) should have been filtered", m.ID, m.Title)
		}
		if m.URL != "https://polymarket.com/event/slug-"+m.ID {
			t.Errorf("unexpected url %s", m.URL)
		}
	}
}

func TestRecentAcceptsEnvelopeShape(t *testing.T) {
	fresh := testNow.Add(-time.Minute).Format(time.RFC3339)
	payload := `{"events":[` + event(9, "Something new", fresh, "") + `]}`

	markets, err := testService(t, payload).Recent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != 1 || markets[0].Title != "Something new" {
		t.Fatalf("unexpected markets: %+v", markets)
	}
}

func TestRecentTitleFallsBackToEventID(t *testing.T) {
	fresh := testNow.Add(-time.Minute).Format(time.RFC3339)
	payload := `[{"id":42,"slug":"","title":"","createdAt":"` + fresh + `"}]`

	markets, err := testService(t, payload).Recent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("got %d markets, want 1", len(markets))
	}
	if markets[0].Title != "Event 42" {
		t.Errorf("title = %q, want %q", markets[0].Title, "Event 42")
	}
	if markets[0].URL != "https://polymarket.com/event/42" {
		t.Errorf("url = %q, want id fallback", markets[0].URL)
	}
}

func TestScoredAttachesConfidence(t *testing.T) {
	fresh := testNow.Add(-time.Minute).Format(time.RFC3339)
	payload := `[{"id":1,"slug":"deep","title":"Deep market","createdAt":"` + fresh + `","volume":100000,"liquidity":50000}]`

	scored, err := testService(t, payload).Scored(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scored) != 1 {
		t.Fatalf("got %d markets, want 1", len(scored))
	}
	if scored[0].Confidence != 100 {
		t.Errorf("confidence = %d, want 100", scored[0].Confidence)
	}
}
