// Package watcher runs the whale detector on a polling interval and pushes
// newly seen whales to the alert senders.
package watcher

import (
	"context"
	"strconv"
	"time"

	"github.com/barissdev/polylook/internal/alerts"
	"github.com/barissdev/polylook/internal/metrics"
	"github.com/barissdev/polylook/internal/whales"
	"github.com/sirupsen/logrus"
)

// Alerts already delivered are remembered up to this many entries so a trade
// is not re-announced on the next scan.
const seenCap = 2048

// Watcher polls for whales and fans fresh ones out to a sender.
type Watcher struct {
	detector *whales.Detector
	sender   alerts.Sender
	interval time.Duration
	log      *logrus.Logger

	seen  map[string]struct{}
	order []string
}

// New creates a watcher.
func New(detector *whales.Detector, sender alerts.Sender, interval time.Duration, log *logrus.Logger) *Watcher {
	return &Watcher{
		detector: detector,
		sender:   sender,
		interval: interval,
		log:      log,
		seen:     make(map[string]struct{}),
	}
}

// Run polls until the context is cancelled. The first scan primes the seen
// set without alerting, so a restart does not replay the current page of
// whales.
func (w *Watcher) Run(ctx context.Context) {
	w.log.WithField("interval", w.interval).Info("Whale watcher started")

	w.scan(ctx, false)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Whale watcher stopped")
			return
		case <-ticker.C:
			w.scan(ctx, true)
		}
	}
}

func (w *Watcher) scan(ctx context.Context, announce bool) {
	report, err := w.detector.Detect(ctx, 0, 0)
	if err != nil {
		w.log.WithError(err).Warn("Whale scan failed, will retry next interval")
		return
	}

	for i := range report.Whales {
		alert := &report.Whales[i]
		key := alertKey(alert)
		if _, dup := w.seen[key]; dup {
			continue
		}
		w.remember(key)

		if !announce {
			continue
		}

		err := w.sender.Send(ctx, alert)
		metrics.RecordAlert(w.sender.Name(), err)
		if err != nil {
			w.log.WithError(err).WithField("market", alert.MarketQuestion).Error("Failed to send whale alert")
		}
	}
}

func (w *Watcher) remember(key string) {
	w.seen[key] = struct{}{}
	w.order = append(w.order, key)
	for len(w.order) > seenCap {
		delete(w.seen, w.order[0])
		w.order = w.order[1:]
	}
}

func alertKey(a *whales.Alert) string {
	return a.MarketID + "|" + a.Timestamp + "|" + string(a.Side) + "|" + strconv.FormatFloat(a.AmountUsd, 'f', 2, 64)
}
