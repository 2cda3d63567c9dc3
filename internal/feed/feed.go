// Package feed merges recent trade activity across a set of tracked wallets
// into a single chronological feed.
package feed

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/barissdev/polylook/internal/config"
	"github.com/barissdev/polylook/internal/metrics"
	"github.com/barissdev/polylook/internal/polymarket/dataapi"
	"github.com/barissdev/polylook/internal/wallet"
	"github.com/sirupsen/logrus"
)

const unknownMarket = "Unknown Polymarket market"

// TrackedWallet is one wallet the caller wants in the feed, with its display
// label and emoji passed through verbatim.
type TrackedWallet struct {
	Address string `json:"address"`
	Label   string `json:"label"`
	Emoji   string `json:"emoji"`
}

// Entry is one trade in the merged feed. ID is the dedupe key: two entries
// with the same address, timestamp, market text, side, and size are
// indistinguishable and collapse to one.
type Entry struct {
	ID        string  `json:"id"`
	Address   string  `json:"address"`
	Label     string  `json:"label"`
	Emoji     string  `json:"emoji"`
	Market    string  `json:"market"`
	Side      string  `json:"side"` // BUY or SELL
	SizeUsd   float64 `json:"sizeUsd"`
	Timestamp int64   `json:"timestamp"`
}

// Aggregator fans activity fetches out over tracked wallets and merges the
// results.
type Aggregator struct {
	data *dataapi.Client
	cfg  *config.Config
	log  *logrus.Logger
	now  func() time.Time
}

// New creates a feed aggregator.
func New(data *dataapi.Client, cfg *config.Config, log *logrus.Logger) *Aggregator {
	return &Aggregator{data: data, cfg: cfg, log: log, now: time.Now}
}

// Build fetches recent activity for every valid tracked wallet and returns
// the merged feed, newest first. Invalid addresses are dropped before any
// upstream work, and one wallet's fetch failure never suppresses the
// others' results.
func (a *Aggregator) Build(ctx context.Context, wallets []TrackedWallet, lookbackMinutes int) []Entry {
	if lookbackMinutes <= 0 {
		lookbackMinutes = a.cfg.FeedLookbackMinutes
	}
	cutoff := a.now().Unix() - int64(lookbackMinutes)*60

	valid := make([]TrackedWallet, 0, len(wallets))
	for _, w := range wallets {
		addr, err := wallet.Normalize(w.Address)
		if err != nil {
			a.log.WithField("address", w.Address).Debug("Dropping invalid feed wallet")
			continue
		}
		w.Address = addr
		valid = append(valid, w)
	}
	if len(valid) == 0 {
		return []Entry{}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		entries []Entry
	)
	sem := make(chan struct{}, a.cfg.FeedWorkers)

	for _, w := range valid {
		wg.Add(1)
		go func(w TrackedWallet) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			activity, err := a.data.GetActivity(ctx, w.Address, a.cfg.ActivityPageLimit)
			metrics.RecordFeedFetch(err)
			if err != nil {
				a.log.WithError(err).WithField("address", w.Address).Warn("Feed wallet fetch failed, skipping")
				return
			}

			batch := make([]Entry, 0, len(activity))
			for _, ev := range activity {
				if entry, ok := entryFromEvent(w, &ev, cutoff); ok {
					batch = append(batch, entry)
				}
			}

			mu.Lock()
			entries = append(entries, batch...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()

	entries = dedupe(entries)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp > entries[j].Timestamp
		}
		return entries[i].ID < entries[j].ID
	})

	metrics.FeedEntriesEmitted.Add(float64(len(entries)))
	return entries
}

// entryFromEvent converts one activity row to a feed entry. Rows outside the
// lookback window, without a USD size, or of a non-trade type are skipped.
func entryFromEvent(w TrackedWallet, ev *dataapi.ActivityEvent, cutoff int64) (Entry, bool) {
	if ev.Timestamp < cutoff || ev.UsdcSize == nil {
		return Entry{}, false
	}
	if ev.Type != "" && ev.Type != "TRADE" {
		return Entry{}, false
	}

	market := marketText(ev)

	side := "BUY"
	if ev.Side == "SELL" {
		side = "SELL"
	}

	sizeUsd := ev.UsdcSize.Float()
	id := strings.Join([]string{
		w.Address,
		strconv.FormatInt(ev.Timestamp, 10),
		market,
		side,
		strconv.FormatFloat(sizeUsd, 'f', -1, 64),
	}, "-")

	return Entry{
		ID:        id,
		Address:   w.Address,
		Label:     w.Label,
		Emoji:     w.Emoji,
		Market:    market,
		Side:      side,
		SizeUsd:   sizeUsd,
		Timestamp: ev.Timestamp,
	}, true
}

// marketText builds the display label for an event: explicit title first,
// then the event slug, then the market slug with dashes expanded, then a
// generic placeholder. A present outcome is appended.
func marketText(ev *dataapi.ActivityEvent) string {
	base := strings.TrimSpace(ev.Title)
	if base == "" && ev.EventSlug != "" {
		base = strings.ReplaceAll(ev.EventSlug, "-", " ")
	} else if base == "" && ev.Slug != "" {
		base = strings.ReplaceAll(ev.Slug, "-", " ")
	}

	outcome := strings.TrimSpace(ev.Outcome)
	if base != "" && outcome != "" {
		return base + " · " + outcome
	}
	if base != "" {
		return base
	}
	return unknownMarket
}

func dedupe(entries []Entry) []Entry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
