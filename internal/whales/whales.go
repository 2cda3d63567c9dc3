// Package whales detects unusually large trades in the global trade stream.
package whales

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/barissdev/polylook/internal/config"
	"github.com/barissdev/polylook/internal/metrics"
	"github.com/barissdev/polylook/internal/polymarket/dataapi"
	"github.com/sirupsen/logrus"
)

// One page of recent trades is scanned per detection pass.
const scanLimit = 200

// Side is the classified direction of a whale trade.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// SideClassifier maps a trade's free-text outcome label and raw direction to
// a yes/no side. The mapping is a heuristic over market-author text, so it
// sits behind an interface rather than being baked into the detector.
type SideClassifier interface {
	Classify(outcome, rawSide string) Side
}

// OutcomeTextClassifier classifies by outcome text first: a label containing
// "no" wins over one containing "yes", a raw SELL reads as "no", and
// anything else defaults to "yes". Multi-outcome markets land on the default.
type OutcomeTextClassifier struct{}

func (OutcomeTextClassifier) Classify(outcome, rawSide string) Side {
	lower := strings.ToLower(outcome)
	switch {
	case strings.Contains(lower, "no"):
		return SideNo
	case strings.Contains(lower, "yes"):
		return SideYes
	case rawSide == "SELL":
		return SideNo
	default:
		return SideYes
	}
}

// Alert is one detected whale trade.
type Alert struct {
	MarketID       string  `json:"marketId"`
	MarketQuestion string  `json:"marketQuestion"`
	Side           Side    `json:"side"`
	AmountUsd      float64 `json:"amountUsd"`
	Price          float64 `json:"price"`
	Timestamp      string  `json:"timestamp"` // RFC 3339
	URL            string  `json:"url,omitempty"`
}

// Report is the whale scan envelope.
type Report struct {
	WindowMinutes int     `json:"windowMinutes"`
	ThresholdUsd  float64 `json:"thresholdUsd"`
	Whales        []Alert `json:"whales"`
}

// Detector scans the recent global trade stream for large notionals.
type Detector struct {
	data       *dataapi.Client
	cfg        *config.Config
	classifier SideClassifier
	log        *logrus.Logger
}

// NewDetector creates a whale detector with the default outcome-text side
// classifier.
func NewDetector(data *dataapi.Client, cfg *config.Config, log *logrus.Logger) *Detector {
	return &Detector{data: data, cfg: cfg, classifier: OutcomeTextClassifier{}, log: log}
}

// Detect scans one page of recent trades and returns those at or above
// thresholdUsd, newest first, truncated to capCount. Zero or negative
// arguments fall back to the configured defaults. The upstream minimum-amount
// filter is only a pre-filter; the notional is always recomputed locally.
func (d *Detector) Detect(ctx context.Context, thresholdUsd float64, capCount int) (*Report, error) {
	if thresholdUsd <= 0 {
		thresholdUsd = d.cfg.WhaleThresholdUSD
	}
	if capCount <= 0 {
		capCount = d.cfg.WhaleResultCap
	}

	trades, err := d.data.GetTrades(ctx, dataapi.TradeParams{
		Limit:        scanLimit,
		TakerOnly:    true,
		FilterType:   "CASH",
		FilterAmount: thresholdUsd,
	})
	if err != nil {
		return nil, fmt.Errorf("scan trades: %w", err)
	}

	type candidate struct {
		alert Alert
		ts    int64
	}
	candidates := make([]candidate, 0, len(trades))

	for _, t := range trades {
		amountUsd := t.Size.Float() * t.Price.Float()
		if amountUsd < thresholdUsd {
			continue
		}

		candidates = append(candidates, candidate{
			ts: t.Timestamp,
			alert: Alert{
				MarketID:       t.ConditionID,
				MarketQuestion: marketQuestion(&t),
				Side:           d.classifier.Classify(t.Outcome, t.Side),
				AmountUsd:      amountUsd,
				Price:          t.Price.Float(),
				Timestamp:      time.Unix(t.Timestamp, 0).UTC().Format(time.RFC3339),
				URL:            marketURL(&t),
			},
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ts > candidates[j].ts
	})
	if len(candidates) > capCount {
		candidates = candidates[:capCount]
	}

	whales := make([]Alert, len(candidates))
	for i, c := range candidates {
		whales[i] = c.alert
	}

	metrics.RecordWhaleScan(len(whales))
	d.log.WithFields(logrus.Fields{
		"scanned":   len(trades),
		"detected":  len(whales),
		"threshold": thresholdUsd,
	}).Debug("Whale scan finished")

	return &Report{
		WindowMinutes: d.cfg.WhaleWindowMinutes,
		ThresholdUsd:  thresholdUsd,
		Whales:        whales,
	}, nil
}

func marketQuestion(t *dataapi.Trade) string {
	switch {
	case t.Title != "":
		return t.Title
	case t.Slug != "":
		return t.Slug
	case t.EventSlug != "":
		return t.EventSlug
	default:
		return "Unknown market"
	}
}

// marketURL prefers the event slug, then the market slug, then a slugified
// title; with none available no link is emitted.
func marketURL(t *dataapi.Trade) string {
	slug := t.EventSlug
	if slug == "" {
		slug = t.Slug
	}
	if slug == "" && t.Title != "" {
		slug = strings.Join(strings.Fields(strings.ToLower(t.Title)), "-")
	}
	if slug == "" {
		return ""
	}
	return "https://polymarket.com/event/" + slug
}
