// Package markets surfaces newly created Polymarket events worth watching.
package markets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/barissdev/polylook/internal/polymarket/gammaapi"
	"github.com/barissdev/polylook/internal/scoring"
	"github.com/sirupsen/logrus"
)

const (
	// How far back an event still counts as "new".
	freshnessWindow = 6 * time.Hour

	fetchLimit = 100
	resultCap  = 20
)

// NewMarket is one recently created event.
type NewMarket struct {
	ID           string  `json:"id"`
	Slug         string  `json:"slug"`
	Title        string  `json:"title"`
	CreatedAt    string  `json:"createdAt"`
	VolumeUSD    float64 `json:"volumeUsd"`
	LiquidityUSD float64 `json:"liquidityUsd"`
	URL          string  `json:"url"`
}

// ScoredMarket is a new market with its confidence score attached.
type ScoredMarket struct {
	NewMarket
	Confidence int `json:"confidence"`
}

// Service lists and scores newly created events.
type Service struct {
	gamma *gammaapi.Client
	log   *logrus.Logger
	now   func() time.Time
}

// NewService creates a market discovery service.
func NewService(gamma *gammaapi.Client, log *logrus.Logger) *Service {
	return &Service{gamma: gamma, log: log, now: time.Now}
}

// Recent returns events created within the freshness window, newest first,
// with sports and short-interval up/down churn markets dropped.
func (s *Service) Recent(ctx context.Context) ([]NewMarket, error) {
	events, err := s.gamma.GetRecentEvents(ctx, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch recent events: %w", err)
	}

	cutoff := s.now().Add(-freshnessWindow)

	markets := make([]NewMarket, 0, resultCap)
	for _, ev := range events {
		created, err := time.Parse(time.RFC3339, ev.CreatedAt)
		if err != nil || created.Before(cutoff) {
			continue
		}
		if isSportsEvent(&ev) || isUpDownEvent(&ev) {
			continue
		}

		markets = append(markets, toNewMarket(&ev))
		if len(markets) == resultCap {
			break
		}
	}

	s.log.WithField("count", len(markets)).Debug("Collected new markets")
	return markets, nil
}

// Scored returns the recent markets with confidence scores. Per-market
// volatility is not served by the events endpoint, so the volatility penalty
// is zero here.
func (s *Service) Scored(ctx context.Context) ([]ScoredMarket, error) {
	recent, err := s.Recent(ctx)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredMarket, 0, len(recent))
	for _, m := range recent {
		scored = append(scored, ScoredMarket{
			NewMarket:  m,
			Confidence: scoring.Confidence(m.LiquidityUSD, m.VolumeUSD, 0),
		})
	}
	return scored, nil
}

func toNewMarket(ev *gammaapi.Event) NewMarket {
	id := ev.ID.String()

	title := ev.Label()
	if title == "" {
		title = "Event " + id
	}

	eventURL := "https://polymarket.com/event/" + ev.Slug
	if ev.Slug == "" {
		eventURL = "https://polymarket.com/event/" + id
	}

	return NewMarket{
		ID:           id,
		Slug:         ev.Slug,
		Title:        title,
		CreatedAt:    ev.CreatedAt,
		VolumeUSD:    ev.Volume,
		LiquidityUSD: ev.Liquidity,
		URL:          eventURL,
	}
}

func isUpDownEvent(ev *gammaapi.Event) bool {
	text := strings.ToLower(ev.Label())
	for _, marker := range []string{"up or down", "up/down", "15 minute up", "15-minute up"} {
		if strings.Contains(text, marker) {
			return true
		}
	}

	for _, tag := range ev.AllTags() {
		tag = strings.ToLower(tag)
		for _, marker := range []string{"up/down", "up or down", "updown", "up-down"} {
			if strings.Contains(tag, marker) {
				return true
			}
		}
	}
	return false
}

func isSportsEvent(ev *gammaapi.Event) bool {
	text := strings.ToLower(ev.Label())
	for _, marker := range []string{"nfl", "nba", "premier league"} {
		if strings.Contains(text, marker) {
			return true
		}
	}

	for _, tag := range ev.AllTags() {
		tag = strings.ToLower(tag)
		for _, marker := range []string{"sports", "football", "soccer"} {
			if strings.Contains(tag, marker) {
				return true
			}
		}
	}
	return false
}
