// Package reconcile builds per-wallet financial summaries from multiple
// upstream data sources.
package reconcile

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/barissdev/polylook/internal/config"
	"github.com/barissdev/polylook/internal/metrics"
	"github.com/barissdev/polylook/internal/polymarket/dataapi"
	"github.com/barissdev/polylook/internal/wallet"
	"github.com/sirupsen/logrus"
)

// Source names reported in Summary.FailedSources.
const (
	SourcePositions       = "positions"
	SourceClosedPositions = "closed_positions"
	SourceLeaderboard     = "leaderboard"
	SourceTrades          = "trades"
	SourceActivity        = "activity"
)

// Summary is a reconciled view of a wallet's performance over a window of
// days. It is computed fresh per request. FailedSources lists upstream
// sources that were unreachable and contributed nothing; Complete is false
// when any source failed or the closed-positions drain was truncated.
type Summary struct {
	Address        string   `json:"address"`
	RealizedPnlUsd float64  `json:"realizedPnlUsd"`
	OpenPnlUsd     float64  `json:"openPnlUsd"`
	VolumeUsd      float64  `json:"volumeUsd"`
	TradesCount    int      `json:"tradesCount"`
	WinRate        int      `json:"winRate"`
	FirstTradeTs   *int64   `json:"firstTradeTs"`
	LastTradeTs    *int64   `json:"lastTradeTs"`
	ProfileLabel   string   `json:"profileLabel"`
	WindowDays     int      `json:"windowDays"`
	FailedSources  []string `json:"failedSources,omitempty"`
	Complete       bool     `json:"complete"`
}

// QuickSummary is the lightweight wallet view: open book plus 24h activity
// volume, without the closed-positions drain or leaderboard lookup.
type QuickSummary struct {
	Address        string  `json:"address"`
	EquityUsd      float64 `json:"equityUsd"`
	OpenPnlUsd     float64 `json:"openPnlUsd"`
	RealizedPnlUsd float64 `json:"realizedPnlUsd"`
	Volume24hUsd   float64 `json:"volume24hUsd"`
	WinRate        int     `json:"winRate"`
	PositionsOpen  int     `json:"positionsOpen"`
}

// Reconciler aggregates wallet data from the Data API.
type Reconciler struct {
	data *dataapi.Client
	cfg  *config.Config
	log  *logrus.Logger
	now  func() time.Time
}

// New creates a wallet reconciler.
func New(data *dataapi.Client, cfg *config.Config, log *logrus.Logger) *Reconciler {
	return &Reconciler{data: data, cfg: cfg, log: log, now: time.Now}
}

// Summarize builds a WalletFinancialSummary for the given address over the
// last windowDays days. The four upstream sources are queried concurrently;
// a source that fails after retries contributes an empty collection instead
// of aborting the summary.
func (r *Reconciler) Summarize(ctx context.Context, address string, windowDays int) (*Summary, error) {
	addr, err := wallet.Normalize(address)
	if err != nil {
		return nil, err
	}

	if windowDays <= 0 {
		windowDays = r.cfg.DefaultWindowDays
	}
	if windowDays > r.cfg.MaxWindowDays {
		windowDays = r.cfg.MaxWindowDays
	}

	start := time.Now()
	since := r.now().Unix() - int64(windowDays)*24*60*60

	var (
		wg        sync.WaitGroup
		positions []dataapi.Position
		posErr    error
		closed    dataapi.PageResult[dataapi.ClosedPosition]
		lbEntry   *dataapi.LeaderboardRow
		lbErr     error
		trades    []dataapi.Trade
		tradesErr error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		positions, posErr = r.data.GetPositions(ctx, addr, r.cfg.PositionsPageLimit)
	}()
	go func() {
		defer wg.Done()
		closed = r.data.CollectClosedPositions(ctx, addr, r.cfg.ClosedPositionsPageSize, r.cfg.ClosedPositionsMaxPages)
	}()
	go func() {
		defer wg.Done()
		lbEntry, lbErr = r.data.GetLeaderboardEntry(ctx, addr)
	}()
	go func() {
		defer wg.Done()
		trades, tradesErr = r.data.GetTrades(ctx, dataapi.TradeParams{
			User:  addr,
			From:  since,
			Limit: r.cfg.TradesPageLimit,
		})
	}()
	wg.Wait()

	var failed []string
	for _, src := range []struct {
		name string
		err  error
	}{
		{SourcePositions, posErr},
		{SourceClosedPositions, closed.Err},
		{SourceLeaderboard, lbErr},
		{SourceTrades, tradesErr},
	} {
		if src.err != nil {
			failed = append(failed, src.name)
			r.log.WithError(src.err).WithFields(logrus.Fields{
				"address": addr,
				"source":  src.name,
			}).Warn("Summary source unavailable, continuing without it")
		}
	}

	var openPnl, realizedFromOpen float64
	for _, p := range positions {
		openPnl += p.CashPnl.Float()
		realizedFromOpen += p.RealizedPnl.Float()
	}

	var realizedFromClosed float64
	wins, losses := 0, 0
	for _, p := range closed.Rows {
		realized := p.RealizedPnl.Float()
		realizedFromClosed += realized
		if realized > 0 {
			wins++
		} else if realized < 0 {
			losses++
		}
	}

	// Upstream's all-time figure wins over the locally summed one when the
	// wallet is ranked; local reconciliation is the fallback.
	realizedPnl := realizedFromOpen + realizedFromClosed
	if lbEntry != nil && lbEntry.Pnl != nil {
		realizedPnl = lbEntry.Pnl.Float()
	}

	winRate := 0
	if decided := wins + losses; decided > 0 {
		winRate = int(math.Round(100 * float64(wins) / float64(decided)))
	}

	var volumeUsd float64
	var firstTs, lastTs *int64
	tradesCount := 0
	for _, t := range trades {
		ts := t.Timestamp
		if ts >= since {
			tradesCount++
		}
		if ts <= 0 || ts < since {
			continue
		}

		volumeUsd += math.Abs(t.Size.Float() * t.Price.Float())
		if firstTs == nil || ts < *firstTs {
			v := ts
			firstTs = &v
		}
		if lastTs == nil || ts > *lastTs {
			v := ts
			lastTs = &v
		}
	}

	summary := &Summary{
		Address:        addr,
		RealizedPnlUsd: realizedPnl,
		OpenPnlUsd:     openPnl,
		VolumeUsd:      volumeUsd,
		TradesCount:    tradesCount,
		WinRate:        winRate,
		FirstTradeTs:   firstTs,
		LastTradeTs:    lastTs,
		ProfileLabel:   profileLabel(realizedPnl, winRate, tradesCount, volumeUsd),
		WindowDays:     windowDays,
		FailedSources:  failed,
		Complete:       len(failed) == 0 && closed.Complete,
	}

	metrics.RecordSummary(time.Since(start), len(failed) > 0)
	return summary, nil
}

// QuickSummarize builds the lightweight wallet view from the open positions
// book and the last 24 hours of activity.
func (r *Reconciler) QuickSummarize(ctx context.Context, address string) (*QuickSummary, error) {
	addr, err := wallet.Normalize(address)
	if err != nil {
		return nil, err
	}

	dayAgo := r.now().Unix() - 24*60*60

	var (
		wg        sync.WaitGroup
		positions []dataapi.Position
		posErr    error
		activity  []dataapi.ActivityEvent
		actErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		positions, posErr = r.data.GetPositions(ctx, addr, r.cfg.WalletPositionsLimit)
	}()
	go func() {
		defer wg.Done()
		activity, actErr = r.data.GetActivity(ctx, addr, r.cfg.ActivityVolumeLimit)
	}()
	wg.Wait()

	if posErr != nil {
		r.log.WithError(posErr).WithField("address", addr).Warn("Positions unavailable for quick summary")
	}
	if actErr != nil {
		r.log.WithError(actErr).WithField("address", addr).Warn("Activity unavailable for quick summary")
	}

	summary := &QuickSummary{Address: addr, PositionsOpen: len(positions)}

	wins, decided := 0, 0
	for _, p := range positions {
		summary.EquityUsd += p.CurrentValue.Float()
		summary.OpenPnlUsd += p.CashPnl.Float()

		realized := p.RealizedPnl.Float()
		summary.RealizedPnlUsd += realized
		if realized != 0 {
			decided++
			if realized > 0 {
				wins++
			}
		}
	}
	if decided > 0 {
		summary.WinRate = int(math.Round(100 * float64(wins) / float64(decided)))
	}

	for _, ev := range activity {
		if ev.Timestamp < dayAgo || ev.UsdcSize == nil {
			continue
		}
		if ev.Type != "" && ev.Type != "TRADE" {
			continue
		}
		summary.Volume24hUsd += ev.UsdcSize.Float()
	}

	return summary, nil
}

// profileLabel classifies a wallet. Rules are evaluated in order; the first
// match wins.
func profileLabel(realizedPnl float64, winRate, tradesCount int, volumeUsd float64) string {
	switch {
	case tradesCount < 10 || volumeUsd < 500:
		return "new explorer"
	case realizedPnl > 0 && winRate >= 55 && volumeUsd > 5000:
		return "disciplined profitable trader"
	case realizedPnl < 0 && volumeUsd > 5000:
		return "aggressive high-risk trader"
	case winRate >= 60:
		return "consistently high accuracy"
	default:
		return "active power user"
	}
}
