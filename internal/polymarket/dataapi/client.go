package dataapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/barissdev/polylook/internal/config"
	"github.com/barissdev/polylook/internal/fetch"
	"github.com/barissdev/polylook/internal/ratelimit"
)

// Endpoint names used for metrics labels.
const (
	endpointPositions       = "positions"
	endpointClosedPositions = "closed_positions"
	endpointTrades          = "trades"
	endpointActivity        = "activity"
	endpointLeaderboard     = "leaderboard"
)

// Client is a typed wrapper over the Polymarket Data API. All requests go
// through the resilient fetch client and a per-endpoint-family rate limiter.
type Client struct {
	baseURL string
	fetch   *fetch.Client

	tradesLimiter      *ratelimit.Limiter
	activityLimiter    *ratelimit.Limiter
	positionsLimiter   *ratelimit.Limiter
	leaderboardLimiter *ratelimit.Limiter
}

// NewClient creates a new Data API client.
func NewClient(cfg *config.Config, fc *fetch.Client) *Client {
	return &Client{
		baseURL:            cfg.DataAPIBaseURL,
		fetch:              fc,
		tradesLimiter:      ratelimit.New(cfg.DataAPITradesRPS),
		activityLimiter:    ratelimit.New(cfg.DataAPIActivityRPS),
		positionsLimiter:   ratelimit.New(cfg.DataAPIPositionsRPS),
		leaderboardLimiter: ratelimit.New(cfg.DataAPILeaderboardRPS),
	}
}

// GetPositions fetches one page of open positions for a wallet, largest
// current value first.
func (c *Client) GetPositions(ctx context.Context, user string, limit int) ([]Position, error) {
	if err := c.positionsLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("user", user)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sortBy", "CURRENT")
	q.Set("sortDirection", "DESC")

	var positions []Position
	if err := c.fetch.GetJSON(ctx, endpointPositions, c.baseURL+"/positions?"+q.Encode(), &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// GetClosedPositions fetches one page of settled positions for a wallet.
func (c *Client) GetClosedPositions(ctx context.Context, user string, limit, offset int) ([]ClosedPosition, error) {
	if err := c.positionsLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("user", user)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var closed []ClosedPosition
	if err := c.fetch.GetJSON(ctx, endpointClosedPositions, c.baseURL+"/closed-positions?"+q.Encode(), &closed); err != nil {
		return nil, err
	}
	return closed, nil
}

// CollectClosedPositions drains the closed-positions endpoint through the
// paginated collector.
func (c *Client) CollectClosedPositions(ctx context.Context, user string, pageSize, maxPages int) PageResult[ClosedPosition] {
	return CollectPages(ctx, pageSize, maxPages, func(ctx context.Context, offset, limit int) ([]ClosedPosition, error) {
		return c.GetClosedPositions(ctx, user, limit, offset)
	})
}

// TradeParams holds query parameters for the /trades endpoint.
type TradeParams struct {
	User         string
	From         int64 // unix seconds, 0 = no lower bound
	Limit        int
	Offset       int
	TakerOnly    bool
	FilterType   string  // CASH
	FilterAmount float64 // upstream-side minimum notional pre-filter
}

// GetTrades fetches one page of trades, newest first.
func (c *Client) GetTrades(ctx context.Context, params TradeParams) ([]Trade, error) {
	if err := c.tradesLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	if params.User != "" {
		q.Set("user", params.User)
	}
	if params.From > 0 {
		q.Set("from", strconv.FormatInt(params.From, 10))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}
	if params.TakerOnly {
		q.Set("takerOnly", "true")
	}
	if params.FilterType != "" {
		q.Set("filterType", params.FilterType)
	}
	if params.FilterAmount > 0 {
		q.Set("filterAmount", strconv.FormatFloat(params.FilterAmount, 'f', 2, 64))
	}
	q.Set("sortBy", "TIMESTAMP")
	q.Set("sortDirection", "DESC")

	var trades []Trade
	if err := c.fetch.GetJSON(ctx, endpointTrades, c.baseURL+"/trades?"+q.Encode(), &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// GetActivity fetches one page of recent activity for a wallet.
func (c *Client) GetActivity(ctx context.Context, user string, limit int) ([]ActivityEvent, error) {
	if err := c.activityLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("user", user)
	q.Set("limit", strconv.Itoa(limit))

	var events []ActivityEvent
	if err := c.fetch.GetJSON(ctx, endpointActivity, c.baseURL+"/activity?"+q.Encode(), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// LeaderboardParams holds query parameters for the /v1/leaderboard endpoint.
type LeaderboardParams struct {
	User       string
	TimePeriod string // DAY, WEEK, MONTH, ALL
	OrderBy    string // PNL, VOL
	Limit      int
}

// GetLeaderboard fetches ranked wallets from the all-category leaderboard.
func (c *Client) GetLeaderboard(ctx context.Context, params LeaderboardParams) ([]LeaderboardRow, error) {
	if err := c.leaderboardLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("category", "OVERALL")
	if params.User != "" {
		q.Set("user", params.User)
	}
	if params.TimePeriod != "" {
		q.Set("timePeriod", params.TimePeriod)
	} else {
		q.Set("timePeriod", "ALL")
	}
	if params.OrderBy != "" {
		q.Set("orderBy", params.OrderBy)
	} else {
		q.Set("orderBy", "PNL")
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	var rows []LeaderboardRow
	if err := c.fetch.GetJSON(ctx, endpointLeaderboard, c.baseURL+"/v1/leaderboard?"+q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetLeaderboardEntry fetches the single all-time leaderboard row for one
// wallet, or nil when the wallet is not ranked.
func (c *Client) GetLeaderboardEntry(ctx context.Context, user string) (*LeaderboardRow, error) {
	rows, err := c.GetLeaderboard(ctx, LeaderboardParams{
		User:       user,
		TimePeriod: "ALL",
		OrderBy:    "PNL",
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
