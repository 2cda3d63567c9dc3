package gammaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/barissdev/polylook/internal/config"
	"github.com/barissdev/polylook/internal/fetch"
	"github.com/barissdev/polylook/internal/ratelimit"
)

const endpointEvents = "gamma_events"

// Client handles communication with the Polymarket Gamma API.
type Client struct {
	baseURL string
	fetch   *fetch.Client
	limiter *ratelimit.Limiter
}

// NewClient creates a new Gamma API client.
func NewClient(cfg *config.Config, fc *fetch.Client) *Client {
	return &Client{
		baseURL: cfg.GammaAPIBaseURL,
		fetch:   fc,
		limiter: ratelimit.New(cfg.GammaAPIEventsRPS),
	}
}

// GetRecentEvents fetches the newest active events, most recently created
// first.
func (c *Client) GetRecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order", "createdAt")
	q.Set("ascending", "false")
	q.Set("active", "true")
	q.Set("archived", "false")
	q.Set("closed", "false")

	body, err := c.fetch.Do(ctx, endpointEvents, http.MethodGet, c.baseURL+"/events?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	// The events endpoint has served both a bare array and an {events: []}
	// envelope; accept either.
	var events []Event
	if err := json.Unmarshal(body, &events); err == nil {
		return events, nil
	}

	var envelope eventsEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Events != nil {
		return envelope.Events, nil
	}

	return nil, &fetch.ParseError{URL: c.baseURL + "/events", Err: fmt.Errorf("unexpected events response shape")}
}
