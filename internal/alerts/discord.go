package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/barissdev/polylook/internal/whales"
)

// DiscordSender sends alerts to Discord via webhook.
type DiscordSender struct {
	webhookURL string
	httpClient *http.Client
}

// NewDiscordSender creates a new Discord sender.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *DiscordSender) Name() string { return "discord" }

// Send posts the alert as a Discord embed.
func (s *DiscordSender) Send(ctx context.Context, alert *whales.Alert) error {
	body, err := json.Marshal(map[string]interface{}{
		"embeds": []interface{}{s.buildEmbed(alert)},
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

func (s *DiscordSender) buildEmbed(alert *whales.Alert) map[string]interface{} {
	color := 0x2ECC71 // green for yes
	if alert.Side == whales.SideNo {
		color = 0xE74C3C // red for no
	}

	fields := []map[string]interface{}{
		{
			"name":   "Side",
			"value":  string(alert.Side),
			"inline": true,
		},
		{
			"name":   "Amount",
			"value":  fmt.Sprintf("$%.2f", alert.AmountUsd),
			"inline": true,
		},
		{
			"name":   "Price",
			"value":  fmt.Sprintf("%.2f", alert.Price),
			"inline": true,
		},
	}

	return map[string]interface{}{
		"title":       "🐋 " + truncate(alert.MarketQuestion, 200),
		"url":         alert.URL,
		"description": fmt.Sprintf("**$%.2f** on **%s** @ **%.2f**", alert.AmountUsd, alert.Side, alert.Price),
		"color":       color,
		"fields":      fields,
		"timestamp":   alert.Timestamp,
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
