package alerts

import (
	"context"

	"github.com/barissdev/polylook/internal/whales"
	"github.com/sirupsen/logrus"
)

// LogSender writes alerts to the structured log.
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender.
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Name() string { return "log" }

// Send logs the alert.
func (s *LogSender) Send(ctx context.Context, alert *whales.Alert) error {
	s.log.WithFields(logrus.Fields{
		"market":     alert.MarketQuestion,
		"market_id":  alert.MarketID,
		"side":       alert.Side,
		"amount_usd": alert.AmountUsd,
		"price":      alert.Price,
		"url":        alert.URL,
	}).Info("Whale trade detected")
	return nil
}
