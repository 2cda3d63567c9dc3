package alerts

import (
	"context"
	"fmt"

	"github.com/barissdev/polylook/internal/whales"
)

// MultiSender fans one alert out to several destinations. Every sender is
// attempted even when an earlier one fails.
type MultiSender struct {
	senders []Sender
}

// NewMultiSender creates a new multi-sender.
func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{senders: senders}
}

func (s *MultiSender) Name() string { return "multi" }

// Send delivers the alert to all configured senders.
func (s *MultiSender) Send(ctx context.Context, alert *whales.Alert) error {
	var errs []error
	for _, sender := range s.senders {
		if err := sender.Send(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sender.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multi-sender errors: %v", errs)
	}
	return nil
}
