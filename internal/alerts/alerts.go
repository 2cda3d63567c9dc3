// Package alerts delivers whale trade notifications to configured sinks.
package alerts

import (
	"context"

	"github.com/barissdev/polylook/internal/whales"
)

// Sender delivers one whale alert to a destination.
type Sender interface {
	Send(ctx context.Context, alert *whales.Alert) error
	Name() string
}
