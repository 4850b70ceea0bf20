// Package display fans computed timer states out to registered sinks. It is
// the boundary between the countdown engine and whatever renders or records
// its output.
package display

import (
	"context"

	"github.com/JakeFAU/timerboard/internal/timer"
)

// Sink consumes batches of display states. Implementations must be safe for
// repeated calls, honor ctx deadlines, and may be invoked concurrently.
type Sink interface {
	Consume(ctx context.Context, batch []timer.DisplayState) error
	Close(ctx context.Context) error
}
