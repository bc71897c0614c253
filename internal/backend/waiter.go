package backend

import (
	"context"
	"errors"
	"time"

	"github.com/bitcoinswap/htlc-engine/pkg/logging"
)

// ErrConfirmationTimeout is returned when a transaction has not reached the
// required depth after the bounded number of poll attempts.
var ErrConfirmationTimeout = errors.New("confirmation wait timed out")

const (
	pollInterval = 5 * time.Second
	maxAttempts  = 120 // 10 minutes at a 5s interval
)

// WaitForDepth polls b.GetTx every 5 seconds until the transaction reaches at
// least the required confirmation depth, fails after 120 attempts, or the
// context is cancelled. It never mutates state on cancellation; it simply
// returns ctx.Err() promptly.
func WaitForDepth(ctx context.Context, b Backend, txid string, required int64) (int64, error) {
	log := logging.GetDefault().Component("backend.waiter")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		info, err := b.GetTx(ctx, txid)
		if err == nil && info.Confirmations >= required {
			log.Info("confirmation depth reached", "txid", txid, "depth", info.Confirmations)
			return info.Confirmations, nil
		}
		if err != nil {
			log.Debug("poll attempt failed", "txid", txid, "attempt", attempt, "error", err)
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}

	return 0, ErrConfirmationTimeout
}
