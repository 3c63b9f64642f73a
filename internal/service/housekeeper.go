package service

import (
	"context"
	"log/slog"
	"time"
)

// Housekeeper periodically purges expired idempotency entries and rate-limit
// counters.
type Housekeeper struct {
	idempotency expiringStore
	rateLimits  expiringStore
	logger      *slog.Logger
	interval    time.Duration
	now         func() time.Time
}

func NewHousekeeper(idempotency, rateLimits expiringStore, logger *slog.Logger, interval time.Duration) *Housekeeper {
	return &Housekeeper{
		idempotency: idempotency,
		rateLimits:  rateLimits,
		logger:      logger,
		interval:    interval,
		now:         time.Now,
	}
}

func (h *Housekeeper) Start(ctx context.Context) {
	h.logger.Info("housekeeper started", "interval", h.interval)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("housekeeper stopped")
			return
		case <-ticker.C:
			h.sweep(ctx)
		}
	}
}

func (h *Housekeeper) sweep(ctx context.Context) {
	now := h.now().UTC()

	if n, err := h.idempotency.DeleteExpired(ctx, now); err != nil {
		h.logger.Error("failed to purge idempotency entries", "error", err)
	} else if n > 0 {
		h.logger.Info("purged idempotency entries", "count", n)
	}

	if n, err := h.rateLimits.DeleteExpired(ctx, now); err != nil {
		h.logger.Error("failed to purge rate limit counters", "error", err)
	} else if n > 0 {
		h.logger.Info("purged rate limit counters", "count", n)
	}
}
