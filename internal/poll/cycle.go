// Package poll implements the poll cycle and its fixed-delay scheduler.
package poll

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ijug-ev/cindy/internal/compose"
	"github.com/ijug-ev/cindy/internal/feed"
	"github.com/ijug-ev/cindy/internal/metrics"
)

// Cycle orchestrates one complete pass over all configured calendar
// sources: fetch, extract, filter, compose, publish, and last-run
// bookkeeping. Sources are processed sequentially in configured order.
type Cycle struct {
	sources   []feed.CalendarSource
	fetcher   feed.Fetcher
	store     feed.LastRunStore
	composer  *compose.Composer
	publisher feed.Publisher
	clock     feed.Clock
	zone      *time.Location
	logger    *zap.Logger
}

// NewCycle constructs a Cycle.
func NewCycle(
	sources []feed.CalendarSource,
	fetcher feed.Fetcher,
	store feed.LastRunStore,
	composer *compose.Composer,
	publisher feed.Publisher,
	clock feed.Clock,
	zone *time.Location,
	logger *zap.Logger,
) *Cycle {
	if zone == nil {
		zone = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cycle{
		sources:   sources,
		fetcher:   fetcher,
		store:     store,
		composer:  composer,
		publisher: publisher,
		clock:     clock,
		zone:      zone,
		logger:    logger,
	}
}

// Run executes one cycle. The last-run store is loaded once, mutated
// only for sources whose fetch succeeds, and persisted as a single atomic
// overwrite at cycle end. A store failure aborts the cycle; per-source
// and per-event failures do not.
func (c *Cycle) Run(ctx context.Context) error {
	c.logger.Info("processing events")

	lastRuns, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("load last-run store: %w", err)
	}

	for _, source := range c.sources {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.pollSource(ctx, source, lastRuns)
	}

	if err := c.store.Save(lastRuns); err != nil {
		return fmt.Errorf("save last-run store: %w", err)
	}
	return nil
}

func (c *Cycle) pollSource(ctx context.Context, source feed.CalendarSource, lastRuns map[string]time.Time) {
	logger := c.logger.With(zap.String("source", source.URI))
	logger.Debug("requesting calendar")

	lastRun := lastRuns[source.URI]
	cycleStart := c.clock.Now()

	events, err := c.fetcher.Fetch(ctx, source)
	if err != nil {
		// Leave the last-run entry untouched so the next cycle retries
		// without losing prior progress.
		logger.Error("calendar fetch failed", zap.Error(err))
		metrics.ObserveSource("error")
		return
	}
	metrics.ObserveSource("ok")

	// Optimistic update: a publish failure for an individual event must
	// not cause the whole feed to be re-delivered next cycle. An entry
	// never moves backward.
	if cycleStart.After(lastRun) {
		lastRuns[source.URI] = cycleStart
	}

	for _, ev := range events {
		if !c.admit(ev, lastRun, cycleStart, logger) {
			continue
		}
		logger.Debug("processing event", zap.String("uid", ev.UID))

		post, ok := c.composer.Compose(ev)
		if !ok {
			metrics.ObserveEventDropped("over_limit")
			continue
		}
		if err := c.publisher.Publish(ctx, post); err != nil {
			logger.Error("publish failed", zap.String("uid", ev.UID), zap.Error(err))
			continue
		}
		metrics.ObserveEventPublished()
		logger.Info("event published",
			zap.String("uid", ev.UID),
			zap.String("visibility", string(post.Visibility)),
		)
	}
}

// admit applies the filter chain in order. Each stage drops with its own
// log reason.
func (c *Cycle) admit(ev feed.Event, lastRun, cycleStart time.Time, logger *zap.Logger) bool {
	if !ev.Version.After(lastRun) {
		logger.Debug("ignoring event, not changed since last run", zap.String("uid", ev.UID))
		metrics.ObserveEventDropped("unchanged")
		return false
	}

	if ev.Status != "" && ev.Status != "CONFIRMED" {
		logger.Debug("ignoring event because of its status",
			zap.String("uid", ev.UID), zap.String("status", ev.Status))
		metrics.ObserveEventDropped("status")
		return false
	}

	switch ev.Classification {
	case "", "PUBLIC", "PRIVATE", "CONFIDENTIAL":
	default:
		logger.Debug("ignoring event with unrecognized classification",
			zap.String("uid", ev.UID), zap.String("classification", ev.Classification))
		metrics.ObserveEventDropped("classification")
		return false
	}

	start, ok := ev.Start.Instant(c.zone)
	if !ok {
		logger.Warn("ignoring event with unsupported start representation",
			zap.String("uid", ev.UID))
		metrics.ObserveEventDropped("unsupported_start")
		return false
	}
	if !start.After(cycleStart) {
		logger.Debug("ignoring event, it begins in the past", zap.String("uid", ev.UID))
		metrics.ObserveEventDropped("past")
		return false
	}
	return true
}
