package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"ticketera/common"
	"ticketera/common/constant"
	"ticketera/common/vars"
	"ticketera/model"
	"ticketera/outbound/store"
)

type ListingCron struct {
	Cfg     *viper.Viper
	Cache   *redis.Client
	Querier *store.Queries
}

func (in ListingCron) Start(ctx context.Context) {
	refreshTicker := time.NewTicker(in.Cfg.GetDuration("cron.listing.refresh.interval"))
	defer refreshTicker.Stop()

	// Run initial refresh
	in.refresh(ctx)

	slog.Info("listing cron started")

	// Block in the main function, not in a goroutine
	for {
		select {
		case <-refreshTicker.C:
			in.refresh(ctx)
		case <-ctx.Done():
			slog.Info("listing cron stopped")
			return
		}
	}
}

func (in ListingCron) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, in.Cfg.GetDuration("cron.listing.refresh.timeout"))
	defer cancel()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)

	slog.DebugContext(ctx, "refreshing public listing", traceIdAttr)

	events, err := in.Querier.ListPublicEvents(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list public events", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		return
	}

	vars.SetListing(events)

	// Events approved since the last pass get their counter here, so a
	// capped event is never sold against a missing key.
	if err = in.seedCapacity(ctx, events); err != nil {
		slog.ErrorContext(ctx, "failed to seed remaining capacity in cache", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		return
	}

	slog.DebugContext(ctx, "public listing refreshed successfully", traceIdAttr)
}

// InitCapacityCache seeds the remaining capacity counters for capped public
// events. SetNX keeps an already live counter untouched, so a restart never
// resets in-flight accounting.
func (in ListingCron) InitCapacityCache(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	events, err := in.Querier.ListPublicEvents(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list public events", slog.Any(constant.LogFieldErr, err))
		return fmt.Errorf("list public events: %w", err)
	}

	if len(events) == 0 {
		slog.InfoContext(ctx, "no public events found to initialize")
		return nil
	}

	if err = in.seedCapacity(ctx, events); err != nil {
		slog.ErrorContext(ctx, "failed to initialize remaining capacity in cache", slog.Any(constant.LogFieldErr, err))
		return err
	}

	slog.InfoContext(ctx, "remaining capacity initialized successfully")
	return nil
}

// seedCapacity writes a remaining counter for every capped event that does
// not have one yet. SetNX keeps a live counter untouched.
func (in ListingCron) seedCapacity(ctx context.Context, events []model.Event) error {
	pipe := in.Cache.TxPipeline()

	seeded := false
	for _, event := range events {
		if event.MaxCapacity == 0 {
			continue
		}

		remaining := event.MaxCapacity - event.CurrentSales
		if remaining < 0 {
			remaining = 0
		}

		pipe.SetNX(ctx, fmt.Sprintf(constant.EventRemainingCapacityKey, event.Id), remaining, 0)
		seeded = true
	}

	if !seeded {
		return nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("execute pipeline: %w", err)
	}

	return nil
}
