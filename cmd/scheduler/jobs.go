package main

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/pkg/helpers"
)

// job is one periodic task and how often it runs. done is shared by the
// retries of a single tick.
type job struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context, done application.Delivered) error
}

func jobs(t *application.Tasks, cleanup, expiring, shared, analytics time.Duration, expiringDays int) []job {
	return []job{
		{"cleanup_expired_data", cleanup, func(ctx context.Context, _ application.Delivered) error {
			res, err := t.CleanupExpired(ctx)
			if err == nil {
				helpers.LogInfo(t.Logger, "cleanup done", logrus.Fields{
					"deactivated_discounts": res.DeactivatedDiscounts,
					"expired_groups":        res.ExpiredGroups,
				})
			}
			return err
		}},
		{"notify_expiring_discounts", expiring, func(ctx context.Context, done application.Delivered) error {
			n, err := t.NotifyExpiring(ctx, expiringDays, done)
			if err == nil {
				t.Logger.WithField("notified", n).Info("expiring discount notices queued")
			}
			return err
		}},
		{"update_shared_discount_status", shared, func(ctx context.Context, _ application.Delivered) error {
			_, err := t.UpdateSharedStatus(ctx)
			return err
		}},
		{"update_analytics", analytics, func(ctx context.Context, _ application.Delivered) error {
			_, err := t.UpdateAnalytics(ctx)
			return err
		}},
	}
}

// runAll starts one ticker loop per job and blocks until ctx is done.
// Each tick goes through Tasks.Run so failures are retried with backoff.
func runAll(ctx context.Context, t *application.Tasks, js []job) {
	var wg sync.WaitGroup
	for _, j := range js {
		if j.interval <= 0 {
			t.Logger.WithField("task", j.name).Warn("task disabled: non-positive interval")
			continue
		}
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			ticker := time.NewTicker(j.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					done := application.Delivered{}
					run := func(ctx context.Context) error { return j.fn(ctx, done) }
					if err := t.Run(ctx, j.name, run); err != nil && ctx.Err() == nil {
						helpers.LogError(t.Logger, "task gave up", err, logrus.Fields{"task": j.name})
					}
				}
			}
		}(j)
	}
	wg.Wait()
}
