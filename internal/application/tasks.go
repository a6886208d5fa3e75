package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	"github.com/dishpal/coupon-core/internal/geo"
	"github.com/dishpal/coupon-core/pkg/validation"
)

const (
	// TaskAttempts is how many times a periodic task runs before giving up.
	TaskAttempts = 3
	// StaleGroupAge is how long an under-filled group may stay active.
	StaleGroupAge = 7 * 24 * time.Hour
	// NotifyRadiusKm is the radius of new-discount notifications.
	NotifyRadiusKm = geo.DefaultRadiusKm
)

// Tasks holds the periodic maintenance jobs and the discount notification job.
type Tasks struct {
	Discounts repo.DiscountRepository
	Shared    repo.SharedDiscountRepository
	Retailers repo.RetailerRepository
	Profiles  repo.ProfileRepository
	Notifier  *Notifier
	Logger    *logrus.Logger
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration

	now func() time.Time
	wg  sync.WaitGroup
}

func NewTasks(discounts repo.DiscountRepository, shared repo.SharedDiscountRepository, retailers repo.RetailerRepository,
	profiles repo.ProfileRepository, notifier *Notifier, logger *logrus.Logger) *Tasks {
	return &Tasks{
		Discounts: discounts,
		Shared:    shared,
		Retailers: retailers,
		Profiles:  profiles,
		Notifier:  notifier,
		Logger:    logger,
		Backoff:   time.Second,
		now:       time.Now,
	}
}

func (t *Tasks) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

func (t *Tasks) log() *logrus.Logger {
	if t.Logger == nil {
		return logrus.StandardLogger()
	}
	return t.Logger
}

// Run executes fn up to TaskAttempts times with exponential backoff.
func (t *Tasks) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	delay := t.Backoff
	var err error
	for attempt := 1; attempt <= TaskAttempts; attempt++ {
		start := time.Now()
		if err = fn(ctx); err == nil {
			t.log().WithFields(logrus.Fields{"task": name, "attempt": attempt, "duration": time.Since(start).String()}).Info("task finished")
			return nil
		}
		t.log().WithError(err).WithFields(logrus.Fields{"task": name, "attempt": attempt}).Warn("task failed")
		if attempt == TaskAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("task %s failed after %d attempts: %w", name, TaskAttempts, err)
}

// Delivered records the recipients one run has already emailed, so a retried
// attempt of the same run skips them.
type Delivered map[string]struct{}

func (d Delivered) has(key string) bool {
	_, ok := d[key]
	return ok
}

func (d Delivered) add(key string) { d[key] = struct{}{} }

type CleanupResult struct {
	DeactivatedDiscounts int64 `json:"deactivated_discounts"`
	ExpiredGroups        int64 `json:"expired_groups"`
}

// CleanupExpired deactivates discounts past their expiration date and expires
// the active groups built on them.
func (t *Tasks) CleanupExpired(ctx context.Context) (CleanupResult, error) {
	now := t.clock()
	var res CleanupResult
	var err error
	if res.DeactivatedDiscounts, err = t.Discounts.DeactivateExpired(ctx, now); err != nil {
		return res, fmt.Errorf("deactivate discounts: %w", err)
	}
	if res.ExpiredGroups, err = t.Shared.ExpireForExpiredDiscounts(ctx, now); err != nil {
		return res, fmt.Errorf("expire groups: %w", err)
	}
	return res, nil
}

// NotifyExpiring emails retailer contacts about active discounts expiring
// within days. Entries already in done are skipped and every new send is
// added to it. It returns the number of notices delivered so far in the run.
func (t *Tasks) NotifyExpiring(ctx context.Context, days int, done Delivered) (int, error) {
	if days <= 0 {
		days = 7
	}
	if done == nil {
		done = Delivered{}
	}
	now := t.clock()
	ds, err := t.Discounts.ListExpiring(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return 0, err
	}
	retailers := map[int64]*entity.Retailer{}
	sent := 0
	for _, d := range ds {
		r, ok := retailers[d.RetailerID]
		if !ok {
			r, err = t.Retailers.GetByID(ctx, d.RetailerID)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					continue
				}
				return sent, err
			}
			retailers[d.RetailerID] = r
		}
		contact := strings.TrimSpace(r.ContactInfo)
		if validation.Var("contact_info", contact, "email") != nil {
			continue
		}
		key := fmt.Sprintf("%d:%s", d.ID, strings.ToLower(contact))
		if !done.has(key) {
			if err := t.Notifier.DiscountExpiring(ctx, contact, r, d); err != nil {
				return sent, err
			}
			done.add(key)
		}
		sent++
	}
	return sent, nil
}

type SharedStatusResult struct {
	Completed int64 `json:"completed"`
	Expired   int64 `json:"expired"`
}

// UpdateSharedStatus completes full groups and expires stale under-filled ones.
func (t *Tasks) UpdateSharedStatus(ctx context.Context) (SharedStatusResult, error) {
	var res SharedStatusResult
	var err error
	if res.Completed, err = t.Shared.CompleteFull(ctx); err != nil {
		return res, err
	}
	if res.Expired, err = t.Shared.ExpireStale(ctx, t.clock().Add(-StaleGroupAge)); err != nil {
		return res, err
	}
	return res, nil
}

// UpdateAnalytics stores a fresh analytics snapshot on every retailer and
// returns how many were updated.
func (t *Tasks) UpdateAnalytics(ctx context.Context) (int, error) {
	rs, err := t.Retailers.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	now := t.clock()
	n := 0
	for _, r := range rs {
		a, err := t.Retailers.Analytics(ctx, r.ID, now)
		if err != nil {
			return n, fmt.Errorf("analytics for retailer %d: %w", r.ID, err)
		}
		data := map[string]any{
			"total_discounts":  a.TotalDiscounts,
			"active_discounts": a.ActiveDiscounts,
			"shared_discounts": a.TotalSharedDiscounts,
			"avg_participants": a.AvgParticipants,
			"last_updated":     now.UTC().Format(time.RFC3339),
		}
		if err := t.Retailers.UpdateAnalytics(ctx, r.ID, data); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// SendDiscountNotifications emails every user within NotifyRadiusKm of the
// discount, except the retailer owner. Users already in done are skipped. It
// returns the number of users notified so far in the run.
func (t *Tasks) SendDiscountNotifications(ctx context.Context, discountID int64, done Delivered) (int, error) {
	if done == nil {
		done = Delivered{}
	}
	d, err := t.Discounts.GetByID(ctx, discountID)
	if err != nil {
		return 0, err
	}
	r, err := t.Retailers.GetByID(ctx, d.RetailerID)
	if err != nil {
		return 0, err
	}
	users, err := t.Profiles.ListNearby(ctx, d.Location, NotifyRadiusKm, r.OwnerID)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, u := range users {
		if r.IsOwnedBy(u.UserID) || u.Email == "" {
			continue
		}
		key := strconv.FormatInt(u.UserID, 10)
		if !done.has(key) {
			if err := t.Notifier.DiscountNearby(ctx, u, d, r.Name); err != nil {
				return sent, err
			}
			done.add(key)
		}
		sent++
	}
	return sent, nil
}

// DispatchDiscountNotifications runs SendDiscountNotifications in the
// background with retries, detached from the request that triggered it.
func (t *Tasks) DispatchDiscountNotifications(discountID int64) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		done := Delivered{}
		_ = t.Run(ctx, "send_discount_notifications", func(ctx context.Context) error {
			n, err := t.SendDiscountNotifications(ctx, discountID, done)
			if err == nil {
				t.log().WithFields(logrus.Fields{"discount_id": discountID, "sent": n}).Info("discount notifications enqueued")
			}
			return err
		})
	}()
}

// Wait blocks until dispatched jobs finish.
func (t *Tasks) Wait() { t.wg.Wait() }
