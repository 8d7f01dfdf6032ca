// Package reconcile sweeps every stored group on a fixed schedule and
// re-applies the title template of each enabled one.
package reconcile

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"tg_title_bot/internal/domain"
	"tg_title_bot/internal/feature/title"
	"tg_title_bot/internal/logging"
)

type groupStore interface {
	ListKeys(ctx context.Context) ([]string, error)
	Load(ctx context.Context, chatID int64) (domain.Group, error)
	Save(ctx context.Context, group domain.Group) error
}

// Reconciler walks the stored groups once per tick. Groups are processed
// sequentially; one group's failure never aborts the sweep.
type Reconciler struct {
	store  groupStore
	api    title.TitleSetter
	logger *logrus.Entry
	now    func() time.Time
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source; used in tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler constructs a Reconciler.
func NewReconciler(store groupStore, api title.TitleSetter, logger *logrus.Entry, opts ...Option) *Reconciler {
	if logger == nil {
		logger = logging.Logger()
	}

	r := &Reconciler{
		store:  store,
		api:    api,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one sweep for the current instant. Every group is rendered
// against the same instant so a slow sweep cannot straddle a date boundary
// halfway through the list.
//
// A failed scheduled apply is logged and skipped without disabling the
// group; only the interactive handlers flip enabled off on failure.
func (r *Reconciler) Run(ctx context.Context) {
	keys, err := r.store.ListKeys(ctx)
	if err != nil {
		r.logger.WithField("event", "reconcile_list_failed").WithError(err).Error("could not list stored groups")
		return
	}

	at := r.now()
	applied := 0
	for _, key := range keys {
		chatID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			// Keys are only ever written by this system; an unparsable one
			// indicates store corruption, not user input.
			r.logger.WithFields(logging.Fields{
				"event": "reconcile_bad_key",
				"key":   key,
			}).Warn("skipping malformed group key")
			continue
		}

		group, err := r.store.Load(ctx, chatID)
		if err != nil {
			r.logger.WithField("chat_id", chatID).WithError(err).Warn("skipping unreadable group record")
			continue
		}
		if !group.Enabled {
			continue
		}

		if err := title.Apply(ctx, r.api, &group, at); err != nil {
			r.logger.WithFields(logging.Fields{
				"event":   "reconcile_apply_failed",
				"chat_id": chatID,
			}).WithError(err).Warn("scheduled title apply failed")
			continue
		}

		if err := r.store.Save(ctx, group); err != nil {
			r.logger.WithField("chat_id", chatID).WithError(err).Warn("could not persist refreshed title")
			continue
		}

		applied++
		r.logger.WithFields(logging.Fields{
			"event":   "title_reapplied",
			"chat_id": chatID,
			"title":   group.LastTitle,
		}).Debug("title reapplied")
	}

	r.logger.WithFields(logging.Fields{
		"event":   "reconcile_complete",
		"groups":  len(keys),
		"applied": applied,
	}).Info("reconcile sweep complete")
}

// Start runs sweeps on a fixed interval until the context is canceled. The
// first sweep runs after one full interval.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.WithFields(logging.Fields{
		"event":    "reconcile_start",
		"interval": interval.String(),
	}).Info("starting reconcile schedule")

	for {
		select {
		case <-ctx.Done():
			r.logger.WithField("event", "reconcile_stopped").Info("reconcile schedule stopped")
			return
		case <-ticker.C:
			r.Run(ctx)
		}
	}
}
