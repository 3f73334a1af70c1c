// Package sync runs the agent's poll loop: fetch notifications, dispatch
// them, advance the checkpoint, sleep, repeat.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/pubky-agent/internal/checkpoint"
	"github.com/nhle/pubky-agent/internal/model"
)

// Checkpoints is the watermark store the loop reads and advances.
type Checkpoints interface {
	Get(ctx context.Context) (int64, error)
	Set(ctx context.Context, ts int64) error
}

// Feed fetches notifications newer than a watermark.
type Feed interface {
	Notifications(ctx context.Context, user string, since int64) ([]model.Notification, error)
}

// Handler processes a single notification.
type Handler interface {
	Dispatch(ctx context.Context, tickID string, n model.Notification) error
}

// tickTimeout bounds one full tick, generation calls included.
const tickTimeout = 4 * time.Minute

// Poller runs the fetch, dispatch, checkpoint cycle. It is the failure
// boundary of the process: per-tick errors are logged and contained, and
// the loop stops only when its context is cancelled.
type Poller struct {
	user        string
	checkpoints Checkpoints
	feed        Feed
	handler     Handler
	sched       *Scheduler
	log         *zap.SugaredLogger
}

// NewPoller creates a Poller polling the feed as the given identity.
func NewPoller(user string, checkpoints Checkpoints, feed Feed, handler Handler, sched *Scheduler, log *zap.SugaredLogger) *Poller {
	return &Poller{
		user:        user,
		checkpoints: checkpoints,
		feed:        feed,
		handler:     handler,
		sched:       sched,
		log:         log,
	}
}

// Run polls until ctx is cancelled, pausing between ticks according to the
// scheduler.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Infow("starting notification polling", "user", p.user)

	for {
		if err := p.RunTick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Errorw("tick failed", "error", err)
			p.sched.Failure()
		} else {
			p.sched.Success()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.sched.Next()):
		}
	}
}

// RunTick executes one tick under the tick timeout.
func (p *Poller) RunTick(ctx context.Context) error {
	tickCtx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()
	return p.tick(tickCtx)
}

// tick is one pass of the fetch, dispatch, checkpoint sequence.
func (p *Poller) tick(ctx context.Context) error {
	tickID := uuid.New().String()

	since, err := p.checkpoints.Get(ctx)
	if err != nil {
		if !errors.Is(err, checkpoint.ErrNoCheckpoint) {
			return fmt.Errorf("reading checkpoint: %w", err)
		}
		// First run: start from the beginning of the feed.
		since = 0
	}

	notifications, err := p.feed.Notifications(ctx, p.user, since)
	if err != nil {
		return fmt.Errorf("fetching notifications: %w", err)
	}
	if len(notifications) > 0 {
		p.log.Infow("received notifications",
			"count", len(notifications), "since", since, "tick", tickID)
	}

	maxSeen := since
	for _, n := range notifications {
		// The feed's since filter is advisory; recheck before acting.
		if n.Timestamp <= since {
			continue
		}

		if err := p.handler.Dispatch(ctx, tickID, n); err != nil {
			// One bad notification must not starve the rest of the batch.
			p.log.Errorw("dispatch failed",
				"kind", n.Kind(), "timestamp", n.Timestamp, "error", err)
		}

		if n.Timestamp > maxSeen {
			maxSeen = n.Timestamp
		}
	}

	if maxSeen > since {
		// +1 so the next page query does not re-fetch the boundary record.
		if err := p.checkpoints.Set(ctx, maxSeen+1); err != nil {
			return fmt.Errorf("advancing checkpoint: %w", err)
		}
		p.log.Infow("advanced checkpoint",
			"from", since, "to", maxSeen+1, "tick", tickID)
	}

	return nil
}
