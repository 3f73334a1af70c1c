// Package checkpoint persists the agent's last-read watermark as a small
// JSON object on the homeserver.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/pubky-agent/internal/homeserver"
	"github.com/nhle/pubky-agent/internal/model"
)

// ErrNoCheckpoint reports that no usable checkpoint has been persisted yet.
// Callers treat it as "start from zero" on first run; any other error means
// the store itself is unavailable.
var ErrNoCheckpoint = errors.New("no checkpoint stored")

// Store reads and writes the watermark. The poll loop is the only reader
// and writer; there are no concurrent owners by construction.
type Store struct {
	objects homeserver.Store
	uri     string
	log     *zap.SugaredLogger
}

// NewStore creates a checkpoint store for the given identity.
func NewStore(objects homeserver.Store, owner string, log *zap.SugaredLogger) *Store {
	return &Store{
		objects: objects,
		uri:     fmt.Sprintf("pubky://%s/pub/pubky.app/last_read", owner),
		log:     log,
	}
}

// Get returns the persisted watermark. A missing or undecodable object
// yields ErrNoCheckpoint rather than a silent zero, so callers can tell a
// first run apart from an unavailable store.
func (s *Store) Get(ctx context.Context) (int64, error) {
	body, err := s.objects.Get(ctx, s.uri)
	if err != nil {
		if errors.Is(err, homeserver.ErrNotFound) {
			return 0, ErrNoCheckpoint
		}
		return 0, fmt.Errorf("reading checkpoint: %w", err)
	}

	var lastRead model.LastRead
	if err := json.Unmarshal(body, &lastRead); err != nil {
		return 0, fmt.Errorf("%w: undecodable checkpoint object: %v", ErrNoCheckpoint, err)
	}

	return lastRead.Timestamp, nil
}

// Set writes the new watermark and re-reads it. The homeserver may be
// eventually consistent, so a mismatch on re-read is surfaced as a warning
// and left alone rather than retried.
func (s *Store) Set(ctx context.Context, ts int64) error {
	body, err := json.Marshal(model.LastRead{Timestamp: ts})
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	if err := s.objects.Put(ctx, s.uri, body); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}

	got, err := s.Get(ctx)
	if err != nil {
		s.log.Warnw("checkpoint verification read failed", "error", err)
		return nil
	}
	if got != ts {
		s.log.Warnw("checkpoint re-read does not match written value",
			"want", ts, "got", got)
	}

	return nil
}
