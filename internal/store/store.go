package store

import (
	"context"

	"github.com/nhle/pubky-agent/internal/model"
)

// Journal is the persistence interface for the local activity journal. The
// journal is an audit trail only: the agent's durable state (the checkpoint)
// lives on the homeserver, and journal failures never fail a tick.
type Journal interface {
	// RecordEvent stores one observed notification and its outcome.
	RecordEvent(ctx context.Context, event model.Event) error

	// RecordReply stores a published reply. Writing the same reply id again
	// replaces the earlier row, mirroring the same-key overwrite on the
	// homeserver.
	RecordReply(ctx context.Context, reply model.ReplyRecord) error

	// RecentEvents returns up to limit events, newest first.
	RecentEvents(ctx context.Context, limit int) ([]model.Event, error)

	// RecentReplies returns up to limit replies, newest first.
	RecentReplies(ctx context.Context, limit int) ([]model.ReplyRecord, error)

	Close() error
}
