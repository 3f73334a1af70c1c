// Package dispatch routes feed notifications to their handlers.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/pubky-agent/internal/model"
	"github.com/nhle/pubky-agent/internal/publisher"
	"github.com/nhle/pubky-agent/internal/store"
)

// Resolver turns a content URI into plain text.
type Resolver interface {
	Resolve(ctx context.Context, uri string) (string, error)
}

// Generator produces a reply for resolved mention content.
type Generator interface {
	Generate(ctx context.Context, content string) (string, error)
}

// Publisher persists a reply post linked to its parent and returns the
// stored object URI.
type Publisher interface {
	Reply(ctx context.Context, parentURI, content string) (string, error)
}

// Dispatcher routes notifications by kind. It holds no state between
// notifications. Malformed records are skipped silently; only a mention's
// resolve/generate/publish pipeline can fail, and that failure is scoped to
// the one notification.
type Dispatcher struct {
	resolver  Resolver
	generator Generator
	publisher Publisher
	journal   store.Journal
	author    string
	log       *zap.SugaredLogger
}

// New creates a Dispatcher. author is the bot's own identity, used for
// journal reply ids.
func New(resolver Resolver, generator Generator, pub Publisher, journal store.Journal, author string, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		resolver:  resolver,
		generator: generator,
		publisher: pub,
		journal:   journal,
		author:    author,
		log:       log,
	}
}

// Dispatch handles one notification. An error means a mention's pipeline
// failed; every other outcome is handled in place.
func (d *Dispatcher) Dispatch(ctx context.Context, tickID string, n model.Notification) error {
	switch n.Kind() {
	case model.KindMention:
		return d.handleMention(ctx, tickID, n)

	case model.KindFollow:
		if n.Body.FollowedBy == "" {
			d.record(ctx, tickID, n, model.ActionSkipped)
			return nil
		}
		d.log.Infow("received follow", "actor", n.Body.FollowedBy)
		d.record(ctx, tickID, n, model.ActionLogged)

	case model.KindTag:
		d.log.Infow("received tag",
			"actor", n.Body.TaggedBy, "label", n.Body.TagLabel)
		d.record(ctx, tickID, n, model.ActionLogged)

	case model.KindReply:
		d.log.Infow("received reply", "actor", n.Body.RepliedBy)
		d.record(ctx, tickID, n, model.ActionLogged)

	default:
		d.log.Infow("received unknown notification", "type", n.Body.Type)
		d.record(ctx, tickID, n, model.ActionIgnored)
	}

	return nil
}

// handleMention runs resolve, generate, publish for one mention.
func (d *Dispatcher) handleMention(ctx context.Context, tickID string, n model.Notification) error {
	actor, postURI := n.Body.MentionedBy, n.Body.PostURI
	if actor == "" || postURI == "" {
		// Malformed mention: skip without failing the tick.
		d.record(ctx, tickID, n, model.ActionSkipped)
		return nil
	}
	d.log.Infow("received mention", "actor", actor, "post", postURI)

	content, err := d.resolver.Resolve(ctx, postURI)
	if err != nil {
		return fmt.Errorf("resolving mention content: %w", err)
	}

	reply, err := d.generator.Generate(ctx, content)
	if err != nil {
		return fmt.Errorf("generating reply: %w", err)
	}

	uri, err := d.publisher.Reply(ctx, postURI, reply)
	if err != nil {
		return fmt.Errorf("publishing reply: %w", err)
	}
	d.log.Infow("replied to mention", "actor", actor, "reply", uri)

	d.record(ctx, tickID, n, model.ActionReplied)
	if err := d.journal.RecordReply(ctx, model.ReplyRecord{
		ID:        publisher.ReplyID(d.author, postURI),
		URI:       uri,
		ParentURI: postURI,
		Actor:     actor,
		Content:   reply,
		TickID:    tickID,
		CreatedAt: time.Now(),
	}); err != nil {
		d.log.Warnw("journaling reply failed", "error", err)
	}

	return nil
}

// record journals an observed notification. The journal is observational:
// a failed write is a warning, never a tick error.
func (d *Dispatcher) record(ctx context.Context, tickID string, n model.Notification, action model.EventAction) {
	event := model.Event{
		TickID:    tickID,
		Kind:      n.Kind(),
		Actor:     n.Body.Actor(),
		Subject:   n.Body.Subject(),
		Action:    action,
		Timestamp: n.Timestamp,
		CreatedAt: time.Now(),
	}
	if err := d.journal.RecordEvent(ctx, event); err != nil {
		d.log.Warnw("journaling event failed", "error", err)
	}
}
