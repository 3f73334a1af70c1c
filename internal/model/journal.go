package model

import "time"

// EventAction describes what the dispatcher did with a notification.
type EventAction string

const (
	// ActionReplied means a reply was generated and published.
	ActionReplied EventAction = "replied"

	// ActionLogged means the notification was recorded with no outbound write.
	ActionLogged EventAction = "logged"

	// ActionSkipped means required fields were missing and the record was
	// dropped without error.
	ActionSkipped EventAction = "skipped"

	// ActionIgnored means the notification kind is not handled.
	ActionIgnored EventAction = "ignored"
)

// Event is one observed notification and the action taken on it, kept in
// the local activity journal.
type Event struct {
	// ID is the unique identifier for this journal row.
	ID string `json:"id"`

	// TickID correlates the event with the poll tick that processed it.
	TickID string `json:"tick_id"`

	// Kind is the classified notification kind.
	Kind Kind `json:"kind"`

	// Actor is the identity that triggered the notification, when known.
	Actor string `json:"actor"`

	// Subject is the content URI the notification referenced, when present.
	Subject string `json:"subject"`

	// Action records the dispatcher's outcome.
	Action EventAction `json:"action"`

	// Timestamp is the feed service timestamp of the notification.
	Timestamp int64 `json:"timestamp"`

	// CreatedAt is when the journal row was written.
	CreatedAt time.Time `json:"created_at"`
}

// ReplyRecord audits a reply published to the homeserver.
type ReplyRecord struct {
	// ID is the deterministic post id of the reply.
	ID string `json:"id"`

	// URI is the full object URI the reply was written to.
	URI string `json:"uri"`

	// ParentURI is the post the reply answers.
	ParentURI string `json:"parent_uri"`

	// Actor is the identity that was replied to.
	Actor string `json:"actor"`

	// Content is the published reply text.
	Content string `json:"content"`

	// TickID correlates the reply with the poll tick that produced it.
	TickID string `json:"tick_id"`

	// CreatedAt is when the journal row was written.
	CreatedAt time.Time `json:"created_at"`
}
