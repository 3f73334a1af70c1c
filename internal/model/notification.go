package model

// Kind classifies a feed notification by its body's type discriminator.
type Kind string

const (
	KindMention Kind = "mention"
	KindFollow  Kind = "follow"
	KindTag     Kind = "tag"
	KindReply   Kind = "reply"
	KindUnknown Kind = "unknown"
)

// Notification is a single event delivered by the nexus feed. Notifications
// are transient: they are fetched each tick and never persisted remotely by
// the agent.
type Notification struct {
	// Timestamp is the feed service's clock for this event. It is used for
	// ordering against the checkpoint only; it is not guaranteed strictly
	// increasing or gap-free.
	Timestamp int64 `json:"timestamp"`

	// Body carries the type discriminator and the kind-specific fields.
	Body NotificationBody `json:"body"`
}

// NotificationBody is the kind-dependent payload of a notification. Any of
// the optional fields may be absent even when the type implies they should
// exist; consumers must check before acting.
type NotificationBody struct {
	Type string `json:"type"`

	// Mention fields.
	MentionedBy string `json:"mentioned_by,omitempty"`
	PostURI     string `json:"post_uri,omitempty"`

	// Follow fields.
	FollowedBy string `json:"followed_by,omitempty"`

	// Tag fields.
	TaggedBy string `json:"tagged_by,omitempty"`
	TagLabel string `json:"tag_label,omitempty"`

	// Reply fields.
	RepliedBy     string `json:"replied_by,omitempty"`
	ParentPostURI string `json:"parent_post_uri,omitempty"`
	ReplyURI      string `json:"reply_uri,omitempty"`
}

// Kind maps the body's type discriminator to a Kind. Unrecognized values,
// including an empty discriminator, map to KindUnknown.
func (n Notification) Kind() Kind {
	switch n.Body.Type {
	case "mention":
		return KindMention
	case "follow":
		return KindFollow
	case "tag":
		return KindTag
	case "reply":
		return KindReply
	default:
		return KindUnknown
	}
}

// Actor returns the identity that triggered the notification, or an empty
// string when the field is absent.
func (b NotificationBody) Actor() string {
	switch b.Type {
	case "mention":
		return b.MentionedBy
	case "follow":
		return b.FollowedBy
	case "tag":
		return b.TaggedBy
	case "reply":
		return b.RepliedBy
	default:
		return ""
	}
}

// Subject returns the content URI the notification refers to, when present.
func (b NotificationBody) Subject() string {
	switch b.Type {
	case "mention", "tag":
		return b.PostURI
	case "reply":
		return b.ReplyURI
	default:
		return ""
	}
}
