package model

// MaxPostLength is the hard cap on published post content, in characters.
const MaxPostLength = 1000

// PostKind distinguishes post record variants in pubky.app storage.
type PostKind string

const (
	PostKindShort PostKind = "short"
	PostKindLong  PostKind = "long"
)

// Post is the pubky.app post record stored on the homeserver. Replies set
// Parent to the URI of the post they answer.
type Post struct {
	Content     string   `json:"content"`
	Kind        PostKind `json:"kind"`
	Parent      *string  `json:"parent,omitempty"`
	Embed       *Embed   `json:"embed,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// Embed references another record quoted inside a post.
type Embed struct {
	Kind PostKind `json:"kind"`
	URI  string   `json:"uri"`
}

// Profile is the public profile record at pub/pubky.app/profile.json,
// written once during bootstrap.
type Profile struct {
	Name   string        `json:"name"`
	Bio    string        `json:"bio,omitempty"`
	Image  string        `json:"image,omitempty"`
	Links  []ProfileLink `json:"links,omitempty"`
	Status string        `json:"status,omitempty"`
}

// ProfileLink is a labeled URL on a profile.
type ProfileLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// LastRead is the persisted checkpoint record. Its timestamp is the
// watermark below which all notifications are considered processed.
type LastRead struct {
	Timestamp int64 `json:"timestamp"`
}
