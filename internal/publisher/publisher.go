// Package publisher writes new post records to the bot's homeserver
// storage.
//
// Reply ids are deterministic: they hash the author and the parent URI, so
// reprocessing the same mention after a crash overwrites the same object
// instead of creating a duplicate. This deliberately diverges from
// wall-clock post ids.
package publisher

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/nhle/pubky-agent/internal/homeserver"
	"github.com/nhle/pubky-agent/internal/model"
)

// Publisher persists replies and the one-time profile record under the
// author's storage prefix.
type Publisher struct {
	objects homeserver.Store
	author  string
}

// New creates a Publisher writing as the given author identity.
func New(objects homeserver.Store, author string) *Publisher {
	return &Publisher{
		objects: objects,
		author:  author,
	}
}

// Reply publishes a reply to parentURI and returns the stored object URI.
// Content longer than the post cap is truncated.
func (p *Publisher) Reply(ctx context.Context, parentURI, content string) (string, error) {
	if utf8.RuneCountInString(content) > model.MaxPostLength {
		content = string([]rune(content)[:model.MaxPostLength])
	}

	parent := parentURI
	post := model.Post{
		Content: content,
		Kind:    model.PostKindShort,
		Parent:  &parent,
	}

	body, err := json.Marshal(post)
	if err != nil {
		return "", fmt.Errorf("encoding reply: %w", err)
	}

	uri := fmt.Sprintf("pubky://%s/pub/pubky.app/posts/%s",
		p.author, ReplyID(p.author, parentURI))
	if err := p.objects.Put(ctx, uri, body); err != nil {
		return "", fmt.Errorf("publishing reply: %w", err)
	}

	return uri, nil
}

// PublishProfile writes the public profile record. This is the one-time
// bootstrap write; the recurring poll loop never touches it.
func (p *Publisher) PublishProfile(ctx context.Context, profile model.Profile) error {
	body, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	uri := fmt.Sprintf("pubky://%s/pub/pubky.app/profile.json", p.author)
	if err := p.objects.Put(ctx, uri, body); err != nil {
		return fmt.Errorf("publishing profile: %w", err)
	}

	return nil
}

// crockford is the base32 alphabet used for post ids in pubky.app storage.
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// ReplyID derives the post id for a reply from its author and parent URI.
// The 13-character Crockford base32 form matches the shape of the timestamp
// ids used for ordinary posts.
func ReplyID(author, parentURI string) string {
	sum := sha256.Sum256([]byte(author + "\n" + parentURI))
	v := binary.BigEndian.Uint64(sum[:8])

	id := make([]byte, 13)
	for i := len(id) - 1; i >= 0; i-- {
		id[i] = crockford[v&31]
		v >>= 5
	}
	return string(id)
}
