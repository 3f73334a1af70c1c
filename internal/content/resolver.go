// Package content resolves content URIs to plain text.
package content

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nhle/pubky-agent/internal/homeserver"
)

// A decodeStrategy attempts to extract plain text from a fetched object.
// Strategies are tried in order; the first to succeed wins.
type decodeStrategy func(body []byte) (string, bool)

// Resolver turns a content URI into plain text. Decoding is tolerant: a
// structured post record is preferred, raw UTF-8 text is the fallback, and
// only a transport failure is a hard error.
type Resolver struct {
	objects    homeserver.Store
	strategies []decodeStrategy
}

// NewResolver creates a resolver backed by the given object store.
func NewResolver(objects homeserver.Store) *Resolver {
	return &Resolver{
		objects:    objects,
		strategies: []decodeStrategy{decodePost, decodePlainText},
	}
}

// Resolve fetches the object at uri and decodes it to text. An empty body
// resolves to an empty string.
func (r *Resolver) Resolve(ctx context.Context, uri string) (string, error) {
	body, err := r.objects.Get(ctx, uri)
	if err != nil {
		return "", fmt.Errorf("fetching content %s: %w", uri, err)
	}
	if len(body) == 0 {
		return "", nil
	}

	for _, decode := range r.strategies {
		if text, ok := decode(body); ok {
			return text, nil
		}
	}

	// decodePlainText always succeeds, so this is unreachable; kept so a
	// strategy list without a catch-all still behaves sanely.
	return "", nil
}

// decodePost parses the body as a pubky.app post record. It only claims the
// body when a content field is actually present, so arbitrary JSON falls
// through to the plain-text strategy.
func decodePost(body []byte) (string, bool) {
	var post struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(body, &post); err != nil || post.Content == nil {
		return "", false
	}
	return *post.Content, true
}

// decodePlainText treats the raw bytes as UTF-8 text.
func decodePlainText(body []byte) (string, bool) {
	return string(body), true
}
