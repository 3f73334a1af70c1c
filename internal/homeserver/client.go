package homeserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/pubky-agent/internal/identity"
)

// ErrNotFound reports that no object exists at the requested path. It is
// distinct from transport errors so callers can treat absence as data.
var ErrNotFound = errors.New("object not found")

// requestTimeout bounds every homeserver call.
const requestTimeout = 30 * time.Second

// Store is the object store surface the rest of the agent consumes: opaque
// byte blobs addressed by pubky:// URI.
type Store interface {
	Get(ctx context.Context, uri string) ([]byte, error)
	Put(ctx context.Context, uri string, body []byte) error
}

// Client talks to a pubky homeserver over HTTP. Reads are public; writes
// require the session established by Signin.
type Client struct {
	baseURL    string
	keys       *identity.Keypair
	httpClient *http.Client
	session    string
}

// NewClient creates a homeserver client for the given base URL and identity.
func NewClient(baseURL string, keys *identity.Keypair) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		keys:    keys,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Signin establishes a signed session. The token is the public identity and
// a timestamp signed by the bot's key; the homeserver answers with an opaque
// session id sent back on every write. Failure here is fatal at startup.
func (c *Client) Signin(ctx context.Context) error {
	ts := strconv.FormatInt(time.Now().UnixMicro(), 10)
	payload := c.keys.PublicID() + ":" + ts
	sig := base64.RawURLEncoding.EncodeToString(c.keys.Sign([]byte(payload)))

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/session",
		strings.NewReader(payload+":"+sig),
	)
	if err != nil {
		return fmt.Errorf("creating signin request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("signing in to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading signin response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("signin failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.session = strings.TrimSpace(string(body))
	return nil
}

// Get fetches the raw bytes at uri. A missing object returns ErrNotFound.
func (c *Client) Get(ctx context.Context, uri string) ([]byte, error) {
	url, err := c.objectURL(uri)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", uri, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", uri, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, uri)
	}

	return body, nil
}

// Put writes raw bytes to uri using the signed session.
func (c *Client) Put(ctx context.Context, uri string, body []byte) error {
	url, err := c.objectURL(uri)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.session != "" {
		req.Header.Set("Authorization", "Bearer "+c.session)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("writing %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d writing %s: %s",
			resp.StatusCode, uri, strings.TrimSpace(string(respBody)))
	}

	return nil
}

// objectURL maps a pubky:// URI to the homeserver's HTTP path.
func (c *Client) objectURL(uri string) (string, error) {
	id, path, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	return c.baseURL + "/" + id + path, nil
}

// ParseURI splits a pubky object URI of the form
// pubky://<identity>/pub/<app>/<path> into identity and path.
func ParseURI(uri string) (id, path string, err error) {
	rest, ok := strings.CutPrefix(uri, "pubky://")
	if !ok {
		return "", "", fmt.Errorf("unsupported URI scheme in %q", uri)
	}
	id, path, ok = strings.Cut(rest, "/")
	if !ok || id == "" || path == "" {
		return "", "", fmt.Errorf("malformed pubky URI %q", uri)
	}
	return id, "/" + path, nil
}
