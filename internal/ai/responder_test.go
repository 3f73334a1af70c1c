package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionsServer(t *testing.T, reply string, capture *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestResponder_Generate(t *testing.T) {
	var got chatRequest
	srv := completionsServer(t, "a witty reply", &got)
	defer srv.Close()

	responder := New("sk-test", srv.URL, "", "")
	reply, err := responder.Generate(context.Background(), "what do you think?")
	require.NoError(t, err)
	assert.Equal(t, "a witty reply", reply)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "what do you think?", got.Messages[1].Content)
}

func TestResponder_TruncatesLongReplies(t *testing.T) {
	long := strings.Repeat("é", 5000)
	srv := completionsServer(t, long, nil)
	defer srv.Close()

	responder := New("sk-test", srv.URL, "", "")
	reply, err := responder.Generate(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, MaxReplyLength, utf8.RuneCountInString(reply))
	assert.Equal(t, strings.Repeat("é", MaxReplyLength), reply)
}

func TestResponder_KnowledgeBaseInSystemMessage(t *testing.T) {
	var got chatRequest
	srv := completionsServer(t, "ok", &got)
	defer srv.Close()

	responder := New("sk-test", srv.URL, "", "the bot was built in 2024")
	_, err := responder.Generate(context.Background(), "hi")
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[0].Content, "the bot was built in 2024")
}

func TestResponder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"type": "rate_limit", "message": "slow down"}}`))
	}))
	defer srv.Close()

	responder := New("sk-test", srv.URL, "", "")
	_, err := responder.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
	assert.Contains(t, err.Error(), "429")
}

func TestResponder_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	responder := New("sk-test", srv.URL, "", "")
	_, err := responder.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestLoadKnowledgeBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.txt")
	require.NoError(t, os.WriteFile(path, []byte("facts"), 0o600))

	knowledge, err := LoadKnowledgeBase(path)
	require.NoError(t, err)
	assert.Equal(t, "facts", knowledge)

	knowledge, err = LoadKnowledgeBase("")
	require.NoError(t, err)
	assert.Empty(t, knowledge)

	_, err = LoadKnowledgeBase(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "héll", Truncate("héllo", 4), "truncation counts runes, not bytes")
	assert.Equal(t, "", Truncate("", 5))
}
