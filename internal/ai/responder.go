// Package ai generates replies through an OpenAI-style chat-completions
// endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	// The service's own length controls are advisory; maxTokens bounds the
	// request, MaxReplyLength hard-caps the result.
	maxTokens   = 500
	temperature = 0.7

	requestTimeout = 2 * time.Minute
)

// MaxReplyLength is the hard cap on generated replies, in characters.
const MaxReplyLength = 1000

// systemPrompt is the fixed instruction sent with every generation request.
const systemPrompt = "You are a friendly and fun bot that responds to posts " +
	"in a creative and funny way. Your responses must be in English by " +
	"default, but if the user's post is in another language, your response " +
	"should also be in that language. Your responses must have a maximum " +
	"of 1000 characters."

// Responder calls the text-generation service. It holds the optional
// knowledge-base blob loaded once at process start.
type Responder struct {
	apiKey     string
	baseURL    string
	model      string
	knowledge  string
	httpClient *http.Client
}

// New creates a Responder. baseURL and model fall back to the public OpenAI
// endpoint and the default model when empty; knowledge is an optional static
// text blob appended to the system instruction.
func New(apiKey, baseURL, model, knowledge string) *Responder {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Responder{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		knowledge: knowledge,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// LoadKnowledgeBase reads the optional knowledge-base file. An empty path
// means no knowledge base and is not an error.
func LoadKnowledgeBase(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading knowledge base %s: %w", path, err)
	}
	return string(data), nil
}

// Generate produces a reply to content. The result is truncated to
// MaxReplyLength characters regardless of what the service returns.
func (r *Responder) Generate(ctx context.Context, content string) (string, error) {
	reqBody := chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: r.systemMessage()},
			{Role: "user", Content: content},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, r.baseURL+"/chat/completions",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling generation service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("generation API error (%d): %s",
				resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("generation API error (%d): %s",
			resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("generation service returned no choices")
	}

	return Truncate(chatResp.Choices[0].Message.Content, MaxReplyLength), nil
}

// systemMessage appends the knowledge base, when present, to the fixed
// instruction.
func (r *Responder) systemMessage() string {
	if r.knowledge == "" {
		return systemPrompt
	}
	return systemPrompt +
		"\n\nUse the following background knowledge when it is relevant:\n" +
		r.knowledge
}

// Truncate caps s at n characters, preserving whole runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// --- chat-completions wire types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
