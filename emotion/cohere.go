package emotion

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"moodcast/types"
)

// CohereResponder asks a Cohere chat model for the emotion response
type CohereResponder struct {
	client *cohereclient.Client
	model  string
}

// NewCohereResponder creates a responder for apiKey. An empty model uses
// command-r.
func NewCohereResponder(apiKey, model string) (*CohereResponder, error) {
	if apiKey == "" {
		return nil, errors.New("COHERE_API_KEY is not set")
	}
	if model == "" {
		model = "command-r"
	}

	// HTTP/1.1 only; the API has been flaky over HTTP/2
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereResponder{client: client, model: model}, nil
}

func (c *CohereResponder) Name() string { return "cohere:" + c.model }

func (c *CohereResponder) Respond(ctx context.Context, text string) (*types.EmotionResponse, error) {
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message:     text,
		Model:       cohere.String(c.model),
		Preamble:    cohere.String(SystemPrompt),
		Temperature: cohere.Float64(0.7),
	})
	if err != nil {
		return nil, fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil {
		return nil, errors.New("cohere chat returned empty response")
	}
	return ParseResponse(resp.Text)
}
