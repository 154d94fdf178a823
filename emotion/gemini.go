package emotion

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"moodcast/types"
)

// GeminiResponder asks a Gemini model for the emotion response in JSON mode
type GeminiResponder struct {
	client *genai.Client
	model  string
}

// NewGeminiResponder creates a responder for apiKey. An empty model uses
// gemini-2.5-flash.
func NewGeminiResponder(ctx context.Context, apiKey, model string) (*GeminiResponder, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiResponder{client: client, model: model}, nil
}

func (g *GeminiResponder) Name() string { return "gemini:" + g.model }

func (g *GeminiResponder) Respond(ctx context.Context, text string) (*types.EmotionResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.7),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}
	return ParseResponse(resp.Text())
}
