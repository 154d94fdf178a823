// Package emotion turns free text into an emotion tag plus the image, voice
// and music prompts that drive one generation job
package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"moodcast/types"
)

// ErrMalformedResponse is returned when the model output is not the
// expected JSON object
var ErrMalformedResponse = errors.New("malformed emotion response")

// Responder infers the emotion response for a user's text
type Responder interface {
	Name() string
	Respond(ctx context.Context, text string) (*types.EmotionResponse, error)
}

// SystemPrompt instructs the model to answer with exactly one JSON object
const SystemPrompt = `You are an empathetic companion. Read the user's message, infer their dominant emotion, and answer with a single JSON object and nothing else:
{"emotion_tag": "<one lowercase word>", "image_prompt": "<a calming visual scene, comma separated descriptors>", "voice_text": "<two to four warm sentences spoken directly to the user>", "music_prompt": "<genre, instruments, tempo and mood of a soothing background track>"}`

// ParseResponse decodes raw model output. Code fences and surrounding prose
// are tolerated; missing prompts are not. A missing tag becomes "neutral".
func ParseResponse(raw string) (*types.EmotionResponse, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}

	var resp types.EmotionResponse
	if err := json.Unmarshal([]byte(s), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var missing []string
	if strings.TrimSpace(resp.ImagePrompt) == "" {
		missing = append(missing, "image_prompt")
	}
	if strings.TrimSpace(resp.VoiceText) == "" {
		missing = append(missing, "voice_text")
	}
	if strings.TrimSpace(resp.MusicPrompt) == "" {
		missing = append(missing, "music_prompt")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}

	resp.EmotionTag = SanitizeTag(resp.EmotionTag)
	return &resp, nil
}

// SanitizeTag makes a tag safe to use in a job base name
func SanitizeTag(tag string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(tag)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '_':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "neutral"
	}
	if len(out) > 32 {
		out = out[:32]
	}
	return out
}
