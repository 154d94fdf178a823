// Package publish delivers finished videos to external destinations
package publish

import (
	"context"
	"fmt"
	"strings"

	"moodcast/types"
)

// Video is a finished job ready to publish
type Video struct {
	JobID   string
	Path    string
	Text    string // the user's original message
	Emotion *types.EmotionResponse
}

// Publisher uploads a video and returns where it can be found
type Publisher interface {
	Name() string
	Publish(ctx context.Context, v Video) (string, error)
}

// Metadata is the title, description and tags attached to an upload
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
}

// GenerateMetadata builds upload metadata from the job's emotion response
func GenerateMetadata(v Video, categoryID string) Metadata {
	tag := "calm"
	voice := ""
	if v.Emotion != nil {
		tag = v.Emotion.EmotionTag
		voice = v.Emotion.VoiceText
	}

	title := fmt.Sprintf("A moment for when you feel %s", strings.ReplaceAll(tag, "_", " "))
	if len(title) > 100 {
		title = title[:97] + "..."
	}

	description := voice
	if description != "" {
		description += "\n\n"
	}
	description += "#" + tag + " #mindfulness #relax"

	return Metadata{
		Title:       title,
		Description: description,
		Tags:        []string{tag, "mindfulness", "relaxing music", "affirmations"},
		CategoryID:  categoryID,
	}
}
