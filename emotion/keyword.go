package emotion

import (
	"context"
	"strings"

	"moodcast/types"
)

type mood struct {
	tag      string
	keywords []string
	image    string
	voice    string
	music    string
}

var moods = []mood{
	{
		tag:      "sad",
		keywords: []string{"sad", "lonely", "alone", "cry", "miss", "lost", "grief", "难过", "伤心", "孤独"},
		image:    "soft morning light over a misty lake, a single warm lantern, gentle pastel tones",
		voice:    "It is okay to feel this way. You do not have to carry everything at once. I am here with you.",
		music:    "slow ambient piano, warm strings, 60 bpm, tender and hopeful",
	},
	{
		tag:      "anxious",
		keywords: []string{"anxious", "nervous", "worried", "stress", "panic", "overwhelmed", "焦虑", "紧张", "担心"},
		image:    "quiet forest path with dappled sunlight, moss and ferns, calm green palette",
		voice:    "Take a slow breath with me. In, and out. Right now, in this moment, you are safe.",
		music:    "gentle acoustic guitar, soft pads, slow tempo, breathing rhythm, calming",
	},
	{
		tag:      "angry",
		keywords: []string{"angry", "furious", "annoyed", "hate", "unfair", "mad", "生气", "愤怒"},
		image:    "ocean waves rolling onto a wide empty beach at dusk, cool blue tones",
		voice:    "Your frustration makes sense. Let it move through you like a wave, and let it pass.",
		music:    "deep cello drones, slow swelling strings, steady pulse, grounding",
	},
	{
		tag:      "happy",
		keywords: []string{"happy", "glad", "excited", "great", "wonderful", "joy", "开心", "高兴", "快乐"},
		image:    "sunflower field under a bright blue sky, golden hour, vivid and warm",
		voice:    "That is wonderful to hear. Hold on to this feeling, you deserve every bit of it.",
		music:    "upbeat ukulele and glockenspiel, light percussion, 110 bpm, joyful",
	},
	{
		tag:      "tired",
		keywords: []string{"tired", "exhausted", "burnt", "burned out", "sleepy", "drained", "累", "疲惫"},
		image:    "cozy room at night with rain on the window, soft lamp light, blankets",
		voice:    "You have done enough for today. Rest is not a reward, it is something you need.",
		music:    "lo-fi piano with vinyl crackle, soft rain ambience, 70 bpm, sleepy",
	},
}

var neutralMood = mood{
	tag:   "calm",
	image: "wide mountain valley at sunrise, soft clouds, peaceful and open",
	voice: "Thank you for sharing that with me. Whatever today brings, take it one moment at a time.",
	music: "soft ambient synth pads, light piano, slow tempo, peaceful",
}

// KeywordResponder picks a mood from keywords. It needs no network and is
// used offline and in tests.
type KeywordResponder struct{}

func (KeywordResponder) Name() string { return "keyword" }

func (KeywordResponder) Respond(_ context.Context, text string) (*types.EmotionResponse, error) {
	m := classify(text)
	return &types.EmotionResponse{
		EmotionTag:  m.tag,
		ImagePrompt: m.image,
		VoiceText:   m.voice,
		MusicPrompt: m.music,
	}, nil
}

func classify(text string) mood {
	lower := strings.ToLower(text)
	best, bestHits := neutralMood, 0
	for _, m := range moods {
		hits := 0
		for _, k := range m.keywords {
			if strings.Contains(lower, k) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = m, hits
		}
	}
	return best
}
