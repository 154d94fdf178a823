package types

// EmotionResponse is the structured output of the language model collaborator
type EmotionResponse struct {
	EmotionTag  string `json:"emotion_tag"`
	ImagePrompt string `json:"image_prompt"`
	VoiceText   string `json:"voice_text"`
	MusicPrompt string `json:"music_prompt"`
}
