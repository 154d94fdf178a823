package tui

// UI Text Constants
const (
	TextTitle         = "moodcast"
	TextPrompt        = "How are you feeling? Type a message and press Enter."
	TextFooterInput   = "Enter to submit | Esc or Ctrl+C to quit"
	TextFooterRunning = "Press 'q' to detach (the job keeps running)"
	TextFooterDone    = "Press 'n' for a new message | Press 'q' to quit"
	barWidth          = 30
)
