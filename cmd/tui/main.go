package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"moodcast/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("url", "http://localhost:8080", "moodcast API URL")
	duration := flag.Float64("duration", 0, "Video duration in seconds (0 derives from the audio)")
	images := flag.Int("images", 0, "Number of slideshow images (0 uses the server default)")
	flag.Parse()

	m := tui.NewModel(*apiURL, strings.Join(flag.Args(), " "), *duration, *images)
	program := tea.NewProgram(m)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
