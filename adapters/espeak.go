package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// EspeakSpeechGenerator synthesizes speech with a local espeak-ng binary.
// It needs no model weights; Load only checks that the binary is on PATH.
type EspeakSpeechGenerator struct {
	binary string
	voice  string
	path   string
	guard  *loadGuard
	logger *zap.Logger
}

// NewEspeakSpeechGenerator creates a speech back end around the given binary name
func NewEspeakSpeechGenerator(binary, voice string, logger *zap.Logger) *EspeakSpeechGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EspeakSpeechGenerator{
		binary: binary,
		voice:  voice,
		guard:  newLoadGuard("espeak-speech", logger),
		logger: logger,
	}
}

func (e *EspeakSpeechGenerator) Name() string { return e.guard.backend }

func (e *EspeakSpeechGenerator) Load(ctx context.Context) error {
	return e.guard.load(ctx, func(context.Context) error {
		p, err := exec.LookPath(e.binary)
		if err != nil {
			return fmt.Errorf("%s not found in PATH: %w", e.binary, err)
		}
		e.path = p
		return nil
	})
}

func (e *EspeakSpeechGenerator) GenerateSpeech(ctx context.Context, text string, params SpeechParams) (*AudioResult, error) {
	if err := e.guard.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, &GenerationError{Backend: e.Name(), Prompt: text, Err: errors.New("empty text")}
	}

	tmp, err := os.CreateTemp("", "espeak-*.wav")
	if err != nil {
		return nil, &GenerationError{Backend: e.Name(), Prompt: text, Err: err}
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	voice := e.voice
	if params.Voice != "" {
		voice = params.Voice
	}
	args := []string{"-w", tmpPath}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	if params.WordsPerMinute > 0 {
		args = append(args, "-s", strconv.Itoa(params.WordsPerMinute))
	}
	if params.Pitch > 0 {
		args = append(args, "-p", strconv.Itoa(params.Pitch))
	}
	args = append(args, "--", text)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &GenerationError{Backend: e.Name(), Prompt: text, Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))}
	}

	res, err := ReadWAV(tmpPath)
	if err != nil {
		return nil, &GenerationError{Backend: e.Name(), Prompt: text, Err: err}
	}
	res.Prompt = text
	e.logger.Debug("espeak synthesized speech", zap.Float64("duration", res.Duration()), zap.String("voice", voice))
	return res, nil
}

func (e *EspeakSpeechGenerator) SaveAudio(res *AudioResult, path string) error {
	return WriteWAV(res, path)
}
