package adapters

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RemoteClient talks to a model-serving process that keeps the diffusion,
// speech and music pipelines resident on an accelerator.
//
// Endpoints: POST {base}/v1/{kind}/load and POST {base}/v1/{kind}/generate
// Response:  {"data": "<base64 png|wav>", "sample_rate": 24000, "error": ""}
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteClient creates a client for the inference server at baseURL
func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &RemoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type remoteResponse struct {
	Data       string `json:"data"`
	SampleRate int    `json:"sample_rate"`
	Error      string `json:"error"`
}

func (c *RemoteClient) post(ctx context.Context, path string, payload any) (*remoteResponse, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed remoteResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Error != "" {
			return nil, fmt.Errorf("inference server error: status %d: %s", resp.StatusCode, parsed.Error)
		}
		return nil, fmt.Errorf("inference server error: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	return &parsed, nil
}

func (c *RemoteClient) load(ctx context.Context, kind, model string) error {
	_, err := c.post(ctx, "/v1/"+kind+"/load", map[string]string{"model": model})
	return err
}

func (r *remoteResponse) payload() ([]byte, error) {
	if r.Data == "" {
		return nil, errors.New("inference server returned no data")
	}
	return base64.StdEncoding.DecodeString(r.Data)
}

// RemoteImageGenerator requests images from the inference server
type RemoteImageGenerator struct {
	client *RemoteClient
	model  string
	guard  *loadGuard
}

// NewRemoteImageGenerator creates an image adapter served by client
func NewRemoteImageGenerator(client *RemoteClient, model string, logger *zap.Logger) *RemoteImageGenerator {
	return &RemoteImageGenerator{client: client, model: model, guard: newLoadGuard("remote-image", logger)}
}

func (g *RemoteImageGenerator) Name() string { return g.guard.backend }

func (g *RemoteImageGenerator) Load(ctx context.Context) error {
	return g.guard.load(ctx, func(ctx context.Context) error {
		return g.client.load(ctx, "image", g.model)
	})
}

func (g *RemoteImageGenerator) GenerateImage(ctx context.Context, prompt string, params ImageParams) (*ImageResult, error) {
	if err := g.guard.ready(); err != nil {
		return nil, err
	}

	resp, err := g.client.post(ctx, "/v1/image/generate", struct {
		Prompt string `json:"prompt"`
		ImageParams
	}{prompt, params})
	if err != nil {
		return nil, &GenerationError{Backend: g.Name(), Prompt: prompt, Err: err}
	}
	raw, err := resp.payload()
	if err != nil {
		return nil, &GenerationError{Backend: g.Name(), Prompt: prompt, Err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &GenerationError{Backend: g.Name(), Prompt: prompt, Err: fmt.Errorf("decode image: %w", err)}
	}
	return &ImageResult{Images: []image.Image{img}, Prompt: prompt, Params: params}, nil
}

func (g *RemoteImageGenerator) SaveImage(img image.Image, path string) error {
	return WritePNG(img, path)
}

// RemoteSpeechGenerator requests narration from the inference server
type RemoteSpeechGenerator struct {
	client *RemoteClient
	model  string
	guard  *loadGuard
}

// NewRemoteSpeechGenerator creates a speech adapter served by client
func NewRemoteSpeechGenerator(client *RemoteClient, model string, logger *zap.Logger) *RemoteSpeechGenerator {
	return &RemoteSpeechGenerator{client: client, model: model, guard: newLoadGuard("remote-speech", logger)}
}

func (s *RemoteSpeechGenerator) Name() string { return s.guard.backend }

func (s *RemoteSpeechGenerator) Load(ctx context.Context) error {
	return s.guard.load(ctx, func(ctx context.Context) error {
		return s.client.load(ctx, "speech", s.model)
	})
}

func (s *RemoteSpeechGenerator) GenerateSpeech(ctx context.Context, text string, params SpeechParams) (*AudioResult, error) {
	if err := s.guard.ready(); err != nil {
		return nil, err
	}

	resp, err := s.client.post(ctx, "/v1/speech/generate", struct {
		Text string `json:"text"`
		SpeechParams
	}{text, params})
	if err != nil {
		return nil, &GenerationError{Backend: s.Name(), Prompt: text, Err: err}
	}
	res, err := decodeRemoteAudio(resp)
	if err != nil {
		return nil, &GenerationError{Backend: s.Name(), Prompt: text, Err: err}
	}
	res.Prompt = text
	return res, nil
}

func (s *RemoteSpeechGenerator) SaveAudio(res *AudioResult, path string) error {
	return WriteWAV(res, path)
}

// RemoteMusicGenerator requests a music bed from the inference server
type RemoteMusicGenerator struct {
	client *RemoteClient
	model  string
	guard  *loadGuard
}

// NewRemoteMusicGenerator creates a music adapter served by client
func NewRemoteMusicGenerator(client *RemoteClient, model string, logger *zap.Logger) *RemoteMusicGenerator {
	return &RemoteMusicGenerator{client: client, model: model, guard: newLoadGuard("remote-music", logger)}
}

func (m *RemoteMusicGenerator) Name() string { return m.guard.backend }

func (m *RemoteMusicGenerator) Load(ctx context.Context) error {
	return m.guard.load(ctx, func(ctx context.Context) error {
		return m.client.load(ctx, "music", m.model)
	})
}

func (m *RemoteMusicGenerator) GenerateMusic(ctx context.Context, prompt string, params MusicParams) (*AudioResult, error) {
	if err := m.guard.ready(); err != nil {
		return nil, err
	}

	resp, err := m.client.post(ctx, "/v1/music/generate", struct {
		Prompt string `json:"prompt"`
		MusicParams
	}{prompt, params})
	if err != nil {
		return nil, &GenerationError{Backend: m.Name(), Prompt: prompt, Err: err}
	}
	res, err := decodeRemoteAudio(resp)
	if err != nil {
		return nil, &GenerationError{Backend: m.Name(), Prompt: prompt, Err: err}
	}
	res.Prompt = prompt
	return res, nil
}

func (m *RemoteMusicGenerator) SaveAudio(res *AudioResult, path string) error {
	return WriteWAV(res, path)
}

func decodeRemoteAudio(resp *remoteResponse) (*AudioResult, error) {
	raw, err := resp.payload()
	if err != nil {
		return nil, err
	}
	res, err := DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if res.SampleRate == 0 {
		res.SampleRate = resp.SampleRate
	}
	return res, nil
}
