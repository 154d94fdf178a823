package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ImagenGenerator renders images with Google's Imagen models through the Gemini API
type ImagenGenerator struct {
	apiKey string
	model  string
	client *genai.Client
	guard  *loadGuard
}

// NewImagenGenerator creates an Imagen-backed image adapter
func NewImagenGenerator(apiKey, model string, logger *zap.Logger) *ImagenGenerator {
	return &ImagenGenerator{apiKey: apiKey, model: model, guard: newLoadGuard("imagen", logger)}
}

func (g *ImagenGenerator) Name() string { return g.guard.backend }

func (g *ImagenGenerator) Load(ctx context.Context) error {
	return g.guard.load(ctx, func(ctx context.Context) error {
		if g.apiKey == "" {
			return errors.New("GEMINI_API_KEY is not set")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return err
		}
		g.client = client
		return nil
	})
}

func (g *ImagenGenerator) GenerateImage(ctx context.Context, prompt string, params ImageParams) (*ImageResult, error) {
	if err := g.guard.ready(); err != nil {
		return nil, err
	}

	cfg := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		NegativePrompt: params.NegativePrompt,
		OutputMIMEType: "image/png",
		AspectRatio:    aspectRatio(params.Width, params.Height),
	}
	if params.Seed != nil {
		cfg.Seed = genai.Ptr(int32(*params.Seed))
		cfg.AddWatermark = false
	}

	resp, err := g.client.Models.GenerateImages(ctx, g.model, prompt, cfg)
	if err != nil {
		return nil, &GenerationError{Backend: g.Name(), Prompt: prompt, Err: err}
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, &GenerationError{Backend: g.Name(), Prompt: prompt, Err: errors.New("no images returned (filtered?)")}
	}

	images := make([]image.Image, 0, len(resp.GeneratedImages))
	for _, gen := range resp.GeneratedImages {
		if gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
			continue
		}
		img, _, err := image.Decode(bytes.NewReader(gen.Image.ImageBytes))
		if err != nil {
			return nil, &GenerationError{Backend: g.Name(), Prompt: prompt, Err: fmt.Errorf("decode image: %w", err)}
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, &GenerationError{Backend: g.Name(), Prompt: prompt, Err: errors.New("empty image payload")}
	}
	return &ImageResult{Images: images, Prompt: prompt, Params: params}, nil
}

func (g *ImagenGenerator) SaveImage(img image.Image, path string) error {
	return WritePNG(img, path)
}

// aspectRatio maps a requested frame size onto the ratios Imagen accepts
func aspectRatio(w, h int) string {
	if w <= 0 || h <= 0 {
		return "1:1"
	}
	r := float64(w) / float64(h)
	switch {
	case r > 1.6:
		return "16:9"
	case r > 1.2:
		return "4:3"
	case r < 0.62:
		return "9:16"
	case r < 0.83:
		return "3:4"
	default:
		return "1:1"
	}
}
