package adapters

import (
	"context"
	"errors"
	"hash/fnv"
	"image"
	"image/color"
	"math"
	"strings"

	"go.uber.org/zap"
)

// GradientImageGenerator is an offline image back end. It paints a deterministic
// two-tone gradient derived from the prompt, which keeps the pipeline runnable
// without an accelerator.
type GradientImageGenerator struct {
	width  int
	height int
	guard  *loadGuard
}

// NewGradientImageGenerator creates an offline renderer with default frame size
func NewGradientImageGenerator(width, height int, logger *zap.Logger) *GradientImageGenerator {
	return &GradientImageGenerator{
		width:  width,
		height: height,
		guard:  newLoadGuard("gradient-image", logger),
	}
}

func (g *GradientImageGenerator) Name() string { return g.guard.backend }

func (g *GradientImageGenerator) Load(ctx context.Context) error {
	return g.guard.load(ctx, func(context.Context) error {
		if g.width <= 0 || g.height <= 0 {
			return errors.New("frame size must be positive")
		}
		return nil
	})
}

func (g *GradientImageGenerator) GenerateImage(ctx context.Context, prompt string, params ImageParams) (*ImageResult, error) {
	if err := g.guard.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, &GenerationError{Backend: g.Name(), Prompt: prompt, Err: errors.New("empty prompt")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &GenerationError{Backend: g.Name(), Prompt: prompt, Err: err}
	}

	w, h := g.width, g.height
	if params.Width > 0 {
		w = params.Width
	}
	if params.Height > 0 {
		h = params.Height
	}

	seed := promptHash(prompt)
	if params.Seed != nil {
		seed ^= uint64(*params.Seed)
	}
	top := paletteColor(seed)
	bottom := paletteColor(seed >> 24)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	cx, cy := float64(w)/2, float64(h)/2
	maxDist := math.Hypot(cx, cy)
	for y := 0; y < h; y++ {
		t := float64(y) / float64(max(h-1, 1))
		for x := 0; x < w; x++ {
			// soft vignette towards the corners
			v := 1 - 0.35*math.Hypot(float64(x)-cx, float64(y)-cy)/maxDist
			img.SetRGBA(x, y, color.RGBA{
				R: lerp(top.R, bottom.R, t, v),
				G: lerp(top.G, bottom.G, t, v),
				B: lerp(top.B, bottom.B, t, v),
				A: 255,
			})
		}
	}

	params.Width, params.Height = w, h
	return &ImageResult{Images: []image.Image{img}, Prompt: prompt, Params: params}, nil
}

func (g *GradientImageGenerator) SaveImage(img image.Image, path string) error {
	return WritePNG(img, path)
}

// ChordMusicGenerator is an offline music back end that renders a sustained
// pad chord for the requested duration. Minor chords are picked for prompts
// that read as melancholic.
type ChordMusicGenerator struct {
	sampleRate int
	guard      *loadGuard
}

// NewChordMusicGenerator creates an offline music renderer
func NewChordMusicGenerator(sampleRate int, logger *zap.Logger) *ChordMusicGenerator {
	return &ChordMusicGenerator{
		sampleRate: sampleRate,
		guard:      newLoadGuard("chord-music", logger),
	}
}

func (m *ChordMusicGenerator) Name() string { return m.guard.backend }

func (m *ChordMusicGenerator) Load(ctx context.Context) error {
	return m.guard.load(ctx, func(context.Context) error {
		if m.sampleRate <= 0 {
			return errors.New("sample rate must be positive")
		}
		return nil
	})
}

var minorMoods = []string{"sad", "melanchol", "lonely", "grief", "calm", "rain", "night", "somber"}

func (m *ChordMusicGenerator) GenerateMusic(ctx context.Context, prompt string, params MusicParams) (*AudioResult, error) {
	if err := m.guard.ready(); err != nil {
		return nil, err
	}
	if params.DurationSecs <= 0 {
		return nil, &GenerationError{Backend: m.Name(), Prompt: prompt, Err: errors.New("duration must be positive")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &GenerationError{Backend: m.Name(), Prompt: prompt, Err: err}
	}

	seed := promptHash(prompt)
	if params.Seed != nil {
		seed ^= uint64(*params.Seed)
	}
	root := 110 * math.Pow(2, float64(seed%12)/12)
	third := 4.0
	lower := strings.ToLower(prompt)
	for _, mood := range minorMoods {
		if strings.Contains(lower, mood) {
			third = 3
			break
		}
	}
	freqs := []float64{root, root * math.Pow(2, third/12), root * math.Pow(2, 7.0/12), root * 2}

	n := int(math.Round(params.DurationSecs * float64(m.sampleRate)))
	samples := make([]float32, n)
	attack := 0.5 * float64(m.sampleRate)
	for i := range samples {
		t := float64(i) / float64(m.sampleRate)
		var s float64
		for k, f := range freqs {
			s += math.Sin(2*math.Pi*f*t) / float64(k+1)
		}
		env := 1.0
		if fi := float64(i); fi < attack {
			env = fi / attack
		} else if rem := float64(n - i); rem < attack {
			env = rem / attack
		}
		// slow tremolo keeps the pad from sounding static
		env *= 0.85 + 0.15*math.Sin(2*math.Pi*0.25*t)
		samples[i] = float32(0.2 * s * env)
	}

	return &AudioResult{Samples: samples, Channels: 1, SampleRate: m.sampleRate, Prompt: prompt}, nil
}

func (m *ChordMusicGenerator) SaveAudio(res *AudioResult, path string) error {
	return WriteWAV(res, path)
}

func promptHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func paletteColor(seed uint64) color.RGBA {
	return color.RGBA{
		R: uint8(40 + seed%180),
		G: uint8(40 + (seed>>8)%180),
		B: uint8(40 + (seed>>16)%180),
		A: 255,
	}
}

func lerp(a, b uint8, t, scale float64) uint8 {
	v := (float64(a)*(1-t) + float64(b)*t) * scale
	return uint8(math.Max(0, math.Min(255, v)))
}
