package compositor

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"moodcast/config"
)

// FontProber finds a face that can render the subtitle text. Results are
// cached per script class.
type FontProber struct {
	run    runFunc
	logger *zap.Logger

	mu    sync.Mutex
	cache map[bool]fontChoice
}

type fontChoice struct {
	family string
	file   string
}

// NewFontProber creates a prober backed by fc-list
func NewFontProber(logger *zap.Logger) *FontProber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FontProber{run: runCommand, logger: logger, cache: map[bool]fontChoice{}}
}

// Resolve returns style with FontName and FontFile filled for text. CJK text
// gets a face that covers Han glyphs when fontconfig knows one; otherwise
// the default face is kept.
func (p *FontProber) Resolve(ctx context.Context, style SubtitleStyle, needCJK bool) SubtitleStyle {
	if p == nil {
		return style
	}
	choice := p.lookup(ctx, needCJK)
	if choice.family != "" {
		style.FontName = choice.family
	}
	if choice.file != "" {
		style.FontFile = choice.file
	}
	if style.FontName == "" {
		style.FontName = config.DefaultFontName
	}
	return style
}

func (p *FontProber) lookup(ctx context.Context, needCJK bool) fontChoice {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.cache[needCJK]; ok {
		return c
	}

	pattern := ":style=Regular"
	if needCJK {
		pattern = ":lang=zh"
	}
	var c fontChoice
	out, err := p.run(ctx, "fc-list", pattern, "file", "family")
	if err != nil {
		p.logger.Info("fc-list unavailable, using default font", zap.Error(err))
	} else {
		c = pickFont(string(out), needCJK)
	}
	if c.family == "" && needCJK {
		p.logger.Warn("no CJK-capable font found, subtitles may render as boxes")
	}
	p.cache[needCJK] = c
	return c
}

var preferredFaces = []string{"Noto Sans CJK", "Source Han Sans", "WenQuanYi", "Droid Sans Fallback", "DejaVu Sans", "Liberation Sans"}

// pickFont parses `fc-list pattern file family` lines ("path: Family,Alias")
// and returns the most preferred face
func pickFont(out string, needCJK bool) fontChoice {
	var all []fontChoice
	for _, line := range strings.Split(out, "\n") {
		path, fams, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok || path == "" {
			continue
		}
		family, _, _ := strings.Cut(strings.TrimSpace(fams), ",")
		if family == "" {
			continue
		}
		all = append(all, fontChoice{family: family, file: strings.TrimSpace(path)})
	}
	if len(all) == 0 {
		return fontChoice{}
	}
	for _, want := range preferredFaces {
		for _, c := range all {
			if strings.HasPrefix(c.family, want) {
				return c
			}
		}
	}
	if needCJK {
		return all[0]
	}
	return fontChoice{}
}
