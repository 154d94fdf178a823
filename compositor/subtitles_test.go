package compositor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"moodcast/timeline"
)

func TestFormatASSTimestamp(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00.00"},
		{1.5, "0:00:01.50"},
		{59.999, "0:01:00.00"},
		{61.25, "0:01:01.25"},
		{3723.07, "1:02:03.07"},
		{-2, "0:00:00.00"},
	}
	for _, tt := range tests {
		if got := formatASSTimestamp(tt.in); got != tt.want {
			t.Errorf("formatASSTimestamp(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteASS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.ass")
	segs := []timeline.SubtitleSegment{
		{Text: "you are {not} alone", Start: 0, End: 4, FadeIn: 0.5, FadeOut: 0.5},
		{Text: "breathe", Start: 4, End: 10, FadeIn: 0.5, FadeOut: 0.25},
	}
	if err := writeASS(path, segs, 1000, 800, DefaultSubtitleStyle()); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	out := string(b)

	for _, want := range []string{
		"PlayResX: 1000",
		"PlayResY: 800",
		",2,50,50,60,1\n", // bottom centre, 5% side margins
		"Dialogue: 0,0:00:00.00,0:00:04.00,Default,,0,0,0,,{\\fad(500,500)}you are (not) alone",
		"Dialogue: 0,0:00:04.00,0:00:10.00,Default,,0,0,0,,{\\fad(500,250)}breathe",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ASS script missing %q\n%s", want, out)
		}
	}
}

func TestWrapTextStaysWithinWidth(t *testing.T) {
	text := "the quiet after the rain always feels like a promise that tomorrow will be gentler"
	const fontSize, maxWidth = 40, 400.0
	wrapped := wrapText(text, maxWidth, fontSize)
	lines := strings.Split(wrapped, "\n")
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %q", wrapped)
	}
	for _, l := range lines {
		if w := measure([]rune(l), fontSize); w > maxWidth {
			t.Errorf("line %q is %.0fpx wide", l, w)
		}
	}
	if strings.Join(strings.Fields(wrapped), " ") != text {
		t.Errorf("wrapping changed the words: %q", wrapped)
	}
}

func TestWrapTextCJK(t *testing.T) {
	wrapped := wrapText("今天的风很温柔明天也会一样", 200, 40)
	for _, l := range strings.Split(wrapped, "\n") {
		if len([]rune(l)) > 5 {
			t.Errorf("CJK line %q exceeds five glyphs", l)
		}
	}
}

func TestDrawtextFilter(t *testing.T) {
	seg := timeline.SubtitleSegment{Text: "x", Start: 4, End: 8, FadeIn: 0.5, FadeOut: 0.5}
	f := drawtextFilter(seg, "/tmp/it's.txt", DefaultSubtitleStyle())

	for _, want := range []string{
		`textfile='/tmp/it'\''s.txt'`,
		"enable='between(t,4.000,8.000)'",
		"alpha='if(lt(t,4.000+0.500),(t-4.000)/0.500,if(gt(t,8.000-0.500),(8.000-t)/0.500,1))'",
		"x=(w-text_w)/2",
		"borderw=3",
	} {
		if !strings.Contains(f, want) {
			t.Errorf("drawtext filter missing %q\n%s", want, f)
		}
	}
	if got := alphaExpr(timeline.SubtitleSegment{Start: 0, End: 1}); got != "1" {
		t.Errorf("alpha without fades = %q", got)
	}
}

func TestPickFont(t *testing.T) {
	out := `/usr/share/fonts/truetype/arphic/uming.ttc: AR PL UMing CN,AR PL UMing TW
/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc: Noto Sans CJK SC,Noto Sans CJK TC
`
	c := pickFont(out, true)
	if c.family != "Noto Sans CJK SC" || !strings.HasSuffix(c.file, "NotoSansCJK-Regular.ttc") {
		t.Errorf("pickFont preferred %+v", c)
	}

	c = pickFont("/fonts/uming.ttc: AR PL UMing CN\n", true)
	if c.family != "AR PL UMing CN" {
		t.Errorf("pickFont should take any CJK face, got %+v", c)
	}
	if c := pickFont("", true); c.family != "" {
		t.Errorf("empty listing gave %+v", c)
	}
}

func TestFontProberDegradesToDefault(t *testing.T) {
	p := NewFontProber(zaptest.NewLogger(t))
	p.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("fc-list: not found")
	}
	style := p.Resolve(context.Background(), DefaultSubtitleStyle(), true)
	if style.FontName != DefaultSubtitleStyle().FontName || style.FontFile != "" {
		t.Errorf("Resolve = %+v; want the default face", style)
	}

	calls := 0
	p = NewFontProber(zaptest.NewLogger(t))
	p.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls++
		return []byte("/f/NotoSansCJK.ttc: Noto Sans CJK JP\n"), nil
	}
	for i := 0; i < 3; i++ {
		style = p.Resolve(context.Background(), DefaultSubtitleStyle(), true)
	}
	if calls != 1 {
		t.Errorf("fc-list ran %d times; want 1", calls)
	}
	if style.FontName != "Noto Sans CJK JP" || style.FontFile != "/f/NotoSansCJK.ttc" {
		t.Errorf("Resolve = %+v", style)
	}
}
