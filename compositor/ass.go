package compositor

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"

	"moodcast/config"
	"moodcast/timeline"
)

// SubtitleStyle controls burned-in text for both compositing paths
type SubtitleStyle struct {
	FontName     string
	FontFile     string // drawtext only; ASS resolves FontName through fontconfig
	FontSize     int
	Outline      int
	MarginRatio  float64 // side margin per edge as a share of frame width
	BottomMargin int
}

// DefaultSubtitleStyle returns white outlined text at the bottom centre
func DefaultSubtitleStyle() SubtitleStyle {
	return SubtitleStyle{
		FontName:     config.DefaultFontName,
		FontSize:     config.SubtitleFontSize,
		Outline:      config.SubtitleOutline,
		MarginRatio:  config.SubtitleMarginRatio,
		BottomMargin: config.SubtitleBottomMargin,
	}
}

func (s SubtitleStyle) sideMargin(width int) int {
	return int(math.Round(float64(width) * s.MarginRatio))
}

var assTextEscaper = strings.NewReplacer(
	`\`, `/`,
	"{", "(",
	"}", ")",
	"\r\n", `\N`,
	"\n", `\N`,
)

// writeASS renders segments as an ASS script sized to the output frame.
// Each event fades in and out over its segment's fade window.
func writeASS(path string, segs []timeline.SubtitleSegment, width, height int, style SubtitleStyle) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)

	margin := style.sideMargin(width)
	fmt.Fprintln(w, "[Script Info]")
	fmt.Fprintln(w, "Title: moodcast")
	fmt.Fprintln(w, "ScriptType: v4.00+")
	fmt.Fprintln(w, "WrapStyle: 0")
	fmt.Fprintln(w, "ScaledBorderAndShadow: yes")
	fmt.Fprintf(w, "PlayResX: %d\n", width)
	fmt.Fprintf(w, "PlayResY: %d\n", height)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "[V4+ Styles]")
	fmt.Fprintln(w, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding")

	// Alignment 2 is bottom centre
	fmt.Fprintf(w, "Style: Default,%s,%d,&H00FFFFFF,&H00FFFFFF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,%d,1,2,%d,%d,%d,1\n",
		style.FontName, style.FontSize, style.Outline, margin, margin, style.BottomMargin)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "[Events]")
	fmt.Fprintln(w, "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text")

	for _, seg := range segs {
		fmt.Fprintf(w, "Dialogue: 0,%s,%s,Default,,0,0,0,,{\\fad(%d,%d)}%s\n",
			formatASSTimestamp(seg.Start),
			formatASSTimestamp(seg.End),
			int(math.Round(seg.FadeIn*1000)),
			int(math.Round(seg.FadeOut*1000)),
			assTextEscaper.Replace(seg.Text))
	}

	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// formatASSTimestamp converts seconds to ASS timestamp format (h:mm:ss.cc)
func formatASSTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	return fmt.Sprintf("%d:%02d:%02d.%02d", cs/360000, cs/6000%60, cs/100%60, cs%100)
}
