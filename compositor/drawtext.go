package compositor

import (
	"fmt"
	"strings"
	"unicode"

	"moodcast/timeline"
)

// filterQuote wraps v in single quotes for a filtergraph option value
func filterQuote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

func ffNum(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// drawtextFilter renders one subtitle segment whose wrapped text lives in
// textFile. Visibility is keyed on the segment window and alpha ramps over
// the fade margins from the elapsed time.
func drawtextFilter(seg timeline.SubtitleSegment, textFile string, style SubtitleStyle) string {
	opts := []string{
		"textfile=" + filterQuote(textFile),
		"expansion=none",
	}
	if style.FontFile != "" {
		opts = append(opts, "fontfile="+filterQuote(style.FontFile))
	} else {
		opts = append(opts, "font="+filterQuote(style.FontName))
	}
	opts = append(opts,
		fmt.Sprintf("fontsize=%d", style.FontSize),
		"fontcolor=white",
		fmt.Sprintf("borderw=%d", style.Outline),
		"bordercolor=black",
		"line_spacing=8",
		"x=(w-text_w)/2",
		fmt.Sprintf("y=h-text_h-%d", style.BottomMargin),
		"enable="+filterQuote(fmt.Sprintf("between(t,%s,%s)", ffNum(seg.Start), ffNum(seg.End))),
		"alpha="+filterQuote(alphaExpr(seg)),
	)
	return "drawtext=" + strings.Join(opts, ":")
}

func alphaExpr(seg timeline.SubtitleSegment) string {
	s, e := ffNum(seg.Start), ffNum(seg.End)
	in, out := seg.FadeIn, seg.FadeOut
	switch {
	case in > 0 && out > 0:
		return fmt.Sprintf("if(lt(t,%s+%s),(t-%s)/%s,if(gt(t,%s-%s),(%s-t)/%s,1))",
			s, ffNum(in), s, ffNum(in), e, ffNum(out), e, ffNum(out))
	case in > 0:
		return fmt.Sprintf("if(lt(t,%s+%s),(t-%s)/%s,1)", s, ffNum(in), s, ffNum(in))
	case out > 0:
		return fmt.Sprintf("if(gt(t,%s-%s),(%s-t)/%s,1)", e, ffNum(out), e, ffNum(out))
	default:
		return "1"
	}
}

func isWide(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) ||
		(r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFFEF)
}

func glyphWidth(r rune, fontSize int) float64 {
	if isWide(r) {
		return float64(fontSize)
	}
	return 0.55 * float64(fontSize)
}

func measure(line []rune, fontSize int) float64 {
	w := 0.0
	for _, r := range line {
		w += glyphWidth(r, fontSize)
	}
	return w
}

func lastSpace(line []rune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i] == ' ' {
			return i
		}
	}
	return -1
}

// wrapText breaks text into lines no wider than maxWidth pixels, estimated
// from the font size. Latin text breaks at spaces; wide glyphs break anywhere.
func wrapText(text string, maxWidth float64, fontSize int) string {
	var lines []string
	var line []rune
	for _, r := range strings.Join(strings.Fields(text), " ") {
		if len(line) > 0 && measure(line, fontSize)+glyphWidth(r, fontSize) > maxWidth {
			if sp := lastSpace(line); sp > 0 && r != ' ' && !isWide(r) {
				lines = append(lines, string(line[:sp]))
				line = append([]rune(nil), line[sp+1:]...)
			} else {
				lines = append(lines, strings.TrimRight(string(line), " "))
				line = nil
			}
		}
		if r == ' ' && len(line) == 0 {
			continue
		}
		line = append(line, r)
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return strings.Join(lines, "\n")
}
