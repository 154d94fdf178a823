package timeline

import (
	"math"
	"strings"
	"unicode"
)

// Chunking selects how subtitle text is split into segments
type Chunking string

const (
	// ChunkWords gives every segment an equal share of D and ⌈W/S⌉ words
	ChunkWords Chunking = "words"
	// ChunkSentences breaks after sentence-final punctuation where possible
	// and allots time in proportion to each chunk's word count
	ChunkSentences Chunking = "sentences"
)

// ParseChunking maps a config value onto a Chunking; unknown values use words
func ParseChunking(v string) Chunking {
	if strings.EqualFold(strings.TrimSpace(v), string(ChunkSentences)) {
		return ChunkSentences
	}
	return ChunkWords
}

type token struct {
	text string
	cjk  bool
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// ContainsCJK reports whether s has any Han, Kana or Hangul runes
func ContainsCJK(s string) bool {
	for _, r := range s {
		if isCJK(r) {
			return true
		}
	}
	return false
}

// tokenize splits on whitespace; CJK runes count as one word each since
// those scripts do not separate words with spaces
func tokenize(text string) []token {
	var tokens []token
	for _, field := range strings.Fields(text) {
		var run []rune
		flush := func() {
			if len(run) > 0 {
				tokens = append(tokens, token{text: string(run)})
				run = run[:0]
			}
		}
		for _, r := range field {
			if isCJK(r) {
				flush()
				tokens = append(tokens, token{text: string(r), cjk: true})
				continue
			}
			if len(run) == 0 && len(tokens) > 0 && tokens[len(tokens)-1].cjk && unicode.IsPunct(r) {
				// trailing punctuation sticks to the preceding CJK rune
				tokens[len(tokens)-1].text += string(r)
				continue
			}
			run = append(run, r)
		}
		flush()
	}
	return tokens
}

func join(tokens []token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && !t.cjk && !tokens[i-1].cjk {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
	}
	return b.String()
}

// WordCount returns the number of subtitle words in text
func WordCount(text string) int { return len(tokenize(text)) }

// PlanSubtitles partitions [0, d] into subtitle segments. Empty text yields
// no segments.
func PlanSubtitles(text string, d, secondsPerSegment, fade float64, chunking Chunking) []SubtitleSegment {
	tokens := tokenize(text)
	if len(tokens) == 0 || !(d > 0) {
		return nil
	}
	if secondsPerSegment <= 0 {
		secondsPerSegment = 4
	}

	target := int(math.Max(1, math.Round(d/secondsPerSegment)))
	wordsPer := int(math.Ceil(float64(len(tokens)) / float64(target)))

	var segs []SubtitleSegment
	if chunking == ChunkSentences {
		segs = sentenceSegments(tokens, d, wordsPer)
	} else {
		segs = wordSegments(tokens, d, wordsPer)
	}

	for i := range segs {
		f := math.Min(fade, (segs[i].End-segs[i].Start)/4)
		if f < 0 {
			f = 0
		}
		segs[i].FadeIn, segs[i].FadeOut = f, f
	}
	return segs
}

func wordSegments(tokens []token, d float64, wordsPer int) []SubtitleSegment {
	count := (len(tokens) + wordsPer - 1) / wordsPer
	span := d / float64(count)

	segs := make([]SubtitleSegment, 0, count)
	for i := 0; i < count; i++ {
		lo := i * wordsPer
		hi := min(lo+wordsPer, len(tokens))
		end := float64(i+1) * span
		if i == count-1 {
			end = d
		}
		segs = append(segs, SubtitleSegment{
			Text:  join(tokens[lo:hi]),
			Start: float64(i) * span,
			End:   end,
		})
	}
	return segs
}

func sentenceSegments(tokens []token, d float64, wordsPer int) []SubtitleSegment {
	var chunks [][]token
	var cur []token
	for i, t := range tokens {
		cur = append(cur, t)
		if endsSentence(t.text) || len(cur) >= wordsPer || i == len(tokens)-1 {
			chunks = append(chunks, cur)
			cur = nil
		}
	}

	total := float64(len(tokens))
	segs := make([]SubtitleSegment, 0, len(chunks))
	seen := 0
	prev := 0.0
	for i, c := range chunks {
		seen += len(c)
		end := d * float64(seen) / total
		if i == len(chunks)-1 {
			end = d
		}
		segs = append(segs, SubtitleSegment{Text: join(c), Start: prev, End: end})
		prev = end
	}
	return segs
}

func endsSentence(word string) bool {
	rs := []rune(strings.TrimRight(word, `"')]}»”’`))
	if len(rs) == 0 {
		return false
	}
	switch rs[len(rs)-1] {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	}
	return false
}
