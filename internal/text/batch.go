package text

import (
	"strings"
	"unicode/utf8"
)

// Span is a half-open range [From, To) of row positions belonging to one
// batch. Positions are global, so per-batch correlation ids (0-based within
// the batch) map back to From+id.
type Span struct {
	From int
	To   int
}

// SplitSpans partitions n rows into batches of at most max rows each,
// preserving order. max <= 0 means a single batch.
func SplitSpans(n, max int) []Span {
	if n <= 0 {
		return nil
	}
	if max <= 0 || max >= n {
		return []Span{{From: 0, To: n}}
	}
	spans := make([]Span, 0, (n+max-1)/max)
	for from := 0; from < n; from += max {
		to := from + max
		if to > n {
			to = n
		}
		spans = append(spans, Span{From: from, To: to})
	}
	return spans
}

// Clamp trims text to at most maxChars runes. The analytics service rejects
// oversized documents outright; trimming client side keeps the rest of the
// row usable. When a space falls in the last tenth of the budget the cut
// happens there so a word is not split. maxChars <= 0 disables clamping.
func Clamp(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	cut := string([]rune(text)[:maxChars])
	if idx := strings.LastIndexByte(cut, ' '); idx >= len(cut)*9/10 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ")
}
