package chunker

import (
	"strings"
	"unicode/utf8"
)

// separators is the split order, from most to least semantic: paragraph
// break, line break, sentence end, word boundary.
var separators = []string{"\n\n", "\n", ". ", " "}

// splitRecursive breaks text into segments no longer than budget runes.
// At each level it splits on one separator (keeping the separator attached,
// so concatenating the segments reproduces the input) and greedily packs
// pieces back together up to the budget. A piece that alone exceeds the
// budget recurses into the next, finer separator; past the last separator
// the text is hard-split by rune count.
func splitRecursive(text string, budget, depth int) []string {
	if utf8.RuneCountInString(text) <= budget {
		return []string{text}
	}
	if depth >= len(separators) {
		return hardSplit(text, budget)
	}

	parts := strings.SplitAfter(text, separators[depth])

	var segments []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			segments = append(segments, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, part := range parts {
		partLen := utf8.RuneCountInString(part)
		if partLen > budget {
			flush()
			segments = append(segments, splitRecursive(part, budget, depth+1)...)
			continue
		}
		if currentLen+partLen > budget {
			flush()
		}
		current.WriteString(part)
		currentLen += partLen
	}
	flush()

	return segments
}

// hardSplit cuts text into budget-sized rune windows.
func hardSplit(text string, budget int) []string {
	runes := []rune(text)
	var segments []string
	for start := 0; start < len(runes); start += budget {
		end := min(start+budget, len(runes))
		segments = append(segments, string(runes[start:end]))
	}
	return segments
}

// overlapTail returns the trailing n runes of text, snapped forward to the
// next word boundary so the overlap never starts mid-word.
func overlapTail(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return strings.TrimSpace(text)
	}

	tail := string(runes[len(runes)-n:])
	if idx := strings.IndexAny(tail, " \n\t"); idx >= 0 {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail)
}
