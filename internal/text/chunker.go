package text

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// boundaryWindow is how far around a chunk's right edge we look for a
// sentence-ending punctuation mark before cutting mid-sentence.
const boundaryWindow = 50

var sentenceEndRe = regexp.MustCompile(`[.!?]\s`)

// Chunk splits s into overlapping, sentence-boundary-aware segments of at most
// maxChunkSize characters. Text that already fits comes back as a single
// segment. The next window starts overlap characters before the previous end,
// but always strictly after the previous start so degenerate parameters still
// terminate.
func Chunk(s string, maxChunkSize, overlap int) []string {
	if s == "" {
		return nil
	}
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if len(s) <= maxChunkSize {
		return []string{s}
	}

	var chunks []string
	start := 0

	for start < len(s) {
		end := start + maxChunkSize
		if end > len(s) {
			end = len(s)
		}
		end = runeFloor(s, end)

		// Mid-document edge: snap to the nearest sentence end within the
		// boundary window. No match means an exact cut at maxChunkSize.
		if end < len(s) {
			lo := end - boundaryWindow
			if lo < start {
				lo = start
			}
			hi := end + boundaryWindow
			if hi > len(s) {
				hi = len(s)
			}
			if loc := sentenceEndRe.FindStringIndex(s[lo:hi]); loc != nil {
				end = lo + loc[0] + 2 // include the punctuation and the space
			}
		}

		chunks = append(chunks, s[start:end])

		next := runeFloor(s, end-overlap)
		if next <= start {
			_, size := utf8.DecodeRuneInString(s[start:])
			next = start + size
		}
		if end >= len(s) {
			break
		}
		start = next
	}

	return chunks
}

// runeFloor backs i up to the nearest rune start so a slice at i never splits
// a multi-byte character.
func runeFloor(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// Truncate cuts s to at most n bytes on a rune boundary.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:runeFloor(s, n)]
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Clean collapses runs of whitespace (including newlines) into single spaces
// and trims the result, matching what the extension's content script expects
// the index to hold.
func Clean(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// ReadingTimeMinutes estimates reading time at a conservative 200 wpm,
// rounding up. Empty text reads in zero minutes.
func ReadingTimeMinutes(wordCount int) int {
	if wordCount <= 0 {
		return 0
	}
	return (wordCount + 199) / 200
}

// Excerpt returns the first n characters of s, appending an ellipsis when the
// text was actually cut.
func Excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return Truncate(s, n) + "..."
}
