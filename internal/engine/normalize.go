package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// The audit log mixes operator-authored French and English phrasing, so all
// keyword matching runs on lowercased, diacritic-free text.

// fold lowercases s and strips diacritics.
func fold(s string) string {
	folded, _ := foldWithOffsets(s)
	return folded
}

// foldWithOffsets folds s and returns, per folded byte, the byte offset of
// the originating rune in s. The offsets let callers locate a folded match
// back in the original text without losing accents or casing.
func foldWithOffsets(s string) (string, []int) {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	var b strings.Builder
	offsets := make([]int, 0, len(s))
	for i, r := range s {
		out, _, err := transform.String(stripMarks, string(r))
		if err != nil || out == "" {
			out = string(r)
		}
		out = strings.ToLower(out)
		b.WriteString(out)
		for j := 0; j < len(out); j++ {
			offsets = append(offsets, i)
		}
	}
	return b.String(), offsets
}

// foldSpan locates marker in s ignoring case and accents. It returns the
// original-byte start and end of the match, or (-1, -1) when absent.
func foldSpan(s, marker string) (int, int) {
	folded, offsets := foldWithOffsets(s)
	foldedMarker := fold(marker)
	idx := strings.Index(folded, foldedMarker)
	if idx < 0 {
		return -1, -1
	}
	end := idx + len(foldedMarker)
	start := offsets[idx]
	if end >= len(offsets) {
		return start, len(s)
	}
	return start, offsets[end]
}

// containsFold reports whether folded text contains the folded marker.
func containsFold(s, marker string) bool {
	return strings.Contains(fold(s), fold(marker))
}

func containsAny(folded string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(folded string, prefixes []string) bool {
	trimmed := strings.TrimLeft(folded, " \t")
	for _, prefix := range prefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func equalFoldName(a, b string) bool {
	return a != "" && b != "" && fold(strings.TrimSpace(a)) == fold(strings.TrimSpace(b))
}
