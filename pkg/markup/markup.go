// Package markup turns HTML fragments into plain text and counts their words.
package markup

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// StripHTML returns the text content of an HTML fragment with tags removed
// and character references decoded. Malformed markup is tolerated: the
// tokenizer recovers the same way browsers do.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF at the end of input, or unreadable input; either way stop
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// Normalize strips markup and puts the text in Unicode NFC form, so composed
// and decomposed spellings of a word count the same.
func Normalize(s string) string {
	return norm.NFC.String(StripHTML(s))
}

// CountWords counts maximal runs of letters, marks, digits and underscores
func CountWords(s string) int {
	return len(wordPattern.FindAllStringIndex(s, -1))
}
