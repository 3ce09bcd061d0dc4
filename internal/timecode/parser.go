// Package timecode extracts bracketed clock-time markers such as [2:15] or
// [1:02:03] from summary text so they can be mapped to playback positions.
package timecode

import (
	"regexp"
	"strconv"
	"strings"
)

// pattern matches [M:SS], [MM:SS], [H:MM:SS], and [HH:MM:SS]. Anything with
// a different digit-group shape falls through as literal text.
var pattern = regexp.MustCompile(`\[(\d{1,2}):(\d{2})(?::(\d{2}))?\]`)

// Token is one span of parsed text. Raw always holds the exact input
// substring, so concatenating all tokens reproduces the input verbatim.
// Seconds is meaningful only when IsTimecode is true.
type Token struct {
	Raw        string
	Seconds    int
	IsTimecode bool
}

// Parse splits text into literal and timecode tokens, preserving order and
// exact substring content. Empty input yields no tokens; input without
// matches yields a single literal token. Parse never fails.
func Parse(text string) []Token {
	if text == "" {
		return nil
	}

	matches := pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []Token{{Raw: text}}
	}

	tokens := make([]Token, 0, len(matches)*2+1)
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > last {
			tokens = append(tokens, Token{Raw: text[last:start]})
		}
		tokens = append(tokens, Token{
			Raw:        text[start:end],
			Seconds:    resolveSeconds(text, m),
			IsTimecode: true,
		})
		last = end
	}
	if last < len(text) {
		tokens = append(tokens, Token{Raw: text[last:]})
	}
	return tokens
}

// resolveSeconds converts the matched digit groups into absolute seconds.
// Two groups mean MM:SS, three mean H:MM:SS.
func resolveSeconds(text string, m []int) int {
	first := mustAtoi(text[m[2]:m[3]])
	second := mustAtoi(text[m[4]:m[5]])
	if m[6] < 0 {
		return first*60 + second
	}
	third := mustAtoi(text[m[6]:m[7]])
	return first*3600 + second*60 + third
}

// mustAtoi converts a digit-only substring already validated by the regexp.
func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Display formats seconds back into the canonical [MM:SS] or [H:MM:SS] form.
func Display(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	var b strings.Builder
	b.WriteByte('[')
	if h > 0 {
		b.WriteString(strconv.Itoa(h))
		b.WriteByte(':')
		b.WriteString(pad2(m))
	} else {
		b.WriteString(strconv.Itoa(m))
	}
	b.WriteByte(':')
	b.WriteString(pad2(s))
	b.WriteByte(']')
	return b.String()
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
