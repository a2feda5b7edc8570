package domain

import (
	"strings"
	"unicode/utf8"
)

// replacementChar stands in for bytes no text column accepts.
const replacementChar = "\uFFFD"

// StoredText turns upstream bytes into text every store accepts: invalid
// UTF-8 and NUL bytes become U+FFFD. A body cut at the read limit first loses
// the incomplete rune at its end.
func StoredText(b []byte, truncated bool) string {
	if truncated {
		b = trimPartialRune(b)
	}
	return cleanText(string(b))
}

// cleanText is StoredText for values that are already strings.
func cleanText(s string) string {
	if utf8.ValidString(s) && !strings.Contains(s, "\x00") {
		return s
	}
	s = strings.ToValidUTF8(s, replacementChar)
	return strings.ReplaceAll(s, "\x00", replacementChar)
}

// cleanHeaders returns a copy of h with names and values passed through cleanText.
func cleanHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[cleanText(k)] = cleanText(v)
	}
	return out
}

// trimPartialRune drops a multi-byte sequence cut short at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if !utf8.FullRune(b[i:]) {
			return b[:i]
		}
		return b
	}
	return b
}
