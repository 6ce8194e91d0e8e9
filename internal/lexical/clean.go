package lexical

import (
	"strings"
	"unicode"
)

// strippedRunes are replaced with spaces before tokenizing: ASCII
// punctuation, typographic quotes and dashes, and digits. Apostrophes
// inside words survive so English contractions stay whole.
const strippedRunes = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~„“”«»†*—‐‘’0123456789"

// emojiRanges covers the Unicode blocks chat emoji live in, including
// pictographs, transport symbols, flags and skin tone modifiers.
var emojiRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2190, Hi: 0x21FF, Stride: 1},
		{Lo: 0x2300, Hi: 0x23FF, Stride: 1},
		{Lo: 0x24C2, Hi: 0x24C2, Stride: 1},
		{Lo: 0x25A0, Hi: 0x25FF, Stride: 1},
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1},
		{Lo: 0x2B00, Hi: 0x2BFF, Stride: 1},
		{Lo: 0x2900, Hi: 0x297F, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303D, Hi: 0x303D, Stride: 1},
		{Lo: 0x3297, Hi: 0x3299, Stride: 1},
		{Lo: 0xFE00, Hi: 0xFE0F, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1F0FF, Stride: 1},
		{Lo: 0x1F1E6, Hi: 0x1F1FF, Stride: 1},
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1},
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1},
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1},
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1},
		{Lo: 0x1FA70, Hi: 0x1FAFF, Stride: 1},
	},
}

// Tokenize lowercases a text and splits it into words, dropping
// punctuation, digits and emoji.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(strippedRunes, r):
			return ' '
		case unicode.Is(emojiRanges, r):
			return ' '
		default:
			return unicode.ToLower(r)
		}
	}, text)
	return strings.Fields(cleaned)
}
