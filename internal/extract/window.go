package extract

import (
	"unicode/utf8"
)

// Window returns text[start-before : end+after], with the radius counted in runes
// and clamped to the text
func Window(text string, start, end, before, after int) string {
	if start < 0 || end > len(text) || start > end {
		return text
	}

	from := start
	for i := 0; i < before && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}

	to := end
	for i := 0; i < after && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}

	return text[from:to]
}
