package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// runes that may precede a label on its line besides block markers
	labelPrefixRunes = "・●○◎★☆【[(<"
	// runes that may close a bracketed label
	labelCloseRunes = "】])>"
	// runes stripped from the start of a value
	valueLeadRunes = "・-—–:："
)

// LabelExtractor finds values that follow loosely formatted labels.
// A value is either on the label's own line ("予約番号：BE1") or in the block
// of lines below it, which ends at the next line starting with a block marker.
type LabelExtractor struct {
	markers string
}

// NewLabelExtractor creates a label extractor using the given block marker runes
func NewLabelExtractor(markers string) *LabelExtractor {
	return &LabelExtractor{markers: markers}
}

// FindValue returns the first usable value for any of the labels, tried in order
func (e *LabelExtractor) FindValue(text string, labels ...string) (string, bool) {
	return e.FindValueFunc(text, acceptAny, labels...)
}

// FindValueFunc is FindValue with a validator. accept may rewrite the value;
// rejected values move the search on to the next occurrence or label.
func (e *LabelExtractor) FindValueFunc(text string, accept func(string) (string, bool), labels ...string) (string, bool) {
	var (
		found string
		ok    bool
	)
	e.scan(text, labels, func(sameLine string, block []string) bool {
		candidate := sameLine
		if candidate == "" && len(block) > 0 {
			candidate = block[0]
		}
		if candidate == "" {
			return false
		}
		found, ok = accept(candidate)
		return ok
	})
	return found, ok
}

// FindBlock returns every line of the value block, joined by newlines.
// A same-line value is returned on its own.
func (e *LabelExtractor) FindBlock(text string, labels ...string) (string, bool) {
	var found string
	e.scan(text, labels, func(sameLine string, block []string) bool {
		switch {
		case sameLine != "":
			found = sameLine
		case len(block) > 0:
			found = strings.Join(block, "\n")
		default:
			return false
		}
		return true
	})
	return found, found != ""
}

// Locate returns the byte span of the first occurrence of the first label present
func (e *LabelExtractor) Locate(text string, labels ...string) (int, int, bool) {
	for _, label := range labels {
		if label == "" {
			continue
		}
		if idx := strings.Index(text, label); idx >= 0 {
			return idx, idx + len(label), true
		}
	}
	return 0, 0, false
}

// LineAfter returns the trimmed rest of the line following the first located label
func (e *LabelExtractor) LineAfter(text string, labels ...string) string {
	_, end, ok := e.Locate(text, labels...)
	if !ok {
		return ""
	}
	rest := text[end:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		if line := strings.TrimSpace(rest[:nl]); line != "" {
			return line
		}
		rest = rest[nl+1:]
		if nl2 := strings.IndexByte(rest, '\n'); nl2 >= 0 {
			rest = rest[:nl2]
		}
	}
	return strings.TrimSpace(rest)
}

// scan visits every qualifying label occurrence in label order, then document
// order, until visit returns true. A heading with no value on its line or
// below ends the scan: the field is present but empty.
func (e *LabelExtractor) scan(text string, labels []string, visit func(sameLine string, block []string) bool) {
	if strings.TrimSpace(text) == "" {
		return
	}

	for _, label := range labels {
		if label == "" {
			continue
		}
		for offset := 0; offset < len(text); {
			idx := strings.Index(text[offset:], label)
			if idx < 0 {
				break
			}
			start := offset + idx
			end := start + len(label)
			offset = end

			if shadowed(text, start, label, labels) {
				continue
			}

			lineStart := strings.LastIndexByte(text[:start], '\n') + 1
			lineEnd := len(text)
			if nl := strings.IndexByte(text[end:], '\n'); nl >= 0 {
				lineEnd = end + nl
			}

			heading := e.isLabelPrefix(text[lineStart:start])
			rest, hasColon, bounded := splitSeparator(text[end:lineEnd])
			if !hasColon && !(heading && bounded) {
				// label text inside a sentence or a longer word
				continue
			}

			sameLine := e.cleanValue(rest)
			var block []string
			if sameLine == "" && lineEnd < len(text) {
				block = e.block(text[lineEnd+1:])
			}
			if sameLine == "" && len(block) == 0 && heading {
				return
			}

			if visit(sameLine, block) {
				return
			}
		}
	}
}

// shadowed reports whether a longer label containing label also matches at start
func shadowed(text string, start int, label string, labels []string) bool {
	for _, other := range labels {
		if len(other) <= len(label) {
			continue
		}
		k := strings.Index(other, label)
		if k < 0 || start < k {
			continue
		}
		if strings.HasPrefix(text[start-k:], other) {
			return true
		}
	}
	return false
}

// block collects value lines up to the next marker line or a blank line after content
func (e *LabelExtractor) block(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(lines) > 0 {
				break
			}
			continue
		}
		if e.startsWithMarker(trimmed) {
			break
		}
		if v := e.cleanValue(trimmed); v != "" {
			lines = append(lines, v)
		}
	}
	return lines
}

func (e *LabelExtractor) isLabelPrefix(prefix string) bool {
	for _, r := range prefix {
		if unicode.IsSpace(r) || strings.ContainsRune(e.markers, r) || strings.ContainsRune(labelPrefixRunes, r) {
			continue
		}
		return false
	}
	return true
}

func (e *LabelExtractor) startsWithMarker(line string) bool {
	for _, r := range line {
		return strings.ContainsRune(e.markers, r)
	}
	return false
}

// cleanValue trims separators and rejects values that are only marker glyphs.
// A value made only of separators, such as "-", is kept as written.
func (e *LabelExtractor) cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.TrimFunc(v, func(r rune) bool { return strings.ContainsRune(e.markers, r) || unicode.IsSpace(r) }) == "" {
		return ""
	}
	cleaned := strings.TrimLeftFunc(v, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(valueLeadRunes, r)
	})
	if cleaned == "" {
		return v
	}
	return strings.TrimSpace(cleaned)
}

// isPlaceholder reports whether v holds nothing but separators
func isPlaceholder(v string) bool {
	return strings.TrimFunc(v, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(valueLeadRunes, r)
	}) == ""
}

// splitSeparator strips a closing bracket and an optional colon after a label.
// bounded is false when the label runs straight into more text, as in "メニュー名".
func splitSeparator(rest string) (string, bool, bool) {
	closed := strings.TrimLeftFunc(rest, func(r rune) bool {
		return strings.ContainsRune(labelCloseRunes, r)
	})
	trimmed := strings.TrimLeft(closed, " \t")
	for _, colon := range []string{":", "："} {
		if strings.HasPrefix(trimmed, colon) {
			return trimmed[len(colon):], true, true
		}
	}
	first, _ := utf8.DecodeRuneInString(closed)
	bounded := closed == "" || len(closed) < len(rest) || unicode.IsSpace(first)
	return closed, false, bounded
}

func acceptAny(v string) (string, bool) {
	return v, true
}
