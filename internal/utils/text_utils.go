package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/width"
)

var (
	lineBreakTagPattern = regexp.MustCompile(`(?i)<br\s*/?>|</p\s*>`)
	htmlTagPattern      = regexp.MustCompile(`<[!/]?[A-Za-z][^<>]*>`)
)

// TextProcessor provides utilities for processing mail text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// Normalize canonicalizes a raw mail body for pattern matching.
// The result is stable: Normalize(Normalize(s)) == Normalize(s).
func (tp *TextProcessor) Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	s := tp.SanitizeUTF8(raw)

	// Full-width ASCII variants and the ideographic space become half-width
	// before tag handling so that full-width angle brackets are treated alike.
	s = width.Fold.String(s)

	s = stripTags(s)

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = collapseHorizontalSpace(line)
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// stripTags turns line-breaking tags into newlines and drops the rest,
// repeating until no tag-shaped text remains
func stripTags(s string) string {
	for {
		next := lineBreakTagPattern.ReplaceAllString(s, "\n")
		next = htmlTagPattern.ReplaceAllString(next, "")
		if next == s {
			return s
		}
		s = next
	}
}

// collapseHorizontalSpace squeezes whitespace runs to one space and trims the line
func collapseHorizontalSpace(line string) string {
	var sb strings.Builder
	sb.Grow(len(line))
	pending := false
	for _, r := range line {
		if unicode.IsSpace(r) {
			pending = sb.Len() > 0
			continue
		}
		if pending {
			sb.WriteByte(' ')
			pending = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]

	// Drop the trailing partial rune, if any
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... truncated ...]"
}

// SanitizeUTF8 drops invalid UTF-8 byte sequences
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// ProcessText sanitizes and truncates text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.TruncateText(tp.SanitizeUTF8(text), maxSize)
}
