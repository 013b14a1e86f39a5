package extract

import (
	"regexp"
	"strings"

	"github.com/bitspace/salon-mail-ingest/internal/core"
	"go.uber.org/zap"
)

var (
	// 鯵坂 里保(アジサカ リホ), full-width parentheses and spaces accepted
	nameWithKanaPattern = regexp.MustCompile(
		`([^\s\x{3000}(（]+)[\s\x{3000}]+([^(（]+?)[\s\x{3000}]*[(（]\s*([^\s\x{3000})）]+)[\s\x{3000}]+([^)）]+?)\s*[)）]`)
	parentheticalPattern = regexp.MustCompile(`[(（][^)）]*[)）]`)
)

const honorific = "様"

// NameExtractor finds and splits the customer name
type NameExtractor struct {
	labels   *LabelExtractor
	synonyms []string
	logger   *zap.Logger
}

// NewNameExtractor creates a new name extractor
func NewNameExtractor(labels *LabelExtractor, opts Options, logger *zap.Logger) *NameExtractor {
	return &NameExtractor{
		labels:   labels,
		synonyms: opts.Labels.Name,
		logger:   logger,
	}
}

// ExtractName locates the name line and splits it
func (x *NameExtractor) ExtractName(text string) *core.CustomerName {
	line, ok := x.labels.FindValue(text, x.synonyms...)
	if !ok {
		return nil
	}

	name := ParseName(line)
	if name == nil {
		x.logger.Warn("Could not split customer name", zap.String("raw_line", line))
	}
	return name
}

// ParseName splits "姓 名(セイ メイ)" or, without kana, "姓 名"
func ParseName(line string) *core.CustomerName {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if m := nameWithKanaPattern.FindStringSubmatch(line); m != nil {
		lastKana := strings.TrimSpace(m[3])
		firstKana := strings.TrimSpace(m[4])
		return &core.CustomerName{
			LastName:      strings.TrimSpace(m[1]),
			FirstName:     trimHonorific(m[2]),
			LastNameKana:  &lastKana,
			FirstNameKana: &firstKana,
		}
	}

	plain := parentheticalPattern.ReplaceAllString(line, " ")
	parts := strings.Fields(plain)
	if len(parts) > 0 && parts[len(parts)-1] == honorific {
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 2 {
		return nil
	}

	return &core.CustomerName{
		LastName:  parts[0],
		FirstName: trimHonorific(parts[1]),
	}
}

func trimHonorific(s string) string {
	s = strings.TrimSpace(s)
	if trimmed := strings.TrimSpace(strings.TrimSuffix(s, honorific)); trimmed != "" {
		return trimmed
	}
	return s
}
