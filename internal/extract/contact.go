package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var (
	phonePattern = regexp.MustCompile(`\+?\d[\d\-‐―−ー ()]{8,16}\d`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneDashes  = strings.NewReplacer("‐", "-", "―", "-", "−", "-", "ー", "-", " ", "", "(", "", ")", "")
)

// ContactExtractor finds the customer's phone number and e-mail address
type ContactExtractor struct {
	labels      *LabelExtractor
	phoneLabels []string
	emailLabels []string
}

// NewContactExtractor creates a new contact extractor
func NewContactExtractor(labels *LabelExtractor, opts Options) *ContactExtractor {
	return &ContactExtractor{
		labels:      labels,
		phoneLabels: opts.Labels.Phone,
		emailLabels: opts.Labels.Email,
	}
}

// ExtractPhone returns a labeled phone number containing only digits and hyphens
func (x *ContactExtractor) ExtractPhone(text string) (string, bool) {
	return x.labels.FindValueFunc(text, ParsePhone, x.phoneLabels...)
}

// ExtractEmail returns a labeled e-mail address
func (x *ContactExtractor) ExtractEmail(text string) (string, bool) {
	return x.labels.FindValueFunc(text, ParseEmail, x.emailLabels...)
}

// ParsePhone pulls a phone number out of a value. Domestic numbers must have
// 10 or 11 digits and start with 0.
func ParsePhone(value string) (string, bool) {
	m := phonePattern.FindString(width.Fold.String(value))
	if m == "" {
		return "", false
	}

	phone := phoneDashes.Replace(m)
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	switch {
	case strings.HasPrefix(phone, "+"):
		if len(digits) < 10 || len(digits) > 15 {
			return "", false
		}
	case !strings.HasPrefix(digits, "0") || len(digits) < 10 || len(digits) > 11:
		return "", false
	}

	return phone, true
}

// ParseEmail pulls an e-mail address out of a value
func ParseEmail(value string) (string, bool) {
	m := emailPattern.FindString(width.Fold.String(value))
	return m, m != ""
}
