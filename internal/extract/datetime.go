package extract

import (
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"
)

var (
	// 2026年01月11日(日)11:15, day-of-week optional
	longDatePattern = regexp.MustCompile(
		`(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日\s*(?:[(（][^()（）\n]{1,4}[)）])?\s*(\d{1,2})\s*[:：時]\s*(\d{2})`)
	// 2026/01/11 11:15 or 2026-01-11 11:15
	numericDatePattern = regexp.MustCompile(
		`(\d{4})\s*[/\-]\s*(\d{1,2})\s*[/\-]\s*(\d{1,2})\s*(?:[(（][^()（）\n]{1,4}[)）])?\s+(\d{1,2})\s*[:：]\s*(\d{2})`)
)

// DateTimeExtractor finds the visit start time near a visit label
type DateTimeExtractor struct {
	labels   *LabelExtractor
	synonyms []string
	before   int
	after    int
	location *time.Location
	logger   *zap.Logger
}

// NewDateTimeExtractor creates a new date-time extractor
func NewDateTimeExtractor(labels *LabelExtractor, opts Options, logger *zap.Logger) *DateTimeExtractor {
	loc := opts.Location
	if loc == nil {
		loc = DefaultLocation()
	}
	return &DateTimeExtractor{
		labels:   labels,
		synonyms: opts.Labels.VisitDateTime,
		before:   opts.WindowBefore,
		after:    opts.WindowAfter,
		location: loc,
		logger:   logger,
	}
}

// ExtractStart returns the visit start. The window around the visit label is
// searched first, then the whole text.
func (x *DateTimeExtractor) ExtractStart(text string) (time.Time, bool) {
	if start, end, ok := x.labels.Locate(text, x.synonyms...); ok {
		if t, ok := x.parse(Window(text, start, end, x.before, x.after)); ok {
			return t, true
		}
	}

	if t, ok := x.parse(text); ok {
		return t, true
	}

	x.logger.Warn("Could not parse visit date-time",
		zap.String("raw_line", x.labels.LineAfter(text, x.synonyms...)))
	return time.Time{}, false
}

func (x *DateTimeExtractor) parse(s string) (time.Time, bool) {
	for _, pattern := range []*regexp.Regexp{longDatePattern, numericDatePattern} {
		for _, m := range pattern.FindAllStringSubmatch(s, -1) {
			if t, ok := x.build(m[1:]); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// build turns year, month, day, hour, minute strings into a time, rejecting
// values that do not name a real calendar instant
func (x *DateTimeExtractor) build(parts []string) (time.Time, bool) {
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}
	year, month, day, hour, minute := nums[0], nums[1], nums[2], nums[3], nums[4]

	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, x.location)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
