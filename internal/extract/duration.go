package extract

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// 1時間30分 / 2時間; the leading group keeps "100時間" from reading as "00時間"
var hoursMinutesPattern = regexp.MustCompile(`(?:^|[^\d])(\d{1,2})\s*時間(?:\s*(\d{1,2})\s*分)?`)

// DurationExtractor finds the service duration in minutes
type DurationExtractor struct {
	labeled *regexp.Regexp
	min     int
	max     int
	logger  *zap.Logger
}

// NewDurationExtractor creates a new duration extractor
func NewDurationExtractor(opts Options, logger *zap.Logger) *DurationExtractor {
	x := &DurationExtractor{
		min:    opts.MinDuration,
		max:    opts.MaxDuration,
		logger: logger,
	}

	quoted := make([]string, 0, len(opts.Labels.Duration))
	for _, label := range opts.Labels.Duration {
		if label != "" {
			quoted = append(quoted, regexp.QuoteMeta(label))
		}
	}
	if len(quoted) > 0 {
		// label, up to a short run of non-digits (e.g. "目安："), then minutes
		x.labeled = regexp.MustCompile(
			`(?i)(?:` + strings.Join(quoted, "|") + `)[^\d\n]{0,20}?(\d{1,3})\s*(?:分|min)`)
	}

	return x
}

// ExtractMinutes returns the duration. Values outside the configured bounds are
// treated as mis-extractions and skipped.
func (x *DurationExtractor) ExtractMinutes(text string) (int, bool) {
	if x.labeled != nil {
		for _, m := range x.labeled.FindAllStringSubmatch(text, -1) {
			if minutes, err := strconv.Atoi(m[1]); err == nil && x.reasonable(minutes) {
				return minutes, true
			}
		}
	}

	for _, m := range hoursMinutesPattern.FindAllStringSubmatch(text, -1) {
		hours, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		minutes := 0
		if m[2] != "" {
			if minutes, err = strconv.Atoi(m[2]); err != nil {
				continue
			}
		}
		if total := hours*60 + minutes; x.reasonable(total) {
			return total, true
		}
	}

	return 0, false
}

func (x *DurationExtractor) reasonable(minutes int) bool {
	if minutes < x.min || minutes > x.max {
		x.logger.Debug("Discarding implausible duration", zap.Int("minutes", minutes))
		return false
	}
	return true
}
