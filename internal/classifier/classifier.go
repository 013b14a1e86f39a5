package classifier

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/width"
)

// Checker recognizes reservation notifications by brand markers in the subject
type Checker struct {
	markers []string
	logger  *zap.Logger
}

// NewChecker creates a new subject marker checker
func NewChecker(markers []string, logger *zap.Logger) *Checker {
	normalized := make([]string, 0, len(markers))
	for _, marker := range markers {
		m := fold(marker)
		if m == "" {
			continue
		}
		normalized = append(normalized, m)
	}

	if len(normalized) == 0 {
		logger.Warn("No subject markers configured, every mail will be skipped")
	} else {
		logger.Info("Initialized mail classifier", zap.Strings("markers", normalized))
	}

	return &Checker{
		markers: normalized,
		logger:  logger,
	}
}

// IsReservationNotification reports whether the subject carries one of the markers.
// Latin letters compare case-insensitively and full-width forms match their
// half-width equivalents.
func (c *Checker) IsReservationNotification(subject string) bool {
	s := fold(subject)
	if s == "" {
		return false
	}

	for _, marker := range c.markers {
		if strings.Contains(s, marker) {
			c.logger.Debug("Subject matched marker",
				zap.String("marker", marker),
				zap.String("subject", subject))
			return true
		}
	}

	return false
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(s)))
}
