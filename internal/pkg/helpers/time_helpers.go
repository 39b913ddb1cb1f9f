package helpers

import (
	"time"

	"github.com/machus/backend/internal/pkg/logger"
)

// ParseDuration parses a configured duration, falling back to def when value is malformed.
func ParseDuration(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn().Err(err).Str("value", value).Dur("default", def).Msg("Invalid duration, using default")
		return def
	}
	return d
}
