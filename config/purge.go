package config

import (
	"strconv"
	"strings"

	"vehicle-tracker/utils"
)

// ParsePurge interprets the purge session parameter. Anything other than a
// recognizable boolean (including an empty value) disables purging with a
// warning.
func ParsePurge(raw string, logger *utils.Logger) bool {
	val := strings.TrimSpace(raw)
	purge, err := strconv.ParseBool(val)
	if err != nil {
		logger.Warn("[config] missing or invalid purge argument %q, defaulting to disabled", val)
		return false
	}
	return purge
}
