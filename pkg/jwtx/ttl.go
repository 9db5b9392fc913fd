package jwtx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseTTL parses a token lifetime such as "15m", "1h30m", "7d" or "2w".
// It accepts everything time.ParseDuration does plus whole day and week
// units. The result must be positive.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("jwtx: empty ttl")
	}

	var unit time.Duration
	switch {
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
	}

	var d time.Duration
	if unit != 0 {
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, fmt.Errorf("jwtx: invalid ttl %q: %w", s, err)
		}
		if int64(n) > math.MaxInt64/int64(unit) || int64(n) < math.MinInt64/int64(unit) {
			return 0, fmt.Errorf("jwtx: ttl %q out of range", s)
		}
		d = time.Duration(n) * unit
	} else {
		var err error
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("jwtx: invalid ttl %q: %w", s, err)
		}
	}

	if d <= 0 {
		return 0, fmt.Errorf("jwtx: ttl must be positive, got %q", s)
	}
	return d, nil
}
