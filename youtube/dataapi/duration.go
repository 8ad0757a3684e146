package dataapi

import (
	"fmt"
	"strconv"
	"time"
)

// parseDuration parses the ISO-8601 durations the API uses for videos,
// e.g. "PT4M13S", "PT1H2M", "P1DT2H". Years, months and weeks are not
// used by the API and are rejected.
func parseDuration(s string) (time.Duration, error) {
	if len(s) < 2 || s[0] != 'P' {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	var (
		total   time.Duration
		inTime  bool
		num     string
		sawUnit bool
	)
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			num += string(c)
		case c == 'T':
			if inTime || num != "" {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			inTime = true
		default:
			if num == "" {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			unit, ok := durationUnit(c, inTime)
			if !ok {
				return 0, fmt.Errorf("invalid duration %q: unit %q", s, c)
			}
			total += time.Duration(n) * unit
			num = ""
			sawUnit = true
		}
	}
	if num != "" || !sawUnit {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return total, nil
}

func durationUnit(c byte, inTime bool) (time.Duration, bool) {
	if !inTime {
		if c == 'D' {
			return 24 * time.Hour, true
		}
		return 0, false
	}
	switch c {
	case 'H':
		return time.Hour, true
	case 'M':
		return time.Minute, true
	case 'S':
		return time.Second, true
	}
	return 0, false
}
