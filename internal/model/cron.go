package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// cronBase is a fixed reference point so the computed period does not
// depend on the wall clock.
var cronBase = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseCron validates a standard 5 field cron expression (descriptors like
// @hourly and @every are accepted too) and returns the period between two
// consecutive activations.
func ParseCron(spec string) (time.Duration, error) {
	if strings.TrimSpace(spec) == "" {
		return 0, errors.New("empty cron expression")
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return 0, err
	}
	first := sched.Next(cronBase)
	second := sched.Next(first)
	if first.IsZero() || second.IsZero() {
		return 0, fmt.Errorf("cron expression %q never fires", spec)
	}
	return second.Sub(first), nil
}

var errInvalidISODuration = errors.New("invalid ISO-8601 duration")

// ParseISODuration parses the day and time subset of ISO-8601 durations,
// e.g. P2DT3H4M or PT1.5S. Years, months and weeks are rejected because
// they have no fixed length. Either the whole duration or its components
// may carry a sign, not both.
func ParseISODuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, errInvalidISODuration
	}
	var neg bool
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	rest, ok := strings.CutPrefix(s, "P")
	if !ok || rest == "" {
		return 0, errInvalidISODuration
	}

	datePart, timePart, hasT := strings.Cut(rest, "T")
	if hasT && timePart == "" {
		return 0, errInvalidISODuration
	}

	var total time.Duration
	if datePart != "" {
		d, units, err := parseISOPart(datePart, "DHM", neg)
		if err != nil {
			return 0, err
		}
		// without the time designator, M means months unless hours precede it
		if strings.ContainsRune(units, 'M') && !strings.ContainsRune(units, 'H') {
			return 0, errInvalidISODuration
		}
		total += d
	}
	if hasT {
		d, _, err := parseISOPart(timePart, "HMS", neg)
		if err != nil {
			return 0, err
		}
		total += d
	}

	if neg {
		total = -total
	}
	return total, nil
}

// parseISOPart parses a sequence of [sign]digits[fraction]unit components.
// Units must appear in the order given by allowed, each at most once.
func parseISOPart(s string, allowed string, outerSign bool) (time.Duration, string, error) {
	var total time.Duration
	var seen strings.Builder
	last := -1
	for s != "" {
		var neg bool
		switch s[0] {
		case '-', '+':
			if outerSign {
				return 0, "", errInvalidISODuration
			}
			neg = s[0] == '-'
			s = s[1:]
		}

		i := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 0 {
			return 0, "", errInvalidISODuration
		}
		whole := s[:i]
		s = s[i:]

		var frac string
		if s != "" && (s[0] == '.' || s[0] == ',') {
			s = s[1:]
			j := 0
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			if j == 0 || j > 9 {
				return 0, "", errInvalidISODuration
			}
			frac = s[:j]
			s = s[j:]
		}

		if s == "" {
			return 0, "", errInvalidISODuration
		}
		unit := s[0]
		s = s[1:]
		idx := strings.IndexByte(allowed, unit)
		if idx <= last {
			return 0, "", errInvalidISODuration
		}
		last = idx
		if frac != "" && unit != 'S' {
			return 0, "", errInvalidISODuration
		}

		d, err := isoComponent(whole, frac, unit)
		if err != nil {
			return 0, "", err
		}
		if neg {
			d = -d
		}
		total += d
		seen.WriteByte(unit)
	}
	return total, seen.String(), nil
}

func isoComponent(whole, frac string, unit byte) (time.Duration, error) {
	var n int64
	for _, c := range whole {
		n = n*10 + int64(c-'0')
		if n < 0 {
			return 0, errInvalidISODuration
		}
	}
	var mul time.Duration
	switch unit {
	case 'D':
		mul = 24 * time.Hour
	case 'H':
		mul = time.Hour
	case 'M':
		mul = time.Minute
	case 'S':
		mul = time.Second
	default:
		return 0, errInvalidISODuration
	}
	d := time.Duration(n) * mul
	if frac != "" {
		frac += strings.Repeat("0", 9-len(frac))
		var nanos int64
		for _, c := range frac {
			nanos = nanos*10 + int64(c-'0')
		}
		d += time.Duration(nanos)
	}
	return d, nil
}
