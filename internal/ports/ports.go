// Package ports turns textual port specifications like "22,80,8000-8100"
// into port numbers.
package ports

import (
	"strconv"
	"strings"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// Parse expands a comma separated list of ports and start-end ranges.
// Malformed segments and ranges with start > end are skipped, ports outside
// 1-65535 are dropped. The result keeps the input order and may contain
// duplicates. Parse never fails, it returns an empty slice at worst.
func Parse(spec string) []int {
	ret := []int{}
	for segment := range strings.SplitSeq(spec, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(segment, "-")
		if !isRange {
			n, ok := atoi(segment)
			if ok && n >= MinPort && n <= MaxPort {
				ret = append(ret, n)
			}
			continue
		}

		start, ok1 := atoi(lo)
		end, ok2 := atoi(hi)
		if !ok1 || !ok2 || start > end {
			continue
		}
		start = max(start, MinPort)
		end = min(end, MaxPort)
		for port := start; port <= end; port++ {
			ret = append(ret, port)
		}
	}
	return ret
}

// Format renders ports as a comma separated list of singletons, which Parse
// reads back unchanged.
func Format(ports []int) string {
	var sb strings.Builder
	for i, port := range ports {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(port))
	}
	return sb.String()
}

// ValidChars reports whether spec consists only of digits, commas, dashes
// and spaces. It is a cheap syntax gate for user input; Parse still drops
// whatever it can't use.
func ValidChars(spec string) bool {
	for _, c := range spec {
		switch {
		case c >= '0' && c <= '9', c == ',', c == '-', c == ' ':
		default:
			return false
		}
	}
	return true
}

// atoi accepts plain decimal numbers only, no signs
func atoi(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
