package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var selectionSeparators = regexp.MustCompile(`[,\s]+`)

// maxRangeSpan rejects ranges no course list could need
const maxRangeSpan = 10000

// ParseSelection turns input such as "1,3-5,7" into 1-based course indices.
// A range a-b includes both ends and runs downward when a > b. Repeated
// indices keep their first position. Tokens that are not numbers or ranges
// are returned in invalid and otherwise ignored. Bounds are not checked here.
func ParseSelection(input string) (indices []int, invalid []string) {
	seen := make(map[int]bool)
	add := func(i int) {
		if !seen[i] {
			seen[i] = true
			indices = append(indices, i)
		}
	}

	for _, token := range selectionSeparators.Split(strings.TrimSpace(input), -1) {
		if token == "" {
			continue
		}
		from, to, ok := parseToken(token)
		if !ok {
			invalid = append(invalid, token)
			continue
		}
		step := 1
		if from > to {
			step = -1
		}
		for i := from; ; i += step {
			add(i)
			if i == to {
				break
			}
		}
	}
	return indices, invalid
}

func parseToken(token string) (from, to int, ok bool) {
	a, b, isRange := strings.Cut(token, "-")
	from, err := strconv.Atoi(a)
	if err != nil || from < 0 {
		return 0, 0, false
	}
	if !isRange {
		return from, from, true
	}
	to, err = strconv.Atoi(b)
	if err != nil || to < 0 {
		return 0, 0, false
	}
	if span := to - from; span > maxRangeSpan || span < -maxRangeSpan {
		return 0, 0, false
	}
	return from, to, true
}

// InRange reports whether index addresses one of n courses
func InRange(index, n int) bool {
	return index >= 1 && index <= n
}
