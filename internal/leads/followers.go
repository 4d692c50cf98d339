package leads

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	followerToken = regexp.MustCompile(`([0-9,.]+)\s*([KkMm])?`)
	nonDigits     = regexp.MustCompile(`[^0-9]`)
)

// ParseFollowers converts free-text follower counts such as "12.3K", "1.2M"
// or "1,234" into an absolute count. The boolean reports whether a count
// could be derived; malformed input yields (0, false), never an error.
func ParseFollowers(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	if m := followerToken.FindStringSubmatch(text); m != nil {
		num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err == nil {
			switch strings.ToLower(m[2]) {
			case "k":
				num *= 1_000
			case "m":
				num *= 1_000_000
			}
			return int64(math.Round(num)), true
		}
		// A token like "." or ",," matched but is not a number; fall through.
	}

	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
