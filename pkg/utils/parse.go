package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyToken = regexp.MustCompile(`(?i)(₹|rs\.?|inr)`)
	nonNumeric    = regexp.MustCompile(`[^0-9.]`)
)

// ParsePrice extracts a price from free text such as "₹1,234.50", "Rs. 708"
// or a price band "₹674 - ₹708" (lower bound wins). It returns false for
// anything that does not reduce to a single finite number.
func ParsePrice(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	s = strings.ReplaceAll(s, ",", "")
	s = currencyToken.ReplaceAllString(s, "")
	if i := strings.Index(strings.ToLower(s), " to "); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '-'); i > 0 {
		s = s[:i]
	}

	s = nonNumeric.ReplaceAllString(s, "")
	if s == "" || s == "." || strings.Count(s, ".") > 1 {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParsePositivePrice is ParsePrice restricted to values greater than zero,
// the only values usable as a percentage denominator.
func ParsePositivePrice(raw string) (float64, bool) {
	v, ok := ParsePrice(raw)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}
