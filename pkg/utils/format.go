// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatIndianCurrency formats a number in Indian currency format (lakhs, crores).
func FormatIndianCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")

	result := "₹" + formatIndianNumber(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// formatIndianNumber groups an integer string as 12,34,567.
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatOptionalCurrency formats a nullable amount, rendering nil as "N/A".
func FormatOptionalCurrency(amount *float64) string {
	if amount == nil {
		return "N/A"
	}
	return FormatIndianCurrency(*amount)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatOptionalPercent formats a nullable percentage, rendering nil as "N/A".
func FormatOptionalPercent(value *float64) string {
	if value == nil {
		return "N/A"
	}
	return FormatPercent(*value)
}

// FormatPnL formats P&L with an explicit sign for gains.
func FormatPnL(pnl float64) string {
	formatted := FormatIndianCurrency(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatCrores formats a number in crores.
func FormatCrores(amount float64) string {
	return fmt.Sprintf("%.2f Cr", amount/10000000)
}

// FormatLakhs formats a number in lakhs.
func FormatLakhs(amount float64) string {
	return fmt.Sprintf("%.2f L", amount/100000)
}

// FormatCompact formats a number in compact form (L/Cr).
func FormatCompact(amount float64) string {
	absAmount := math.Abs(amount)
	if absAmount >= 10000000 {
		return FormatCrores(amount)
	} else if absAmount >= 100000 {
		return FormatLakhs(amount)
	}
	return FormatIndianCurrency(amount)
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
