package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

var (
	listingDateRe = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3})[A-Za-z]*\s+'?(\d{2,4})`)
	monthIndex    = map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}
)

// FormatListingDate normalizes a scraped schedule date such as "19 Feb 2025"
// or "5 Mar '24" into DD-MM-YYYY. Strings that do not look like a date are
// returned trimmed and unchanged.
func FormatListingDate(raw string) string {
	raw = strings.TrimSpace(raw)
	m := listingDateRe.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	month, ok := monthIndex[strings.ToLower(m[2])]
	if !ok {
		return raw
	}
	year := m[3]
	if len(year) == 2 {
		year = "20" + year
	}
	day := m[1]
	if len(day) == 1 {
		day = "0" + day
	}
	return fmt.Sprintf("%s-%02d-%s", day, month, year)
}
