package migration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Legacy exports carry dates in a handful of layouts; the importers accept
// any of these and normalize to UTC.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"02.01.2006",
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"02/01/2006 15:04",
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func parseDateTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	// a bare date is acceptable where a timestamp is expected
	return parseDate(value)
}

// parseAmountCents converts a decimal money string into cents. Both comma
// and dot decimal separators show up in legacy exports.
func parseAmountCents(value string) (int64, error) {
	normalized := strings.TrimSpace(value)
	normalized = strings.ReplaceAll(normalized, " ", "")

	// the last separator is the decimal one, anything before it groups
	// thousands
	if strings.LastIndex(normalized, ",") > strings.LastIndex(normalized, ".") {
		normalized = strings.ReplaceAll(normalized, ".", "")
		normalized = strings.ReplaceAll(normalized, ",", ".")
	} else {
		normalized = strings.ReplaceAll(normalized, ",", "")
	}

	amount, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized amount %q", value)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %q", value)
	}

	return int64(amount*100 + 0.5), nil
}

// optional returns nil for blank cells so empty strings never reach the
// database as values.
func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
