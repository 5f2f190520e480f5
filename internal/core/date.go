package core

import (
	"strings"
	"time"
)

// Accepted textual date layouts, tried in order.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

// ParseDate parses a textual date in ISO (YYYY-MM-DD) or day-first
// (DD/MM/YYYY, DD-MM-YYYY) form.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fieldError(ErrInvalidDate, "date", "date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fieldError(ErrInvalidDate, "date", "use YYYY-MM-DD or DD/MM/YYYY")
}
