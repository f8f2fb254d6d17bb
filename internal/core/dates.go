package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateOrder selects how an ambiguous numeric date such as "03/04/2024" is
// read. ISO dates (year first) are never ambiguous and ignore it.
type DateOrder int

const (
	MonthFirst DateOrder = iota
	DayFirst
)

func (o DateOrder) String() string {
	if o == DayFirst {
		return "day-first"
	}
	return "month-first"
}

// ParseDateOrder accepts "day-first"/"dayfirst"/"dmy" and
// "month-first"/"monthfirst"/"mdy", case-insensitively.
func ParseDateOrder(s string) (DateOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day-first", "dayfirst", "day_first", "dmy":
		return DayFirst, nil
	case "month-first", "monthfirst", "month_first", "mdy":
		return MonthFirst, nil
	}
	return MonthFirst, fmt.Errorf("unknown date order %q", s)
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"15:04:05.999999999",
	"3:04 PM",
	"3:04:05 PM",
}

// ParseDate parses the textual dates found in the exports. Results are in
// UTC unless the text carries an explicit offset.
//
// Accepted shapes:
//
//	2024-04-03, 2024-04-03 10:15:00, 2024-04-03T10:15:00Z
//	03/04/2024, 03.04.2024, 03-04-24 (read according to order)
//	any of the above followed by HH:MM or HH:MM:SS
func ParseDate(text string, order DateOrder) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	datePart, clockPart, _ := strings.Cut(s, " ")
	if strings.Contains(datePart, "T") {
		datePart, clockPart, _ = strings.Cut(s, "T")
	}

	day, err := parseNumericDate(datePart, order)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, text)
	}
	clockPart = strings.TrimSpace(clockPart)
	if clockPart == "" {
		return day, nil
	}
	for _, layout := range clockLayouts {
		if c, err := time.Parse(layout, clockPart); err == nil {
			return day.Add(time.Duration(c.Hour())*time.Hour +
				time.Duration(c.Minute())*time.Minute +
				time.Duration(c.Second())*time.Second +
				time.Duration(c.Nanosecond())), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, text)
}

func parseNumericDate(s string, order DateOrder) (time.Time, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '.' || r == '-'
	})
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("expected three date fields, got %d", len(parts))
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("field %q is not a number", p)
		}
		nums[i] = n
	}

	var y, m, d int
	switch {
	case len(parts[0]) == 4:
		y, m, d = nums[0], nums[1], nums[2]
	case order == DayFirst:
		d, m, y = nums[0], nums[1], nums[2]
	default:
		m, d, y = nums[0], nums[1], nums[2]
	}
	if len(parts[0]) != 4 && len(parts[2]) <= 2 {
		y = expandYear(y)
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("date %04d-%02d-%02d out of range", y, m, d)
	}
	return t, nil
}

// expandYear maps two-digit years onto 1970..2069.
func expandYear(y int) int {
	if y >= 70 {
		return 1900 + y
	}
	return 2000 + y
}
