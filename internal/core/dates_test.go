package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	cases := []struct {
		name  string
		in    string
		order DateOrder
		want  time.Time
	}{
		{"day first slash", "03/04/2024", DayFirst, day(2024, time.April, 3)},
		{"month first slash", "03/04/2024", MonthFirst, day(2024, time.March, 4)},
		{"iso ignores order", "2024-04-03", DayFirst, day(2024, time.April, 3)},
		{"iso with time", "2024-04-03 10:15:00", MonthFirst, time.Date(2024, time.April, 3, 10, 15, 0, 0, time.UTC)},
		{"dotted day first", "31.12.2023", DayFirst, day(2023, time.December, 31)},
		{"two digit year", "01/02/24", DayFirst, day(2024, time.February, 1)},
		{"with clock", "12/25/2023 18:30", MonthFirst, time.Date(2023, time.December, 25, 18, 30, 0, 0, time.UTC)},
		{"year first slash", "2024/4/3", MonthFirst, day(2024, time.April, 3)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDate(tc.in, tc.order)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("want %v got %v", tc.want, got)
			}
		})
	}
}

func TestParseDateRejects(t *testing.T) {
	for _, in := range []string{"", "yesterday", "31/02/2024", "13/13/2024", "1/2", "03/04/2024 noon"} {
		if _, err := ParseDate(in, DayFirst); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q: expected ErrInvalidDate, got %v", in, err)
		}
	}
}

func TestParseDateOrder(t *testing.T) {
	cases := map[string]DateOrder{
		"day-first":   DayFirst,
		"DMY":         DayFirst,
		"month-first": MonthFirst,
		"mdy":         MonthFirst,
	}
	for in, want := range cases {
		got, err := ParseDateOrder(in)
		if err != nil || got != want {
			t.Fatalf("%q: want %v got %v (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseDateOrder("sideways"); err == nil {
		t.Fatal("expected error for unknown order")
	}
}

func TestMonthStartIgnoresOffset(t *testing.T) {
	a := time.Date(2024, 3, 1, 0, 30, 0, 0, time.FixedZone("", 3600))
	b := time.Date(2024, 3, 31, 23, 0, 0, 0, time.FixedZone("", -5*3600))
	if MonthStart(a) != MonthStart(b) {
		t.Fatalf("same calendar month should share a key: %v vs %v", MonthStart(a), MonthStart(b))
	}
	if got := MonthStart(a); !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected month start %v", got)
	}
}
