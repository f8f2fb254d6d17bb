package report

import "testing"

func TestEUR(t *testing.T) {
	cases := map[float64]string{
		0:          "€0.00",
		1234.5:     "€1,234.50",
		-7.125:     "-€7.13",
		1234567.89: "€1,234,567.89",
		999.999:    "€1,000.00",
	}
	for in, want := range cases {
		if got := EUR(in); got != want {
			t.Fatalf("%v: want %q got %q", in, want, got)
		}
	}
}

func TestCountAndPct(t *testing.T) {
	if Count(1234567) != "1,234,567" || Count(12) != "12" || Count(-1000) != "-1,000" {
		t.Fatal("unexpected count formatting")
	}
	if Pct(4.46) != "4.5%" {
		t.Fatalf("unexpected pct %q", Pct(4.46))
	}
}
