package http

import (
	"html/template"
	"math"
	"net/http"
	"strings"
	"time"

	"cardmarket-bi/internal/report"
)

// page is the data every layout needs.
type page struct {
	Title       string
	Active      string
	StoreURL    string
	GateEnabled bool
	Unlocked    bool
	Notice      string
}

func (s *Server) newPage(r *http.Request, title, active string) page {
	return page{
		Title:       title,
		Active:      active,
		StoreURL:    s.storeURL,
		GateEnabled: s.gate != nil,
		Unlocked:    s.unlocked(r),
	}
}

// Bar is one row of a horizontal bar chart. Width is a percentage of the
// largest value in the series.
type Bar struct {
	Label string
	Value float64
	Text  string
	Width float64
}

func barsOf[T any](items []T, label func(T) string, value func(T) float64, text func(float64) string) []Bar {
	maxV := 0.0
	for _, it := range items {
		maxV = math.Max(maxV, value(it))
	}
	out := make([]Bar, len(items))
	for i, it := range items {
		v := value(it)
		out[i] = Bar{Label: label(it), Value: v, Text: text(v), Width: widthOf(v, maxV)}
	}
	return out
}

func widthOf(v, maxV float64) float64 {
	if maxV <= 0 || v <= 0 {
		return 0
	}
	return math.Round(v/maxV*1000) / 10
}

func countText(f float64) string {
	return report.Count(int(f))
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"eur":   report.EUR,
		"count": report.Count,
		"pct":   report.Pct,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return t.Format("2006-01-02 15:04:05 MST")
		},
		"age": func(d time.Duration) string {
			return d.Round(time.Second).String()
		},
		// heat maps v onto a background alpha in [0.05, 1].
		"heat": func(v, maxV float64) float64 {
			if maxV <= 0 || v <= 0 {
				return 0
			}
			return math.Round((0.05+0.95*v/maxV)*100) / 100
		},
		"contains": func(list []string, s string) bool {
			for _, v := range list {
				if v == s {
					return true
				}
			}
			return false
		},
	}
}

// queryList returns the non-empty values of a repeated query parameter.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
