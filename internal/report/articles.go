package report

import (
	"cardmarket-bi/internal/core"
)

// Price buckets for single cards, right-closed.
var (
	priceEdges  = []float64{0.5, 1, 2, 5, 10, 25, 50}
	priceLabels = []string{"<€0.50", "€0.50–1", "€1–2", "€2–5", "€5–10", "€10–25", "€25–50", "€50+"}
)

type ArticleKPIs struct {
	Count       int
	Revenue     float64
	Mean        float64
	Median      float64
	Highest     float64
	HighestName string
	UniqueSets  int
}

func prices(t *core.ArticleTable) []float64 {
	out := make([]float64, t.Len())
	for i, a := range t.Rows {
		out[i] = a.Price
	}
	return out
}

// ArticleSummary computes the headline metrics of sold singles.
func ArticleSummary(t *core.ArticleTable) ArticleKPIs {
	ps := prices(t)
	k := ArticleKPIs{
		Count:   len(ps),
		Revenue: sum(ps),
		Mean:    mean(ps),
		Median:  median(ps),
	}
	for i, a := range t.Rows {
		if i == 0 || a.Price > k.Highest {
			k.Highest = a.Price
			k.HighestName = a.Name
		}
	}
	if t.Len() > 0 && t.HasSet {
		seen := map[string]struct{}{}
		for _, a := range t.Rows {
			if a.SetName != "" {
				seen[a.SetName] = struct{}{}
			}
		}
		k.UniqueSets = len(seen)
	}
	return k
}

// PriceBuckets partitions every article into exactly one price range. A
// price equal to an edge belongs to the lower range.
func PriceBuckets(t *core.ArticleTable) []Bucket {
	return bucketize(prices(t), priceEdges, priceLabels)
}

// PriceHistogram splits the observed price range into n equal bins.
func PriceHistogram(t *core.ArticleTable, n int) []HistBin {
	return histogram(prices(t), n)
}

// RarityStats groups by rarity; nil when the export has no rarity column.
func RarityStats(t *core.ArticleTable) []GroupStat {
	if !t.HasRarity {
		return nil
	}
	names := make([]string, t.Len())
	for i, a := range t.Rows {
		names[i] = a.Rarity
	}
	return groupStats(names, prices(t))
}

// SetStats groups by set; nil when the export has no set column.
func SetStats(t *core.ArticleTable) []GroupStat {
	if !t.HasSet {
		return nil
	}
	names := make([]string, t.Len())
	for i, a := range t.Rows {
		names[i] = a.SetName
	}
	return groupStats(names, prices(t))
}
