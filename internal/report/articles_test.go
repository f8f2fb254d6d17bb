package report

import (
	"testing"

	"cardmarket-bi/internal/core"
)

func articles(prices ...float64) *core.ArticleTable {
	t := &core.ArticleTable{HasName: true, HasSet: true, HasRarity: true}
	for _, p := range prices {
		t.Rows = append(t.Rows, core.SoldArticle{Price: p})
	}
	return t
}

func TestPriceBucketsPartition(t *testing.T) {
	tbl := articles(0, 0.25, 0.5, 0.51, 1, 2, 4.99, 5, 10, 25, 25.01, 50, 50.01, 999)
	got := PriceBuckets(tbl)

	want := []struct {
		label string
		count int
	}{
		{"<€0.50", 3},
		{"€0.50–1", 2},
		{"€1–2", 1},
		{"€2–5", 2},
		{"€5–10", 1},
		{"€10–25", 1},
		{"€25–50", 2},
		{"€50+", 2},
	}
	total := 0
	for i, w := range want {
		if got[i].Label != w.label || got[i].Count != w.count {
			t.Fatalf("bucket %d: want %s=%d, got %s=%d", i, w.label, w.count, got[i].Label, got[i].Count)
		}
		total += got[i].Count
	}
	if total != tbl.Len() {
		t.Fatalf("buckets cover %d of %d articles", total, tbl.Len())
	}
}

func TestArticleSummary(t *testing.T) {
	tbl := &core.ArticleTable{HasName: true, HasSet: true, Rows: []core.SoldArticle{
		{Price: 0.5, Name: "Bolt", SetName: "M10"},
		{Price: 12, Name: "Fable", SetName: "NEO"},
		{Price: 1.5, Name: "Counterspell", SetName: "M10"},
		{Price: 2, Name: "Opt", SetName: ""},
	}}
	k := ArticleSummary(tbl)
	if k.Count != 4 || k.Revenue != 16 || k.Mean != 4 || k.Median != 1.75 {
		t.Fatalf("unexpected summary %+v", k)
	}
	if k.Highest != 12 || k.HighestName != "Fable" || k.UniqueSets != 2 {
		t.Fatalf("unexpected highest/sets %+v", k)
	}
}

func TestPriceHistogram(t *testing.T) {
	got := PriceHistogram(articles(0, 1, 2, 3, 4), 2)
	if len(got) != 2 || got[0].Count != 2 || got[1].Count != 3 || got[1].Hi != 4 {
		t.Fatalf("unexpected bins %+v", got)
	}
	if single := PriceHistogram(articles(3, 3), 10); len(single) != 1 || single[0].Count != 2 {
		t.Fatalf("unexpected single bin %+v", single)
	}
	if PriceHistogram(articles(), 5) != nil {
		t.Fatal("no bins for an empty table")
	}
}

func TestRarityAndSetStats(t *testing.T) {
	tbl := &core.ArticleTable{HasRarity: true, Rows: []core.SoldArticle{
		{Price: 1, Rarity: "Common"},
		{Price: 3, Rarity: "Common"},
		{Price: 10, Rarity: "Rare"},
	}}
	r := RarityStats(tbl)
	if len(r) != 2 || r[0].Name != "Rare" || r[1].Count != 2 || r[1].Avg != 2 {
		t.Fatalf("unexpected rarity stats %+v", r)
	}
	if SetStats(tbl) != nil {
		t.Fatal("set stats need the set column")
	}
}
