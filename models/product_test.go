package models

import "testing"

func TestTitleForFallbackChain(t *testing.T) {
	p := Product{
		Title:     "Stoneware mug",
		TitleI18n: map[string]string{"nb": "Steintøykrus"},
	}

	if got := p.TitleFor("nb"); got != "Steintøykrus" {
		t.Errorf("nb variant: got %q", got)
	}
	if got := p.TitleFor("en"); got != "Stoneware mug" {
		t.Errorf("base fallback: got %q", got)
	}

	// no variant, no base: fall through to the English variant
	p2 := Product{TitleI18n: map[string]string{"en": "Plate"}}
	if got := p2.TitleFor("nb"); got != "Plate" {
		t.Errorf("default-locale fallback: got %q", got)
	}

	// empty variant entries are skipped, not returned
	p3 := Product{Title: "Bowl", TitleI18n: map[string]string{"nb": ""}}
	if got := p3.TitleFor("nb"); got != "Bowl" {
		t.Errorf("empty variant should fall back to base, got %q", got)
	}
}

func TestRefreshDerived(t *testing.T) {
	p := Product{
		Title:     "Aurora Mug",
		TitleI18n: map[string]string{"nb": "Auroras Krus"},
		Stock:     2,
	}
	p.RefreshDerived()

	if p.TitleLower["en"] != "aurora mug" {
		t.Errorf("en lowercase: got %q", p.TitleLower["en"])
	}
	if p.TitleLower["nb"] != "auroras krus" {
		t.Errorf("nb lowercase: got %q", p.TitleLower["nb"])
	}
	if !p.Available {
		t.Error("stock > 0 must mark the product available")
	}

	p.Stock = 0
	p.RefreshDerived()
	if p.Available {
		t.Error("stock 0 must mark the product unavailable")
	}
}

func TestSummarizeResolvesLocale(t *testing.T) {
	p := Product{
		ProductID: "p-1",
		Title:     "Stoneware mug",
		TitleI18n: map[string]string{"nb": "Steintøykrus"},
		Images:    []string{"a.jpg", "b.jpg"},
		Price:     149,
		Stock:     1,
		Available: true,
	}

	s := p.Summarize("nb")
	if s.Title != "Steintøykrus" {
		t.Errorf("title: got %q", s.Title)
	}
	if s.Thumbnail != "a.jpg" {
		t.Errorf("thumbnail should be the first image, got %q", s.Thumbnail)
	}
}
