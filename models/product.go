package models

import (
	"strings"
	"time"
)

// Product is the normalized catalog document. Raw documents are decoded into
// this shape once at the read boundary; locale fallbacks live here, not at
// call sites.
type Product struct {
	ProductID   string            `json:"productId" bson:"productId"`
	Title       string            `json:"title" bson:"title"`
	Description string            `json:"description" bson:"description"`
	TitleI18n   map[string]string `json:"title_i18n,omitempty" bson:"title_i18n,omitempty"`
	DescI18n    map[string]string `json:"desc_i18n,omitempty" bson:"desc_i18n,omitempty"`
	// TitleLower holds the lowercased title per locale and drives prefix
	// search and title sorting. Maintained on every write.
	TitleLower map[string]string `json:"-" bson:"title_lc,omitempty"`

	Category  string   `json:"category" bson:"category"`
	Brand     string   `json:"brand,omitempty" bson:"brand,omitempty"`
	Price     float64  `json:"price" bson:"price"` // major currency unit
	Stock     int      `json:"stock" bson:"stock"`
	Available bool     `json:"available" bson:"available"`
	Images    []string `json:"images,omitempty" bson:"images,omitempty"`
	Tags      []string `json:"tags,omitempty" bson:"tags,omitempty"`

	// Payment-provider cross references, set when the product is provisioned.
	PayProductID string `json:"-" bson:"payProductId,omitempty"`
	PayPriceID   string `json:"-" bson:"payPriceId,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// DefaultLocale is the last resort of the fallback chain.
const DefaultLocale = "en"

// TitleFor resolves the display title for a locale: locale variant, then the
// base title, then the English variant.
func (p *Product) TitleFor(locale string) string {
	return localized(p.TitleI18n, p.Title, locale)
}

// DescriptionFor resolves the display description like TitleFor.
func (p *Product) DescriptionFor(locale string) string {
	return localized(p.DescI18n, p.Description, locale)
}

func localized(variants map[string]string, base, locale string) string {
	if v, ok := variants[locale]; ok && v != "" {
		return v
	}
	if base != "" {
		return base
	}
	return variants[DefaultLocale]
}

// Locales the storefront serves. Every product document carries a lowercase
// title entry for each so prefix search and title sort work per locale.
var Locales = []string{"en", "nb"}

// RefreshDerived recomputes the lowercase title map and the availability
// flag. Must be called before persisting any edit.
func (p *Product) RefreshDerived() {
	lc := make(map[string]string, len(Locales))
	for _, locale := range Locales {
		if title := p.TitleFor(locale); title != "" {
			lc[locale] = strings.ToLower(title)
		}
	}
	p.TitleLower = lc
	p.Available = p.Stock > 0
}

// Summary is the listing projection of a product, resolved for one locale.
type Summary struct {
	ProductID   string  `json:"productId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand,omitempty"`
	Price       float64 `json:"price"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Stock       int     `json:"stock"`
	Available   bool    `json:"available"`
}

// Summarize resolves a product into its locale-specific listing shape.
func (p *Product) Summarize(locale string) Summary {
	thumb := ""
	if len(p.Images) > 0 {
		thumb = p.Images[0]
	}
	return Summary{
		ProductID:   p.ProductID,
		Title:       p.TitleFor(locale),
		Description: p.DescriptionFor(locale),
		Category:    p.Category,
		Brand:       p.Brand,
		Price:       p.Price,
		Thumbnail:   thumb,
		Stock:       p.Stock,
		Available:   p.Available,
	}
}
