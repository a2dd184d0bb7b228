package catalog

import (
	"context"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"butikk/models"
	"butikk/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultLimit = 20
	maxLimit     = 50
	// membership filters larger than this blow up the provider's index
	// planning; extra categories are dropped.
	maxCategories = 10
	// upper bound of the prefix range scan: every string with the requested
	// prefix sorts below prefix+sentinel.
	prefixSentinel = "￿"
)

var sortKeys = map[string]bool{
	"createdAt-asc":  true,
	"createdAt-desc": true,
	"price-asc":      true,
	"price-desc":     true,
	"title-asc":      true,
	"title-desc":     true,
}

// ListParams are the normalized listing inputs after boundary validation.
type ListParams struct {
	Query      string
	Categories []string
	Locale     string
	SortKey    string
	Limit      int
	Cursor     string
}

// ParseListParams reads and clamps the listing query parameters.
func ParseListParams(r *http.Request) ListParams {
	q := r.URL.Query()

	locale := q.Get("locale")
	if !utils.Contains(models.Locales, locale) {
		locale = models.DefaultLocale
	}

	sortKey := q.Get("sort")
	if !sortKeys[sortKey] {
		sortKey = "createdAt-desc"
	}

	categories := utils.SplitCSV(q.Get("categories"))
	if c := q.Get("category"); c != "" {
		categories = append([]string{c}, categories...)
	}
	if len(categories) > maxCategories {
		categories = categories[:maxCategories]
	}

	return ListParams{
		Query:      strings.TrimSpace(q.Get("q")),
		Categories: categories,
		Locale:     locale,
		SortKey:    sortKey,
		Limit:      utils.ClampLimit(q.Get("limit"), defaultLimit, maxLimit),
		Cursor:     q.Get("cursor"),
	}
}

// sortSpec resolves the single field driving the native ordering. A free-text
// query forces ascending order on the locale title field, since the prefix
// range scan must run over the same field the results are ordered by.
func (p ListParams) sortSpec() (field, dir string) {
	if p.Query != "" {
		return "title_lc." + p.Locale, "asc"
	}
	key, d, _ := strings.Cut(p.SortKey, "-")
	switch key {
	case "price":
		field = "price"
	case "title":
		field = "title_lc." + p.Locale
	default:
		field = "createdAt"
	}
	return field, d
}

func dirValue(dir string) int {
	if dir == "desc" {
		return -1
	}
	return 1
}

// buildFilter translates the filter parameters into a Mongo filter on the
// resolved sort field.
func (p ListParams) buildFilter(sortField string) bson.M {
	filter := bson.M{}
	switch len(p.Categories) {
	case 0:
	case 1:
		filter["category"] = p.Categories[0]
	default:
		filter["category"] = bson.M{"$in": p.Categories}
	}
	if p.Query != "" {
		prefix := strings.ToLower(p.Query)
		filter[sortField] = bson.M{"$gte": prefix, "$lt": prefix + prefixSentinel}
	}
	return filter
}

// cursorFilter widens a filter so the page starts strictly after the cursor
// position, with the document id as tiebreak.
func cursorFilter(base bson.M, field string, dir int, cur *pageCursor) bson.M {
	value := cur.Value
	if field == "createdAt" {
		// cursor values round-trip through JSON; timestamps travel as
		// epoch milliseconds
		ms, ok := value.(float64)
		if !ok {
			return base
		}
		value = time.UnixMilli(int64(ms)).UTC()
	}

	op, idOp := "$gt", "$gt"
	if dir < 0 {
		op, idOp = "$lt", "$lt"
	}
	after := bson.M{"$or": bson.A{
		bson.M{field: bson.M{op: value}},
		bson.M{field: value, "productId": bson.M{idOp: cur.ID}},
	}}
	if len(base) == 0 {
		return after
	}
	return bson.M{"$and": bson.A{base, after}}
}

// sortValue extracts the cursor value of the last item on a page.
func sortValue(p *models.Product, field string) any {
	switch {
	case field == "createdAt":
		return p.CreatedAt.UnixMilli()
	case field == "price":
		return p.Price
	case strings.HasPrefix(field, "title_lc."):
		locale := strings.TrimPrefix(field, "title_lc.")
		if v, ok := p.TitleLower[locale]; ok {
			return v
		}
		return strings.ToLower(p.TitleFor(locale))
	}
	return nil
}

// Page is one page of listing results.
type Page struct {
	Items      []models.Summary `json:"items"`
	NextCursor *string          `json:"nextCursor"`
	Count      int              `json:"count"`
}

// Lister runs listing queries against the products collection.
type Lister struct {
	Products *mongo.Collection
	// find overrides the collection query; tests substitute it to drive
	// the degraded path without a live collection.
	find func(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Product, error)
}

func (l *Lister) query(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Product, error) {
	if l.find != nil {
		return l.find(ctx, filter, opts)
	}
	return findProducts(ctx, l.Products, filter, opts)
}

// List produces one page of product summaries. Provider/query errors are
// degraded internally; only a total failure (the identity-order fallback
// also failing) is returned.
func (l *Lister) List(ctx context.Context, p ListParams) (*Page, error) {
	field, dir := p.sortSpec()
	d := dirValue(dir)

	filter := p.buildFilter(field)
	if cur := decodeCursor(p.Cursor); cur.matches(field, dir) {
		filter = cursorFilter(filter, field, d, cur)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: d}, {Key: "productId", Value: d}}).
		SetLimit(int64(p.Limit))

	products, err := l.query(ctx, filter, opts)
	if err == nil {
		return l.page(products, p, field, dir), nil
	}
	log.Printf("catalog: primary listing query failed, degrading: %v", err)
	return l.listDegraded(ctx, p, field, d)
}

func (l *Lister) page(products []models.Product, p ListParams, field, dir string) *Page {
	items := make([]models.Summary, 0, len(products))
	for i := range products {
		items = append(items, products[i].Summarize(p.Locale))
	}

	var next *string
	if len(products) == p.Limit {
		last := &products[len(products)-1]
		token := encodeCursor(pageCursor{
			Field: field,
			Dir:   dir,
			Value: sortValue(last, field),
			ID:    last.ProductID,
		})
		if token != "" {
			next = &token
		}
	}
	return &Page{Items: items, NextCursor: next, Count: len(items)}
}

// listDegraded retries with filters progressively dropped: first the bare
// sort, then identity order. Filtering and sorting then happen in the
// application layer, and no continuation cursor is produced because the
// reduced result set cannot yield a reliable one.
func (l *Lister) listDegraded(ctx context.Context, p ListParams, field string, d int) (*Page, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: d}}).
		SetLimit(int64(degradedScanLimit(p.Limit)))

	products, err := l.query(ctx, bson.M{}, opts)
	if err != nil {
		log.Printf("catalog: sorted fallback failed, using identity order: %v", err)
		idOpts := options.Find().
			SetSort(bson.D{{Key: "productId", Value: 1}}).
			SetLimit(int64(degradedScanLimit(p.Limit)))
		products, err = l.query(ctx, bson.M{}, idOpts)
		if err != nil {
			return nil, err
		}
	}

	products = filterLocal(products, p)
	sortLocal(products, p)
	if len(products) > p.Limit {
		products = products[:p.Limit]
	}

	items := make([]models.Summary, 0, len(products))
	for i := range products {
		items = append(items, products[i].Summarize(p.Locale))
	}
	return &Page{Items: items, NextCursor: nil, Count: len(items)}, nil
}

// degradedScanLimit over-fetches so application-layer filtering still has a
// chance to fill the page.
func degradedScanLimit(limit int) int {
	const scanFactor = 5
	if limit*scanFactor > 250 {
		return 250
	}
	return limit * scanFactor
}

func findProducts(ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]models.Product, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// filterLocal applies the category and prefix filters in memory.
func filterLocal(products []models.Product, p ListParams) []models.Product {
	prefix := strings.ToLower(p.Query)
	out := products[:0]
	for i := range products {
		prod := &products[i]
		if len(p.Categories) > 0 && !utils.Contains(p.Categories, prod.Category) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(lowerTitle(prod, p.Locale), prefix) {
			continue
		}
		out = append(out, *prod)
	}
	return out
}

// sortLocal orders products by the requested sort key in memory, with the
// product id as tiebreak, mirroring the native ordering.
func sortLocal(products []models.Product, p ListParams) {
	field, dir := p.sortSpec()
	desc := dir == "desc"

	less := func(a, b *models.Product) bool {
		switch {
		case field == "price":
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case strings.HasPrefix(field, "title_lc."):
			ta, tb := lowerTitle(a, p.Locale), lowerTitle(b, p.Locale)
			if ta != tb {
				return ta < tb
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ProductID < b.ProductID
	}

	sort.SliceStable(products, func(i, j int) bool {
		if desc {
			return less(&products[j], &products[i])
		}
		return less(&products[i], &products[j])
	})
}

func lowerTitle(p *models.Product, locale string) string {
	if v, ok := p.TitleLower[locale]; ok {
		return v
	}
	return strings.ToLower(p.TitleFor(locale))
}
