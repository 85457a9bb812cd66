// Package catalog provides semantic product retrieval over PostgreSQL +
// pgvector. A Store embeds the query text and returns the nearest catalog
// items; callers group them into titled product groups for display.
package catalog

import (
	"regexp"
	"strconv"
)

// DefaultPrice substitutes for catalog rows without price data, so the
// response payload never carries a null price.
const DefaultPrice = 5.00

// Product is one catalog item as returned to the caller.
type Product struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	SKU   int64   `json:"sku"`
	Image string  `json:"image"`
	Price float64 `json:"price"`
}

// Group is an ordered set of products under one display title, e.g. one
// recommended category or one grocery-list entry.
type Group struct {
	Title    string    `json:"title"`
	Products []Product `json:"products"`
}

// Product detail pages embed the SKU in their path, e.g.
// ".../product-details.194957.html".
var skuPattern = regexp.MustCompile(`product-details\.(\d+)\.html`)

// ParseSKU extracts the numeric SKU from a product detail URL.
// It returns 0 when the URL does not follow the detail-page pattern.
func ParseSKU(url string) int64 {
	m := skuPattern.FindStringSubmatch(url)
	if m == nil {
		return 0
	}
	sku, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return sku
}
