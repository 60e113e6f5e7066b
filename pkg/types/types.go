// Package types defines the core domain types shared across restockd.
package types

// StoreType identifies which retailer a product is tracked at.
type StoreType string

// Supported retailers.
const (
	StoreCroma    StoreType = "croma"
	StoreFlipkart StoreType = "flipkart"
	StoreAmazon   StoreType = "amazon"
)

// AllStores lists the supported retailers in report order.
var AllStores = []StoreType{StoreCroma, StoreFlipkart, StoreAmazon}

// Valid reports whether the store type is one restockd knows how to check.
func (s StoreType) Valid() bool {
	switch s {
	case StoreCroma, StoreFlipkart, StoreAmazon:
		return true
	}
	return false
}

// Title returns the retailer name capitalized for display.
func (s StoreType) Title() string {
	switch s {
	case StoreCroma:
		return "Croma"
	case StoreFlipkart:
		return "Flipkart"
	case StoreAmazon:
		return "Amazon"
	}
	return string(s)
}

// Product is one row of the tracked-product catalog. It is loaded fresh each
// run and never mutated afterwards.
type Product struct {
	Name          string
	URL           string
	ProductID     string
	StoreType     StoreType
	AffiliateLink string
}

// Link returns the URL to include in notifications: the affiliate link when
// one is configured, otherwise the canonical product URL.
func (p *Product) Link() string {
	if p.AffiliateLink != "" {
		return p.AffiliateLink
	}
	return p.URL
}

// StockHit is a confirmed availability result for one product at one
// retailer. DisplayText is pre-formatted Markdown ready for the report.
type StockHit struct {
	Store       StoreType
	ProductName string
	DisplayText string
}

// Tally counts checked and available products for one retailer.
type Tally struct {
	Available int
	Total     int
}

// RunSummary accumulates per-retailer tallies across a single scan pass.
type RunSummary struct {
	Tallies map[StoreType]Tally
}

// NewRunSummary returns an empty summary.
func NewRunSummary() RunSummary {
	return RunSummary{Tallies: make(map[StoreType]Tally)}
}

// Record counts one checked product, available or not.
func (s *RunSummary) Record(store StoreType, available bool) {
	t := s.Tallies[store]
	t.Total++
	if available {
		t.Available++
	}
	s.Tallies[store] = t
}

// TotalHits returns the number of available products across all retailers.
func (s *RunSummary) TotalHits() int {
	var n int
	for _, t := range s.Tallies {
		n += t.Available
	}
	return n
}
