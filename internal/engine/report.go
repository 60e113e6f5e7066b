package engine

import (
	"fmt"
	"strings"

	"github.com/restockd/restockd/pkg/types"
)

const (
	stockAlertBanner = "🔥 *Stock Alert!*"
	noStockBanner    = "💤 *No Stock Found*"
)

// FormatReport renders the Telegram-ready report for one run: a banner,
// one block per hit, and a per-retailer summary in a fixed order so
// consecutive reports line up when read in a chat.
func FormatReport(hits []types.StockHit, summary types.RunSummary) string {
	var b strings.Builder

	if len(hits) > 0 {
		b.WriteString(stockAlertBanner)
	} else {
		b.WriteString(noStockBanner)
	}

	for _, h := range hits {
		b.WriteString("\n\n")
		b.WriteString(h.DisplayText)
	}

	b.WriteString("\n\n📊 *Summary*")
	for _, st := range types.AllStores {
		t := summary.Tallies[st]
		fmt.Fprintf(&b, "\n%s: %d/%d", st.Title(), t.Available, t.Total)
	}
	fmt.Fprintf(&b, "\nTotal hits: %d", summary.TotalHits())

	return b.String()
}
