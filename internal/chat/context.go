package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

const topContext = 5

// DatasetContext is the slice of the dashboard state a responder can see
type DatasetContext struct {
	TradeType   domain.TradeType
	Summary     view.DatasetSummary
	TopPartners []string
	TopProducts []string
}

// NewDatasetContext summarizes v for a responder
func NewDatasetContext(v view.FilteredView) DatasetContext {
	partners := map[string]decimal.Decimal{}
	products := map[string]decimal.Decimal{}
	v.Each(func(_ int, r domain.TradeRecord) {
		partners[r.PartnerCountry] = partners[r.PartnerCountry].Add(r.TradeValueUSD)
		label := r.HSCode
		if r.HSDescription != "" {
			label = r.HSCode + " " + r.HSDescription
		}
		products[label] = products[label].Add(r.TradeValueUSD)
	})
	return DatasetContext{
		TradeType:   v.TradeType(),
		Summary:     view.Summarize(v),
		TopPartners: largest(partners, topContext),
		TopProducts: largest(products, topContext),
	}
}

func largest(m map[string]decimal.Decimal, n int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := m[keys[i]].Cmp(m[keys[j]]); c != 0 {
			return c > 0
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Prompt renders the context as a system message
func (c DatasetContext) Prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an assistant for a merchandise trade dashboard. "+
		"The user is viewing the %s trade dataset. Answer briefly using these figures.\n", c.TradeType)
	fmt.Fprintf(&b, "%s\n", c.Summary.InfoLine())
	fmt.Fprintf(&b, "Total exports: %s\n", view.FormatUSD(c.Summary.TotalExportsUSD))
	fmt.Fprintf(&b, "Total imports: %s\n", view.FormatUSD(c.Summary.TotalImportsUSD))
	fmt.Fprintf(&b, "Trade balance: %s\n", view.FormatUSD(c.Summary.TradeBalance()))
	if len(c.TopPartners) > 0 {
		fmt.Fprintf(&b, "Top partners: %s\n", strings.Join(c.TopPartners, "; "))
	}
	if len(c.TopProducts) > 0 {
		fmt.Fprintf(&b, "Top products: %s\n", strings.Join(c.TopProducts, "; "))
	}
	return b.String()
}
