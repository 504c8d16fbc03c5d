package domain

// PageID identifies one of the dashboard pages
type PageID string

const (
	PageExecutive PageID = "page1"
	PageCountries PageID = "page2"
	PageProducts  PageID = "page3"
	PageBalance   PageID = "page4"
	PageTransport PageID = "page5"
	PageAlerts    PageID = "page6"
	PageMetadata  PageID = "page7"
)

// DefaultPage is shown before any navigation event and for unknown ids
const DefaultPage = PageExecutive

// DefaultTradeType is selected before any toggle event and for unknown ids
const DefaultTradeType = TradeTypeFormal

// PageIDs returns all pages in navigation order
func PageIDs() []PageID {
	return []PageID{
		PageExecutive,
		PageCountries,
		PageProducts,
		PageBalance,
		PageTransport,
		PageAlerts,
		PageMetadata,
	}
}

// Valid reports whether p names a known page
func (p PageID) Valid() bool {
	for _, id := range PageIDs() {
		if id == p {
			return true
		}
	}
	return false
}

// ParsePageID returns the page for s, falling back to DefaultPage
func ParsePageID(s string) PageID {
	p := PageID(s)
	if p.Valid() {
		return p
	}
	return DefaultPage
}

// ViewState is the navigation state of one dashboard session.
// It is a value: event handlers return a new ViewState instead of mutating one.
type ViewState struct {
	Page      PageID    `json:"page"`
	TradeType TradeType `json:"trade_type"`
}

// DefaultViewState returns the state a new session starts in
func DefaultViewState() ViewState {
	return ViewState{Page: DefaultPage, TradeType: DefaultTradeType}
}

// Normalize replaces unknown fields with their defaults
func (s ViewState) Normalize() ViewState {
	if !s.Page.Valid() {
		s.Page = DefaultPage
	}
	if !s.TradeType.Valid() {
		s.TradeType = DefaultTradeType
	}
	return s
}
