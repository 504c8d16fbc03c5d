package navigation

import (
	"fmt"
	"strings"

	"mtid/pkg/contracts/domain"
)

// Dashboard header text
const (
	Title       = "Merchandise Trade Intelligence Dashboard"
	Subtitle    = "National Institute of Statistics Rwanda (NISR)"
	LastUpdated = "Last Updated: January 2026"
)

// PageInfo describes one navigable page
type PageInfo struct {
	ID    domain.PageID `json:"id"`
	Label string        `json:"label"`
	Title string        `json:"title"`
	Icon  string        `json:"icon"`
}

var pages = map[domain.PageID]PageInfo{
	domain.PageExecutive: {domain.PageExecutive, "Executive Overview", "Page 1: Executive Trade Overview", "📊"},
	domain.PageCountries: {domain.PageCountries, "Partner Countries", "Page 2: Trade by Partner Country", "🌍"},
	domain.PageProducts:  {domain.PageProducts, "Product Analysis", "Page 3: Product-Level Trade Analysis", "📦"},
	domain.PageBalance:   {domain.PageBalance, "Trade Balance", "Page 4: Trade Balance & Structure", "⚖️"},
	domain.PageTransport: {domain.PageTransport, "Transport & Customs", "Page 5: Transport Mode & Customs Insights", "🚢"},
	domain.PageAlerts:    {domain.PageAlerts, "Smart Alerts", "Page 6: Smart Alerts - Data Validation Support", "🚨"},
	domain.PageMetadata:  {domain.PageMetadata, "Metadata", "Page 7: Metadata, Methodology & Raw Data", "📘"},
}

// Page returns the description of id, falling back to page1
func Page(id domain.PageID) PageInfo {
	return pages[domain.ParsePageID(string(id))]
}

// NavLink is a sidebar link
type NavLink struct {
	PageInfo
	Href   string `json:"href"`
	Active bool   `json:"active"`
}

// TradeButton is one trade-type toggle button
type TradeButton struct {
	ID        string           `json:"id"`
	Label     string           `json:"label"`
	TradeType domain.TradeType `json:"trade_type"`
	Color     string           `json:"color"`
	Outline   bool             `json:"outline"`
}

// Header is shown above every page
type Header struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	LastUpdated string `json:"last_updated"`
	Viewing     string `json:"viewing"`
}

// Sidebar is everything the shell needs to draw navigation for a state
type Sidebar struct {
	Header  Header        `json:"header"`
	Buttons []TradeButton `json:"buttons"`
	Links   []NavLink     `json:"links"`
}

// NavLinks marks exactly the link of the state's page active.
// Unknown pages activate page1.
func NavLinks(state domain.ViewState) []NavLink {
	current := domain.ParsePageID(string(state.Page))
	ids := domain.PageIDs()
	links := make([]NavLink, len(ids))
	for i, id := range ids {
		links[i] = NavLink{
			PageInfo: pages[id],
			Href:     "/" + string(id),
			Active:   id == current,
		}
	}
	return links
}

// TradeButtons returns the toggle buttons. The selected one is solid and the
// other outlined; both use the light color.
func TradeButtons(state domain.ViewState) []TradeButton {
	selected := state.Normalize().TradeType
	return []TradeButton{
		{ID: ButtonFormal, Label: "Formal", TradeType: domain.TradeTypeFormal, Color: "light", Outline: selected != domain.TradeTypeFormal},
		{ID: ButtonInformal, Label: "Informal", TradeType: domain.TradeTypeInformal, Color: "light", Outline: selected != domain.TradeTypeInformal},
	}
}

// HeaderFor returns the page header for state
func HeaderFor(state domain.ViewState) Header {
	return Header{
		Title:       Title,
		Subtitle:    Subtitle,
		LastUpdated: LastUpdated,
		Viewing:     fmt.Sprintf("Viewing: %s TRADE", strings.ToUpper(string(state.Normalize().TradeType))),
	}
}

// SidebarFor builds the full navigation descriptor for state
func SidebarFor(state domain.ViewState) Sidebar {
	return Sidebar{
		Header:  HeaderFor(state),
		Buttons: TradeButtons(state),
		Links:   NavLinks(state),
	}
}
