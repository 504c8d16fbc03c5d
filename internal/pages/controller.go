// Package pages builds the content of the seven dashboard pages.
//
// Every page follows the same path: filter the dataset by trade type, hand
// the view to the page's builder, and wrap the result with the shared
// header. Builders are pure functions of the view. A builder that fails or
// panics produces an error panel for that page only.
package pages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"mtid/internal/dataset"
	"mtid/internal/navigation"
	"mtid/internal/table"
	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

var (
	// ErrUnknownChart is returned when a page has no chart with the requested id
	ErrUnknownChart = errors.New("unknown chart")
	// ErrEmptyChart is returned when a chart has no values to draw
	ErrEmptyChart = errors.New("chart has no data")
)

// RenderError wraps a failure inside a page builder
type RenderError struct {
	Page domain.PageID
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Builder derives a page body from a filtered view
type Builder func(view.FilteredView) (Body, error)

// Observer is notified about every render. It may be nil.
type Observer interface {
	PageRendered(ctx context.Context, page domain.PageID, tradeType domain.TradeType, status Status)
}

// Controller maps (page, trade type) to page content
type Controller struct {
	builders map[domain.PageID]Builder
	logger   *slog.Logger
	observer Observer
}

// NewController creates a controller with the seven dashboard pages
func NewController(logger *slog.Logger, observer Observer) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		builders: map[domain.PageID]Builder{
			domain.PageExecutive: executive,
			domain.PageCountries: countries,
			domain.PageProducts:  products,
			domain.PageBalance:   balance,
			domain.PageTransport: transport,
			domain.PageAlerts:    smartAlerts,
			domain.PageMetadata:  metadata,
		},
		logger:   logger.With(slog.String("component", "page_controller")),
		observer: observer,
	}
}

// Register replaces the builder of a page
func (c *Controller) Register(page domain.PageID, b Builder) {
	c.builders[page] = b
}

// Render filters ds by the state's trade type and builds the state's page.
// Unknown pages render page1. Nothing is cached between calls.
func (c *Controller) Render(ctx context.Context, ds *dataset.Dataset, state domain.ViewState) Content {
	state = state.Normalize()
	info := navigation.Page(state.Page)
	content := Content{
		Page:      state.Page,
		TradeType: state.TradeType,
		Title:     info.Title,
		Icon:      info.Icon,
		Header:    navigation.HeaderFor(state),
		Status:    StatusOK,
	}

	v := view.Filter(ds, state.TradeType)
	if v.Empty() && state.Page != domain.PageMetadata {
		content.Status = StatusEmpty
		content.Alert = &Alert{Level: "warning", Message: table.NoDataMessage, Detail: table.NoDataDetail}
		c.observe(ctx, content)
		return content
	}

	body, err := c.build(state.Page, v)
	if err != nil {
		c.logger.ErrorContext(ctx, "page render failed",
			slog.String("page", string(state.Page)),
			slog.String("trade_type", string(state.TradeType)),
			slog.String("error", err.Error()))
		content.Status = StatusError
		content.Alert = &Alert{
			Level:   "danger",
			Heading: "❌ Error Loading Dataset",
			Message: "Error: " + err.Error(),
			Detail:  "Unable to load data table.",
		}
		c.observe(ctx, content)
		return content
	}

	if v.Empty() {
		content.Status = StatusEmpty
	}
	withImageURLs(&body, state)
	content.Body = body
	c.observe(ctx, content)
	return content
}

// build runs the page builder, converting errors and panics to *RenderError
func (c *Controller) build(page domain.PageID, v view.FilteredView) (body Body, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("page builder panicked",
				slog.String("page", string(page)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = &RenderError{Page: page, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	b, ok := c.builders[page]
	if !ok {
		return Body{}, &RenderError{Page: page, Err: fmt.Errorf("no builder registered")}
	}
	body, err = b(v)
	if err != nil {
		return Body{}, &RenderError{Page: page, Err: err}
	}
	return body, nil
}

func (c *Controller) observe(ctx context.Context, content Content) {
	if c.observer != nil {
		c.observer.PageRendered(ctx, content.Page, content.TradeType, content.Status)
	}
}

// Chart returns the chart with id from the page of state
func (c *Controller) Chart(ds *dataset.Dataset, state domain.ViewState, id string) (Chart, error) {
	state = state.Normalize()
	v := view.Filter(ds, state.TradeType)
	if v.Empty() {
		return Chart{}, fmt.Errorf("%w: %s has no %s records", ErrEmptyChart, id, state.TradeType)
	}
	body, err := c.build(state.Page, v)
	if err != nil {
		return Chart{}, err
	}
	for _, ch := range body.Charts {
		if ch.ID == id {
			return ch, nil
		}
	}
	return Chart{}, fmt.Errorf("%w: %q on %s", ErrUnknownChart, id, state.Page)
}

func withImageURLs(body *Body, state domain.ViewState) {
	for i := range body.Charts {
		body.Charts[i].ImageURL = fmt.Sprintf("/api/pages/%s/charts/%s.png?trade_type=%s",
			state.Page, body.Charts[i].ID, state.TradeType)
	}
}
