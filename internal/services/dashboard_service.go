package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"mtid/internal/chat"
	"mtid/internal/dataset"
	"mtid/internal/exporter"
	"mtid/internal/infrastructure"
	"mtid/internal/navigation"
	"mtid/internal/pages"
	"mtid/internal/session"
	"mtid/internal/table"
	"mtid/internal/view"
	api "mtid/pkg/contracts/api/v1"
	"mtid/pkg/contracts/domain"
)

// Asker answers chat messages; *chat.Service implements it
type Asker interface {
	Ask(ctx context.Context, sessionID string, tradeType domain.TradeType, message string) (chat.Reply, error)
}

// DashboardOptions are the collaborators of a DashboardService. Data and
// Sessions are required; the rest have defaults.
type DashboardOptions struct {
	Data     *dataset.Dataset
	Sessions *session.Store
	Pages    *pages.Controller
	Table    *table.Config
	Exporter *exporter.Exporter
	Chat     Asker
	Metrics  *infrastructure.DashboardMetrics
}

// DashboardService implements every dashboard operation on top of the
// immutable dataset and the per-session view state
type DashboardService struct {
	data       *dataset.Dataset
	sessions   *session.Store
	dispatcher *navigation.Dispatcher
	pages      *pages.Controller
	tableCfg   table.Config
	exporter   *exporter.Exporter
	chat       Asker
	metrics    *infrastructure.DashboardMetrics
	logger     *slog.Logger
}

// ExportFile is an encoded export ready to be sent
type ExportFile struct {
	Name        string
	ContentType string
	Format      exporter.Format
	Rows        int
	Data        []byte
}

// NewDashboardService wires a dashboard service
func NewDashboardService(opts DashboardOptions, logger *slog.Logger) (*DashboardService, error) {
	if opts.Data == nil {
		return nil, ErrDatasetNotLoaded
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("dashboard service: session store is required")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	cfg := table.DefaultConfig()
	if opts.Table != nil {
		cfg = *opts.Table
	}
	if opts.Pages == nil {
		opts.Pages = pages.NewController(logger, NewMetricsObserver(opts.Metrics))
	}
	if opts.Exporter == nil {
		opts.Exporter = exporter.New(logger, cfg.ColumnWidths)
	}

	logger.Info("DashboardService initialized",
		slog.Int("record_count", opts.Data.Len()),
		slog.Bool("chat_enabled", opts.Chat != nil))

	return &DashboardService{
		data:       opts.Data,
		sessions:   opts.Sessions,
		dispatcher: navigation.NewDispatcher(),
		pages:      opts.Pages,
		tableCfg:   cfg,
		exporter:   opts.Exporter,
		chat:       opts.Chat,
		metrics:    opts.Metrics,
		logger:     logger.With(slog.String("service", "dashboard")),
	}, nil
}

// State returns the session's view state and sidebar
func (s *DashboardService) State(ctx context.Context, sessionID string) api.StateResponse {
	state := s.sessions.Get(sessionID)
	return api.StateResponse{State: state, Sidebar: navigation.SidebarFor(state)}
}

// Dispatch applies one UI event to the session and renders the resulting page
func (s *DashboardService) Dispatch(ctx context.Context, sessionID string, ev navigation.Event) (api.EventResponse, error) {
	if sessionID == "" {
		return api.EventResponse{}, ErrSessionRequired
	}

	state, err := s.sessions.Update(sessionID, func(current domain.ViewState) (domain.ViewState, error) {
		return s.dispatcher.Reduce(current, ev)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "event rejected",
			slog.String("kind", string(ev.Kind)),
			slog.String("target", ev.Target),
			slog.String("error", err.Error()))
		return api.EventResponse{}, fmt.Errorf("dispatch event: %w", err)
	}

	s.logger.DebugContext(ctx, "event applied",
		slog.String("kind", string(ev.Kind)),
		slog.String("page", string(state.Page)),
		slog.String("trade_type", string(state.TradeType)))

	return api.EventResponse{
		State:   state,
		Sidebar: navigation.SidebarFor(state),
		Content: s.pages.Render(ctx, s.data, state),
	}, nil
}

// Page renders page for the session's trade type, or for tradeType when it
// is not empty. The session state is not changed.
func (s *DashboardService) Page(ctx context.Context, sessionID, page, tradeType string) pages.Content {
	state := s.stateFor(sessionID, tradeType)
	state.Page = domain.ParsePageID(page)
	return s.pages.Render(ctx, s.data, state)
}

// ChartPNG draws one chart of a page as PNG into w
func (s *DashboardService) ChartPNG(ctx context.Context, sessionID, page, chartID, tradeType string, w io.Writer, width, height int) error {
	state := s.stateFor(sessionID, tradeType)
	state.Page = domain.ParsePageID(page)

	ch, err := s.pages.Chart(s.data, state, chartID)
	if err == nil {
		err = pages.RenderPNG(ch, w, width, height)
	}
	s.metrics.RecordChartRender(ctx, string(state.Page), chartID, err)
	if err != nil {
		return fmt.Errorf("chart %s/%s: %w", state.Page, chartID, err)
	}
	return nil
}

// Info summarizes the records of the selected trade type
func (s *DashboardService) Info(ctx context.Context, sessionID, tradeType string) api.InfoResponse {
	tt := s.stateFor(sessionID, tradeType).TradeType
	summary := view.Summarize(view.Filter(s.data, tt))
	return api.InfoResponse{
		TradeType:    tt,
		Summary:      summary,
		InfoLine:     summary.InfoLine(),
		TradeBalance: view.FormatUSD(summary.TradeBalance()),
		LoadedAt:     s.data.LoadedAt(),
	}
}

// Table returns one page of the raw data table after sorting and filtering
func (s *DashboardService) Table(ctx context.Context, sessionID, tradeType string, params url.Values) (api.TableResponse, error) {
	tt := s.stateFor(sessionID, tradeType).TradeType
	q, err := table.ParseQuery(params)
	if err != nil {
		return api.TableResponse{}, fmt.Errorf("table query: %w", err)
	}

	v := view.Filter(s.data, tt)
	if v.Empty() {
		return api.TableResponse{
			NoData:  true,
			Message: table.NoDataMessage,
			Detail:  table.NoDataDetail,
			Page:    table.Page{Number: 1, Size: s.tableCfg.PageSize, TradeType: tt, Rows: []table.Row{}},
		}, nil
	}

	page, err := table.Apply(v, q, s.tableCfg)
	if err != nil {
		return api.TableResponse{}, fmt.Errorf("table query: %w", err)
	}
	cfg := s.tableCfg
	return api.TableResponse{
		Config:  &cfg,
		Columns: table.Columns(cfg),
		Page:    page,
	}, nil
}

// Export encodes the currently filtered and sorted table as format. An empty
// format uses the table's configured export format.
func (s *DashboardService) Export(ctx context.Context, sessionID, tradeType, format string, params url.Values) (ExportFile, error) {
	start := time.Now()
	tt := s.stateFor(sessionID, tradeType).TradeType

	if strings.TrimSpace(format) == "" {
		format = s.tableCfg.ExportFormat
	}
	f, err := exporter.ParseFormat(format)
	if err != nil {
		s.metrics.RecordExport(ctx, format, string(tt), 0, time.Since(start), err)
		return ExportFile{}, err
	}

	file, err := s.export(ctx, tt, f, params)
	s.metrics.RecordExport(ctx, string(f), string(tt), file.Rows, time.Since(start), err)
	return file, err
}

func (s *DashboardService) export(ctx context.Context, tt domain.TradeType, f exporter.Format, params url.Values) (ExportFile, error) {
	q, err := table.ParseQuery(params)
	if err != nil {
		return ExportFile{}, fmt.Errorf("export query: %w", err)
	}
	records, err := table.Select(view.Filter(s.data, tt), q)
	if err != nil {
		return ExportFile{}, fmt.Errorf("export query: %w", err)
	}

	var buf bytes.Buffer
	if err := s.exporter.Export(ctx, &buf, f, records); err != nil {
		return ExportFile{}, fmt.Errorf("export %s: %w", f, err)
	}
	return ExportFile{
		Name:        f.FileName(tt),
		ContentType: f.ContentType(),
		Format:      f,
		Rows:        len(records),
		Data:        buf.Bytes(),
	}, nil
}

// Dictionary lists the dataset columns
func (s *DashboardService) Dictionary() api.DictionaryResponse {
	return api.DictionaryResponse{Columns: domain.DataDictionary()}
}

// Chat answers a chat message for the session
func (s *DashboardService) Chat(ctx context.Context, sessionID string, req api.ChatRequest) (api.ChatResponse, error) {
	if s.chat == nil {
		return api.ChatResponse{}, ErrChatDisabled
	}
	if sessionID == "" {
		return api.ChatResponse{}, ErrSessionRequired
	}
	tt := s.stateFor(sessionID, req.TradeType).TradeType

	reply, err := s.chat.Ask(ctx, sessionID, tt, req.Message)
	if err != nil {
		return api.ChatResponse{}, fmt.Errorf("chat: %w", err)
	}
	return api.ChatResponse{
		Reply:     reply.Text,
		Source:    reply.Source,
		TradeType: reply.TradeType,
		Time:      reply.Time,
	}, nil
}

// SessionTradeType returns the trade type currently selected by the session
func (s *DashboardService) SessionTradeType(sessionID string) domain.TradeType {
	return s.sessions.Get(sessionID).TradeType
}

// stateFor snapshots the session state, overriding its trade type when
// tradeType is set. Unknown trade types select Formal.
func (s *DashboardService) stateFor(sessionID, tradeType string) domain.ViewState {
	var state domain.ViewState
	if sessionID != "" {
		state = s.sessions.Get(sessionID)
	} else {
		state = domain.DefaultViewState()
	}
	if strings.TrimSpace(tradeType) != "" {
		state.TradeType = navigation.TradeTypeForButton(tradeType)
	}
	return state.Normalize()
}
