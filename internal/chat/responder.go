package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mtid/internal/view"
)

// Request is what a responder is asked to answer
type Request struct {
	Message string
	Context DatasetContext
	History []Turn
}

// Turn is one earlier message of the conversation
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Responder answers chat messages
type Responder interface {
	Name() string
	Reply(ctx context.Context, req Request) (string, error)
}

// HTTPResponder forwards messages to a text-generation endpoint that speaks
// the common chat-completions JSON shape.
type HTTPResponder struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// NewHTTPResponder creates a responder for endpoint
func NewHTTPResponder(endpoint, model, apiKey string, timeout time.Duration) *HTTPResponder {
	return &HTTPResponder{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name implements Responder
func (h *HTTPResponder) Name() string { return "remote" }

type completionRequest struct {
	Model    string `json:"model,omitempty"`
	Messages []Turn `json:"messages"`
}

type completionResponse struct {
	Reply   string `json:"reply"`
	Choices []struct {
		Message Turn `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Reply implements Responder
func (h *HTTPResponder) Reply(ctx context.Context, req Request) (string, error) {
	messages := make([]Turn, 0, len(req.History)+2)
	messages = append(messages, Turn{Role: "system", Content: req.Context.Prompt()})
	messages = append(messages, req.History...)
	messages = append(messages, Turn{Role: "user", Content: req.Message})

	payload, err := json.Marshal(completionRequest{Model: h.model, Messages: messages})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrUpstream, out.Error.Message)
	}
	if out.Reply != "" {
		return out.Reply, nil
	}
	if len(out.Choices) > 0 && out.Choices[0].Message.Content != "" {
		return out.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("%w: empty reply", ErrUpstream)
}

// LocalResponder answers common questions from the dataset context alone
type LocalResponder struct{}

// Name implements Responder
func (LocalResponder) Name() string { return "local" }

type topic struct {
	keywords []string
	answer   func(DatasetContext) string
}

var topics = []topic{
	{[]string{"balance", "surplus", "deficit"}, func(c DatasetContext) string {
		return fmt.Sprintf("The %s trade balance is %s (exports %s, imports %s).",
			lower(c), view.FormatUSD(c.Summary.TradeBalance()),
			view.FormatUSD(c.Summary.TotalExportsUSD), view.FormatUSD(c.Summary.TotalImportsUSD))
	}},
	{[]string{"export"}, func(c DatasetContext) string {
		return fmt.Sprintf("Total %s exports are %s.", lower(c), view.FormatUSD(c.Summary.TotalExportsUSD))
	}},
	{[]string{"import"}, func(c DatasetContext) string {
		return fmt.Sprintf("Total %s imports are %s.", lower(c), view.FormatUSD(c.Summary.TotalImportsUSD))
	}},
	{[]string{"partner", "country", "countries"}, func(c DatasetContext) string {
		if len(c.TopPartners) == 0 {
			return "There are no partner countries in the current dataset."
		}
		return fmt.Sprintf("The dataset covers %d partner countries. The largest by trade value are %s.",
			c.Summary.DistinctPartners, strings.Join(c.TopPartners, ", "))
	}},
	{[]string{"product", "hs", "commodit"}, func(c DatasetContext) string {
		if len(c.TopProducts) == 0 {
			return "There are no products in the current dataset."
		}
		return fmt.Sprintf("There are %d distinct HS codes. The top products by value are %s.",
			c.Summary.DistinctProducts, strings.Join(c.TopProducts, ", "))
	}},
	{[]string{"year", "quarter", "period"}, func(c DatasetContext) string {
		return "The current dataset covers " + periodText(c.Summary) + "."
	}},
	{[]string{"record", "rows", "how many", "size"}, func(c DatasetContext) string {
		return fmt.Sprintf("The %s dataset has %s records across %d columns.",
			lower(c), view.FormatThousands(int64(c.Summary.RecordCount)), c.Summary.ColumnCount)
	}},
}

// Reply implements Responder
func (LocalResponder) Reply(_ context.Context, req Request) (string, error) {
	msg := strings.ToLower(req.Message)
	for _, t := range topics {
		for _, k := range t.keywords {
			if strings.Contains(msg, k) {
				return t.answer(req.Context), nil
			}
		}
	}
	return fmt.Sprintf("I can answer questions about the %s trade data: exports, imports, "+
		"the trade balance, partner countries, products, periods and record counts. %s",
		lower(req.Context), req.Context.Summary.InfoLine()), nil
}

func lower(c DatasetContext) string {
	return strings.ToLower(string(c.TradeType))
}

func periodText(s view.DatasetSummary) string {
	if len(s.DistinctYears) == 0 {
		return "no periods"
	}
	years := make([]string, len(s.DistinctYears))
	for i, y := range s.DistinctYears {
		years[i] = fmt.Sprint(y)
	}
	quarters := make([]string, len(s.DistinctQuarters))
	for i, q := range s.DistinctQuarters {
		quarters[i] = string(q)
	}
	return fmt.Sprintf("years %s and quarters %s", strings.Join(years, ", "), strings.Join(quarters, ", "))
}
