package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"legalsum/internal/domain"
	"legalsum/internal/extract"
	"legalsum/internal/queue"
	"legalsum/internal/summarizer"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	previewRunes     = 200
	storeTimeout     = 5 * time.Second
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type Store interface {
	AddSummary(ctx context.Context, r domain.SummaryRecord) error
	GetRecentSummaries(ctx context.Context, limit int) ([]domain.SummaryRecord, error)
	GetRecentJudgments(ctx context.Context, limit int) ([]domain.Judgment, error)
}

type Extractor interface {
	Text(ctx context.Context, raw string) (string, error)
}

type Server struct {
	summarizer summarizer.Summarizer
	extractor  Extractor
	store      Store
	metrics    *metrics
	now        func() time.Time
	log        *slog.Logger
}

// New wires the HTTP surface. queueLen may be nil when no queue is in front of
// the summarizer.
func New(
	s summarizer.Summarizer,
	extractor Extractor,
	store Store,
	queueLen func() int,
	log *slog.Logger,
) *Server {
	return &Server{
		summarizer: s,
		extractor:  extractor,
		store:      store,
		metrics:    newMetrics(queueLen),
		now:        time.Now,
		log:        log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /summarize", s.handleSummarize)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /judgments", s.handleJudgments)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.handler())

	return mux
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	Summary        string `json:"summary"`
	ProcessingTime string `json:"processing_time"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type summaryItem struct {
	ID             string    `json:"id"`
	TextPreview    string    `json:"text_preview"`
	Summary        string    `json:"summary"`
	ProcessingTime string    `json:"processing_time"`
	CreatedAt      time.Time `json:"created_at"`
}

type judgmentItem struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	FeedURL     string     `json:"feed_url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type indexData struct {
	Title       string
	Subtitle    string
	Samples     []Sample
	SampleTexts []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	texts := make([]string, len(samples))
	for i, sample := range samples {
		texts[i] = sample.Text
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := indexTemplate.Execute(w, indexData{
		Title:       "Legal Document Summarizer",
		Subtitle:    "Indian Legal Documents AI Summarization",
		Samples:     samples,
		SampleTexts: texts,
	})
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to render index",
			"error", err)
	}
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.requests.WithLabelValues("bad_request").Inc()
		s.writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	text, err := s.extractor.Text(ctx, req.Text)
	if err != nil {
		status, outcome := http.StatusBadGateway, "fetch_error"
		if errors.Is(err, extract.ErrEmpty) {
			status, outcome = http.StatusBadRequest, "bad_request"
		}
		s.metrics.requests.WithLabelValues(outcome).Inc()
		s.writeError(ctx, w, status, err)
		return
	}

	res, err := s.summarizer.Summarize(ctx, summarizer.Input{Text: text})
	if err != nil {
		s.handleSummarizeError(ctx, w, err, text)
		return
	}

	s.metrics.requests.WithLabelValues("ok").Inc()
	s.metrics.generationTime.Observe(res.Elapsed.Seconds())

	s.log.InfoContext(ctx, "Summary is generated",
		"textLength", utf8.RuneCountInString(text),
		"summaryLength", utf8.RuneCountInString(res.Summary),
		"processingTime", res.Elapsed.Seconds())

	s.recordSummary(ctx, text, res)

	s.writeJSON(ctx, w, http.StatusOK, summarizeResponse{
		Summary:        res.Summary,
		ProcessingTime: formatSeconds(res.Elapsed),
	})
}

func (s *Server) handleSummarizeError(ctx context.Context, w http.ResponseWriter, err error, text string) {
	switch {
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrStopped):
		s.metrics.requests.WithLabelValues("unavailable").Inc()
		s.writeError(ctx, w, http.StatusServiceUnavailable, err)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		s.metrics.requests.WithLabelValues("cancelled").Inc()
		s.log.InfoContext(ctx, "Client went away before the summary was ready",
			"textLength", utf8.RuneCountInString(text))
	case errors.Is(err, context.DeadlineExceeded):
		s.metrics.requests.WithLabelValues("timeout").Inc()
		s.writeError(ctx, w, http.StatusGatewayTimeout, err)
	default:
		s.metrics.requests.WithLabelValues("error").Inc()
		s.log.ErrorContext(ctx, "Failed to summarize",
			"error", err,
			"textLength", utf8.RuneCountInString(text))
		s.writeError(ctx, w, http.StatusInternalServerError, errors.New("failed to generate summary"))
	}
}

func (s *Server) recordSummary(ctx context.Context, text string, res summarizer.Result) {
	if s.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	record := domain.SummaryRecord{
		ID:             uuid.NewString(),
		TextHash:       summarizer.TextHash(text),
		TextPreview:    preview(text),
		Summary:        res.Summary,
		ProcessingTime: res.Elapsed,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.store.AddSummary(ctx, record); err != nil {
		s.log.ErrorContext(ctx, "Failed to record summary",
			"error", err,
			"summaryID", record.ID)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	records, err := s.store.GetRecentSummaries(ctx, limit)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get summaries",
			"error", err,
			"limit", limit)
		s.writeError(ctx, w, http.StatusInternalServerError, errors.New("failed to load history"))
		return
	}

	items := make([]summaryItem, 0, len(records))
	for _, rec := range records {
		items = append(items, summaryItem{
			ID:             rec.ID,
			TextPreview:    rec.TextPreview,
			Summary:        rec.Summary,
			ProcessingTime: formatSeconds(rec.ProcessingTime),
			CreatedAt:      rec.CreatedAt,
		})
	}

	s.writeJSON(ctx, w, http.StatusOK, items)
}

func (s *Server) handleJudgments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	judgments, err := s.store.GetRecentJudgments(ctx, limit)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get judgments",
			"error", err,
			"limit", limit)
		s.writeError(ctx, w, http.StatusInternalServerError, errors.New("failed to load judgments"))
		return
	}

	items := make([]judgmentItem, 0, len(judgments))
	for _, j := range judgments {
		item := judgmentItem{
			URL:       j.URL,
			Title:     j.Title,
			Summary:   j.Summary,
			FeedURL:   j.FeedURL,
			CreatedAt: j.CreatedAt,
		}
		if !j.PublishedAt.IsZero() {
			publishedAt := j.PublishedAt
			item.PublishedAt = &publishedAt
		}
		items = append(items, item)
	}

	s.writeJSON(ctx, w, http.StatusOK, items)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	s.writeJSON(ctx, w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WarnContext(ctx, "Failed to write response",
			"error", err,
			"status", status)
	}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}

	return min(limit, maxListLimit), nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 2, 64)
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}

	runes := []rune(text)

	return string(runes[:previewRunes]) + "…"
}
