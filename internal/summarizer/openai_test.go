package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type prefixTruncator struct{}

func (prefixTruncator) Truncate(text string, maxTokens int) string {
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}

	return strings.Join(words[:maxTokens], " ")
}

type completionServer struct {
	mu     sync.Mutex
	bodies []map[string]any
	text   string
}

func (c *completionServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}

		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "text_completion",
			"created": 0,
			"model":   body["model"],
			"choices": []map[string]any{{
				"index":         0,
				"text":          c.text,
				"finish_reason": "stop",
				"logprobs":      nil,
			}},
		})
	}
}

func newTestSummarizer(t *testing.T, srv *httptest.Server, params Params) *OpenAISummarizer {
	t.Helper()

	s, err := NewOpenAISummarizer(srv.URL+"/v1", "", "legal_led_final", params, prefixTruncator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return s
}

func TestOpenAISummarizerSendsBeamSearchSettings(t *testing.T) {
	fake := &completionServer{text: "  The appeal is dismissed.  "}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	params := DefaultParams()
	params.MaxInputTokens = 3

	s := newTestSummarizer(t, srv, params)

	res, err := s.Summarize(context.Background(), Input{Text: "one two three four five"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Summary != "The appeal is dismissed." {
		t.Fatalf("unexpected summary: %q", res.Summary)
	}

	if len(fake.bodies) != 1 {
		t.Fatalf("expected one request, got %d", len(fake.bodies))
	}

	body := fake.bodies[0]

	if body["prompt"] != "one two three" {
		t.Fatalf("expected truncated prompt, got %v", body["prompt"])
	}

	if body["model"] != "legal_led_final" {
		t.Fatalf("unexpected model: %v", body["model"])
	}

	checks := map[string]any{
		"max_tokens":           float64(2048),
		"min_tokens":           float64(50),
		"num_beams":            float64(4),
		"best_of":              float64(4),
		"length_penalty":       2.0,
		"early_stopping":       true,
		"use_beam_search":      true,
		"no_repeat_ngram_size": float64(3),
	}
	for key, want := range checks {
		if got := body[key]; got != want {
			t.Fatalf("unexpected %s: got %v want %v", key, got, want)
		}
	}
}

func TestOpenAISummarizerRejectsEmptyInput(t *testing.T) {
	fake := &completionServer{text: "unused"}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	s := newTestSummarizer(t, srv, DefaultParams())

	if _, err := s.Summarize(context.Background(), Input{Text: "  \n "}); err == nil {
		t.Fatalf("expected error for empty input")
	}

	if len(fake.bodies) != 0 {
		t.Fatalf("expected no generation request, got %d", len(fake.bodies))
	}
}

func TestOpenAISummarizerEmptyOutput(t *testing.T) {
	fake := &completionServer{text: "   "}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	s := newTestSummarizer(t, srv, DefaultParams())

	if _, err := s.Summarize(context.Background(), Input{Text: "document"}); err == nil {
		t.Fatalf("expected error for empty output")
	}
}

func TestNewOpenAISummarizerValidatesLengths(t *testing.T) {
	params := DefaultParams()
	params.MinLength = params.MaxLength + 1

	if _, err := NewOpenAISummarizer("http://localhost:8000/v1", "", "m", params, nil); err == nil {
		t.Fatalf("expected error for min length above max length")
	}

	if _, err := NewOpenAISummarizer(" ", "", "m", DefaultParams(), nil); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}
