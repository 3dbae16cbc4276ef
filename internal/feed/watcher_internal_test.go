package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"legalsum/internal/domain"
	"legalsum/internal/extract"
	"legalsum/internal/summarizer"
)

type memoryJudgmentStore struct {
	mu        sync.Mutex
	judgments map[string]domain.Judgment
}

func newMemoryJudgmentStore() *memoryJudgmentStore {
	return &memoryJudgmentStore{judgments: make(map[string]domain.Judgment)}
}

func (m *memoryJudgmentStore) HasJudgment(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.judgments[url]

	return ok, nil
}

func (m *memoryJudgmentStore) AddJudgment(_ context.Context, j domain.Judgment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.judgments[j.URL] = j

	return nil
}

type recordingSummarizer struct {
	mu     sync.Mutex
	inputs []string
}

func (s *recordingSummarizer) Summarize(_ context.Context, input summarizer.Input) (summarizer.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, input.Text)

	return summarizer.Result{Summary: fmt.Sprintf("summary %d", len(s.inputs))}, nil
}

var longDescription = strings.Repeat("The High Court upheld the cancellation of land allotments. ", 3)

func newJudgmentFeedServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/rss", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Judgments</title>
<link>%[1]s</link>
<item>
<title>Civil Appeal 1</title>
<link>%[1]s/judgment/1</link>
<description>%[2]s</description>
<pubDate>Mon, 03 Apr 2023 10:00:00 +0000</pubDate>
</item>
<item>
<title>Criminal Appeal 2</title>
<link>%[1]s/judgment/2</link>
<description>Short teaser.</description>
</item>
<item>
<title>Known</title>
<link>%[1]s/judgment/known</link>
<description>%[2]s</description>
</item>
</channel>
</rss>`, srv.URL, longDescription)
	})

	mux.HandleFunc("/judgment/2", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><p>Full text of criminal appeal two.</p></body></html>"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestWatcherCheckFeedsStoresNewJudgments(t *testing.T) {
	srv := newJudgmentFeedServer(t)

	store := newMemoryJudgmentStore()
	store.judgments[srv.URL+"/judgment/known"] = domain.Judgment{URL: srv.URL + "/judgment/known"}

	ex, err := extract.New(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := &recordingSummarizer{}
	w := NewWatcher([]string{srv.URL + "/rss", " " + srv.URL + "/rss "}, store, sum, ex, slog.Default())

	if got := len(w.Feeds()); got != 1 {
		t.Fatalf("expected duplicate feeds to be collapsed, got %d", got)
	}

	added, err := w.CheckFeeds(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if added != 2 {
		t.Fatalf("expected two new judgments, got %d", added)
	}

	if len(sum.inputs) != 2 {
		t.Fatalf("expected two generations, got %d", len(sum.inputs))
	}

	if sum.inputs[0] != strings.TrimSpace(longDescription) {
		t.Fatalf("expected inline description to be summarized, got %q", sum.inputs[0])
	}

	if sum.inputs[1] != "Full text of criminal appeal two." {
		t.Fatalf("expected linked page to be summarized, got %q", sum.inputs[1])
	}

	first := store.judgments[srv.URL+"/judgment/1"]
	if first.Title != "Civil Appeal 1" || first.PublishedAt.IsZero() || first.FeedURL != srv.URL+"/rss" {
		t.Fatalf("unexpected stored judgment: %+v", first)
	}

	added, err = w.CheckFeeds(context.Background())
	if err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}

	if added != 0 || len(sum.inputs) != 2 {
		t.Fatalf("expected second run to skip known judgments, added %d, generations %d", added, len(sum.inputs))
	}
}

func TestWatcherCheckFeedsReportsBrokenFeed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ex, err := extract.New(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := NewWatcher([]string{srv.URL + "/rss"}, newMemoryJudgmentStore(), &recordingSummarizer{}, ex, slog.Default())

	added, err := w.CheckFeeds(context.Background())
	if err == nil {
		t.Fatalf("expected error for missing feed")
	}

	if added != 0 {
		t.Fatalf("expected nothing to be added, got %d", added)
	}
}
