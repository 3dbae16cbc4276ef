package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"legalsum/internal/domain"
	"legalsum/internal/extract"
	"legalsum/internal/summarizer"

	"github.com/mmcdole/gofeed"
)

const (
	feedClientTimeout   = 20 * time.Second
	maxItemsPerFeed     = 20
	minInlineTextLength = 100
)

type JudgmentStore interface {
	HasJudgment(ctx context.Context, url string) (bool, error)
	AddJudgment(ctx context.Context, j domain.Judgment) error
}

type TextSource interface {
	Text(ctx context.Context, raw string) (string, error)
	FetchText(ctx context.Context, url string) (string, error)
}

// Watcher polls judgment feeds and stores a summary for every new item.
type Watcher struct {
	feeds      []string
	store      JudgmentStore
	summarizer summarizer.Summarizer
	text       TextSource
	libParser  *gofeed.Parser
	now        func() time.Time
	log        *slog.Logger
}

func NewWatcher(
	feeds []string,
	store JudgmentStore,
	s summarizer.Summarizer,
	text TextSource,
	log *slog.Logger,
) *Watcher {
	libParser := gofeed.NewParser()
	libParser.Client = &http.Client{Timeout: feedClientTimeout}

	var cleaned []string
	seen := make(map[string]struct{}, len(feeds))
	for _, f := range feeds {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		cleaned = append(cleaned, f)
	}

	return &Watcher{
		feeds:      cleaned,
		store:      store,
		summarizer: s,
		text:       text,
		libParser:  libParser,
		now:        time.Now,
		log:        log,
	}
}

func (w *Watcher) Feeds() []string {
	return w.feeds
}

// CheckFeeds returns the number of judgments added. Failures of single feeds
// or items do not stop the run and are joined into the returned error.
func (w *Watcher) CheckFeeds(ctx context.Context) (int, error) {
	var (
		added int
		errs  []error
	)

	for _, feedURL := range w.feeds {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		n, err := w.checkFeed(ctx, feedURL)
		added += n
		if err != nil {
			errs = append(errs, fmt.Errorf("check feed (URL = %s): %w", feedURL, err))
		}
	}

	return added, errors.Join(errs...)
}

func (w *Watcher) checkFeed(ctx context.Context, feedURL string) (int, error) {
	parsed, err := w.libParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return 0, fmt.Errorf("parse feed: %w", err)
	}

	items := parsed.Items
	if len(items) > maxItemsPerFeed {
		items = items[:maxItemsPerFeed]
	}

	var (
		added int
		errs  []error
	)

	for _, item := range items {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		ok, itemErr := w.processItem(ctx, feedURL, item)
		if itemErr != nil {
			errs = append(errs, fmt.Errorf("process item (link = %s): %w", item.Link, itemErr))
			continue
		}
		if ok {
			added++
		}
	}

	w.log.InfoContext(ctx, "Feed is checked",
		"feedURL", feedURL,
		"itemCount", len(items),
		"added", added,
		"errorCount", len(errs))

	return added, errors.Join(errs...)
}

func (w *Watcher) processItem(ctx context.Context, feedURL string, item *gofeed.Item) (bool, error) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return false, nil
	}

	exists, err := w.store.HasJudgment(ctx, link)
	if err != nil {
		return false, fmt.Errorf("check judgment: %w", err)
	}
	if exists {
		return false, nil
	}

	text, err := w.itemText(ctx, item)
	if err != nil {
		return false, fmt.Errorf("extract text: %w", err)
	}

	res, err := w.summarizer.Summarize(ctx, summarizer.Input{Text: text})
	if err != nil {
		return false, fmt.Errorf("summarize: %w", err)
	}

	j := domain.Judgment{
		FeedURL:   feedURL,
		URL:       link,
		Title:     strings.TrimSpace(item.Title),
		Summary:   res.Summary,
		CreatedAt: w.now().UTC(),
	}
	if item.PublishedParsed != nil {
		j.PublishedAt = *item.PublishedParsed
	}

	if err = w.store.AddJudgment(ctx, j); err != nil {
		return false, fmt.Errorf("add judgment: %w", err)
	}

	return true, nil
}

// itemText prefers the item's own content and falls back to the linked page
// when the feed only carries a teaser.
func (w *Watcher) itemText(ctx context.Context, item *gofeed.Item) (string, error) {
	for _, raw := range []string{item.Content, item.Description} {
		text, err := w.text.Text(ctx, raw)
		if err != nil {
			continue
		}
		if utf8.RuneCountInString(text) > minInlineTextLength {
			return text, nil
		}
	}

	return w.text.FetchText(ctx, strings.TrimSpace(item.Link))
}

var _ TextSource = (*extract.Extractor)(nil)
