// Package extract turns submitted documents into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"mvdan.cc/xurls/v2"
)

const (
	fetchClientTimeout = 20 * time.Second
	maxFetchBodyBytes  = 16 << 20
)

var (
	ErrEmpty = errors.New("text is empty")

	htmlTagRe    = regexp.MustCompile(`(?i)<\s*(html|body|div|p|br|table|article|section|span|h[1-6])\b`)
	innerSpaceRe = regexp.MustCompile(`[ \t\f\r\v]+`)
)

const blockSelectors = "p, div, li, tr, h1, h2, h3, h4, h5, h6, pre, blockquote, article, section"

type Extractor struct {
	client    *http.Client
	fetchURLs bool
	httpsRe   *regexp.Regexp
}

// New builds an Extractor. When fetchURLs is set a document that consists of
// a single https URL is replaced by the text of that page.
func New(fetchURLs bool) (*Extractor, error) {
	httpsRe, err := xurls.StrictMatchingScheme("https://")
	if err != nil {
		return nil, fmt.Errorf("create regexp: %w", err)
	}

	return &Extractor{
		client:    &http.Client{Timeout: fetchClientTimeout},
		fetchURLs: fetchURLs,
		httpsRe:   httpsRe,
	}, nil
}

// Text returns the plain text of raw, which may be plain text, an HTML
// document, or (when enabled) a link to one.
func (e *Extractor) Text(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmpty
	}

	if e.fetchURLs {
		if url, ok := e.singleURL(raw); ok {
			return e.FetchText(ctx, url)
		}
	}

	if !LooksLikeHTML(raw) {
		return raw, nil
	}

	text, err := HTMLText(strings.NewReader(raw))
	if err != nil {
		return "", err
	}

	if text == "" {
		return "", ErrEmpty
	}

	return text, nil
}

// FetchText downloads an HTML page and returns its text.
func (e *Extractor) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, url)
	}

	text, err := HTMLText(io.LimitReader(resp.Body, maxFetchBodyBytes))
	if err != nil {
		return "", err
	}

	if text == "" {
		return "", ErrEmpty
	}

	return text, nil
}

func (e *Extractor) singleURL(raw string) (string, bool) {
	if strings.ContainsAny(raw, " \t\n") {
		return "", false
	}

	url := e.httpsRe.FindString(raw)
	if url == "" || url != raw {
		return "", false
	}

	return url, true
}

// LooksLikeHTML reports whether s contains markup worth flattening.
func LooksLikeHTML(s string) bool {
	return htmlTagRe.MatchString(s)
}

// HTMLText flattens an HTML document. Scripts and styles are dropped, line
// breaks and block boundaries become newlines, blank lines are dropped.
func HTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, head").Remove()

	doc.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml("\n")
	})

	doc.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return normalize(doc.Text()), nil
}

func normalize(text string) string {
	var lines []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(innerSpaceRe.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}
