package dataset

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"legalsum/internal/domain"

	"github.com/tidwall/gjson"
)

const (
	DefaultHubBaseURL = "https://datasets-server.huggingface.co"

	hubClientTimeout = 60 * time.Second
	hubMaxPageSize   = 100
	maxLineBytes     = 64 << 20
)

// Loader returns the raw (unfiltered) examples of a dataset split.
type Loader interface {
	Load(ctx context.Context, progress func(loaded, total int)) ([]domain.Example, error)
}

// Columns names the fields holding the document and its reference summary.
type Columns struct {
	Text    string
	Summary string
}

// HubLoader pages through the Hugging Face datasets-server rows API.
type HubLoader struct {
	client   *http.Client
	baseURL  string
	dataset  string
	config   string
	split    string
	token    string
	columns  Columns
	pageSize int
}

func NewHubLoader(
	baseURL string,
	dataset string,
	config string,
	split string,
	token string,
	columns Columns,
) (*HubLoader, error) {
	dataset = strings.TrimSpace(dataset)
	if dataset == "" {
		return nil, errors.New("dataset name is empty")
	}

	if columns.Text == "" || columns.Summary == "" {
		return nil, errors.New("dataset columns are not set")
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultHubBaseURL
	}

	return &HubLoader{
		client:   &http.Client{Timeout: hubClientTimeout},
		baseURL:  baseURL,
		dataset:  dataset,
		config:   config,
		split:    split,
		token:    strings.TrimSpace(token),
		columns:  columns,
		pageSize: hubMaxPageSize,
	}, nil
}

func (l *HubLoader) Load(ctx context.Context, progress func(loaded, total int)) ([]domain.Example, error) {
	var (
		examples []domain.Example
		total    = -1
	)

	for offset := 0; total < 0 || offset < total; {
		page, pageTotal, err := l.fetchPage(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch rows (offset = %d): %w", offset, err)
		}

		total = pageTotal
		if len(page) == 0 {
			break
		}

		examples = append(examples, page...)
		offset += len(page)

		if progress != nil {
			progress(len(examples), total)
		}
	}

	return examples, nil
}

func (l *HubLoader) fetchPage(ctx context.Context, offset int) ([]domain.Example, int, error) {
	q := url.Values{}
	q.Set("dataset", l.dataset)
	q.Set("config", l.config)
	q.Set("split", l.split)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("length", strconv.Itoa(l.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/rows?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf(
			"unexpected status code %d: %s",
			resp.StatusCode,
			gjson.GetBytes(body, "error").String(),
		)
	}

	if !gjson.ValidBytes(body) {
		return nil, 0, errors.New("response is not valid JSON")
	}

	result := gjson.ParseBytes(body)

	var examples []domain.Example
	result.Get("rows").ForEach(func(_, row gjson.Result) bool {
		examples = append(examples, l.columns.example(row.Get("row")))
		return true
	})

	return examples, int(result.Get("num_rows_total").Int()), nil
}

// FileLoader reads a JSON Lines export with one object per example.
type FileLoader struct {
	path    string
	columns Columns
}

func NewFileLoader(path string, columns Columns) (*FileLoader, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("dataset path is empty")
	}

	if columns.Text == "" || columns.Summary == "" {
		return nil, errors.New("dataset columns are not set")
	}

	return &FileLoader{path: path, columns: columns}, nil
}

func (l *FileLoader) Load(ctx context.Context, progress func(loaded, total int)) ([]domain.Example, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), maxLineBytes)

	var (
		examples []domain.Example
		lineNo   int
	)
	for scanner.Scan() {
		lineNo++

		if err = ctx.Err(); err != nil {
			return nil, err
		}

		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		if !gjson.ValidBytes(line) {
			return nil, fmt.Errorf("line %d is not valid JSON", lineNo)
		}

		examples = append(examples, l.columns.example(gjson.ParseBytes(line)))

		if progress != nil {
			progress(len(examples), -1)
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	return examples, nil
}

// example keeps values as loaded; null or missing fields become empty strings
// and non-string scalars are rendered as text.
func (c Columns) example(row gjson.Result) domain.Example {
	return domain.Example{
		Text:    row.Get(c.Text).String(),
		Summary: row.Get(c.Summary).String(),
	}
}
