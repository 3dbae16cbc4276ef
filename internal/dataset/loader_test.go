package dataset

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"legalsum/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRowsServer(t *testing.T, total int) (*httptest.Server, *[]string) {
	t.Helper()

	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rows" {
			http.NotFound(w, r)
			return
		}

		q := r.URL.Query()
		if q.Get("dataset") != "ninadn/indian-legal" || q.Get("split") != "train" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprint(w, `{"error":"unknown dataset"}`)
			return
		}

		offsets = append(offsets, q.Get("offset"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		length, _ := strconv.Atoi(q.Get("length"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"rows":[`)
		for i := offset; i < min(offset+length, total); i++ {
			if i > offset {
				_, _ = fmt.Fprint(w, ",")
			}
			if i == 1 {
				_, _ = fmt.Fprintf(w, `{"row_idx":%d,"row":{"Text":"doc %d","Summary":null}}`, i, i)
				continue
			}
			_, _ = fmt.Fprintf(w, `{"row_idx":%d,"row":{"Text":"doc %d","Summary":"sum %d"}}`, i, i, i)
		}
		_, _ = fmt.Fprintf(w, `],"num_rows_total":%d}`, total)
	}))
	t.Cleanup(srv.Close)

	return srv, &offsets
}

func TestHubLoaderPagesThroughRows(t *testing.T) {
	srv, offsets := newRowsServer(t, 5)

	loader, err := NewHubLoader(srv.URL, "ninadn/indian-legal", "default", "train", "", Columns{Text: "Text", Summary: "Summary"})
	require.NoError(t, err)
	loader.pageSize = 2

	var progress [][2]int
	examples, err := loader.Load(context.Background(), func(loaded, total int) {
		progress = append(progress, [2]int{loaded, total})
	})
	require.NoError(t, err)

	require.Len(t, examples, 5)
	assert.Equal(t, domain.Example{Text: "doc 0", Summary: "sum 0"}, examples[0])
	assert.Equal(t, domain.Example{Text: "doc 1", Summary: ""}, examples[1])
	assert.Equal(t, []string{"0", "2", "4"}, *offsets)
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, progress)
}

func TestHubLoaderReportsErrors(t *testing.T) {
	srv, _ := newRowsServer(t, 1)

	loader, err := NewHubLoader(srv.URL, "someone/else", "default", "train", "", Columns{Text: "Text", Summary: "Summary"})
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), nil)
	require.ErrorContains(t, err, "unknown dataset")
}

func TestNewHubLoaderValidates(t *testing.T) {
	_, err := NewHubLoader("", " ", "default", "train", "", Columns{Text: "Text", Summary: "Summary"})
	require.Error(t, err)

	_, err = NewHubLoader("", "a/b", "default", "train", "", Columns{Text: "Text"})
	require.Error(t, err)

	l, err := NewHubLoader("", "a/b", "default", "train", "", Columns{Text: "Text", Summary: "Summary"})
	require.NoError(t, err)
	assert.Equal(t, DefaultHubBaseURL, l.baseURL)
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	content := `{"Text":"first","Summary":"one"}

{"Text":"second"}
{"Text":3,"Summary":"three"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loader, err := NewFileLoader(path, Columns{Text: "Text", Summary: "Summary"})
	require.NoError(t, err)

	examples, err := loader.Load(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []domain.Example{
		{Text: "first", Summary: "one"},
		{Text: "second", Summary: ""},
		{Text: "3", Summary: "three"},
	}, examples)
}

func TestFileLoaderRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"Text\":\n"), 0o600))

	loader, err := NewFileLoader(path, Columns{Text: "Text", Summary: "Summary"})
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), nil)
	require.ErrorContains(t, err, "line 1")
}
