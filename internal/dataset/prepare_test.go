package dataset

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"legalsum/internal/domain"
	"legalsum/internal/tokenizer/tokenizertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceLoader []domain.Example

func (l sliceLoader) Load(_ context.Context, progress func(loaded, total int)) ([]domain.Example, error) {
	if progress != nil {
		progress(len(l), len(l))
	}
	return l, nil
}

func countLines(t *testing.T, path string) int {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<24)

	n := 0
	for scanner.Scan() {
		n++
	}
	require.NoError(t, scanner.Err())

	return n
}

func TestPrepareWritesSplitsAndManifest(t *testing.T) {
	long := strings.Repeat("word ", 30)

	var raw sliceLoader
	for i := range 25 {
		raw = append(raw, domain.Example{Text: long, Summary: "summary"})
		if i%5 == 0 {
			raw = append(raw, domain.Example{Text: "short", Summary: "dropped"})
		}
	}

	enc, err := NewEncoder(tokenizertest.New(), 16, 4, 1)
	require.NoError(t, err)

	dir := t.TempDir()
	encoded := make(map[domain.Split]int)

	m, err := Prepare(context.Background(), raw, enc, PrepareOptions{
		Dataset:         "test/legal",
		OutputDir:       dir,
		MinTextLength:   100,
		MaxExamples:     20,
		Fractions:       DefaultFractions(),
		Seed:            42,
		SourceMaxLength: 16,
		TargetMaxLength: 4,
		OnEncode: func(split domain.Split, done, _ int) {
			encoded[split] = max(encoded[split], done)
		},
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, 30, m.Loaded)
	assert.Equal(t, 20, m.Kept)
	assert.Equal(t, map[domain.Split]int{
		domain.SplitTrain:      16,
		domain.SplitValidation: 2,
		domain.SplitTest:       2,
	}, m.Counts)

	for _, split := range domain.Splits {
		assert.Equal(t, m.Counts[split], countLines(t, SplitPath(dir, split)), "split %s", split)
	}
	assert.Equal(t, 16, encoded[domain.SplitTrain])

	read, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.Counts, read.Counts)
	assert.Equal(t, uint64(42), read.Seed)
	assert.Equal(t, "train.jsonl", read.Files[domain.SplitTrain])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), "temp file %s left behind", e.Name())
	}
}

func TestPrepareFailsWhenNothingSurvivesFilter(t *testing.T) {
	enc, err := NewEncoder(tokenizertest.New(), 8, 4, 1)
	require.NoError(t, err)

	_, err = Prepare(context.Background(), sliceLoader{{Text: "tiny", Summary: "x"}}, enc, PrepareOptions{
		OutputDir:     t.TempDir(),
		MinTextLength: 100,
		Fractions:     DefaultFractions(),
	}, slog.Default())
	require.ErrorIs(t, err, errNoExamples)
}
