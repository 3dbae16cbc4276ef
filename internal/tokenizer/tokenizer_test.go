package tokenizer_test

import (
	"os"
	"path/filepath"
	"testing"

	"legalsum/internal/tokenizer"
	"legalsum/internal/tokenizer/tokenizertest"

	"github.com/stretchr/testify/require"
)

func TestEncodePaddedPadsShortInput(t *testing.T) {
	tok := tokenizertest.New()

	enc, err := tokenizer.EncodePadded(tok, "the appeal fails", 8)
	require.NoError(t, err)

	require.Len(t, enc.IDs, 8)
	require.Len(t, enc.AttentionMask, 8)
	require.Equal(t, []int{1, 1, 1, 1, 1, 0, 0, 0}, enc.AttentionMask)
	require.Equal(t, tokenizertest.BOS, enc.IDs[0])
	require.Equal(t, tokenizertest.EOS, enc.IDs[4])
	require.Equal(t, []int{tokenizertest.Pad, tokenizertest.Pad, tokenizertest.Pad}, enc.IDs[5:])
}

func TestEncodePaddedTruncatesKeepingEOS(t *testing.T) {
	tok := tokenizertest.New()

	enc, err := tokenizer.EncodePadded(tok, "a b c d e f g h", 5)
	require.NoError(t, err)

	require.Len(t, enc.IDs, 5)
	require.Equal(t, []int{1, 1, 1, 1, 1}, enc.AttentionMask)
	require.Equal(t, tokenizertest.BOS, enc.IDs[0])
	require.Equal(t, tokenizertest.EOS, enc.IDs[4])
	require.Equal(t, "a b c", tok.Decode(enc.IDs[1:4]))
}

func TestEncodePaddedRejectsInvalidLength(t *testing.T) {
	_, err := tokenizer.EncodePadded(tokenizertest.New(), "text", 0)
	require.Error(t, err)
}

func TestTruncatorKeepsShortText(t *testing.T) {
	tr, err := tokenizer.NewTruncator(tokenizertest.New())
	require.NoError(t, err)

	text := "short   judgment text"
	require.Equal(t, text, tr.Truncate(text, 10))
}

func TestTruncatorCutsLongText(t *testing.T) {
	tr, err := tokenizer.NewTruncator(tokenizertest.New())
	require.NoError(t, err)

	// BOS counts against the budget, special tokens are dropped from the result.
	require.Equal(t, "one two", tr.Truncate("one two three four", 3))
}

func TestNewTruncatorRequiresTokenizer(t *testing.T) {
	_, err := tokenizer.NewTruncator(nil)
	require.Error(t, err)
}

func TestLoadMissingTokenizer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o600))

	_, err := tokenizer.Load(dir)
	require.Error(t, err)
}
