// Package tokenizertest provides a deterministic whitespace tokenizer for tests.
package tokenizertest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gomlx/go-huggingface/tokenizers/api"
)

const (
	BOS = 0
	Pad = 1
	EOS = 2
)

// Words assigns ids to whitespace-separated words in order of first sight and
// wraps every encoding in BOS/EOS like the BART-family tokenizers do.
type Words struct {
	mu    sync.Mutex
	ids   map[string]int
	words []string
}

func New() *Words {
	return &Words{
		ids:   make(map[string]int),
		words: []string{"<s>", "<pad>", "</s>"},
	}
}

func (w *Words) Encode(text string) []int {
	w.mu.Lock()
	defer w.mu.Unlock()

	fields := strings.Fields(text)
	out := make([]int, 0, len(fields)+2)
	out = append(out, BOS)
	for _, f := range fields {
		id, ok := w.ids[f]
		if !ok {
			id = len(w.words)
			w.ids[f] = id
			w.words = append(w.words, f)
		}
		out = append(out, id)
	}

	return append(out, EOS)
}

func (w *Words) Decode(ids []int) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id >= 0 && id < len(w.words) {
			parts = append(parts, w.words[id])
		}
	}

	return strings.Join(parts, " ")
}

func (w *Words) SpecialTokenID(token api.SpecialToken) (int, error) {
	switch token {
	case api.TokBeginningOfSentence:
		return BOS, nil
	case api.TokPad:
		return Pad, nil
	case api.TokEndOfSentence:
		return EOS, nil
	default:
		return 0, fmt.Errorf("unknown special token: %d", int(token))
	}
}
