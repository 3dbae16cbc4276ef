// Package tokenizer loads the checkpoint's tokenizer and applies the
// truncation and padding conventions used for both serving and training.
package tokenizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/gomlx/go-huggingface/tokenizers"
	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/gomlx/go-huggingface/tokenizers/hftokenizer"
)

// Tokenizer is the Encode/Decode/SpecialTokenID interface from go-huggingface.
type Tokenizer = tokenizers.Tokenizer

// Load loads a tokenizer from a local model directory.
// It prefers tokenizer.json and falls back to a SentencePiece tokenizer.model.
func Load(modelPath string) (Tokenizer, error) {
	var config *api.Config
	configPath := filepath.Join(modelPath, "tokenizer_config.json")
	if _, err := os.Stat(configPath); err == nil {
		config, err = api.ParseConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("parse tokenizer config: %w", err)
		}
	}

	tokenizerJSONPath := filepath.Join(modelPath, "tokenizer.json")
	if _, err := os.Stat(tokenizerJSONPath); err == nil {
		tok, err := hftokenizer.NewFromFile(config, tokenizerJSONPath)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer.json: %w", err)
		}
		return tok, nil
	}

	spModelPath := filepath.Join(modelPath, "tokenizer.model")
	if _, err := os.Stat(spModelPath); err == nil {
		proc, err := esentencepiece.NewProcessorFromPath(spModelPath)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer.model: %w", err)
		}
		return &sentencepieceTokenizer{
			Processor: proc,
			Info:      proc.ModelInfo(),
		}, nil
	}

	return nil, fmt.Errorf("no tokenizer found in %s (expected tokenizer.json or tokenizer.model)", modelPath)
}

// Encoding is a fixed-length tokenization with its attention mask.
type Encoding struct {
	IDs           []int
	AttentionMask []int
}

// EncodePadded tokenizes text, truncates it to maxLen keeping the final
// end-of-sequence token, and right-pads with the pad token.
func EncodePadded(tok Tokenizer, text string, maxLen int) (Encoding, error) {
	if maxLen <= 0 {
		return Encoding{}, fmt.Errorf("invalid max length %d", maxLen)
	}

	padID, err := tok.SpecialTokenID(api.TokPad)
	if err != nil {
		return Encoding{}, fmt.Errorf("pad token: %w", err)
	}

	ids := truncateIDs(tok, tok.Encode(text), maxLen)

	enc := Encoding{
		IDs:           make([]int, maxLen),
		AttentionMask: make([]int, maxLen),
	}
	for i := range maxLen {
		if i < len(ids) {
			enc.IDs[i] = ids[i]
			enc.AttentionMask[i] = 1
			continue
		}
		enc.IDs[i] = padID
	}

	return enc, nil
}

// Truncator adapts a Tokenizer to cut documents to a token budget.
type Truncator struct {
	tok Tokenizer
}

func NewTruncator(tok Tokenizer) (*Truncator, error) {
	if tok == nil {
		return nil, errors.New("tokenizer is nil")
	}
	return &Truncator{tok: tok}, nil
}

// Truncate returns text unchanged when it fits into maxTokens, otherwise the
// decoded prefix of its first maxTokens tokens.
func (t *Truncator) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}

	ids := t.tok.Encode(text)
	if len(ids) <= maxTokens {
		return text
	}

	return t.tok.Decode(withoutSpecial(t.tok, ids[:maxTokens]))
}

func truncateIDs(tok Tokenizer, ids []int, maxLen int) []int {
	if len(ids) <= maxLen {
		return ids
	}

	out := append([]int(nil), ids[:maxLen]...)

	eosID, err := tok.SpecialTokenID(api.TokEndOfSentence)
	if err == nil && ids[len(ids)-1] == eosID {
		out[maxLen-1] = eosID
	}

	return out
}

func withoutSpecial(tok Tokenizer, ids []int) []int {
	special := make(map[int]struct{}, 3)
	for _, st := range []api.SpecialToken{api.TokBeginningOfSentence, api.TokEndOfSentence, api.TokPad} {
		if id, err := tok.SpecialTokenID(st); err == nil {
			special[id] = struct{}{}
		}
	}

	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := special[id]; ok {
			continue
		}
		out = append(out, id)
	}

	return out
}

type sentencepieceTokenizer struct {
	*esentencepiece.Processor
	Info *esentencepiece.ModelInfo
}

var _ Tokenizer = (*sentencepieceTokenizer)(nil)

func (t *sentencepieceTokenizer) Encode(text string) []int {
	tokens := t.Processor.Encode(text)
	result := make([]int, len(tokens))
	for i, tok := range tokens {
		result[i] = tok.ID
	}
	return result
}

func (t *sentencepieceTokenizer) Decode(ids []int) string {
	return t.Processor.Decode(ids)
}

func (t *sentencepieceTokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	switch token {
	case api.TokUnknown:
		return t.Info.UnknownID, nil
	case api.TokPad:
		return t.Info.PadID, nil
	case api.TokBeginningOfSentence:
		return t.Info.BeginningOfSentenceID, nil
	case api.TokEndOfSentence:
		return t.Info.EndOfSentenceID, nil
	default:
		return 0, fmt.Errorf("unknown special token: %d", int(token))
	}
}
