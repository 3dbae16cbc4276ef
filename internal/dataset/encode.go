package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"legalsum/internal/domain"
	"legalsum/internal/tokenizer"

	"golang.org/x/sync/errgroup"
)

const encodeChunkSize = 64

// Encoder tokenizes examples into fixed-length trainer inputs.
type Encoder struct {
	tok             tokenizer.Tokenizer
	sourceMaxLength int
	targetMaxLength int
	workers         int
}

func NewEncoder(tok tokenizer.Tokenizer, sourceMaxLength, targetMaxLength, workers int) (*Encoder, error) {
	if tok == nil {
		return nil, fmt.Errorf("tokenizer is nil")
	}

	if sourceMaxLength <= 0 || targetMaxLength <= 0 {
		return nil, fmt.Errorf(
			"invalid max lengths (source = %d, target = %d)",
			sourceMaxLength,
			targetMaxLength,
		)
	}

	return &Encoder{
		tok:             tok,
		sourceMaxLength: sourceMaxLength,
		targetMaxLength: targetMaxLength,
		workers:         max(workers, 1),
	}, nil
}

// Encode builds one trainer input. Only the first source position is marked
// for global attention, which the Longformer encoder expects for the <s> token.
func (e *Encoder) Encode(ex domain.Example) (domain.EncodedExample, error) {
	src, err := tokenizer.EncodePadded(e.tok, ex.Text, e.sourceMaxLength)
	if err != nil {
		return domain.EncodedExample{}, fmt.Errorf("encode text: %w", err)
	}

	tgt, err := tokenizer.EncodePadded(e.tok, ex.Summary, e.targetMaxLength)
	if err != nil {
		return domain.EncodedExample{}, fmt.Errorf("encode summary: %w", err)
	}

	return domain.EncodedExample{
		InputIDs:            src.IDs,
		AttentionMask:       src.AttentionMask,
		GlobalAttentionMask: GlobalAttentionMask(len(src.IDs)),
		Labels:              tgt.IDs,
	}, nil
}

// GlobalAttentionMask returns a mask of length n with only index 0 set.
func GlobalAttentionMask(n int) []int {
	mask := make([]int, n)
	if n > 0 {
		mask[0] = 1
	}

	return mask
}

// EncodeTo encodes examples on the worker pool and writes them to w as JSON
// Lines in input order. Work proceeds in chunks so memory stays bounded by the
// chunk size rather than the dataset size.
func (e *Encoder) EncodeTo(
	ctx context.Context,
	examples []domain.Example,
	w io.Writer,
	progress func(done int),
) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	var done atomic.Int64

	for start := 0; start < len(examples); start += encodeChunkSize {
		chunk := examples[start:min(start+encodeChunkSize, len(examples))]
		encoded := make([]domain.EncodedExample, len(chunk))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)

		for i, ex := range chunk {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				out, err := e.Encode(ex)
				if err != nil {
					return fmt.Errorf("example %d: %w", start+i, err)
				}
				encoded[i] = out

				if progress != nil {
					progress(int(done.Add(1)))
				}

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		for _, out := range encoded {
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("write example: %w", err)
			}
		}
	}

	return bw.Flush()
}
