package summarizer

import (
	"context"
	"time"
)

// Input describes the payload for a summary request.
type Input struct {
	// Text contains the document to summarise, already extracted to plain text.
	Text string
}

// Result is a generated summary with the wall-clock time of the generation call.
type Result struct {
	Summary string
	Elapsed time.Duration
}

// Params are the decoding settings forwarded to the generation backend.
type Params struct {
	MaxInputTokens    int
	MaxLength         int
	MinLength         int
	NumBeams          int
	LengthPenalty     float64
	NoRepeatNgramSize int
	EarlyStopping     bool
}

// DefaultParams mirror the settings the legal checkpoint was evaluated with.
func DefaultParams() Params {
	return Params{
		MaxInputTokens:    8000,
		MaxLength:         2048,
		MinLength:         50,
		NumBeams:          4,
		LengthPenalty:     2.0,
		NoRepeatNgramSize: 3,
		EarlyStopping:     true,
	}
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (Result, error)
}
