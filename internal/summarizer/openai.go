package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Truncator cuts a document down to the model's input budget in tokens.
type Truncator interface {
	Truncate(text string, maxTokens int) string
}

// OpenAISummarizer calls an OpenAI-compatible completions endpoint that hosts
// the fine-tuned encoder-decoder checkpoint. Beam search settings are sent as
// extra body fields understood by vLLM-style servers.
type OpenAISummarizer struct {
	client    openai.Client
	model     string
	params    Params
	truncator Truncator
	now       func() time.Time
}

// NewOpenAISummarizer builds a new summarizer instance.
func NewOpenAISummarizer(
	baseURL string,
	apiKey string,
	model string,
	params Params,
	truncator Truncator,
) (*OpenAISummarizer, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("base URL is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("model is empty")
	}

	if params.MaxLength <= 0 || params.MinLength < 0 || params.MinLength > params.MaxLength {
		return nil, fmt.Errorf(
			"invalid length bounds (min = %d, max = %d)",
			params.MinLength,
			params.MaxLength,
		)
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		apiKey = "none"
	}

	return &OpenAISummarizer{
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
		model:     model,
		params:    params,
		truncator: truncator,
		now:       time.Now,
	}, nil
}

// Summarize runs one beam-search generation for the document.
func (s *OpenAISummarizer) Summarize(
	ctx context.Context,
	input Input,
) (Result, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return Result{}, errors.New("input is empty")
	}

	if s.truncator != nil && s.params.MaxInputTokens > 0 {
		text = s.truncator.Truncate(text, s.params.MaxInputTokens)
	}

	start := s.now()
	resp, err := s.client.Completions.New(ctx, openai.CompletionNewParams{
		Model: openai.CompletionNewParamsModel(s.model),
		Prompt: openai.CompletionNewParamsPromptUnion{
			OfString: openai.String(text),
		},
		MaxTokens:   openai.Int(int64(s.params.MaxLength)),
		Temperature: openai.Float(0),
	}, s.beamOptions()...)
	elapsed := s.now().Sub(start)
	if err != nil {
		return Result{}, fmt.Errorf("do request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Result{}, errors.New("response has no choices")
	}

	summary := strings.TrimSpace(resp.Choices[0].Text)
	if summary == "" {
		return Result{}, fmt.Errorf(
			"output text is missing (finishReason = %s)",
			resp.Choices[0].FinishReason,
		)
	}

	return Result{Summary: summary, Elapsed: elapsed}, nil
}

func (s *OpenAISummarizer) beamOptions() []option.RequestOption {
	p := s.params

	opts := []option.RequestOption{
		option.WithJSONSet("min_tokens", p.MinLength),
		option.WithJSONSet("skip_special_tokens", true),
	}

	if p.NumBeams > 1 {
		opts = append(opts,
			option.WithJSONSet("use_beam_search", true),
			option.WithJSONSet("best_of", p.NumBeams),
			option.WithJSONSet("num_beams", p.NumBeams),
			option.WithJSONSet("length_penalty", p.LengthPenalty),
			option.WithJSONSet("early_stopping", p.EarlyStopping),
		)
	}

	if p.NoRepeatNgramSize > 0 {
		opts = append(opts, option.WithJSONSet("no_repeat_ngram_size", p.NoRepeatNgramSize))
	}

	return opts
}
