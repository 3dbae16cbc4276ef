package domain

import "time"

type SummaryRecord struct {
	ID             string
	TextHash       string
	TextPreview    string
	Summary        string
	ProcessingTime time.Duration
	CreatedAt      time.Time
}

type Judgment struct {
	ID          int64
	FeedURL     string
	URL         string
	Title       string
	Summary     string
	PublishedAt time.Time
	CreatedAt   time.Time
}

type Checkpoint struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Step      int64     `json:"step"`
	Final     bool      `json:"final"`
	CreatedAt time.Time `json:"created_at"`
}

// Example is a (text, target summary) pair before tokenization.
type Example struct {
	Text    string
	Summary string
}

// EncodedExample is the trainer-facing form of an Example. All slices of the
// source side share one length and labels carry the target length.
type EncodedExample struct {
	InputIDs            []int `json:"input_ids"`
	AttentionMask       []int `json:"attention_mask"`
	GlobalAttentionMask []int `json:"global_attention_mask"`
	Labels              []int `json:"labels"`
}

type Split string

const (
	SplitTrain      Split = "train"
	SplitValidation Split = "validation"
	SplitTest       Split = "test"
)

var Splits = []Split{SplitTrain, SplitValidation, SplitTest}
