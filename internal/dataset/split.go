package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"legalsum/internal/domain"
)

// fractionEpsilon absorbs float error in products like 0.2*15.
const fractionEpsilon = 1e-9

// Filter trims both sides of every example, keeps those whose text is longer
// than minTextLength characters and whose summary is non-empty, and returns at
// most limit of them in input order. A non-positive limit keeps everything.
func Filter(examples []domain.Example, minTextLength int, limit int) []domain.Example {
	kept := make([]domain.Example, 0, len(examples))

	for _, ex := range examples {
		if limit > 0 && len(kept) >= limit {
			break
		}

		text := strings.TrimSpace(ex.Text)
		summary := strings.TrimSpace(ex.Summary)

		if utf8.RuneCountInString(text) <= minTextLength || summary == "" {
			continue
		}

		kept = append(kept, domain.Example{Text: text, Summary: summary})
	}

	return kept
}

// Fractions are the relative partition sizes; they must sum to 1.
type Fractions struct {
	Train      float64 `yaml:"train"      json:"train"`
	Validation float64 `yaml:"validation" json:"validation"`
	Test       float64 `yaml:"test"       json:"test"`
}

func DefaultFractions() Fractions {
	return Fractions{Train: 0.8, Validation: 0.1, Test: 0.1}
}

func (f Fractions) Validate() error {
	if f.Train <= 0 || f.Validation < 0 || f.Test < 0 {
		return fmt.Errorf("invalid split fractions %+v", f)
	}

	if sum := f.Train + f.Validation + f.Test; math.Abs(sum-1) > fractionEpsilon {
		return fmt.Errorf("split fractions sum to %v, want 1", sum)
	}

	return nil
}

// Partitions holds three disjoint subsets of the input.
type Partitions[T any] struct {
	Train      []T
	Validation []T
	Test       []T
}

func (p Partitions[T]) Get(split domain.Split) []T {
	switch split {
	case domain.SplitTrain:
		return p.Train
	case domain.SplitValidation:
		return p.Validation
	case domain.SplitTest:
		return p.Test
	default:
		return nil
	}
}

func (p Partitions[T]) Len() int {
	return len(p.Train) + len(p.Validation) + len(p.Test)
}

// Split shuffles items with a generator seeded by seed and carves out a
// held-out share (validation + test, rounded up) first. The held-out items
// are shuffled again with a fresh generator of the same seed and divided into
// validation (rounded down) and test. Every item lands in exactly one
// partition and the same seed always yields the same membership and order.
func Split[T any](items []T, f Fractions, seed uint64) (Partitions[T], error) {
	if err := f.Validate(); err != nil {
		return Partitions[T]{}, err
	}

	n := len(items)
	holdoutFraction := f.Validation + f.Test

	nHoldout := int(math.Ceil(holdoutFraction*float64(n) - fractionEpsilon))
	nTrain := n - nHoldout
	if nTrain <= 0 {
		return Partitions[T]{}, fmt.Errorf("train split would be empty (items = %d)", n)
	}

	perm := newRand(seed).Perm(n)

	holdout := make([]T, 0, nHoldout)
	for _, idx := range perm[:nHoldout] {
		holdout = append(holdout, items[idx])
	}

	p := Partitions[T]{Train: make([]T, 0, nTrain)}
	for _, idx := range perm[nHoldout:] {
		p.Train = append(p.Train, items[idx])
	}

	if nHoldout == 0 {
		return p, nil
	}

	validationShare := f.Validation / holdoutFraction
	nValidation := int(math.Floor(validationShare*float64(nHoldout) + fractionEpsilon))
	nTest := nHoldout - nValidation

	perm = newRand(seed).Perm(nHoldout)

	p.Test = make([]T, 0, nTest)
	for _, idx := range perm[:nTest] {
		p.Test = append(p.Test, holdout[idx])
	}

	p.Validation = make([]T, 0, nValidation)
	for _, idx := range perm[nTest:] {
		p.Validation = append(p.Validation, holdout[idx])
	}

	return p, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}
