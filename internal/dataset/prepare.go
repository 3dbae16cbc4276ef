package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"legalsum/internal/domain"
)

const ManifestFile = "manifest.json"

var errNoExamples = errors.New("no examples left after filtering")

// PrepareOptions controls how raw examples become encoded split files.
type PrepareOptions struct {
	Dataset       string
	TokenizerPath string
	OutputDir     string

	MinTextLength   int
	MaxExamples     int
	Fractions       Fractions
	Seed            uint64
	SourceMaxLength int
	TargetMaxLength int

	OnLoad   func(loaded, total int)
	OnEncode func(split domain.Split, done, total int)
}

// Manifest describes a prepared dataset directory.
type Manifest struct {
	Dataset         string                  `json:"dataset"`
	TokenizerPath   string                  `json:"tokenizer_path"`
	Seed            uint64                  `json:"seed"`
	Fractions       Fractions               `json:"fractions"`
	MinTextLength   int                     `json:"min_text_length"`
	MaxExamples     int                     `json:"max_examples"`
	SourceMaxLength int                     `json:"source_max_length"`
	TargetMaxLength int                     `json:"target_max_length"`
	Loaded          int                     `json:"loaded"`
	Kept            int                     `json:"kept"`
	Counts          map[domain.Split]int    `json:"counts"`
	Files           map[domain.Split]string `json:"files"`
	CreatedAt       time.Time               `json:"created_at"`
}

// SplitPath is the JSON Lines file holding one encoded split.
func SplitPath(dir string, split domain.Split) string {
	return filepath.Join(dir, string(split)+".jsonl")
}

// Prepare loads, filters, splits and encodes a dataset into opts.OutputDir and
// returns the manifest it wrote next to the split files.
func Prepare(
	ctx context.Context,
	loader Loader,
	encoder *Encoder,
	opts PrepareOptions,
	log *slog.Logger,
) (Manifest, error) {
	raw, err := loader.Load(ctx, opts.OnLoad)
	if err != nil {
		return Manifest{}, fmt.Errorf("load dataset: %w", err)
	}
	log.InfoContext(ctx, "Dataset is loaded",
		"dataset", opts.Dataset,
		"exampleCount", len(raw))

	examples := Filter(raw, opts.MinTextLength, opts.MaxExamples)
	if len(examples) == 0 {
		return Manifest{}, errNoExamples
	}
	log.InfoContext(ctx, "Dataset is filtered",
		"loaded", len(raw),
		"kept", len(examples),
		"minTextLength", opts.MinTextLength,
		"maxExamples", opts.MaxExamples)

	parts, err := Split(examples, opts.Fractions, opts.Seed)
	if err != nil {
		return Manifest{}, fmt.Errorf("split dataset: %w", err)
	}
	log.InfoContext(ctx, "Dataset is split",
		"seed", opts.Seed,
		"train", len(parts.Train),
		"validation", len(parts.Validation),
		"test", len(parts.Test))

	if err = os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create output dir: %w", err)
	}

	m := Manifest{
		Dataset:         opts.Dataset,
		TokenizerPath:   opts.TokenizerPath,
		Seed:            opts.Seed,
		Fractions:       opts.Fractions,
		MinTextLength:   opts.MinTextLength,
		MaxExamples:     opts.MaxExamples,
		SourceMaxLength: opts.SourceMaxLength,
		TargetMaxLength: opts.TargetMaxLength,
		Loaded:          len(raw),
		Kept:            len(examples),
		Counts:          make(map[domain.Split]int, len(domain.Splits)),
		Files:           make(map[domain.Split]string, len(domain.Splits)),
	}

	for _, split := range domain.Splits {
		items := parts.Get(split)
		path := SplitPath(opts.OutputDir, split)

		var progress func(int)
		if opts.OnEncode != nil {
			progress = func(done int) {
				opts.OnEncode(split, done, len(items))
			}
		}

		start := time.Now()
		if err = writeFileAtomic(path, func(f *os.File) error {
			return encoder.EncodeTo(ctx, items, f, progress)
		}); err != nil {
			return Manifest{}, fmt.Errorf("encode %s split: %w", split, err)
		}

		m.Counts[split] = len(items)
		m.Files[split] = filepath.Base(path)

		log.InfoContext(ctx, "Split is encoded",
			"split", split,
			"exampleCount", len(items),
			"path", path,
			"elapsedSeconds", time.Since(start).Seconds())
	}

	m.CreatedAt = time.Now().UTC()
	if err = WriteManifest(opts.OutputDir, m); err != nil {
		return Manifest{}, err
	}

	return m, nil
}

func WriteManifest(dir string, m Manifest) error {
	return writeFileAtomic(filepath.Join(dir, ManifestFile), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
}

func ReadManifest(dir string) (Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err = json.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}

	return m, nil
}

// writeFileAtomic writes through a temp file in the same directory so a
// failed run never leaves a partial file under the final name.
func writeFileAtomic(path string, write func(f *os.File) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = write(f); err != nil {
		return err
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
