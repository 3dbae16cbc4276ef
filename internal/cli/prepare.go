package cli

import (
	"context"
	"fmt"
	"os"

	"legalsum/internal/config"
	"legalsum/internal/dataset"
	"legalsum/internal/domain"
	"legalsum/internal/tokenizer"

	"github.com/spf13/cobra"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Load, filter, split and encode the training dataset",
	Long: `Load the configured dataset from the Hugging Face datasets server (or a
local JSON Lines file), drop short or unsummarized documents, split the rest
80/10/10 with a fixed seed and encode every split for the trainer.

Examples:
  legalsum-trainer prepare
  legalsum-trainer prepare --config ./train.yaml`,
	Args: cobra.NoArgs,
	RunE: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)
}

func runPrepare(cmd *cobra.Command, args []string) error {
	m, err := prepare(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "\nDataset prepared in %s:\n", cfg.Encoding.OutputDir)
	_, _ = fmt.Fprintf(out, "  Loaded:     %d\n", m.Loaded)
	_, _ = fmt.Fprintf(out, "  Kept:       %d\n", m.Kept)
	for _, split := range domain.Splits {
		_, _ = fmt.Fprintf(out, "  %-11s %d\n", string(split)+":", m.Counts[split])
	}

	return nil
}

func prepare(ctx context.Context, cfg *config.TrainConfig) (dataset.Manifest, error) {
	loader, source, err := newLoader(cfg.Dataset)
	if err != nil {
		return dataset.Manifest{}, err
	}

	tok, err := tokenizer.Load(cfg.Encoding.TokenizerPath)
	if err != nil {
		return dataset.Manifest{}, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	encoder, err := dataset.NewEncoder(
		tok,
		cfg.Encoding.SourceMaxLength,
		cfg.Encoding.TargetMaxLength,
		cfg.Encoding.Workers,
	)
	if err != nil {
		return dataset.Manifest{}, err
	}

	opts := dataset.PrepareOptions{
		Dataset:       source,
		TokenizerPath: cfg.Encoding.TokenizerPath,
		OutputDir:     cfg.Encoding.OutputDir,
		MinTextLength: cfg.Dataset.MinTextLength,
		MaxExamples:   cfg.Dataset.MaxExamples,
		Fractions: dataset.Fractions{
			Train:      cfg.Dataset.Train,
			Validation: cfg.Dataset.Validation,
			Test:       cfg.Dataset.Test,
		},
		Seed:            cfg.Dataset.Seed,
		SourceMaxLength: cfg.Encoding.SourceMaxLength,
		TargetMaxLength: cfg.Encoding.TargetMaxLength,
	}
	if !noProgress {
		opts.OnLoad = loadProgress()
		opts.OnEncode = encodeProgress()
	}

	m, err := dataset.Prepare(ctx, loader, encoder, opts, log)
	if err != nil {
		return dataset.Manifest{}, fmt.Errorf("failed to prepare dataset: %w", err)
	}

	return m, nil
}

func newLoader(c config.DatasetConfig) (dataset.Loader, string, error) {
	columns := dataset.Columns{Text: c.TextColumn, Summary: c.SummaryColumn}

	if c.File != "" {
		l, err := dataset.NewFileLoader(c.File, columns)
		return l, c.File, err
	}

	var token string
	if c.TokenEnv != "" {
		token = os.Getenv(c.TokenEnv)
	}

	l, err := dataset.NewHubLoader(c.HubURL, c.Name, c.Config, c.Split, token, columns)
	return l, c.Name, err
}
