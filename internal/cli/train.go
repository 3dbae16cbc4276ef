package cli

import (
	"fmt"

	"legalsum/internal/database"
	"legalsum/internal/dataset"
	"legalsum/internal/trainer"

	"github.com/spf13/cobra"
)

var trainSkipPrepare bool

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Prepare the dataset and run the external trainer",
	Long: `Prepare the dataset (unless --skip-prepare is given and a prepared dataset
exists), write the trainer job file, run the configured trainer command with
CUDA_VISIBLE_DEVICES set and record the checkpoints it writes.

Examples:
  legalsum-trainer train
  legalsum-trainer train --skip-prepare`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().BoolVar(&trainSkipPrepare, "skip-prepare", false, "reuse an already prepared dataset")
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if trainSkipPrepare {
		if _, err := dataset.ReadManifest(cfg.Encoding.OutputDir); err != nil {
			return fmt.Errorf("no prepared dataset in %s, run 'legalsum-trainer prepare' first: %w",
				cfg.Encoding.OutputDir, err)
		}
	} else if _, err := prepare(ctx, cfg); err != nil {
		return err
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()

	driver, err := trainer.NewDriver(cfg, db, log)
	if err != nil {
		return err
	}

	checkpoints, err := driver.Run(ctx, cfg.Encoding.OutputDir)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "\nTraining complete, %d checkpoints recorded\n", len(checkpoints))
	printCheckpoints(out, checkpoints)

	return nil
}
