// Package cli implements the legalsum-trainer command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"legalsum/internal/config"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "legalsum-trainer.yaml"

var (
	cfgFile    string
	noProgress bool
	cfg        *config.TrainConfig
	log        *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "legalsum-trainer",
	Short: "Prepare legal summarization datasets and fine-tune the model",
	Long: `legalsum-trainer loads a legal document dataset, filters and splits it,
encodes it for the long-document encoder-decoder and hands it to the external
trainer. Checkpoints the trainer writes are recorded in the summaries database.

Example usage:
  legalsum-trainer prepare              # Encode the dataset into splits
  legalsum-trainer train                # Prepare, then fine-tune
  legalsum-trainer checkpoints          # List recorded checkpoints
  legalsum-trainer init-config          # Write the default config file`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		cfg, err = config.LoadTrainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log = newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "config file")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress bars")
}

// newLogger keeps stdout free for command output.
func newLogger(w io.Writer, levelText string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelText)); err != nil {
		level = slog.LevelInfo
	}

	l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(l)

	return l
}
