package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"legalsum/internal/config"

	"github.com/spf13/cobra"
)

var initConfigForce bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the default trainer configuration",
	Long: `Write the default trainer configuration as YAML so it can be edited.
The file goes to the given path, or to the --config path when none is given.

Examples:
  legalsum-trainer init-config
  legalsum-trainer init-config ./train.yaml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInitConfig,
}

func init() {
	rootCmd.AddCommand(initConfigCmd)
	initConfigCmd.Flags().BoolVar(&initConfigForce, "force", false, "overwrite an existing file")
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if len(args) == 1 {
		path = args[0]
	}

	if !initConfigForce {
		_, err := os.Stat(path)
		if err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite it", path)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to check %s: %w", path, err)
		}
	}

	if err := config.DefaultTrainConfig().Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	log.Info("Config is written", "path", path)

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)

	return nil
}
