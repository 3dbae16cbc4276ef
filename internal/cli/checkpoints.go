package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"legalsum/internal/database"
	"legalsum/internal/domain"

	"github.com/spf13/cobra"
)

var checkpointsJSON bool

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "List recorded checkpoints",
	Args:  cobra.NoArgs,
	RunE:  runCheckpoints,
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
	checkpointsCmd.Flags().BoolVar(&checkpointsJSON, "json", false, "output as JSON")
}

func runCheckpoints(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	checkpoints, err := db.GetCheckpoints(ctx)
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	out := cmd.OutOrStdout()
	if checkpointsJSON {
		if checkpoints == nil {
			checkpoints = []domain.Checkpoint{}
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(checkpoints)
	}

	if len(checkpoints) == 0 {
		_, _ = fmt.Fprintln(out, "No checkpoints recorded.")
		return nil
	}

	printCheckpoints(out, checkpoints)

	return nil
}

func printCheckpoints(out io.Writer, checkpoints []domain.Checkpoint) {
	for _, c := range checkpoints {
		kind := "step"
		if c.Final {
			kind = "final"
		}
		_, _ = fmt.Fprintf(out, "  %-5s %6d  %s  %s\n",
			kind, c.Step, c.CreatedAt.Local().Format("2006-01-02 15:04"), c.Path)
	}
}
