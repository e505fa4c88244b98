package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"housing/db"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded training runs",
	Long: `Print the training run log, newest first.

Examples:
  housing runs
  housing runs --limit 5 --json`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "number of runs to show (0 for all)")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "output as JSON")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg.Database.Path == "" {
		return fmt.Errorf("training log disabled: database.path is empty")
	}

	dbPath := cfg.Resolve(GetRootDir(), cfg.Database.Path)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no training log found. Run 'housing train' first")
	}

	store, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open training log: %w", err)
	}
	defer store.Close()

	logs, err := store.LoadTrainingLog(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to read training log: %w", err)
	}

	out := cmd.OutOrStdout()
	if runsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(logs)
	}

	if len(logs) == 0 {
		fmt.Fprintln(out, "No training runs recorded.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTRAINED AT\tMODEL\tSOURCE\tTRAIN\tTEST\tMSE")
	for _, l := range logs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%.4f\n",
			l.ID, l.TrainedAt.Format(time.RFC3339), l.ModelName, l.DatasetSource, l.TrainRows, l.TestRows, l.MSE)
	}
	return w.Flush()
}
