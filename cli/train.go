package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"housing/config"
	"housing/db"
	"housing/logging"
	"housing/ml"
)

var (
	trainSynthetic bool
	trainRows      int
	trainSeed      int64
	trainDataset   string
	trainArtifact  string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the model and write the artifact",
	Long: `Load the configured dataset, fit a linear regression model, report the
held-out mean squared error and write the model artifact.

Examples:
  housing train                          # Use the dataset from housing.yaml
  housing train --synthetic --rows 1000  # Generate a deterministic dataset
  housing train --dataset data/housing.csv --artifact artifacts/model.json`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().BoolVar(&trainSynthetic, "synthetic", false, "train on generated data")
	trainCmd.Flags().IntVar(&trainRows, "rows", ml.DefaultSyntheticRows, "number of synthetic rows")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", ml.DefaultSeed, "seed for data generation and the train/test split")
	trainCmd.Flags().StringVar(&trainDataset, "dataset", "", "CSV dataset path (default from config)")
	trainCmd.Flags().StringVar(&trainArtifact, "artifact", "", "artifact output path (default from config)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()
	flags := cmd.Flags()

	if flags.Changed("dataset") && (trainSynthetic || flags.Changed("rows")) {
		return fmt.Errorf("--dataset cannot be combined with --synthetic or --rows")
	}
	if flags.Changed("dataset") {
		cfg.Dataset.Source = config.SourceFile
		cfg.Dataset.Path = trainDataset
	}
	if trainSynthetic || flags.Changed("rows") {
		cfg.Dataset.Source = config.SourceSynthetic
	}
	if flags.Changed("rows") {
		cfg.Dataset.SyntheticRows = trainRows
	}
	if flags.Changed("seed") {
		cfg.Dataset.Seed = trainSeed
		cfg.Training.Seed = trainSeed
	}
	if flags.Changed("artifact") {
		cfg.ArtifactPath = trainArtifact
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	bar := progressbar.NewOptions(len(ml.Stages),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Training[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)
	done := 0
	opts := []ml.TrainerOption{
		ml.WithProgress(func(stage string) {
			bar.Describe(fmt.Sprintf("[cyan]Training[reset] %s", stage))
			bar.Set(done)
			done++
		}),
	}

	if cfg.Database.Path != "" {
		dbPath := cfg.Resolve(root, cfg.Database.Path)
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return fmt.Errorf("failed to create database dir: %w", err)
		}
		store, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open training log: %w", err)
		}
		defer store.Close()
		opts = append(opts, ml.WithRecorder(store))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trainer := ml.NewTrainer(ml.TrainerConfig{
		Source:       cfg.DatasetSource(root),
		ArtifactPath: cfg.Resolve(root, cfg.ArtifactPath),
		TestRatio:    cfg.Training.TestRatio,
		Seed:         cfg.Training.Seed,
	}, logger, opts...)

	report, err := trainer.Train(ctx)
	if err != nil {
		logger.Error("training failed", zap.Error(err))
		return err
	}
	bar.Finish()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nTraining complete:\n")
	fmt.Fprintf(out, "  Dataset:     %s\n", report.DatasetSource)
	fmt.Fprintf(out, "  Rows:        %d (%d dropped)\n", report.Rows, report.Dropped)
	fmt.Fprintf(out, "  Train/test:  %d/%d\n", report.TrainRows, report.TestRows)
	fmt.Fprintf(out, "  Test MSE:    %.4f\n", report.MSE)
	fmt.Fprintf(out, "  Intercept:   %.4f\n", report.Intercept)
	fmt.Fprintf(out, "\n  %-11s  %10s  %s\n", "Feature", "Coef", "Training range")
	for i, name := range ml.FeatureNames {
		r := report.FeatureStats[name]
		fmt.Fprintf(out, "  %-11s  %+10.6f  [%g, %g]\n", name, report.Coefficients[i], r[0], r[1])
	}
	fmt.Fprintf(out, "\nModel saved to: %s (%d bytes)\n", report.ArtifactPath, report.ArtifactSize)
	return nil
}
