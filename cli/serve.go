package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	qhttp "housing/http"
	"housing/logging"
	"housing/ml"
	"housing/service"
)

var (
	servePort     int
	serveArtifact string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over HTTP",
	Long: `Load the model artifact once and serve GET /health, POST /predict and
the /ws/predict stream. Without an artifact the server still starts; predict
answers 503 until a model is trained and the server restarted.

Examples:
  housing serve
  housing serve --port 9000 --artifact artifacts/housing_model.json`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	serveCmd.Flags().StringVar(&serveArtifact, "artifact", "", "model artifact path (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()

	if cmd.Flags().Changed("port") {
		cfg.Http.Port = servePort
	}
	if cmd.Flags().Changed("artifact") {
		cfg.ArtifactPath = serveArtifact
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	artifactPath := cfg.Resolve(root, cfg.ArtifactPath)
	cache := ml.NewModelCache()
	if err := cache.Init(artifactPath); err != nil {
		logger.Error("failed to load model", zap.String("path", artifactPath), zap.Error(err))
		return err
	}
	defer cache.Close()
	if cache.Ready() {
		logger.Info("model loaded", zap.String("path", artifactPath))
	} else {
		logger.Warn("no model artifact, predictions disabled until training runs",
			zap.String("path", artifactPath),
		)
	}

	svc, err := service.New(cache, service.Config{PredictionCacheSize: cfg.Serving.PredictionCacheSize}, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, svc, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	return nil
}
