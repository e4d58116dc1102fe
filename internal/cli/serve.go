package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/good-listener/backend/vision/internal/config"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/grpcclient"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/ocr"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/pipeline"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/screen"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/server"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/sink"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the capture pipeline and HTTP/WebSocket API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !verbose {
		setupLogging(cmd.ErrOrStderr(), parseLevel(cfg.LogLevel))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var client *grpcclient.Client
	if cfg.RecognitionAddr != "" {
		client, err = grpcclient.New(cfg.RecognitionAddr, grpcclient.DefaultOptions())
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
	}

	var remote ocr.Recognizer
	if client != nil {
		remote = client
	}
	extractor, err := ocr.NewExtractor(cfg.OCR.Engine, remote)
	if err != nil {
		return err
	}

	var index pipeline.IndexQueue
	if client != nil {
		batcher := pipeline.NewBatcher(client, cfg.IndexBatchSize, cfg.IndexFlushDelay)
		defer batcher.Stop()
		index = batcher
	}

	capturer := screen.NewPlatform()
	defer capturer.Close()

	proc := pipeline.NewProcessor(capturer, extractor, sink.NewWriter(cfg.TextOutputDir), index, pipeline.Options{
		Monitor:             screen.Monitor{ID: cfg.MonitorID, Name: cfg.MonitorName},
		CaptureTimeout:      cfg.CaptureTimeout,
		OCR:                 cfg.OCR.Config,
		ChangeThreshold:     cfg.OCR.ChangeThreshold,
		MaxHashDistance:     cfg.MaxHashDistance,
		SkipIdenticalFrames: cfg.SkipIdenticalFrames,
		KeyframeWindow:      cfg.KeyframeWindow,
		SaveTextFiles:       cfg.SaveTextFiles,
	})
	srv := server.New(proc)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		proc.Run(ctx, cfg.CaptureInterval())
	}()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("vision server starting", "http", cfg.HTTPAddr, "recognition", cfg.RecognitionAddr, "ocr", extractor.Name())
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		slog.Error("http server error", "error", err)
		stop()
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	<-done
	slog.Info("shutdown complete")
	return err
}
