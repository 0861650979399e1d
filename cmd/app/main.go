package main

import (
	"VideoCropper/internal/config"
	"VideoCropper/pkg/detector"
	"VideoCropper/pkg/log"
	"VideoCropper/pkg/taskqueue"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()
	detectorClient := detector.New(logger)
	taskQueue := taskqueue.New(logger)

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithStorageClient(),
		config.WithDetectorClient(detectorClient),
		config.WithTaskQueue(taskQueue),
		config.WithMiddleware(),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	if err := server.RegisterHandler(); err != nil {
		logger.Fatal(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	dispatchCtx, stopDispatcher := context.WithCancel(context.Background())
	go taskQueue.RunDispatcher(dispatchCtx)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")
	stopDispatcher()
	detectorClient.Close()
}
