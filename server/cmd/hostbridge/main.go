package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gate4ai/hostbridge/server"
	"github.com/gate4ai/hostbridge/shared/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	port := flag.Int("port", 0, "Port to run the bridge on")
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	logerConfig := zap.NewProductionConfig()
	logerConfig.Level = level
	logerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := logerConfig.Build()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.NewYamlConfig(*configPath, logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	applyLogLevel := func() {
		name, err := cfg.LogLevel()
		if err != nil || name == "" {
			return
		}
		if err := level.UnmarshalText([]byte(name)); err != nil {
			logger.Warn("Ignoring invalid log level", zap.String("level", name), zap.Error(err))
		}
	}
	applyLogLevel()
	cfg.OnChange(applyLogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		logger.Info("Received shutdown signal, stopping bridge...")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)

	var options []server.ServerOption
	if *port != 0 {
		options = append(options, server.WithListenAddr(fmt.Sprintf(":%d", *port)))
	}
	s, err := server.Start(gctx, logger, cfg, options...)
	if err != nil {
		logger.Fatal("Failed to start bridge", zap.Error(err))
	}
	// The host going away ends the process.
	s.Bridge().OnTerminate(cancel)

	g.Go(func() error {
		return cfg.Watch(gctx)
	})
	g.Go(func() error {
		select {
		case err, ok := <-s.Errors():
			if ok && err != nil {
				return err
			}
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Bridge encountered an error", zap.Error(err))
	}
	cancel()
	<-s.Done()
	logger.Info("Bridge stopped")
}
