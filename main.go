package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"creditrisk/config"
	"creditrisk/credit"
	"creditrisk/db"
	chttp "creditrisk/http"
	"creditrisk/logger"
	"creditrisk/ml"
	"creditrisk/monitoring"
)

func main() {
	configFile := flag.String("config", "", "path to config.yaml (default: ./configs/config.yaml or ./config.yaml)")
	flag.Parse()

	// 1. Load config
	loader := config.NewLoader(*configFile)
	cfg, err := loader.Load()
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Failed to load config", zap.Error(err))
	}

	// 2. Logger
	zl, level := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer func() { _ = zl.Sync() }()
	log := logger.NewZapAdapter(zl.With(zap.String("service", cfg.App.Name)))

	if loader.ConfigFile() != "" {
		loader.WatchLogLevel(func(newLevel string) {
			level.SetLevel(logger.ParseLevel(newLevel))
			log.Info("Log level updated", map[string]interface{}{"level": newLevel})
		})
	}

	// 3. Metrics
	var recorder credit.Recorder
	if cfg.Metrics.Enabled {
		provider, err := monitoring.NewMeterProvider()
		if err != nil {
			zl.Fatal("Failed to create meter provider", zap.Error(err))
		}
		defer func() { _ = provider.Shutdown(context.Background()) }()

		rec, err := monitoring.NewRecorder(otel.Meter("creditrisk"))
		if err != nil {
			zl.Fatal("Failed to create recorder", zap.Error(err))
		}
		recorder = rec
	}

	// 4. Artifacts; any failure aborts startup
	bundle, err := ml.LoadBundle(ml.ArtifactPaths{
		ModelType: cfg.Artifacts.ModelType,
		Model:     cfg.Artifacts.Model,
		Encoder:   cfg.Artifacts.Encoder,
		Scaler:    cfg.Artifacts.Scaler,
	})
	if err != nil {
		zl.Fatal("Failed to load artifacts", zap.Error(credit.NewModelUnavailableError(err)))
	}
	info := bundle.Model.Info()
	log.Info("Artifacts loaded", map[string]interface{}{
		"model_type": info.Type,
		"trees":      info.Trees,
		"encoders":   bundle.Encoders.Fields(),
		"scaled":     len(bundle.Scaler.FeatureNames()),
	})

	// 5. Audit store
	opts := credit.Options{
		CacheSize: cfg.Cache.Size,
		Logger:    log,
		Recorder:  recorder,
	}
	handlerCfg := chttp.HandlerConfig{
		Metrics: cfg.Metrics.Enabled,
		Logger:  log,
	}
	if cfg.Database.Enabled {
		ctx := context.Background()
		store, err := db.Open(ctx, cfg.Database.Path)
		if err != nil {
			zl.Fatal("Failed to open database", zap.Error(err))
		}
		defer store.Close()
		log.Info("Database initialized", map[string]interface{}{"path": cfg.Database.Path})

		for _, artifact := range bundle.Artifacts {
			if err := store.RecordArtifact(ctx, artifact.Kind, artifact.Path, artifact.SHA256, artifact.LoadedAt); err != nil {
				log.WithError(err).Warn("Failed to record artifact", map[string]interface{}{"kind": artifact.Kind})
			}
		}
		opts.Outcomes = store
		handlerCfg.Outcomes = store
	}

	predictor, err := credit.NewPredictor(bundle, opts)
	if err != nil {
		zl.Fatal("Artifacts are inconsistent", zap.Error(err))
	}
	handlerCfg.Predictor = predictor

	// 6. Start HTTP server
	server := chttp.NewServer(chttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, chttp.NewHandler(handlerCfg), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 7. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down", map[string]interface{}{"signal": sig.String()})
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("HTTP server failed", nil)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown", nil)
	}
	log.Info("Exiting", nil)
}
