package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soundcrate/soundcrate/internal/config"
	"github.com/soundcrate/soundcrate/internal/domain"
	"github.com/soundcrate/soundcrate/internal/imagetx"
	"github.com/soundcrate/soundcrate/internal/logger"
	"github.com/soundcrate/soundcrate/internal/objectstore"
	"github.com/soundcrate/soundcrate/internal/pipeline"
	"github.com/soundcrate/soundcrate/internal/queue"
	"github.com/soundcrate/soundcrate/internal/server"
	"github.com/soundcrate/soundcrate/internal/store"
	"github.com/soundcrate/soundcrate/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	objects, err := objectstore.NewMinioStore(ctx, objectstore.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Error("Failed to connect to object store", "error", err)
		os.Exit(1)
	}

	q, err := queue.NewRedisQueue(ctx, queue.RedisConfig{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		QueueName:   cfg.QueueName,
		MaxAttempts: cfg.MaxAttempts,
	})
	if err != nil {
		log.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}

	// Messages a previous process died holding go back to pending before the
	// consumer loop starts.
	if n, err := q.RecoverProcessing(ctx); err != nil {
		log.Error("Failed to recover in-flight messages", "error", err)
	} else if n > 0 {
		log.Info("Recovered in-flight messages", "count", n)
	}

	var remote imagetx.Transformer
	if cfg.TransformURL != "" {
		remote = imagetx.NewRemoteTransformer(cfg.TransformURL, cfg.TransformAPIKey, nil)
	}
	local := imagetx.NewLocalTransformer()

	router := pipeline.NewRouter(q, log)
	audio := pipeline.NewAudioHandler(db, objects, log)
	metadata := pipeline.NewMetadataHandler(db, objects, log)
	images := pipeline.NewImageHandler(db, objects, q, remote, local, log)

	router.Register(domain.KindProcessAudio, audio)
	router.Register(domain.KindUpdateMetadata, metadata)
	router.Register(domain.KindProcessAlbumArt, images)
	router.Register(domain.KindProcessProfilePhoto, images)

	sweeper := pipeline.NewSweeper(db, q, cfg.StuckAfter, log)

	w := worker.New(worker.Config{
		BatchSize:     cfg.BatchSize,
		PollInterval:  cfg.PollInterval,
		SweepInterval: cfg.SweepInterval,
	}, q, router, sweeper, log)
	w.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.New(objects, log).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", "error", err)
	}

	w.Stop()
	log.Info("Shutdown complete")
}
