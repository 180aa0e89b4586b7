package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"app/cfg"
	"app/internal/app/api"
	"app/internal/app/notifications"
	"app/internal/app/transcriber"
	"app/pkg/ffmpeg"
	"app/pkg/whisper"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "cfg-path", "cfg/cfg.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	var cfg *cfg.Config
	if cfgFile, err := os.ReadFile(cfgPath); err != nil {
		log.Fatalf("can't open %s file: %v", cfgPath, err)
	} else if err = yaml.Unmarshal(cfgFile, &cfg); err != nil {
		log.Fatal("can't unmarshal cfg file: ", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	whisperClient, err := whisper.NewFromEnv(&cfg.Whisper)
	if err != nil {
		log.Fatal("failed to init whisper client: ", err)
	}

	ffmpegClient := ffmpeg.New(&cfg.Ffmpeg)

	var store *transcriber.Store
	if cfg.Transcriber.DBPath != "" {
		storeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store, err = transcriber.NewStore(storeCtx, cfg.Transcriber.DBPath)
		if err != nil {
			log.Fatal("failed to init transcription store: ", err)
		}
		defer store.Close()
	}

	notifs := notifications.New()

	service, err := transcriber.NewService(logger.WithGroup("transcriber"), whisperClient, ffmpegClient, store, notifs, &cfg.Transcriber)
	if err != nil {
		log.Fatal("failed to init transcriber: ", err)
	}

	api := api.NewAPI(&cfg.Api, logger.WithGroup("api"), service, notifs)

	router := api.NewRouter()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Api.Port),
		Handler: router,
	}

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		logger.Info("Starting server", "addr", srv.Addr, "output_dir", service.OutputDir())

		if err := srv.ListenAndServe(); err != nil {
			logger.Error("ListenAndServe finished", "err", err)
		}
	}()

	// mirror lifecycle events into the log so the hosting session sees them
	// even without a ws subscriber
	wg.Add(1)
	go func() {
		defer wg.Done()

		events, unsub := notifs.Subscribe(ctx)
		defer unsub()

		for event := range events {
			logger.Info("transcription event", "stage", event.Stage, "source", event.Source, "message", event.Message)
		}
	}()

	select {
	case <-ctx.Done():
	case <-stop:
		logger.Info("Interrupt triggerred")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}

	wg.Wait()
}
