package api

import (
	"context"
	"log/slog"
	"time"

	"app/internal/app/notifications"
	"app/internal/app/transcriber"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogchi "github.com/samber/slog-chi"
)

type Config struct {
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

type Transcriber interface {
	Transcribe(ctx context.Context, req *transcriber.Request) (*transcriber.Result, error)
	Estimate(ctx context.Context, audioPath string) (*transcriber.Estimate, error)
	History(ctx context.Context, limit int) ([]transcriber.Record, error)
}

type API struct {
	logger *slog.Logger

	service Transcriber

	notifications *notifications.Client

	cfg *Config
}

func NewAPI(cfg *Config, logger *slog.Logger, service Transcriber, notifs *notifications.Client) *API {
	return &API{
		cfg: cfg,

		logger: logger,

		service: service,

		notifications: notifs,
	}
}

func (api *API) NewRouter() *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(slogchi.New(api.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Recoverer)

	// transcription is a paid call, keep the surface hard to hammer
	router.Use(httprate.LimitByIP(60, time.Minute))

	router.Handle("/metrics", promhttp.Handler())

	router.Get("/ping", api.ping)

	router.Post("/transcriptions", api.transcribe)
	router.Get("/transcriptions", api.history)
	router.Get("/estimate", api.estimate)

	router.Get("/ws/events", api.events)

	return router
}
