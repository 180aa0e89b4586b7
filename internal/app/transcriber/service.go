package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"app/internal/app/notifications"
	"app/metrics"
	"app/pkg/ffmpeg"
	"app/pkg/whisper"
)

const defaultOutputDir = "~/transcripts"

type Config struct {
	OutputDir string `yaml:"output_dir"`
	DBPath    string `yaml:"db_path"`
}

type WhisperClient interface {
	Transcribe(ctx context.Context, req *whisper.Request) (*whisper.Transcript, error)
	Model() string
}

type DurationProber interface {
	FfprobePath(ctx context.Context, path string) (*ffmpeg.FfprobeResult, error)
}

type Service struct {
	logger *slog.Logger

	whisper WhisperClient
	prober  DurationProber

	store         *Store                // optional, history of finished jobs
	notifications *notifications.Client // optional

	outputDir string
}

func NewService(logger *slog.Logger, whisperClient WhisperClient, prober DurationProber,
	store *Store, notifs *notifications.Client, cfg *Config) (*Service, error) {
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = defaultOutputDir
	}

	outputDir, err := ExpandHome(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output dir: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	return &Service{
		logger: logger,

		whisper: whisperClient,
		prober:  prober,

		store:         store,
		notifications: notifs,

		outputDir: outputDir,
	}, nil
}

func (s *Service) OutputDir() string {
	return s.outputDir
}

type Request struct {
	AudioPath string
	Language  string
	Prompt    string
}

type Result struct {
	Text     string
	Language string
	Duration time.Duration
	Cost     float64
	Segments []whisper.Segment

	OutputPath   string
	SegmentsPath string
}

type Estimate struct {
	Duration time.Duration
	Cost     float64
}

// Estimate probes audio duration and prices the call without submitting
// anything to the API.
func (s *Service) Estimate(ctx context.Context, audioPath string) (*Estimate, error) {
	audioPath, err := ExpandHome(audioPath)
	if err != nil {
		return nil, err
	}

	if err := whisper.ValidateFile(audioPath); err != nil {
		return nil, err
	}

	probe, err := s.prober.FfprobePath(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe audio duration: %w", err)
	}

	return &Estimate{
		Duration: probe.Duration,
		Cost:     whisper.EstimateCost(probe.Duration),
	}, nil
}

func (s *Service) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	audioPath, err := ExpandHome(req.AudioPath)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("audio", filepath.Base(audioPath))

	if err := whisper.ValidateFile(audioPath); err != nil {
		metrics.TranscriptionRequests.WithLabelValues("rejected").Inc()
		logger.Error("audio file rejected", "err", err)
		s.notify(notifications.StageFailed, audioPath, err.Error())

		return nil, err
	}

	logger.Info("starting transcription", "model", s.whisper.Model())
	s.notify(notifications.StageStarted, audioPath, "")

	transcript, err := s.whisper.Transcribe(ctx, &whisper.Request{
		Path:     audioPath,
		Language: req.Language,
		Prompt:   req.Prompt,
	})
	if err != nil {
		metrics.TranscriptionRequests.WithLabelValues("failed").Inc()
		logger.Error("transcription failed", "err", err)
		s.notify(notifications.StageFailed, audioPath, err.Error())

		return nil, err
	}

	result := &Result{
		Text:     transcript.Text,
		Language: transcript.Language,
		Duration: transcript.Duration,
		Cost:     transcript.Cost,
		Segments: transcript.Segments,
	}

	if err := s.persist(audioPath, transcript, result); err != nil {
		metrics.TranscriptionRequests.WithLabelValues("failed").Inc()
		logger.Error("failed to persist transcript", "err", err)
		s.notify(notifications.StageFailed, audioPath, err.Error())

		return nil, err
	}

	if s.store != nil {
		record := &Record{
			Source:          audioPath,
			OutputPath:      result.OutputPath,
			Language:        result.Language,
			DurationSeconds: result.Duration.Seconds(),
			CostUSD:         result.Cost,
		}
		if err := s.store.Save(ctx, record); err != nil {
			logger.Error("failed to record transcription history", "err", err)
		}
	}

	metrics.TranscriptionRequests.WithLabelValues("ok").Inc()
	metrics.TranscribedSeconds.Add(result.Duration.Seconds())
	metrics.TranscriptionCost.Add(result.Cost)

	logger.Info("transcription done",
		"chars", len(result.Text),
		"segments", len(result.Segments),
		"duration", result.Duration,
		"cost_usd", result.Cost,
		"output", result.OutputPath,
	)
	s.notify(notifications.StageCompleted, audioPath, result.OutputPath)

	return result, nil
}

// TranscribeAll processes files strictly one after another. A failed file
// does not stop the rest, all failures come back joined.
func (s *Service) TranscribeAll(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, 0, len(reqs))

	var errs []error
	for i := range reqs {
		result, err := s.Transcribe(ctx, &reqs[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reqs[i].AudioPath, err))
			continue
		}

		results = append(results, result)
	}

	return results, errors.Join(errs...)
}

func (s *Service) History(ctx context.Context, limit int) ([]Record, error) {
	if s.store == nil {
		return nil, nil
	}

	return s.store.List(ctx, limit)
}

type segmentOut struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func (s *Service) persist(audioPath string, transcript *whisper.Transcript, result *Result) error {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))

	result.OutputPath = filepath.Join(s.outputDir, base+".txt")
	if err := os.WriteFile(result.OutputPath, []byte(transcript.Text), 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	if len(transcript.Segments) == 0 {
		return nil
	}

	segments := make([]segmentOut, 0, len(transcript.Segments))
	for _, seg := range transcript.Segments {
		segments = append(segments, segmentOut{
			ID:    seg.ID,
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  seg.Text,
		})
	}

	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal segments: %w", err)
	}

	result.SegmentsPath = filepath.Join(s.outputDir, base+".segments.json")
	if err := os.WriteFile(result.SegmentsPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write segments: %w", err)
	}

	return nil
}

func (s *Service) notify(stage notifications.Stage, source, message string) {
	if s.notifications == nil {
		return
	}

	s.notifications.Publish(notifications.Event{
		Stage:   stage,
		Source:  source,
		Message: message,
	})
}

// ExpandHome resolves a leading ~ the way the original tool accepted paths.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home dir: %w", err)
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
