package whisper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"app/metrics"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
)

// MaxFileSize is the upstream API limit for a single audio file.
const MaxFileSize = 25 * 1024 * 1024

// costPerMinute is the upstream price for audio transcription, USD.
const costPerMinute = 0.006

const defaultMaxRetries = 3

var (
	ErrNoAPIKey         = errors.New("api key is not set")
	ErrAudioNotFound    = errors.New("audio file not found")
	ErrFileTooLarge     = errors.New("audio file too large")
	ErrRetriesExhausted = errors.New("transcription retries exhausted")
)

// TranscriptionAPI is the part of the openai client we use.
type TranscriptionAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

type Config struct {
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	MaxRetries int    `yaml:"max_retries"`
}

type Client struct {
	api TranscriptionAPI
	cfg *Config
}

func New(api TranscriptionAPI, cfg *Config) *Client {
	return &Client{
		api: api,
		cfg: cfg,
	}
}

// NewFromEnv builds a client backed by the real openai API. The key comes
// from the config or the OPENAI_API_KEY env var, missing key fails fast.
func NewFromEnv(cfg *Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set OPENAI_API_KEY or whisper.api_key", ErrNoAPIKey)
	}

	return New(openai.NewClient(apiKey), cfg), nil
}

func (c *Client) Model() string {
	if c.cfg.Model == "" {
		return openai.Whisper1
	}
	return c.cfg.Model
}

func (c *Client) maxRetries() uint64 {
	if c.cfg.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return uint64(c.cfg.MaxRetries)
}

type Request struct {
	Path     string
	Language string
	Prompt   string
}

type Segment struct {
	ID    int
	Start time.Duration
	End   time.Duration
	Text  string
}

type Transcript struct {
	Text     string
	Language string
	Duration time.Duration
	Segments []Segment
	Cost     float64
}

// ValidateFile checks existence and the upstream size limit. It is called
// before any network round trip.
func ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrAudioNotFound, path)
		}
		return fmt.Errorf("failed to stat audio file: %w", err)
	}

	if info.Size() > MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, path, info.Size(), MaxFileSize)
	}

	return nil
}

// EstimateCost returns the API cost for the given audio duration, USD.
func EstimateCost(d time.Duration) float64 {
	return math.Round(d.Minutes()*costPerMinute*1e6) / 1e6
}

func (c *Client) Transcribe(ctx context.Context, req *Request) (*Transcript, error) {
	if err := ValidateFile(req.Path); err != nil {
		return nil, err
	}

	audioReq := openai.AudioRequest{
		Model:    c.Model(),
		FilePath: req.Path,
		Language: req.Language,
		Prompt:   req.Prompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	start := time.Now()

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries()), ctx)

	resp, err := backoff.RetryNotifyWithData(func() (openai.AudioResponse, error) {
		resp, err := c.api.CreateTranscription(ctx, audioReq)
		if err != nil {
			metrics.WhisperErrors.WithLabelValues(errCode(err)).Inc()

			if !isTransient(err) {
				return openai.AudioResponse{}, backoff.Permanent(err)
			}

			return openai.AudioResponse{}, err
		}

		return resp, nil
	}, bo, func(err error, _ time.Duration) {
		metrics.WhisperRetries.Inc()
	})
	if err != nil {
		if isTransient(err) {
			return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}

		return nil, fmt.Errorf("failed to transcribe %s: %w", req.Path, err)
	}

	metrics.WhisperQueryTime.Observe(time.Since(start).Seconds())

	duration := time.Duration(resp.Duration * float64(time.Second))

	segments := make([]Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, Segment{
			ID:    seg.ID,
			Start: time.Duration(seg.Start * float64(time.Second)),
			End:   time.Duration(seg.End * float64(time.Second)),
			Text:  seg.Text,
		})
	}

	return &Transcript{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: duration,
		Segments: segments,
		Cost:     EstimateCost(duration),
	}, nil
}

// isTransient reports whether the call is worth retrying: rate limits,
// upstream 5xx and plain network errors. Everything else (bad request,
// unsupported format, auth) fails immediately.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}

func errCode(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return strconv.Itoa(reqErr.HTTPStatusCode)
	}

	return "network"
}
