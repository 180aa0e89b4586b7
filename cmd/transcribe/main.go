package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"app/internal/app/notifications"
	"app/internal/app/transcriber"
	"app/pkg/ffmpeg"
	"app/pkg/whisper"

	"github.com/joho/godotenv"
)

type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ",") }
func (s *stringSlice) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			*s = append(*s, p)
		}
	}
	return nil
}

func main() {
	var (
		inputs       stringSlice
		outputDir    string
		language     string
		prompt       string
		model        string
		maxRetries   int
		tmpDir       string
		estimateOnly bool
		compress     bool
	)

	flag.Var(&inputs, "i", "audio file path (repeatable or comma-separated)")
	flag.StringVar(&outputDir, "o", "", "output directory (default ~/transcripts)")
	flag.StringVar(&language, "language", "", "language hint, e.g. 'en'")
	flag.StringVar(&prompt, "prompt", "", "prompt to guide transcription")
	flag.StringVar(&model, "model", "", "transcription model (default whisper-1)")
	flag.IntVar(&maxRetries, "max-retries", 0, "max retry attempts for transient failures (default 3)")
	flag.StringVar(&tmpDir, "tmpdir", "", "temporary working directory (default system temp)")
	flag.BoolVar(&estimateOnly, "estimate-only", false, "print duration and cost estimate, don't transcribe")
	flag.BoolVar(&compress, "compress", false, "re-encode oversized inputs to mp3 before submission")
	flag.Parse()

	if len(inputs) == 0 {
		log.Fatal("missing -i audio path")
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	whisperClient, err := whisper.NewFromEnv(&whisper.Config{
		Model:      model,
		MaxRetries: maxRetries,
	})
	if err != nil {
		log.Fatal("failed to init whisper client: ", err)
	}

	ffmpegClient := ffmpeg.New(&ffmpeg.Config{TmpDir: tmpDir})

	notifs := notifications.New()

	service, err := transcriber.NewService(logger.WithGroup("transcriber"), whisperClient, ffmpegClient, nil, notifs, &transcriber.Config{
		OutputDir: outputDir,
	})
	if err != nil {
		log.Fatal("failed to init transcriber: ", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	if estimateOnly {
		for _, input := range inputs {
			estimate, err := service.Estimate(ctx, input)
			if err != nil {
				log.Fatalf("failed to estimate %s: %v", input, err)
			}

			fmt.Printf("%s\t%s\t$%.4f\n", input, estimate.Duration.Round(time.Second), estimate.Cost)
		}

		return
	}

	reqs := make([]transcriber.Request, 0, len(inputs))
	for _, input := range inputs {
		audioPath := input

		if compress {
			audioPath, err = prepareInput(ctx, logger, ffmpegClient, input)
			if err != nil {
				log.Fatalf("failed to prepare %s: %v", input, err)
			}
		}

		reqs = append(reqs, transcriber.Request{
			AudioPath: audioPath,
			Language:  language,
			Prompt:    prompt,
		})
	}

	results, err := service.TranscribeAll(ctx, reqs)
	for _, result := range results {
		fmt.Println(result.OutputPath)
	}
	if err != nil {
		log.Fatal("some files failed: ", err)
	}
}

// prepareInput compresses the file when it is over the API size limit,
// otherwise returns it untouched. The adapter itself still rejects oversized
// files, compression here is the way around the limit for big recordings.
func prepareInput(ctx context.Context, logger *slog.Logger, ffmpegClient *ffmpeg.Client, input string) (string, error) {
	input, err := transcriber.ExpandHome(input)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(input)
	if err != nil {
		return "", err
	}

	if info.Size() <= whisper.MaxFileSize {
		return input, nil
	}

	logger.Info("compressing oversized input", "input", input, "size", info.Size())

	compressed, err := ffmpegClient.CompressToMp3(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to compress: %w", err)
	}

	return compressed, nil
}
