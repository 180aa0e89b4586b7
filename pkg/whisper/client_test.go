package whisper_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"app/pkg/whisper"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

const verboseResponse = `{
	"task": "transcribe",
	"language": "en",
	"duration": 10.5,
	"text": "This is a test transcript.",
	"segments": [
		{"id": 0, "start": 0, "end": 10.5, "text": "This is a test transcript."}
	]
}`

type fakeAPI struct {
	calls int

	errs []error
	resp openai.AudioResponse
}

func (f *fakeAPI) CreateTranscription(_ context.Context, _ openai.AudioRequest) (openai.AudioResponse, error) {
	f.calls++

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]

		return openai.AudioResponse{}, err
	}

	return f.resp, nil
}

func audioResponse(t *testing.T) openai.AudioResponse {
	t.Helper()

	var resp openai.AudioResponse
	require.NoError(t, json.Unmarshal([]byte(verboseResponse), &resp))

	return resp
}

func audioFile(t *testing.T, size int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.mp3")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0644))

	return path
}

func TestTranscribe(t *testing.T) {
	assert := require.New(t)

	api := &fakeAPI{resp: audioResponse(t)}
	client := whisper.New(api, &whisper.Config{})

	transcript, err := client.Transcribe(context.Background(), &whisper.Request{
		Path:     audioFile(t, 16),
		Language: "en",
	})
	assert.NoError(err)

	assert.Equal("This is a test transcript.", transcript.Text)
	assert.Equal("en", transcript.Language)
	assert.Equal(10500*time.Millisecond, transcript.Duration)
	assert.Len(transcript.Segments, 1)
	assert.Equal("This is a test transcript.", transcript.Segments[0].Text)
	assert.InDelta(0.00105, transcript.Cost, 0.0001)

	assert.Equal(1, api.calls)
}

func TestTranscribeFileTooLarge(t *testing.T) {
	assert := require.New(t)

	api := &fakeAPI{resp: audioResponse(t)}
	client := whisper.New(api, &whisper.Config{})

	_, err := client.Transcribe(context.Background(), &whisper.Request{
		Path: audioFile(t, 26*1024*1024),
	})
	assert.ErrorIs(err, whisper.ErrFileTooLarge)

	// no network call for oversized files
	assert.Equal(0, api.calls)
}

func TestTranscribeFileNotFound(t *testing.T) {
	assert := require.New(t)

	api := &fakeAPI{resp: audioResponse(t)}
	client := whisper.New(api, &whisper.Config{})

	_, err := client.Transcribe(context.Background(), &whisper.Request{
		Path: "/nonexistent/file.mp3",
	})
	assert.ErrorIs(err, whisper.ErrAudioNotFound)
	assert.Equal(0, api.calls)
}

func TestTranscribeRetriesTransient(t *testing.T) {
	assert := require.New(t)

	api := &fakeAPI{
		resp: audioResponse(t),
		errs: []error{
			&openai.APIError{HTTPStatusCode: 429, Message: "rate limited"},
			&openai.APIError{HTTPStatusCode: 503, Message: "overloaded"},
		},
	}
	client := whisper.New(api, &whisper.Config{MaxRetries: 2})

	transcript, err := client.Transcribe(context.Background(), &whisper.Request{
		Path: audioFile(t, 16),
	})
	assert.NoError(err)
	assert.Equal("This is a test transcript.", transcript.Text)

	assert.Equal(3, api.calls)
}

func TestTranscribePermanentNoRetry(t *testing.T) {
	assert := require.New(t)

	api := &fakeAPI{
		resp: audioResponse(t),
		errs: []error{
			&openai.APIError{HTTPStatusCode: 400, Message: "unsupported format"},
		},
	}
	client := whisper.New(api, &whisper.Config{MaxRetries: 5})

	_, err := client.Transcribe(context.Background(), &whisper.Request{
		Path: audioFile(t, 16),
	})
	assert.Error(err)
	assert.NotErrorIs(err, whisper.ErrRetriesExhausted)
	assert.Contains(err.Error(), "unsupported format")

	assert.Equal(1, api.calls)
}

func TestTranscribeRetriesExhausted(t *testing.T) {
	assert := require.New(t)

	errs := make([]error, 10)
	for i := range errs {
		errs[i] = &openai.APIError{HTTPStatusCode: 500, Message: "boom"}
	}

	api := &fakeAPI{resp: audioResponse(t), errs: errs}
	client := whisper.New(api, &whisper.Config{MaxRetries: 2})

	_, err := client.Transcribe(context.Background(), &whisper.Request{
		Path: audioFile(t, 16),
	})
	assert.ErrorIs(err, whisper.ErrRetriesExhausted)
	assert.Contains(err.Error(), "boom")

	assert.Equal(3, api.calls)
}

func TestEstimateCost(t *testing.T) {
	assert := require.New(t)

	assert.InDelta(0.006, whisper.EstimateCost(time.Minute), 0.0001)
	assert.InDelta(0.06, whisper.EstimateCost(10*time.Minute), 0.0001)
	assert.InDelta(0.003, whisper.EstimateCost(30*time.Second), 0.0001)
}

func TestNewFromEnvNoKey(t *testing.T) {
	assert := require.New(t)

	t.Setenv("OPENAI_API_KEY", "")

	_, err := whisper.NewFromEnv(&whisper.Config{})
	assert.ErrorIs(err, whisper.ErrNoAPIKey)
}

func TestModelDefault(t *testing.T) {
	assert := require.New(t)

	client := whisper.New(&fakeAPI{}, &whisper.Config{})
	assert.Equal(openai.Whisper1, client.Model())

	client = whisper.New(&fakeAPI{}, &whisper.Config{Model: "gpt-4o-mini-transcribe"})
	assert.Equal("gpt-4o-mini-transcribe", client.Model())
}
