package transcriber_test

import (
	"context"
	"path/filepath"
	"testing"

	"app/internal/app/transcriber"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	assert := require.New(t)

	ctx := context.Background()

	store, err := transcriber.NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	assert.NoError(err)
	defer store.Close()

	first := &transcriber.Record{
		Source:          "/audio/one.mp3",
		OutputPath:      "/transcripts/one.txt",
		Language:        "en",
		DurationSeconds: 10.5,
		CostUSD:         0.00105,
	}
	assert.NoError(store.Save(ctx, first))
	assert.NotZero(first.ID)

	second := &transcriber.Record{
		Source:     "/audio/two.mp3",
		OutputPath: "/transcripts/two.txt",
		Language:   "es",
	}
	assert.NoError(store.Save(ctx, second))

	records, err := store.List(ctx, 10)
	assert.NoError(err)
	assert.Len(records, 2)

	// newest first
	assert.Equal(second.ID, records[0].ID)
	assert.Equal("/audio/two.mp3", records[0].Source)

	assert.Equal(first.ID, records[1].ID)
	assert.Equal("en", records[1].Language)
	assert.InDelta(10.5, records[1].DurationSeconds, 0.001)
	assert.InDelta(0.00105, records[1].CostUSD, 0.00001)
	assert.False(records[1].CreatedAt.IsZero())
}

func TestStoreListLimit(t *testing.T) {
	assert := require.New(t)

	ctx := context.Background()

	store, err := transcriber.NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	assert.NoError(err)
	defer store.Close()

	for i := 0; i < 5; i++ {
		assert.NoError(store.Save(ctx, &transcriber.Record{
			Source:     "/audio/file.mp3",
			OutputPath: "/transcripts/file.txt",
		}))
	}

	records, err := store.List(ctx, 3)
	assert.NoError(err)
	assert.Len(records, 3)
}
