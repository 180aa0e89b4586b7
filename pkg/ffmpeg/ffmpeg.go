package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path"
	"strings"

	"github.com/google/uuid"
)

// CompressToMp3 re-encodes audio as mono 192k mp3. Used to squeeze inputs
// under the upstream 25MB limit before submission.
func (c *Client) CompressToMp3(ctx context.Context, inputPath string) (string, error) {
	base := strings.TrimSuffix(path.Base(inputPath), path.Ext(inputPath))
	outputPath := path.Join(c.TmpDir(), prefix+uuid.NewString()+"_"+base+".mp3")

	cmd := exec.CommandContext(ctx, "ffmpeg", "-i", inputPath, "-nostats", "-loglevel", "0", "-ar", "44100", "-ac", "1", "-b:a", "192k", "-vn", "-f", "mp3", outputPath)

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run ffmpeg: %w", err)
	}

	return outputPath, nil
}
