package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

type FfprobeResult struct {
	Duration time.Duration
}

type ffprobeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// FfprobePath probes audio duration without decoding the whole file.
func (c *Client) FfprobePath(ctx context.Context, path string) (*FfprobeResult, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "quiet", "-print_format", "json", "-show_format", path)

	res, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("exec ffprobe: %w", err)
	}

	return parseFfprobe(res)
}

func parseFfprobe(data []byte) (*FfprobeResult, error) {
	var result *ffprobeResult
	err := json.Unmarshal(data, &result)
	if err != nil {
		return nil, fmt.Errorf("unmarshal json: %w", err)
	}

	dur, err := time.ParseDuration(result.Format.Duration + "s")
	if err != nil {
		return nil, fmt.Errorf("parse duration: %w", err)
	}

	return &FfprobeResult{
		Duration: dur,
	}, nil
}
