package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// ClipInfo is what the compositor needs to know about the avatar source.
type ClipInfo struct {
	Duration float64
	Width    int
	Height   int
	HasAudio bool
}

// probeResult matches ffprobe JSON output structure.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe reads duration, resolution and audio presence via ffprobe.
func Probe(ctx context.Context, path string) (ClipInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return ClipInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probe probeResult
	if err := json.Unmarshal(out, &probe); err != nil {
		return ClipInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info ClipInfo
	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}

	if info.Width == 0 || info.Height == 0 {
		return ClipInfo{}, fmt.Errorf("no video stream in %s", path)
	}
	return info, nil
}
