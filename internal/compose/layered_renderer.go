package compose

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ivlev/report2video/internal/logging"
	"github.com/ivlev/report2video/internal/media"
)

// LayeredClipRenderer builds one ffmpeg filter_complex graph: a solid color
// base, per-slot letterboxed stills switched by time window, and the avatar
// scaled into its PIP box on top. Preferred backend when ffmpeg carries the
// overlay filter.
type LayeredClipRenderer struct{}

func (r *LayeredClipRenderer) Name() string { return "layered" }

// layeredSlide is one background still written to scratch for the filter graph.
type layeredSlide struct {
	path       string
	start, end float64
}

func (r *LayeredClipRenderer) Render(ctx context.Context, job *renderJob) error {
	logger := logging.WithComponent("renderer.layered")

	// Слайды уходят в ffmpeg файлами; fallback-окна покрывает цветовая подложка
	var slides []layeredSlide
	for i, p := range job.plan {
		if p.image == nil {
			continue
		}
		path := filepath.Join(job.scratch, fmt.Sprintf("slide_%d.png", i))
		if err := writePNG(path, p.image); err != nil {
			logger.Warn().Err(err).Int("page", p.image.PageNumber).Msg("slide dropped, fallback window")
			continue
		}
		slides = append(slides, layeredSlide{path: path, start: p.slot.StartSeconds, end: p.slot.EndSeconds})
	}

	args := layeredArgs(job, slides)

	logger.Debug().Int("slides", len(slides)).Str("out", job.tmpOut).Msg("running filter graph")

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return failf(KindEncodingFailure, err, "ffmpeg filter graph: %s", tailOf(&out))
	}
	return nil
}

// layeredArgs builds the single-pass ffmpeg invocation: lavfi color base,
// time-windowed letterboxed slides, PIP overlay. The output length is bounded
// with -t only; -shortest would let a short narration track cut video frames.
func layeredArgs(job *renderJob, slides []layeredSlide) []string {
	w, h := job.req.CanvasWidth, job.req.CanvasHeight
	fill := job.req.Fill
	fillHex := fmt.Sprintf("0x%02X%02X%02X", fill.R, fill.G, fill.B)

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%f", fillHex, w, h, job.req.FPS, job.clip.Duration),
	}
	for _, s := range slides {
		args = append(args, "-loop", "1", "-i", s.path)
	}
	avatarIdx := 1 + len(slides)
	args = append(args, "-i", job.req.AvatarPath)

	audioIdx := -1
	if job.req.AudioPath != "" {
		audioIdx = avatarIdx + 1
		args = append(args, "-i", job.req.AudioPath)
	}

	// Граф: каждый слайд letterbox-ится scale+pad (как у изображений в
	// fitAndLetterbox) и накладывается только в своём окне времени
	var g strings.Builder
	lastOut := "[0:v]"
	for i, s := range slides {
		in := fmt.Sprintf("[%d:v]", i+1)
		boxed := fmt.Sprintf("[b%d]", i)
		out := fmt.Sprintf("[v%d]", i)
		fmt.Fprintf(&g, "%sscale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=%s,setsar=1%s;",
			in, w, h, w, h, fillHex, boxed)
		fmt.Fprintf(&g, "%s%soverlay=0:0:enable='between(t,%f,%f)'%s;",
			lastOut, boxed, s.start, s.end, out)
		lastOut = out
	}
	// Аватар: точное вписывание в PIP-бокс, без сохранения пропорций
	fmt.Fprintf(&g, "[%d:v]scale=%d:%d,setsar=1[pip];", avatarIdx, job.req.PIPWidth, job.req.PIPHeight)
	fmt.Fprintf(&g, "%s[pip]overlay=%d:%d[vout]", lastOut, job.pipX, job.pipY)

	args = append(args, "-filter_complex", g.String(), "-map", "[vout]")

	switch {
	case audioIdx != -1:
		args = append(args, "-map", fmt.Sprintf("%d:a", audioIdx), "-c:a", "aac")
	case job.clip.HasAudio:
		args = append(args, "-map", fmt.Sprintf("%d:a", avatarIdx), "-c:a", "aac")
	}

	args = append(args, "-c:v", job.encoder)
	switch job.encoder {
	case "h264_videotoolbox":
		args = append(args, "-b:v", "7500k")
	case "h264_nvenc":
		args = append(args, "-cq", "28")
	default:
		args = append(args, "-crf", "23", "-preset", "medium")
	}

	args = append(args,
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", job.req.FPS),
		"-t", fmt.Sprintf("%f", job.clip.Duration),
		job.tmpOut,
	)
	return args
}

func writePNG(path string, img *media.SourceImage) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img.Pixels); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
