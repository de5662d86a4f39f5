package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"math"
	"os/exec"

	"github.com/ivlev/report2video/internal/logging"
	"github.com/ivlev/report2video/internal/timeline"
)

// RawFrameRenderer composites every output frame in process: one ffmpeg
// decodes the avatar to raw RGBA at PIP size, Go stamps it onto the selected
// background, and a second ffmpeg encodes the raw canvas stream. Used when
// the layered filter graph is unavailable.
type RawFrameRenderer struct{}

func (r *RawFrameRenderer) Name() string { return "frames" }

func (r *RawFrameRenderer) Render(ctx context.Context, job *renderJob) error {
	logger := logging.WithComponent("renderer.frames")

	w, h := job.req.CanvasWidth, job.req.CanvasHeight
	pw, ph := job.req.PIPWidth, job.req.PIPHeight
	fps := job.req.FPS

	backgrounds := buildBackgrounds(job)
	var fallback *image.RGBA
	if len(backgrounds) == 0 {
		fallback = fallbackFrame(job.req)
	}

	// Аватар декодируем сразу в размер PIP: точное вписывание в бокс,
	// пропорции здесь намеренно не сохраняются.
	decArgs := []string{
		"-v", "error",
		"-i", job.req.AvatarPath,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-vf", fmt.Sprintf("scale=%d:%d", pw, ph),
		"-r", fmt.Sprintf("%d", fps),
		"-an",
		"pipe:1",
	}
	dec := exec.CommandContext(ctx, "ffmpeg", decArgs...)
	var decLog bytes.Buffer
	dec.Stderr = &decLog
	decOut, err := dec.StdoutPipe()
	if err != nil {
		return failf(KindEncodingFailure, err, "decoder stdout pipe")
	}
	if err := dec.Start(); err != nil {
		return failf(KindSourceUnreadable, err, "start avatar decoder")
	}

	enc := exec.CommandContext(ctx, "ffmpeg", encoderArgs(job)...)
	var encLog bytes.Buffer
	enc.Stdout = &encLog
	enc.Stderr = &encLog
	encIn, err := enc.StdinPipe()
	if err != nil {
		decOut.Close()
		dec.Wait()
		return failf(KindEncodingFailure, err, "encoder stdin pipe")
	}
	if err := enc.Start(); err != nil {
		decOut.Close()
		dec.Wait()
		return failf(KindEncodingFailure, err, "start encoder")
	}

	totalFrames := int(math.Round(job.clip.Duration * float64(fps)))
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	pipBuf := make([]byte, pw*ph*4)
	pipFrame := &image.RGBA{Pix: pipBuf, Stride: pw * 4, Rect: image.Rect(0, 0, pw, ph)}
	pipRect := image.Rect(job.pipX, job.pipY, job.pipX+pw, job.pipY+ph)

	renderErr := func() error {
		avatarDone := false
		for n := 0; n < totalFrames; n++ {
			// Фон выбираем по середине кадра, чтобы не зависеть от
			// погрешности на границах слотов
			t := (float64(n) + 0.5) / float64(fps)

			bg := fallback
			if len(backgrounds) > 0 {
				bg = backgrounds[timeline.IndexAt(job.slots, t)]
			}
			copy(frame.Pix, bg.Pix)

			if !avatarDone {
				if _, err := io.ReadFull(decOut, pipBuf); err != nil {
					if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
						// Декодер закончил чуть раньше: держим последний кадр
						avatarDone = true
					} else {
						return fmt.Errorf("read avatar frame %d: %w", n, err)
					}
				}
			}
			draw.Draw(frame, pipRect, pipFrame, image.Point{}, draw.Src)

			if _, err := encIn.Write(frame.Pix); err != nil {
				return fmt.Errorf("write frame %d: %w", n, err)
			}
		}
		return nil
	}()

	encIn.Close()
	io.Copy(io.Discard, decOut)
	decWaitErr := dec.Wait()
	encWaitErr := enc.Wait()

	if renderErr != nil {
		return failf(KindEncodingFailure, renderErr, "ffmpeg: %s", tailOf(&encLog))
	}
	if encWaitErr != nil {
		return failf(KindEncodingFailure, encWaitErr, "ffmpeg encoder: %s", tailOf(&encLog))
	}
	if decWaitErr != nil {
		// Все кадры уже отданы энкодеру, просто фиксируем в логе
		logger.Warn().Err(decWaitErr).Str("stderr", tailOf(&decLog)).Msg("avatar decoder exited dirty")
	}

	logger.Debug().Int("frames", totalFrames).Msg("raw frame render complete")
	return nil
}

// encoderArgs builds the encoding command reading raw RGBA canvas frames from
// stdin. A separate audio track replaces the avatar's own audio; otherwise
// the avatar's audio passes through when present. The output is bounded with
// -t, not -shortest: a narration track shorter than the clip must not cut
// video frames.
func encoderArgs(job *renderJob) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", job.req.CanvasWidth, job.req.CanvasHeight),
		"-framerate", fmt.Sprintf("%d", job.req.FPS),
		"-i", "-",
	}

	withAudio := false
	switch {
	case job.req.AudioPath != "":
		args = append(args, "-i", job.req.AudioPath)
		withAudio = true
	case job.clip.HasAudio:
		args = append(args, "-i", job.req.AvatarPath)
		withAudio = true
	}

	args = append(args, "-map", "0:v")
	if withAudio {
		args = append(args, "-map", "1:a", "-c:a", "aac")
	}

	args = append(args, "-c:v", job.encoder)
	switch job.encoder {
	case "h264_videotoolbox":
		args = append(args, "-b:v", "7500k")
	case "h264_nvenc":
		args = append(args, "-cq", "28")
	default: // libx264
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

// tailOf returns the last part of captured ffmpeg output for error messages.
func tailOf(buf *bytes.Buffer) string {
	const max = 512
	s := buf.String()
	if len(s) > max {
		s = "…" + s[len(s)-max:]
	}
	return s
}
