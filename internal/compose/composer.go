// Package compose renders the final picture-in-picture video: a time-sliced
// sequence of letterboxed report images in the background and the avatar clip
// pinned to an anchor on top.
package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ivlev/report2video/internal/layout"
	"github.com/ivlev/report2video/internal/logging"
	"github.com/ivlev/report2video/internal/media"
	"github.com/ivlev/report2video/internal/storyboard"
	"github.com/ivlev/report2video/internal/system"
	"github.com/ivlev/report2video/internal/timeline"
)

// state tracks a single composition call for logging.
type state string

const (
	stateIdle          state = "idle"
	stateSourcesOpened state = "sources_opened"
	stateTimelineBuilt state = "timeline_built"
	stateRendering     state = "rendering"
	stateFinalized     state = "finalized"
	stateFailed        state = "failed"
)

// Composer owns a scratch directory and a renderer backend. One Composer can
// serve many Compose calls; each call uses its own subdirectory, so
// concurrent calls never share temporary files.
type Composer struct {
	renderer VideoRenderer
	encoder  string
	scratch  string
	logger   zerolog.Logger
}

// New creates a Composer with its scratch directory. Close removes it.
func New(renderer VideoRenderer) (*Composer, error) {
	scratch, err := os.MkdirTemp("", "report2video_")
	if err != nil {
		return nil, err
	}
	return &Composer{
		renderer: renderer,
		encoder:  system.GetBestH264Encoder(),
		scratch:  scratch,
		logger:   logging.WithComponent("compose"),
	}, nil
}

// Close removes the scratch directory and everything rendered into it.
func (c *Composer) Close() error {
	return os.RemoveAll(c.scratch)
}

// Compose runs one full composition and returns the output path. On failure
// no file appears at the requested output path; partials live under a
// temporary name and are removed.
func (c *Composer) Compose(ctx context.Context, req media.CompositionRequest) (string, error) {
	st := stateIdle
	logger := c.logger.With().Str("output", req.OutputPath).Logger()
	fail := func(e *Error) (string, error) {
		st = stateFailed
		logger.Error().Str("state", string(st)).Str("kind", string(e.Kind)).Msg(e.Msg)
		return "", e
	}

	if err := req.Normalize(); err != nil {
		if _, aerr := media.ParseAnchor(string(req.PIPAnchor)); req.PIPAnchor != "" && aerr != nil {
			return fail(failf(KindUnsupportedAnchor, err, "anchor %q", req.PIPAnchor))
		}
		return fail(failf(KindEncodingFailure, err, "invalid request"))
	}

	// 1. Открываем источник
	clip, err := Probe(ctx, req.AvatarPath)
	if err != nil {
		return fail(failf(KindSourceUnreadable, err, "avatar clip %s", req.AvatarPath))
	}
	if clip.Duration <= 0 {
		return fail(failf(KindEmptyInputs, nil, "avatar clip %s has zero duration", req.AvatarPath))
	}
	st = stateSourcesOpened
	logger.Info().Str("state", string(st)).
		Float64("duration", clip.Duration).
		Int("native_w", clip.Width).Int("native_h", clip.Height).
		Msg("avatar clip opened")

	// 2. Таймлайн
	slots, err := timeline.Build(len(req.Images), clip.Duration)
	if err != nil {
		return fail(failf(KindEmptyInputs, err, "timeline"))
	}
	st = stateTimelineBuilt

	// 3. План фона: битые изображения не валят вызов, их окно закрывает
	// сплошная заливка
	plan := c.buildPlan(req, slots, logger)

	// 4. Позиция PIP
	pipX, pipY, err := layout.AnchorPosition(req.PIPAnchor,
		req.CanvasWidth, req.CanvasHeight, req.PIPWidth, req.PIPHeight, req.Margin)
	if err != nil {
		return fail(failf(KindUnsupportedAnchor, err, "anchor %q", req.PIPAnchor))
	}

	callDir, err := os.MkdirTemp(c.scratch, "call_")
	if err != nil {
		return fail(failf(KindEncodingFailure, err, "scratch dir"))
	}
	defer os.RemoveAll(callDir)

	job := &renderJob{
		req:     req,
		clip:    clip,
		slots:   slots,
		plan:    plan,
		pipX:    pipX,
		pipY:    pipY,
		encoder: c.encoder,
		scratch: callDir,
		tmpOut:  partialPath(req.OutputPath),
	}

	// 5. Рендер во временный файл
	st = stateRendering
	logger.Info().Str("state", string(st)).
		Str("renderer", c.renderer.Name()).
		Int("slots", len(slots)).
		Msg("rendering")

	if err := c.renderer.Render(ctx, job); err != nil {
		os.Remove(job.tmpOut)
		if ce, ok := err.(*Error); ok {
			return fail(ce)
		}
		return fail(failf(KindEncodingFailure, err, "render"))
	}

	// 6. Публикуем результат атомарно
	if err := os.Rename(job.tmpOut, req.OutputPath); err != nil {
		os.Remove(job.tmpOut)
		return fail(failf(KindEncodingFailure, err, "finalize output"))
	}
	st = stateFinalized
	logger.Info().Str("state", string(st)).Msg("output finalized")

	if req.WriteStoryboard {
		if err := c.writeStoryboard(req, clip, job); err != nil {
			logger.Warn().Err(err).Msg("storyboard not written")
		}
	}

	return req.OutputPath, nil
}

// buildPlan validates each image and computes its letterboxed placement.
// A rejected image is logged and its slot marked for the solid fallback.
func (c *Composer) buildPlan(req media.CompositionRequest, slots []timeline.Slot, logger zerolog.Logger) []slotPlan {
	plan := make([]slotPlan, len(slots))
	for i, slot := range slots {
		plan[i] = slotPlan{slot: slot}

		img := &req.Images[slot.ImageIndex]
		if err := img.Validate(); err != nil {
			logger.Warn().Err(err).Int("slot", i).Msg("image rejected, using fallback window")
			continue
		}

		b := img.Pixels.Bounds()
		rect, err := layout.FitAndLetterbox(b.Dx(), b.Dy(), req.CanvasWidth, req.CanvasHeight)
		if err != nil {
			logger.Warn().Err(err).Int("slot", i).Msg("image rejected, using fallback window")
			continue
		}
		plan[i].image = img
		plan[i].rect = rect
	}
	return plan
}

func (c *Composer) writeStoryboard(req media.CompositionRequest, clip ClipInfo, job *renderJob) error {
	sb := &storyboard.Storyboard{
		Version:  "1.0",
		Output:   req.OutputPath,
		Duration: clip.Duration,
		FPS:      req.FPS,
		Canvas:   storyboard.Size{Width: req.CanvasWidth, Height: req.CanvasHeight},
		Avatar: storyboard.Overlay{
			Source: req.AvatarPath,
			X:      job.pipX,
			Y:      job.pipY,
			Width:  req.PIPWidth,
			Height: req.PIPHeight,
			Anchor: string(req.PIPAnchor),
		},
	}

	for _, p := range job.plan {
		slide := storyboard.Slide{
			Start: p.slot.StartSeconds,
			End:   p.slot.EndSeconds,
		}
		if p.image != nil {
			slide.Page = p.image.PageNumber
			slide.Caption = p.image.Caption
			slide.Frame = storyboard.Frame{X: p.rect.X, Y: p.rect.Y, Width: p.rect.Width, Height: p.rect.Height}
		} else {
			slide.Fallback = true
			slide.Frame = storyboard.Frame{Width: req.CanvasWidth, Height: req.CanvasHeight}
		}
		sb.Slides = append(sb.Slides, slide)
	}

	path := storyboardPath(req.OutputPath)
	return storyboard.Write(sb, path)
}

// partialPath is where the encoder writes until the render succeeds.
func partialPath(final string) string {
	dir, base := filepath.Split(final)
	return filepath.Join(dir, fmt.Sprintf(".%s.partial", base))
}

func storyboardPath(final string) string {
	ext := filepath.Ext(final)
	return final[:len(final)-len(ext)] + ".storyboard.yaml"
}
