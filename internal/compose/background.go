package compose

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/report2video/internal/media"
)

// buildBackgrounds renders one full-canvas RGBA frame per slot for the
// raw-frame backend: letterbox fill plus the scaled still. Scaling with
// CatmullRom is the expensive part, so slots are prepared in parallel.
func buildBackgrounds(job *renderJob) []*image.RGBA {
	w, h := job.req.CanvasWidth, job.req.CanvasHeight
	frames := make([]*image.RGBA, len(job.plan))

	var g errgroup.Group
	for i := range job.plan {
		g.Go(func() error {
			p := job.plan[i]
			frame := image.NewRGBA(image.Rect(0, 0, w, h))
			draw.Draw(frame, frame.Bounds(), image.NewUniform(job.req.Fill), image.Point{}, draw.Src)

			if p.image != nil {
				dst := image.Rect(p.rect.X, p.rect.Y, p.rect.X+p.rect.Width, p.rect.Y+p.rect.Height)
				xdraw.CatmullRom.Scale(frame, dst, p.image.Pixels, p.image.Pixels.Bounds(), xdraw.Src, nil)
			}

			frames[i] = frame
			return nil
		})
	}
	// Воркеры не возвращают ошибок: плохие изображения уже заменены на fallback
	_ = g.Wait()

	return frames
}

// fallbackFrame is the solid background used when the timeline is empty.
func fallbackFrame(req media.CompositionRequest) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, req.CanvasWidth, req.CanvasHeight))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(req.Fill), image.Point{}, draw.Src)
	return frame
}
