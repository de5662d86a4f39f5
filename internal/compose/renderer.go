package compose

import (
	"context"
	"fmt"

	"github.com/ivlev/report2video/internal/layout"
	"github.com/ivlev/report2video/internal/media"
	"github.com/ivlev/report2video/internal/system"
	"github.com/ivlev/report2video/internal/timeline"
)

// VideoRenderer is the capability both encoding backends implement. The
// compositor's algorithm is written against this interface only; backend
// quirks stay behind it.
type VideoRenderer interface {
	Name() string
	Render(ctx context.Context, job *renderJob) error
}

// renderJob is the fully resolved plan for one output file. Built once by the
// composer, consumed read-only by the renderer.
type renderJob struct {
	req     media.CompositionRequest
	clip    ClipInfo
	slots   []timeline.Slot
	plan    []slotPlan
	pipX    int
	pipY    int
	encoder string // H.264 encoder name, probed once
	scratch string
	tmpOut  string // partial output, renamed by the composer on success
}

// slotPlan binds a timeline slot to its background. A nil image means the
// solid-fill fallback covers the window (no images at all, or this image was
// rejected).
type slotPlan struct {
	slot  timeline.Slot
	image *media.SourceImage
	rect  layout.Rect
}

// SelectRenderer picks the backend once at startup. The layered backend needs
// ffmpeg's overlay filter; hosts without it get the raw-frame path. forced
// may be "layered" or "frames" to override detection.
func SelectRenderer(forced string) (VideoRenderer, error) {
	switch forced {
	case "layered":
		return &LayeredClipRenderer{}, nil
	case "frames":
		return &RawFrameRenderer{}, nil
	case "":
		if system.CheckFilterSupport("overlay") {
			return &LayeredClipRenderer{}, nil
		}
		return &RawFrameRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown renderer %q", forced)
}
