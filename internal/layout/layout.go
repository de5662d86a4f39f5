// Package layout computes placement geometry for the compositor: letterboxed
// fits for background stills and anchor positions for the picture-in-picture
// element. Everything here is pure integer arithmetic.
package layout

import (
	"fmt"

	"github.com/ivlev/report2video/internal/media"
)

// Rect is a canvas-relative pixel rectangle.
type Rect struct {
	X, Y          int
	Width, Height int
}

// FitAndLetterbox scales src to fit inside dst preserving aspect ratio and
// centers it. Scaled dimensions round down; centering offsets use integer
// division, so odd remainders bias top-left. The returned rect always lies
// fully inside the dst canvas.
func FitAndLetterbox(srcW, srcH, dstW, dstH int) (Rect, error) {
	if srcW <= 0 || srcH <= 0 {
		return Rect{}, fmt.Errorf("source %dx%d has no area", srcW, srcH)
	}
	if dstW <= 0 || dstH <= 0 {
		return Rect{}, fmt.Errorf("target %dx%d has no area", dstW, dstH)
	}

	scale := float64(dstW) / float64(srcW)
	if s := float64(dstH) / float64(srcH); s < scale {
		scale = s
	}

	w := int(float64(srcW) * scale)
	h := int(float64(srcH) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	// Защита от накопленной ошибки округления
	if w > dstW {
		w = dstW
	}
	if h > dstH {
		h = dstH
	}

	return Rect{
		X:      (dstW - w) / 2,
		Y:      (dstH - h) / 2,
		Width:  w,
		Height: h,
	}, nil
}

// AnchorPosition returns the top-left pixel position for an element of size
// elemW x elemH placed at the named anchor inside canvasW x canvasH with the
// given margin. Unknown anchors are an error, never a silent default.
func AnchorPosition(anchor media.Anchor, canvasW, canvasH, elemW, elemH, margin int) (int, int, error) {
	switch anchor {
	case media.AnchorBottomRight:
		return canvasW - elemW - margin, canvasH - elemH - margin, nil
	case media.AnchorBottomLeft:
		return margin, canvasH - elemH - margin, nil
	case media.AnchorTopRight:
		return canvasW - elemW - margin, margin, nil
	case media.AnchorTopLeft:
		return margin, margin, nil
	case media.AnchorCenter:
		return (canvasW - elemW) / 2, (canvasH - elemH) / 2, nil
	case media.AnchorBottomCenter:
		return (canvasW - elemW) / 2, canvasH - elemH - margin, nil
	}
	return 0, 0, fmt.Errorf("unsupported anchor %q", anchor)
}
