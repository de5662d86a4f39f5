package media

import (
	"fmt"
	"image"
	"image/color"
)

// Anchor names a canvas position for the picture-in-picture element.
type Anchor string

const (
	AnchorBottomRight  Anchor = "bottom_right"
	AnchorBottomLeft   Anchor = "bottom_left"
	AnchorTopRight     Anchor = "top_right"
	AnchorTopLeft      Anchor = "top_left"
	AnchorCenter       Anchor = "center"
	AnchorBottomCenter Anchor = "bottom_center"
)

// ParseAnchor validates an anchor name. Unknown names are an error: the old
// behavior of silently falling back to bottom_right hid typos in configs.
func ParseAnchor(s string) (Anchor, error) {
	switch Anchor(s) {
	case AnchorBottomRight, AnchorBottomLeft, AnchorTopRight, AnchorTopLeft,
		AnchorCenter, AnchorBottomCenter:
		return Anchor(s), nil
	}
	return "", fmt.Errorf("unsupported anchor %q", s)
}

// SourceImage is one still extracted from the report. Pixels is owned by the
// image and read-only after extraction.
type SourceImage struct {
	PageNumber int // 1-based origin page, provenance only
	Pixels     image.Image
	Caption    string
}

func (s SourceImage) Validate() error {
	if s.Pixels == nil {
		return fmt.Errorf("image (page %d): no pixel data", s.PageNumber)
	}
	b := s.Pixels.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("image (page %d): empty bounds %v", s.PageNumber, b)
	}
	return nil
}

// DefaultCaption fills in a caption derived from the page number.
func DefaultCaption(page int) string {
	return fmt.Sprintf("Report image — page %d", page)
}

// AvatarClip describes a decoded avatar video resource.
type AvatarClip struct {
	SourcePath      string
	DurationSeconds float64
	NativeWidth     int
	NativeHeight    int
}

// Defaults for CompositionRequest.
const (
	DefaultCanvasWidth  = 1280
	DefaultCanvasHeight = 720
	DefaultPIPWidth     = 320
	DefaultPIPHeight    = 240
	DefaultMargin       = 20
	DefaultFPS          = 30
)

// DefaultFill is the letterbox fill color (a light gray).
var DefaultFill = color.NRGBA{R: 240, G: 240, B: 245, A: 255}

// CompositionRequest configures one composition call.
type CompositionRequest struct {
	AvatarPath string
	Images     []SourceImage
	OutputPath string

	CanvasWidth  int
	CanvasHeight int
	PIPWidth     int
	PIPHeight    int
	PIPAnchor    Anchor
	Margin       int
	FPS          int
	AudioPath    string // replaces the avatar's own audio when set
	Fill         color.NRGBA

	// WriteStoryboard dumps the computed timeline/layout next to the output.
	WriteStoryboard bool
}

// Normalize applies defaults for zero-valued fields and validates the rest.
func (r *CompositionRequest) Normalize() error {
	if r.AvatarPath == "" {
		return fmt.Errorf("avatar clip path is required")
	}
	if r.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if r.CanvasWidth == 0 {
		r.CanvasWidth = DefaultCanvasWidth
	}
	if r.CanvasHeight == 0 {
		r.CanvasHeight = DefaultCanvasHeight
	}
	if r.PIPWidth == 0 {
		r.PIPWidth = DefaultPIPWidth
	}
	if r.PIPHeight == 0 {
		r.PIPHeight = DefaultPIPHeight
	}
	if r.PIPAnchor == "" {
		r.PIPAnchor = AnchorBottomRight
	}
	if r.Margin == 0 {
		r.Margin = DefaultMargin
	}
	if r.FPS == 0 {
		r.FPS = DefaultFPS
	}
	if r.Fill == (color.NRGBA{}) {
		r.Fill = DefaultFill
	}
	if r.CanvasWidth < 2 || r.CanvasHeight < 2 {
		return fmt.Errorf("canvas %dx%d too small", r.CanvasWidth, r.CanvasHeight)
	}
	if r.PIPWidth > r.CanvasWidth || r.PIPHeight > r.CanvasHeight {
		return fmt.Errorf("pip %dx%d does not fit canvas %dx%d",
			r.PIPWidth, r.PIPHeight, r.CanvasWidth, r.CanvasHeight)
	}
	if _, err := ParseAnchor(string(r.PIPAnchor)); err != nil {
		return err
	}
	return nil
}
