package storyboard

import (
	"path/filepath"
	"testing"
)

func TestStoryboardWriteRead(t *testing.T) {
	sb := &Storyboard{
		Version:  "1.0",
		Output:   "output/report.mp4",
		Duration: 94.5,
		FPS:      30,
		Canvas:   Size{Width: 1280, Height: 720},
		Avatar: Overlay{
			Source: "output/avatar.mp4",
			X:      940,
			Y:      460,
			Width:  320,
			Height: 240,
			Anchor: "bottom_right",
		},
		Slides: []Slide{
			{
				Page:    4,
				Caption: "Figure 1: Sagittal T2 MRI",
				Start:   0,
				End:     47.25,
				Frame:   Frame{X: 160, Y: 0, Width: 960, Height: 720},
			},
			{
				Start:    47.25,
				End:      94.5,
				Fallback: true,
				Frame:    Frame{Width: 1280, Height: 720},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "test.storyboard.yaml")
	if err := Write(sb, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if got.Version != sb.Version {
		t.Errorf("Version mismatch: expected %s, got %s", sb.Version, got.Version)
	}
	if got.Duration != sb.Duration {
		t.Errorf("Duration mismatch: expected %f, got %f", sb.Duration, got.Duration)
	}
	if got.Avatar != sb.Avatar {
		t.Errorf("Avatar mismatch: expected %+v, got %+v", sb.Avatar, got.Avatar)
	}
	if len(got.Slides) != len(sb.Slides) {
		t.Fatalf("Slide count mismatch: expected %d, got %d", len(sb.Slides), len(got.Slides))
	}
	for i := range got.Slides {
		if got.Slides[i] != sb.Slides[i] {
			t.Errorf("Slide %d mismatch: expected %+v, got %+v", i, sb.Slides[i], got.Slides[i])
		}
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
