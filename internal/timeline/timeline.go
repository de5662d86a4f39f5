// Package timeline slices the avatar clip's runtime into equal windows, one
// per background image.
package timeline

import "fmt"

// Slot is the time window during which one background image is on screen.
type Slot struct {
	ImageIndex   int
	StartSeconds float64
	EndSeconds   float64
}

// Contains reports whether t falls inside the slot's half-open window.
func (s Slot) Contains(t float64) bool {
	return t >= s.StartSeconds && t < s.EndSeconds
}

// Build computes equal-length contiguous slots covering [0, totalDuration).
// The last slot's end is pinned to exactly totalDuration so float drift can
// never leave a gap at the boundary. Zero images yields an empty timeline;
// the compositor substitutes a solid background for the full duration.
func Build(imageCount int, totalDuration float64) ([]Slot, error) {
	if imageCount < 0 {
		return nil, fmt.Errorf("negative image count %d", imageCount)
	}
	if totalDuration <= 0 {
		return nil, fmt.Errorf("total duration %.3fs must be positive", totalDuration)
	}
	if imageCount == 0 {
		return nil, nil
	}

	perSlot := totalDuration / float64(imageCount)
	slots := make([]Slot, imageCount)
	for i := range slots {
		slots[i] = Slot{
			ImageIndex:   i,
			StartSeconds: float64(i) * perSlot,
			EndSeconds:   float64(i+1) * perSlot,
		}
	}
	slots[imageCount-1].EndSeconds = totalDuration
	return slots, nil
}

// IndexAt returns the index of the slot containing time t. Times past the
// last slot clamp to it, so callers sampling at frame midpoints stay in range.
func IndexAt(slots []Slot, t float64) int {
	if len(slots) == 0 {
		return -1
	}
	for i, s := range slots {
		if s.Contains(t) {
			return i
		}
	}
	if t < slots[0].StartSeconds {
		return 0
	}
	return len(slots) - 1
}
