package timeline

import (
	"math"
	"testing"
)

func TestBuildEqualSlices(t *testing.T) {
	slots, err := Build(3, 12.0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("Expected 3 slots, got %d", len(slots))
	}

	want := []Slot{
		{ImageIndex: 0, StartSeconds: 0, EndSeconds: 4},
		{ImageIndex: 1, StartSeconds: 4, EndSeconds: 8},
		{ImageIndex: 2, StartSeconds: 8, EndSeconds: 12},
	}
	for i, s := range slots {
		if s != want[i] {
			t.Errorf("Slot %d: expected %+v, got %+v", i, want[i], s)
		}
	}
}

func TestBuildLastSlotAbsorbsRemainder(t *testing.T) {
	// 10s на 3 изображения не делится нацело
	slots, err := Build(3, 10.0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if slots[len(slots)-1].EndSeconds != 10.0 {
		t.Errorf("Expected last slot to end at exactly 10.0, got %f", slots[len(slots)-1].EndSeconds)
	}

	// Слоты смежные, без щелей
	for i := 1; i < len(slots); i++ {
		if slots[i].StartSeconds != slots[i-1].EndSeconds {
			t.Errorf("Gap between slot %d and %d: %f != %f",
				i-1, i, slots[i-1].EndSeconds, slots[i].StartSeconds)
		}
	}

	total := 0.0
	for _, s := range slots {
		total += s.EndSeconds - s.StartSeconds
	}
	if math.Abs(total-10.0) > 1e-9 {
		t.Errorf("Expected slot lengths to sum to 10.0, got %f", total)
	}
}

func TestBuildZeroImages(t *testing.T) {
	slots, err := Build(0, 30.0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if slots != nil {
		t.Errorf("Expected empty timeline for zero images, got %d slots", len(slots))
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := Build(-1, 10.0); err == nil {
		t.Error("Expected error for negative image count")
	}
	if _, err := Build(3, 0); err == nil {
		t.Error("Expected error for zero duration")
	}
	if _, err := Build(3, -5.0); err == nil {
		t.Error("Expected error for negative duration")
	}
}

func TestSlotContains(t *testing.T) {
	s := Slot{ImageIndex: 0, StartSeconds: 4, EndSeconds: 8}

	if !s.Contains(4) {
		t.Error("Start boundary should be inside (half-open window)")
	}
	if s.Contains(8) {
		t.Error("End boundary should be outside (half-open window)")
	}
	if !s.Contains(6.5) {
		t.Error("Midpoint should be inside")
	}
	if s.Contains(3.999) {
		t.Error("Time before start should be outside")
	}
}

func TestIndexAt(t *testing.T) {
	slots, _ := Build(4, 20.0)

	tests := []struct {
		t    float64
		want int
	}{
		{0, 0},
		{4.9, 0},
		{5.0, 1},
		{12.5, 2},
		{19.99, 3},
		{20.0, 3},  // за последней границей - зажимаем к последнему
		{25.0, 3},  // далеко за концом
		{-1.0, 0},  // до начала - зажимаем к первому
	}

	for _, tt := range tests {
		if got := IndexAt(slots, tt.t); got != tt.want {
			t.Errorf("IndexAt(%f): expected %d, got %d", tt.t, tt.want, got)
		}
	}
}

func TestIndexAtEmpty(t *testing.T) {
	if got := IndexAt(nil, 5.0); got != -1 {
		t.Errorf("Expected -1 for empty timeline, got %d", got)
	}
}
