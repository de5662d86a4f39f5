// Package storyboard persists the computed render plan of a composition as a
// YAML manifest, so a render can be inspected or replayed by tooling.
package storyboard

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Storyboard captures everything the compositor decided for one output video.
type Storyboard struct {
	Version  string  `yaml:"version"`
	Output   string  `yaml:"output"`
	Duration float64 `yaml:"duration"`
	FPS      int     `yaml:"fps"`
	Canvas   Size    `yaml:"canvas"`
	Avatar   Overlay `yaml:"avatar"`
	Slides   []Slide `yaml:"slides"`
}

type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Overlay describes the picture-in-picture placement.
type Overlay struct {
	Source string `yaml:"source"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Anchor string `yaml:"anchor"`
}

// Slide is one background window with its letterboxed placement.
type Slide struct {
	Page     int     `yaml:"page"`
	Caption  string  `yaml:"caption"`
	Start    float64 `yaml:"start"`
	End      float64 `yaml:"end"`
	Fallback bool    `yaml:"fallback,omitempty"` // solid fill substituted for this window
	Frame    Frame   `yaml:"frame"`
}

// Frame is the letterboxed rectangle of the slide inside the canvas.
type Frame struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Write saves a storyboard to a YAML file.
func Write(sb *Storyboard, path string) error {
	data, err := yaml.Marshal(sb)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Read loads a storyboard from a YAML file.
func Read(path string) (*Storyboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sb Storyboard
	if err := yaml.Unmarshal(data, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}
