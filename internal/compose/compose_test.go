package compose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/report2video/internal/logging"
	"github.com/ivlev/report2video/internal/media"
	"github.com/ivlev/report2video/internal/timeline"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
}

func TestErrorKinds(t *testing.T) {
	inner := fmt.Errorf("disk full")
	e := failf(KindEncodingFailure, inner, "write %s", "out.mp4")

	if KindOf(e) != KindEncodingFailure {
		t.Errorf("Expected encoding_failure, got %s", KindOf(e))
	}
	if !errors.Is(e, inner) {
		t.Error("Expected wrapped error to survive the chain")
	}
	if !strings.Contains(e.Error(), "out.mp4") {
		t.Errorf("Expected message to carry context, got: %s", e.Error())
	}

	wrapped := fmt.Errorf("pipeline: %w", e)
	if KindOf(wrapped) != KindEncodingFailure {
		t.Error("KindOf should see through wrapping")
	}

	if KindOf(fmt.Errorf("plain")) != "" {
		t.Error("Expected empty kind for foreign error")
	}
}

func TestSelectRenderer(t *testing.T) {
	r, err := SelectRenderer("layered")
	if err != nil {
		t.Fatalf("SelectRenderer(layered) failed: %v", err)
	}
	if r.Name() != "layered" {
		t.Errorf("Expected layered, got %s", r.Name())
	}

	r, err = SelectRenderer("frames")
	if err != nil {
		t.Fatalf("SelectRenderer(frames) failed: %v", err)
	}
	if r.Name() != "frames" {
		t.Errorf("Expected frames, got %s", r.Name())
	}

	if _, err := SelectRenderer("opengl"); err == nil {
		t.Error("Expected error for unknown renderer")
	}
}

func TestBuildPlanFallback(t *testing.T) {
	logging.Init(false)
	c := &Composer{logger: logging.WithComponent("test")}

	req := media.CompositionRequest{
		AvatarPath: "a.mp4",
		OutputPath: "o.mp4",
		Images: []media.SourceImage{
			{PageNumber: 4, Pixels: image.NewRGBA(image.Rect(0, 0, 800, 600))},
			{PageNumber: 5}, // нет пикселей: должен уйти в fallback
		},
	}
	if err := req.Normalize(); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	slots, err := timeline.Build(len(req.Images), 10.0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	plan := c.buildPlan(req, slots, c.logger)
	if len(plan) != 2 {
		t.Fatalf("Expected 2 plan entries, got %d", len(plan))
	}

	if plan[0].image == nil {
		t.Error("Valid image should be planned, not fallback")
	}
	want := struct{ x, y, w, h int }{160, 0, 960, 720}
	if plan[0].rect.X != want.x || plan[0].rect.Y != want.y ||
		plan[0].rect.Width != want.w || plan[0].rect.Height != want.h {
		t.Errorf("Expected rect (%d,%d %dx%d), got %+v", want.x, want.y, want.w, want.h, plan[0].rect)
	}

	if plan[1].image != nil {
		t.Error("Broken image should fall back to nil")
	}
}

func TestBuildBackgrounds(t *testing.T) {
	req := media.CompositionRequest{
		AvatarPath: "a.mp4",
		OutputPath: "o.mp4",
		Images: []media.SourceImage{
			{PageNumber: 4, Pixels: image.NewRGBA(image.Rect(0, 0, 100, 100))},
		},
	}
	if err := req.Normalize(); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	slots, _ := timeline.Build(1, 5.0)
	logging.Init(false)
	c := &Composer{logger: logging.WithComponent("test")}
	plan := c.buildPlan(req, slots, c.logger)

	job := &renderJob{req: req, slots: slots, plan: plan}
	frames := buildBackgrounds(job)

	if len(frames) != 1 {
		t.Fatalf("Expected 1 background, got %d", len(frames))
	}
	b := frames[0].Bounds()
	if b.Dx() != 1280 || b.Dy() != 720 {
		t.Errorf("Expected 1280x720 background, got %dx%d", b.Dx(), b.Dy())
	}

	// Угол холста за пределами letterbox-а должен быть цветом заливки
	r, g, bl, _ := frames[0].At(0, 0).RGBA()
	fill := req.Fill
	if uint8(r>>8) != fill.R || uint8(g>>8) != fill.G || uint8(bl>>8) != fill.B {
		t.Errorf("Expected fill color %v at corner, got (%d,%d,%d)", fill, r>>8, g>>8, bl>>8)
	}
}

func TestEncoderArgs(t *testing.T) {
	req := media.CompositionRequest{AvatarPath: "a.mp4", OutputPath: "o.mp4"}
	req.Normalize()

	job := &renderJob{
		req:     req,
		clip:    ClipInfo{Duration: 10, HasAudio: true},
		encoder: "libx264",
		tmpOut:  ".o.mp4.partial",
	}

	args := strings.Join(encoderArgs(job), " ")

	if !strings.Contains(args, "-pixel_format rgba") {
		t.Errorf("Expected raw rgba input, got: %s", args)
	}
	if !strings.Contains(args, "-video_size 1280x720") {
		t.Errorf("Expected canvas size, got: %s", args)
	}
	// Аватар с аудио: дорожка проходит насквозь
	if !strings.Contains(args, "-map 1:a") || !strings.Contains(args, "a.mp4") {
		t.Errorf("Expected avatar audio passthrough, got: %s", args)
	}
	if !strings.Contains(args, "-crf 23") {
		t.Errorf("Expected x264 quality args, got: %s", args)
	}
	// Длительность ограничивает -t; -shortest резал бы видео по короткой дорожке
	if !strings.Contains(args, "-t 10.000000") {
		t.Errorf("Expected output bounded by -t, got: %s", args)
	}
	if strings.Contains(args, "-shortest") {
		t.Errorf("Expected no -shortest, got: %s", args)
	}
	if !strings.HasSuffix(args, ".o.mp4.partial") {
		t.Errorf("Expected partial output path last, got: %s", args)
	}
}

func TestEncoderArgsSeparateAudio(t *testing.T) {
	req := media.CompositionRequest{AvatarPath: "a.mp4", OutputPath: "o.mp4", AudioPath: "narration.mp3"}
	req.Normalize()

	job := &renderJob{req: req, clip: ClipInfo{Duration: 10, HasAudio: true}, encoder: "libx264", tmpOut: "t.mp4"}
	args := strings.Join(encoderArgs(job), " ")

	// Отдельная дорожка важнее собственного звука аватара
	if !strings.Contains(args, "narration.mp3") {
		t.Errorf("Expected narration audio input, got: %s", args)
	}
	if strings.Count(args, "a.mp4") != 0 {
		t.Errorf("Avatar should not be an audio input here, got: %s", args)
	}
	if strings.Contains(args, "-shortest") {
		t.Errorf("Short narration must not truncate the video, got: %s", args)
	}
}

func TestLayeredArgs(t *testing.T) {
	req := media.CompositionRequest{AvatarPath: "a.mp4", OutputPath: "o.mp4", AudioPath: "narration.mp3"}
	req.Normalize()

	job := &renderJob{
		req:     req,
		clip:    ClipInfo{Duration: 10, HasAudio: true},
		encoder: "libx264",
		pipX:    940,
		pipY:    460,
		tmpOut:  ".o.mp4.partial",
	}
	slides := []layeredSlide{{path: "slide_0.png", start: 0, end: 10}}

	args := strings.Join(layeredArgs(job, slides), " ")

	if !strings.Contains(args, "-filter_complex") {
		t.Errorf("Expected a filter graph, got: %s", args)
	}
	if !strings.Contains(args, "overlay=940:460") {
		t.Errorf("Expected PIP overlay position, got: %s", args)
	}
	if !strings.Contains(args, "narration.mp3") {
		t.Errorf("Expected narration input, got: %s", args)
	}
	if !strings.Contains(args, "-t 10.000000") {
		t.Errorf("Expected output bounded by -t, got: %s", args)
	}
	if strings.Contains(args, "-shortest") {
		t.Errorf("Short narration must not truncate the video, got: %s", args)
	}
}

func TestComposerCloseRemovesScratch(t *testing.T) {
	logging.Init(false)

	r, _ := SelectRenderer("frames")
	c, err := New(r)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := os.Stat(c.scratch); err != nil {
		t.Fatalf("Expected scratch dir to exist: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(c.scratch); !os.IsNotExist(err) {
		t.Errorf("Expected scratch dir removed, stat: %v", err)
	}

	// Повторный Close безопасен: в cmd он зовётся на обоих путях выхода
	if err := c.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func TestPartialAndStoryboardPaths(t *testing.T) {
	p := partialPath("/videos/report.mp4")
	if p != filepath.Join("/videos", ".report.mp4.partial") {
		t.Errorf("Unexpected partial path: %s", p)
	}

	s := storyboardPath("/videos/report.mp4")
	if s != "/videos/report.storyboard.yaml" {
		t.Errorf("Unexpected storyboard path: %s", s)
	}
}

func TestComposeMissingAvatar(t *testing.T) {
	skipIfNoFFmpeg(t)
	logging.Init(false)

	r, err := SelectRenderer("frames")
	if err != nil {
		t.Fatalf("SelectRenderer failed: %v", err)
	}
	c, err := New(r)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	req := media.CompositionRequest{
		AvatarPath: filepath.Join(t.TempDir(), "no_such_clip.mp4"),
		OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	}

	_, err = c.Compose(context.Background(), req)
	if err == nil {
		t.Fatal("Expected error for missing avatar clip")
	}
	if KindOf(err) != KindSourceUnreadable {
		t.Errorf("Expected source_unreadable, got %s (%v)", KindOf(err), err)
	}
}

func TestComposeUnsupportedAnchor(t *testing.T) {
	logging.Init(false)
	c := &Composer{renderer: &RawFrameRenderer{}, logger: logging.WithComponent("test")}

	req := media.CompositionRequest{
		AvatarPath: "a.mp4",
		OutputPath: "o.mp4",
		PIPAnchor:  "upper_middle",
	}

	_, err := c.Compose(context.Background(), req)
	if err == nil {
		t.Fatal("Expected error for unknown anchor")
	}
	if KindOf(err) != KindUnsupportedAnchor {
		t.Errorf("Expected unsupported_anchor, got %s (%v)", KindOf(err), err)
	}
}
