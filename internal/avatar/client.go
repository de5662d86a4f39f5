// Package avatar generates a talking-head presenter clip through a
// HeyGen-compatible video API: submit a job, poll until terminal, download.
package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/report2video/internal/logging"
)

const (
	DefaultBaseURL = "https://api.heygen.com"

	// Поллинг статуса: раз в 10 секунд, не дольше 10 минут на видео.
	DefaultPollInterval = 10 * time.Second
	DefaultMaxWait      = 600 * time.Second
)

// Client talks to the avatar video API.
type Client struct {
	baseURL      string
	apiKey       string
	outDir       string
	pollInterval time.Duration
	maxWait      time.Duration
	http         *http.Client
	logger       zerolog.Logger
}

// NewClient creates an avatar client writing downloaded clips under outDir.
// Zero pollInterval or maxWait fall back to the defaults.
func NewClient(baseURL, apiKey, outDir string, pollInterval, maxWait time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		outDir:       outDir,
		pollInterval: pollInterval,
		maxWait:      maxWait,
		http:         &http.Client{Timeout: 60 * time.Second},
		logger:       logging.WithComponent("avatar"),
	}
}

// GenerateRequest describes one avatar video job. Either AudioURL (uploaded
// narration) or VoiceID+Text must be set.
type GenerateRequest struct {
	AvatarID        string
	Text            string
	VoiceID         string
	AudioURL        string
	Width           int
	Height          int
	BackgroundColor string
}

type generatePayload struct {
	VideoInputs []videoInput `json:"video_inputs"`
	Dimension   dimension    `json:"dimension"`
	Test        bool         `json:"test"`
}

type videoInput struct {
	Character  character  `json:"character"`
	Voice      voiceInput `json:"voice"`
	Background background `json:"background"`
}

type character struct {
	Type        string `json:"type"`
	AvatarID    string `json:"avatar_id"`
	AvatarStyle string `json:"avatar_style"`
}

type voiceInput struct {
	Type      string  `json:"type"`
	AudioURL  string  `json:"audio_url,omitempty"`
	InputText string  `json:"input_text,omitempty"`
	VoiceID   string  `json:"voice_id,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
}

type background struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type generateResponse struct {
	Data struct {
		VideoID string `json:"video_id"`
	} `json:"data"`
	Error *apiError `json:"error"`
}

type statusResponse struct {
	Data struct {
		Status   string `json:"status"`
		VideoURL string `json:"video_url"`
		Error    any    `json:"error"`
	} `json:"data"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Generate submits a video job and returns its video ID.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if req.AvatarID == "" {
		return "", fmt.Errorf("generate: avatar id required")
	}

	var voice voiceInput
	switch {
	case req.AudioURL != "":
		voice = voiceInput{Type: "audio", AudioURL: req.AudioURL}
	case req.VoiceID != "":
		voice = voiceInput{Type: "text", InputText: req.Text, VoiceID: req.VoiceID, Speed: 1.0}
	default:
		return "", fmt.Errorf("generate: either audio url or voice id required")
	}

	if req.Width == 0 {
		req.Width = 1280
	}
	if req.Height == 0 {
		req.Height = 720
	}
	if req.BackgroundColor == "" {
		req.BackgroundColor = "#ffffff"
	}

	payload := generatePayload{
		VideoInputs: []videoInput{{
			Character:  character{Type: "avatar", AvatarID: req.AvatarID, AvatarStyle: "normal"},
			Voice:      voice,
			Background: background{Type: "color", Value: req.BackgroundColor},
		}},
		Dimension: dimension{Width: req.Width, Height: req.Height},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/video/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	c.logger.Info().Str("avatar", req.AvatarID).
		Int("width", req.Width).Int("height", req.Height).
		Msg("submitting avatar video job")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("submit job: status %d: %s", resp.StatusCode, detail)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("submit job: %s: %s", result.Error.Code, result.Error.Message)
	}
	if result.Data.VideoID == "" {
		return "", fmt.Errorf("submit job: no video id in response")
	}
	return result.Data.VideoID, nil
}

type dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WaitForVideo polls until the job finishes, then downloads the clip and
// returns its local path. "completed" and "failed" are terminal; everything
// else keeps polling until the deadline.
func (c *Client) WaitForVideo(ctx context.Context, videoID string) (string, error) {
	deadline := time.Now().Add(c.maxWait)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		status, videoURL, err := c.videoStatus(ctx, videoID)
		if err != nil {
			c.logger.Warn().Err(err).Msg("status check failed, retrying")
			c.sleep(ctx)
			continue
		}

		c.logger.Info().Str("video_id", videoID).Str("status", status).Msg("avatar video status")

		switch status {
		case "completed":
			if videoURL == "" {
				return "", fmt.Errorf("video %s completed without a url", videoID)
			}
			return c.Download(ctx, videoURL)
		case "failed":
			return "", fmt.Errorf("video %s generation failed", videoID)
		default:
			c.sleep(ctx)
		}
	}

	return "", fmt.Errorf("timeout after %s waiting for video %s", c.maxWait, videoID)
}

func (c *Client) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.pollInterval):
	}
}

func (c *Client) videoStatus(ctx context.Context, videoID string) (status, videoURL string, err error) {
	url := fmt.Sprintf("%s/v1/video_status.get?video_id=%s", c.baseURL, videoID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("status check: status %d", resp.StatusCode)
	}

	var result statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("decode status: %w", err)
	}
	return result.Data.Status, result.Data.VideoURL, nil
}

// Download fetches a finished clip and writes it under the output directory.
func (c *Client) Download(ctx context.Context, videoURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", videoURL, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}

	// Download has its own client: clips are big and the 60s API timeout is
	// too tight for them.
	dl := &http.Client{Timeout: 120 * time.Second}
	resp, err := dl.Do(req)
	if err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download video: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(c.outDir, 0755); err != nil {
		return "", fmt.Errorf("output dir: %w", err)
	}
	outPath := filepath.Join(c.outDir, fmt.Sprintf("avatar_%d.mp4", time.Now().Unix()))
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create video file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("write video: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close video file: %w", err)
	}

	c.logger.Info().Str("path", outPath).Msg("avatar clip downloaded")
	return outPath, nil
}

// UploadAudio uploads a narration file and returns the asset URL for use in
// a generation request.
func (c *Client) UploadAudio(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("multipart form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/asset", &buf)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload audio: status %d: %s", resp.StatusCode, detail)
	}

	var result struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.Data.URL == "" {
		return "", fmt.Errorf("upload audio: no asset url in response")
	}
	return result.Data.URL, nil
}

// Avatar describes one presenter available to the account.
type Avatar struct {
	AvatarID   string `json:"avatar_id"`
	AvatarName string `json:"avatar_name"`
	Gender     string `json:"gender"`
}

// Avatars lists the presenters available to the configured API key.
func (c *Client) Avatars(ctx context.Context) ([]Avatar, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v2/avatars", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list avatars: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list avatars: status %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Avatars []Avatar `json:"avatars"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode avatars: %w", err)
	}
	return result.Data.Avatars, nil
}

// Voice describes one voice available on the avatar service.
type Voice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Voices lists the voices available to the configured API key.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v2/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list voices: status %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Voices []Voice `json:"voices"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}
	return result.Data.Voices, nil
}

// Ping verifies the API key by checking the remaining quota.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v2/user/remaining_quota", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("quota check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("quota check: status %d", resp.StatusCode)
	}
	return nil
}
