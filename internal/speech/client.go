// Package speech turns narration text into an audio file through an
// ElevenLabs-compatible text-to-speech API.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/report2video/internal/logging"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

	// Synthesis of a multi-page explanation can take a while on the server
	// side, so the request timeout is generous.
	synthesisTimeout = 120 * time.Second

	minSpeed = 0.5
	maxSpeed = 2.0
)

// Client talks to the text-to-speech API.
type Client struct {
	baseURL string
	apiKey  string
	outDir  string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a speech client writing generated audio under outDir.
func NewClient(baseURL, apiKey, outDir string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		outDir:  outDir,
		http:    &http.Client{Timeout: synthesisTimeout},
		logger:  logging.WithComponent("speech"),
	}
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

// Voice describes one available voice.
type Voice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

// Synthesize converts text to speech and returns the path of the written MP3.
// Speed outside the API's accepted range is clamped, not rejected.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string, speed float64) (string, error) {
	if text == "" {
		return "", fmt.Errorf("synthesize: empty text")
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	if speed < minSpeed {
		speed = minSpeed
	}
	if speed > maxSpeed {
		speed = maxSpeed
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           speed,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	c.logger.Info().Int("text_len", len(text)).Str("voice", voiceID).Float64("speed", speed).Msg("synthesizing speech")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("synthesize: status %d: %s", resp.StatusCode, detail)
	}

	if err := os.MkdirAll(c.outDir, 0755); err != nil {
		return "", fmt.Errorf("output dir: %w", err)
	}
	outPath := filepath.Join(c.outDir, fmt.Sprintf("narration_%d.mp3", time.Now().Unix()))
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close audio file: %w", err)
	}

	c.logger.Info().Str("path", outPath).Msg("narration audio written")
	return outPath, nil
}

// Voices lists the voices available to the configured API key.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list voices: status %d", resp.StatusCode)
	}

	var result voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}
	return result.Voices, nil
}

// Ping verifies the API key by listing voices.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Voices(ctx)
	return err
}
