package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything one pipeline run needs. Per-run knobs come from
// flags in cmd; credentials and endpoints come from the environment.
type Config struct {
	// Входные и выходные файлы
	InputPDF    string
	OutputVideo string

	// Canvas / PIP geometry
	Width     int
	Height    int
	PIPWidth  int
	PIPHeight int
	Anchor    string
	Margin    int
	FPS       int

	// Extraction
	DPI       int
	MaxImages int
	ReportURL string // optional QR card target

	// Generation services
	ElevenLabsAPIKey string
	ElevenLabsAPIURL string
	HeyGenAPIKey     string
	HeyGenAPIURL     string
	AvatarID         string
	VoiceID          string
	AudioSource      string // "heygen" | "elevenlabs"
	CachedAvatar     string // reuse an existing avatar clip, skip HeyGen
	PollSeconds      int    // avatar job status poll interval
	MaxWaitSeconds   int    // avatar job wait cap before giving up

	// Rendering
	Renderer        string // "", "layered", "frames"
	WriteStoryboard bool
	Verbose         bool
}

// LoadEnv reads .env (if present) and fills the credential/endpoint fields.
// A missing .env is not an error: CI and containers set real env vars.
func (c *Config) LoadEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	_ = godotenv.Load(paths...)

	c.ElevenLabsAPIKey = envStr("ELEVENLABS_API_KEY", c.ElevenLabsAPIKey)
	c.ElevenLabsAPIURL = envStr("ELEVENLABS_API_URL", c.ElevenLabsAPIURL)
	c.HeyGenAPIKey = envStr("HEYGEN_API_KEY", c.HeyGenAPIKey)
	c.HeyGenAPIURL = envStr("HEYGEN_API_URL", c.HeyGenAPIURL)
	if c.AvatarID == "" {
		c.AvatarID = envStr("HEYGEN_AVATAR_ID", "")
	}
	if c.VoiceID == "" {
		c.VoiceID = envStr("ELEVENLABS_VOICE_ID", "")
	}
	c.PollSeconds = envInt("HEYGEN_POLL_SECONDS", 10)
	c.MaxWaitSeconds = envInt("HEYGEN_MAX_WAIT_SECONDS", 600)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
