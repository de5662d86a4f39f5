package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ivlev/report2video/internal/logging"
)

func TestSynthesize(t *testing.T) {
	logging.Init(false)

	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("Expected api key header, got %q", r.Header.Get("xi-api-key"))
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte("fake-mp3-bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", t.TempDir())
	path, err := c.Synthesize(context.Background(), "Your MRI shows mild disc wear.", "voice123", 1.0)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if gotPath != "/v1/text-to-speech/voice123" {
		t.Errorf("Expected /v1/text-to-speech/voice123, got %s", gotPath)
	}
	if gotBody["model_id"] != "eleven_multilingual_v2" {
		t.Errorf("Expected multilingual model, got %v", gotBody["model_id"])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Reading output failed: %v", err)
	}
	if string(data) != "fake-mp3-bytes" {
		t.Errorf("Expected audio bytes written verbatim, got %q", data)
	}
}

func TestSynthesizeClampsSpeed(t *testing.T) {
	logging.Init(false)

	var gotSpeed float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			VoiceSettings struct {
				Speed float64 `json:"speed"`
			} `json:"voice_settings"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotSpeed = body.VoiceSettings.Speed
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", t.TempDir())

	if _, err := c.Synthesize(context.Background(), "text", "v", 5.0); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if gotSpeed != 2.0 {
		t.Errorf("Expected speed clamped to 2.0, got %f", gotSpeed)
	}

	if _, err := c.Synthesize(context.Background(), "text", "v", 0.1); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if gotSpeed != 0.5 {
		t.Errorf("Expected speed clamped to 0.5, got %f", gotSpeed)
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	c := NewClient("http://localhost:1", "k", t.TempDir())
	if _, err := c.Synthesize(context.Background(), "", "v", 1.0); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestSynthesizeAPIError(t *testing.T) {
	logging.Init(false)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key", t.TempDir())
	if _, err := c.Synthesize(context.Background(), "text", "v", 1.0); err == nil {
		t.Error("Expected error for 401 response")
	}
}

func TestVoices(t *testing.T) {
	logging.Init(false)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			t.Errorf("Expected /v1/voices, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(voicesResponse{Voices: []Voice{
			{VoiceID: "abc", Name: "Rachel", Category: "premade"},
			{VoiceID: "def", Name: "Adam", Category: "premade"},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", t.TempDir())
	voices, err := c.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("Expected 2 voices, got %d", len(voices))
	}
	if voices[0].Name != "Rachel" {
		t.Errorf("Expected Rachel, got %s", voices[0].Name)
	}

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
