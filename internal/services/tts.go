package services

import (
	"context"
	"strings"
)

// ---------------------------------------------------------------------------
// SpeechService — common interface for text-to-speech providers.
// Polly is the default; OpenAI TTS is available as an alternative so the
// narrator can use whichever is configured without knowing the provider.
// ---------------------------------------------------------------------------

// SpeechService is the interface any TTS provider must implement.
type SpeechService interface {
	// Synthesize converts narration text into encoded MP3 audio.
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)
}

// Voice is a parsed voice specification.
type Voice struct {
	ID     string
	Engine string
}

const (
	defaultVoiceID = "Ruth"
	defaultEngine  = "generative"
)

// validEngines are the synthesis engines the speech backend accepts.
var validEngines = map[string]bool{
	"generative": true,
	"long-form":  true,
	"neural":     true,
	"standard":   true,
}

// ParseVoice parses a "VoiceId" or "VoiceId:engine" specification. Missing or
// invalid parts fall back to Ruth:generative.
func ParseVoice(spec string) Voice {
	voice := Voice{ID: defaultVoiceID, Engine: defaultEngine}

	spec = strings.TrimSpace(spec)
	if spec == "" {
		return voice
	}

	parts := strings.SplitN(spec, ":", 2)
	if id := strings.TrimSpace(parts[0]); id != "" {
		voice.ID = id
	}
	if len(parts) == 2 {
		if engine := strings.TrimSpace(parts[1]); validEngines[engine] {
			voice.Engine = engine
		}
	}
	return voice
}

// String renders the voice back to its VoiceId:engine form.
func (v Voice) String() string {
	return v.ID + ":" + v.Engine
}

// assumedBitrateBps is the MP3 bitrate assumed when estimating duration from
// encoded byte size. The estimate is display-only — frame counts are always
// derived from the real file via ffprobe before rendering.
const assumedBitrateBps = 128 * 1024

// EstimateAudioDuration approximates the playback duration in seconds of an
// MP3 payload of byteLen bytes at the assumed 128kbps bitrate.
func EstimateAudioDuration(byteLen int) float64 {
	return float64(byteLen) / (assumedBitrateBps / 8)
}
