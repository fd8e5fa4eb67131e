package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/RobinNagpal/slidecast/internal/models"
	"github.com/RobinNagpal/slidecast/internal/paths"
	"github.com/RobinNagpal/slidecast/internal/storage"
)

// Narrator turns a slide's narration text into an audio artifact: script
// saved first, speech synthesized, audio stored publicly for UI playback,
// and a presigned URL issued for the rendering engine to fetch out-of-band.
type Narrator struct {
	store  ObjectStore
	speech SpeechService
}

// NewNarrator creates a narration synthesizer.
func NewNarrator(store ObjectStore, speech SpeechService) *Narrator {
	return &Narrator{store: store, speech: speech}
}

// GenerateSlideAudio synthesizes one slide's narration. It never panics or
// returns an error past its boundary: every failure comes back as a
// structured result so multi-step pipelines can record partial failure.
func (n *Narrator) GenerateSlideAudio(ctx context.Context, presentationID string, slideNumber int, narration, bucket, voiceSpec string) models.AudioResult {
	narration = strings.TrimSpace(narration)
	if narration == "" {
		return models.AudioResult{Error: "narration text is empty"}
	}

	slide := paths.FormatSlideNumber(slideNumber)
	p := paths.ForPresentation(presentationID, bucket)

	// Script goes in before synthesis so it is recoverable even if the
	// speech engine fails.
	scriptURL, err := n.store.UploadText(ctx, bucket, p.AudioScript(slide), narration)
	if err != nil {
		log.Error().Err(err).Str("presentationId", presentationID).Str("slide", slide).Msg("Failed to save audio script")
		return models.AudioResult{Error: "failed to save audio script: " + err.Error()}
	}

	voice := ParseVoice(voiceSpec)
	audio, err := n.speech.Synthesize(ctx, narration, voice)
	if err != nil {
		log.Error().Err(err).Str("slide", slide).Str("voice", voice.String()).Msg("Speech synthesis failed")
		return models.AudioResult{Error: err.Error(), AudioScriptURL: scriptURL}
	}

	// Public so a UI can play it back without auth.
	audioKey := p.Audio(slide)
	audioURL, err := n.store.UploadPublicBuffer(ctx, bucket, audioKey, audio, "audio/mpeg")
	if err != nil {
		log.Error().Err(err).Str("slide", slide).Msg("Failed to upload audio")
		return models.AudioResult{Error: "failed to upload audio: " + err.Error(), AudioScriptURL: scriptURL}
	}

	// The rendering engine fetches media out-of-band and must not depend on
	// the caller's auth context.
	presignedURL, err := n.store.PresignedURL(ctx, bucket, audioKey, storage.DefaultPresignExpiry)
	if err != nil {
		log.Error().Err(err).Str("slide", slide).Msg("Failed to presign audio")
		return models.AudioResult{Error: "failed to presign audio: " + err.Error(), AudioScriptURL: scriptURL}
	}

	duration := EstimateAudioDuration(len(audio))
	log.Info().
		Str("presentationId", presentationID).
		Str("slide", slide).
		Float64("estimatedDuration", duration).
		Msg("Slide audio generated")

	return models.AudioResult{
		Success:           true,
		AudioURL:          audioURL,
		AudioPresignedURL: presignedURL,
		AudioScriptURL:    scriptURL,
		Duration:          duration,
	}
}
