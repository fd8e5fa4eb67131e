package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------------------------------------------------------
// OpenAI Text-to-Speech Service
// Alternative speech provider for deployments without Polly access. The
// VoiceId half of the voice spec is mapped onto the closest OpenAI voice;
// the engine half is ignored (OpenAI has a single synthesis engine).
// ---------------------------------------------------------------------------

// OpenAITTSService handles text-to-speech via the OpenAI audio API.
type OpenAITTSService struct {
	client *openai.Client
}

// Ensure OpenAITTSService implements SpeechService at compile time.
var _ SpeechService = (*OpenAITTSService)(nil)

// NewOpenAITTSService creates an OpenAI-backed speech service.
func NewOpenAITTSService(apiKey string) *OpenAITTSService {
	return &OpenAITTSService{client: openai.NewClient(apiKey)}
}

// openaiVoices are the voices the speech endpoint accepts.
var openaiVoices = map[string]openai.SpeechVoice{
	"alloy":   openai.VoiceAlloy,
	"echo":    openai.VoiceEcho,
	"fable":   openai.VoiceFable,
	"onyx":    openai.VoiceOnyx,
	"nova":    openai.VoiceNova,
	"shimmer": openai.VoiceShimmer,
}

// Synthesize converts text to MP3 audio. Unknown voice IDs fall back to alloy.
func (s *OpenAITTSService) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	speechVoice, ok := openaiVoices[strings.ToLower(voice.ID)]
	if !ok {
		speechVoice = openai.VoiceAlloy
	}

	log.Info().
		Str("voice", string(speechVoice)).
		Int("textLen", len(text)).
		Msg("Synthesizing speech via OpenAI")

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          speechVoice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech synthesis failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read openai audio response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai returned empty audio")
	}

	return audio, nil
}
