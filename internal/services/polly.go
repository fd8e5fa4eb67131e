package services

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/rs/zerolog/log"
)

// PollyAPI is the slice of the Polly client the service needs.
type PollyAPI interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollyService synthesizes narration audio via the AWS Polly API.
type PollyService struct {
	client PollyAPI
}

// Ensure PollyService implements SpeechService at compile time.
var _ SpeechService = (*PollyService)(nil)

// NewPollyService creates a Polly-backed speech service.
func NewPollyService(client PollyAPI) *PollyService {
	return &PollyService{client: client}
}

// Synthesize converts text to MP3 audio with the requested voice and engine.
func (s *PollyService) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	log.Info().
		Str("voiceId", voice.ID).
		Str("engine", voice.Engine).
		Int("textLen", len(text)).
		Msg("Synthesizing speech via Polly")

	out, err := s.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: pollytypes.OutputFormatMp3,
		VoiceId:      pollytypes.VoiceId(voice.ID),
		Engine:       pollytypes.Engine(voice.Engine),
	})
	if err != nil {
		return nil, fmt.Errorf("polly synthesis failed: %w", err)
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("failed to read polly audio stream: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("polly returned empty audio")
	}

	log.Info().Int("bytes", len(audio)).Msg("Speech synthesized")
	return audio, nil
}
