package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/RobinNagpal/slidecast/internal/models"
)

// ---------------------------------------------------------------------------
// Deck Content Generator
// Uses the Google Gen AI SDK to turn a natural-language prompt into the
// slide-deck JSON the render pipeline consumes. Auxiliary: the pipeline
// treats it as just another producer of SlideInput objects.
// ---------------------------------------------------------------------------

const (
	geminiModel       = "gemini-2.5-flash"
	defaultSlideCount = 8
)

// DeckGenerator produces slide decks from prompts.
type DeckGenerator struct {
	apiKey string
}

// NewDeckGenerator creates a deck generator backed by the Gemini API.
func NewDeckGenerator(apiKey string) *DeckGenerator {
	return &DeckGenerator{apiKey: apiKey}
}

func deckPrompt(topic string, slideCount int) string {
	return fmt.Sprintf(`Create a slide deck about the following topic, as a JSON array of slides.

Topic: %s

Produce exactly %d slides. Each slide is an object:
- "id": zero-padded sequence number as a string ("001", "002", ...)
- "type": one of "title", "bullets", "paragraphs", "image"
- "narration": the full spoken script for the slide (2-4 sentences, conversational)
- populate only the fields the type needs: "title"/"subtitle" for title slides,
  "title" and "bullets" (3-5 short strings) for bullet slides,
  "title" and "paragraphs" (1-2 strings) for paragraph slides,
  "title" and "imageUrl" for image slides (leave "imageUrl" empty if unknown)

The first slide must be a title slide. Respond with the JSON array only.`, topic, slideCount)
}

// GenerateDeck produces the slides for one presentation.
func (g *DeckGenerator) GenerateDeck(ctx context.Context, prompt string, slideCount int) ([]models.SlideInput, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt is empty")
	}
	if g.apiKey == "" {
		return nil, fmt.Errorf("deck generation is not configured (missing API key)")
	}
	if slideCount <= 0 {
		slideCount = defaultSlideCount
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	log.Info().Int("slideCount", slideCount).Int("promptLen", len(prompt)).Msg("Generating deck content")

	resp, err := client.Models.GenerateContent(ctx, geminiModel,
		genai.Text(deckPrompt(prompt, slideCount)),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, fmt.Errorf("deck generation failed: %w", err)
	}

	slides, err := parseDeckJSON(resp.Text())
	if err != nil {
		return nil, err
	}

	log.Info().Int("slides", len(slides)).Msg("Deck content generated")
	return slides, nil
}

// parseDeckJSON decodes and validates the model's slide array, tolerating
// markdown code fences around the payload.
func parseDeckJSON(raw string) ([]models.SlideInput, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var slides []models.SlideInput
	if err := json.Unmarshal([]byte(raw), &slides); err != nil {
		return nil, fmt.Errorf("failed to parse generated deck: %w", err)
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("generated deck has no slides")
	}

	for i := range slides {
		if slides[i].ID == "" {
			slides[i].ID = fmt.Sprintf("%03d", i+1)
		}
		if !slides[i].Type.Valid() {
			return nil, fmt.Errorf("slide %s has unknown type %q", slides[i].ID, slides[i].Type)
		}
		if strings.TrimSpace(slides[i].Narration) == "" {
			return nil, fmt.Errorf("slide %s has no narration", slides[i].ID)
		}
	}
	return slides, nil
}
