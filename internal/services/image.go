package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RobinNagpal/slidecast/internal/models"
	"github.com/RobinNagpal/slidecast/internal/paths"
	"github.com/RobinNagpal/slidecast/internal/remotion"
	"github.com/RobinNagpal/slidecast/internal/runtime"
)

const (
	imageOutName = "slide-image.png"
	videoOutName = "video.mp4"
)

// Renderer drives the per-slide render stages against the remote engine,
// with the storage service mediating artifacts and metadata.
type Renderer struct {
	store    ObjectStore
	engine   RenderEngine
	narrator *Narrator
	speech   SpeechService
	probe    AudioProber
	env      *runtime.Environment

	maxConcurrentSlides int

	now func() time.Time
}

// NewRenderer wires the render pipeline stages together. maxConcurrentSlides
// bounds the deck fan-out; values below 1 fall back to the default.
func NewRenderer(store ObjectStore, engine RenderEngine, narrator *Narrator, speech SpeechService, probe AudioProber, env *runtime.Environment, maxConcurrentSlides int) *Renderer {
	if maxConcurrentSlides < 1 {
		maxConcurrentSlides = defaultMaxConcurrentSlides
	}
	return &Renderer{
		store:               store,
		engine:              engine,
		narrator:            narrator,
		speech:              speech,
		probe:               probe,
		env:                 env,
		maxConcurrentSlides: maxConcurrentSlides,
		now:                 time.Now,
	}
}

// GenerateSlideImage renders a still image for one slide. Still rendering is
// synchronous on the engine side, so the result carries completed metadata
// with the final image URL — no polling involved.
func (r *Renderer) GenerateSlideImage(ctx context.Context, presentationID string, slideNumber int, slide models.SlideInput, bucket string) models.ImageResult {
	slideNum := paths.FormatSlideNumber(slideNumber)
	p := paths.ForPresentation(presentationID, bucket)

	// Regeneration must not leave two images competing.
	if _, err := r.store.CleanupOldRender(ctx, bucket, presentationID, slideNum, "image"); err != nil {
		log.Warn().Err(err).Str("slide", slideNum).Msg("Failed to clean up previous image render")
	}

	// Persist the slide content as a traceability artifact.
	textURL, err := r.store.UploadJSON(ctx, bucket, p.SlideText(slideNum), slide)
	if err != nil {
		return models.ImageResult{Error: "failed to save slide text: " + err.Error()}
	}

	startedAt := r.now()
	renderID, err := r.engine.RenderStill(ctx, remotion.RenderStillInput{
		Composition: remotion.CompositionSingleSlide,
		InputProps:  map[string]interface{}{"slide": slide},
		OutName:     imageOutName,
		ImageFormat: "png",
		Frame:       0,
	})
	if err != nil {
		r.recordImageFailure(ctx, bucket, presentationID, slideNum, startedAt, err)
		return models.ImageResult{Error: err.Error(), TextURL: textURL}
	}

	imageURL := r.store.RemotionOutputURL(bucket, renderID, imageOutName)

	if err := r.store.UpdateImageRenderMetadata(ctx, bucket, presentationID, slideNum, models.RenderRecord{
		RenderID:    renderID,
		Status:      models.RenderStatusCompleted,
		URL:         imageURL,
		StartedAt:   startedAt,
		CompletedAt: r.now(),
	}); err != nil {
		log.Error().Err(err).Str("slide", slideNum).Msg("Failed to write image render metadata")
	}

	log.Info().
		Str("presentationId", presentationID).
		Str("slide", slideNum).
		Str("renderId", renderID).
		Msg("Slide image rendered")

	return models.ImageResult{
		Success:  true,
		ImageURL: imageURL,
		TextURL:  textURL,
		RenderID: renderID,
	}
}

// recordImageFailure writes failed image metadata on a best-effort basis.
// Secondary failures are logged, never propagated — the original render error
// is what the caller needs to see.
func (r *Renderer) recordImageFailure(ctx context.Context, bucket, presentationID, slideNum string, startedAt time.Time, renderErr error) {
	err := r.store.UpdateImageRenderMetadata(ctx, bucket, presentationID, slideNum, models.RenderRecord{
		Status:      models.RenderStatusFailed,
		StartedAt:   startedAt,
		CompletedAt: r.now(),
		Error:       renderErr.Error(),
	})
	if err != nil {
		log.Warn().Err(err).Str("slide", slideNum).Msg("Failed to record image failure metadata")
	}
}
