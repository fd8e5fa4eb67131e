package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/RobinNagpal/slidecast/internal/models"
	"github.com/RobinNagpal/slidecast/internal/paths"
	"github.com/RobinNagpal/slidecast/internal/remotion"
	"github.com/RobinNagpal/slidecast/internal/storage"
)

// defaultMaxConcurrentSlides bounds the deck fan-out so one request cannot
// submit the whole deck to the engine at once. MAX_CONCURRENT_SLIDES overrides.
const defaultMaxConcurrentSlides = 3

// RenderSlideVideoOnly starts a video render for a slide whose audio and
// image already exist. Missing dependencies are a hard failure, not a reason
// to regenerate them silently — that would hide upstream bugs.
func (r *Renderer) RenderSlideVideoOnly(ctx context.Context, req models.GenerateSlideRequest) models.VideoResult {
	slideNum := paths.FormatSlideNumber(req.SlideNumber)
	p := paths.ForPresentation(req.PresentationID, req.OutputBucket)

	audioKey := p.Audio(slideNum)
	exists, err := r.store.ObjectExists(ctx, req.OutputBucket, audioKey)
	if err != nil {
		return models.VideoResult{Error: "failed to check audio: " + err.Error()}
	}
	if !exists {
		return models.VideoResult{Error: fmt.Sprintf("Audio not found at %s — generate audio before rendering video", audioKey)}
	}

	meta := r.store.LoadRenderMetadata(ctx, req.OutputBucket, req.PresentationID, slideNum)
	if meta == nil || meta.Image == nil || meta.Image.Status != models.RenderStatusCompleted {
		return models.VideoResult{Error: fmt.Sprintf("Slide image for %s/%s is missing or not completed — generate the image before rendering video", req.PresentationID, slideNum)}
	}

	audioURL, err := r.store.PresignedURL(ctx, req.OutputBucket, audioKey, storage.DefaultPresignExpiry)
	if err != nil {
		return models.VideoResult{Error: "failed to presign audio: " + err.Error()}
	}

	return r.startVideoRender(ctx, req, slideNum, audioURL, meta.Image.URL)
}

// RenderSlideAll regenerates everything for one slide: audio, then image,
// then video, threading each stage's fresh URLs forward instead of re-reading
// from storage. A failed image render degrades to rendering the video without
// a pre-generated image rather than aborting the slide.
func (r *Renderer) RenderSlideAll(ctx context.Context, req models.GenerateSlideRequest) models.VideoResult {
	slideNum := paths.FormatSlideNumber(req.SlideNumber)

	audio := r.narrator.GenerateSlideAudio(ctx, req.PresentationID, req.SlideNumber, req.Slide.Narration, req.OutputBucket, req.Voice)
	if !audio.Success {
		return models.VideoResult{Error: "audio generation failed: " + audio.Error}
	}

	imageURL := ""
	image := r.GenerateSlideImage(ctx, req.PresentationID, req.SlideNumber, req.Slide, req.OutputBucket)
	if image.Success {
		imageURL = image.ImageURL
	} else {
		log.Warn().
			Str("presentationId", req.PresentationID).
			Str("slide", slideNum).
			Str("error", image.Error).
			Msg("Image generation failed — rendering video without a pre-generated image")
	}

	result := r.startVideoRender(ctx, req, slideNum, audio.AudioPresignedURL, imageURL)
	result.AudioURL = audio.AudioURL
	return result
}

// startVideoRender is the shared tail of the video paths: measure the real
// audio duration, clean up the previous render, submit the job, compute the
// eventual output URL, and persist rendering-state metadata.
func (r *Renderer) startVideoRender(ctx context.Context, req models.GenerateSlideRequest, slideNum, audioURL, imageURL string) models.VideoResult {
	p := paths.ForPresentation(req.PresentationID, req.OutputBucket)

	// The byte-size estimate from synthesis is display-only; frame counts
	// come from the real file.
	seconds, err := r.probeAudioSeconds(ctx, req.OutputBucket, p.Audio(slideNum), req.PresentationID, slideNum)
	if err != nil {
		return models.VideoResult{Error: err.Error()}
	}
	durationInFrames := DurationInFrames(seconds)

	if _, err := r.store.CleanupOldRender(ctx, req.OutputBucket, req.PresentationID, slideNum, "video"); err != nil {
		log.Warn().Err(err).Str("slide", slideNum).Msg("Failed to clean up previous video render")
	}

	props := map[string]interface{}{
		"slide":            req.Slide,
		"audioUrl":         audioURL,
		"durationInFrames": durationInFrames,
	}
	if imageURL != "" {
		props["preGeneratedImageUrl"] = imageURL
	}

	startedAt := r.now()
	renderID, err := r.engine.RenderMedia(ctx, remotion.RenderMediaInput{
		Composition:     remotion.CompositionSingleSlide,
		InputProps:      props,
		OutName:         videoOutName,
		FramesPerLambda: FramesPerLambda(durationInFrames),
		TimeoutMs:       remotion.VideoTimeoutMs,
	})
	if err != nil {
		r.recordVideoFailure(ctx, req.OutputBucket, req.PresentationID, slideNum, startedAt, err)
		return models.VideoResult{Error: err.Error()}
	}

	// Completion is only known via polling; the URL is knowable now.
	videoURL := r.store.RemotionOutputURL(req.OutputBucket, renderID, videoOutName)

	if err := r.store.UpdateVideoRenderMetadata(ctx, req.OutputBucket, req.PresentationID, slideNum, models.RenderRecord{
		RenderID:  renderID,
		Status:    models.RenderStatusRendering,
		URL:       videoURL,
		StartedAt: startedAt,
	}); err != nil {
		log.Error().Err(err).Str("slide", slideNum).Msg("Failed to write video render metadata")
	}

	log.Info().
		Str("presentationId", req.PresentationID).
		Str("slide", slideNum).
		Str("renderId", renderID).
		Int("durationInFrames", durationInFrames).
		Msg("Slide video render started")

	return models.VideoResult{
		Success:  true,
		VideoURL: videoURL,
		RenderID: renderID,
		ImageURL: imageURL,
		Status:   string(models.RenderStatusRendering),
	}
}

// probeAudioSeconds downloads the slide's audio just long enough to read its
// real duration via ffprobe.
func (r *Renderer) probeAudioSeconds(ctx context.Context, bucket, audioKey, presentationID, slideNum string) (float64, error) {
	tmpDir, err := r.env.TempDir()
	if err != nil {
		return 0, err
	}

	localPath := filepath.Join(tmpDir, fmt.Sprintf("audio-%s-%s.mp3", presentationID, slideNum))
	if err := r.store.DownloadFile(ctx, bucket, audioKey, localPath); err != nil {
		return 0, fmt.Errorf("failed to download audio for duration probe: %w", err)
	}
	defer os.Remove(localPath)

	durationMs, err := r.probe.GetAudioDuration(ctx, localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to measure audio duration: %w", err)
	}
	return float64(durationMs) / 1000, nil
}

// recordVideoFailure writes failed video metadata on a best-effort basis;
// secondary failures are logged, never propagated.
func (r *Renderer) recordVideoFailure(ctx context.Context, bucket, presentationID, slideNum string, startedAt time.Time, renderErr error) {
	err := r.store.UpdateVideoRenderMetadata(ctx, bucket, presentationID, slideNum, models.RenderRecord{
		Status:      models.RenderStatusFailed,
		StartedAt:   startedAt,
		CompletedAt: r.now(),
		Error:       renderErr.Error(),
	})
	if err != nil {
		log.Warn().Err(err).Str("slide", slideNum).Msg("Failed to record video failure metadata")
	}
}

// RenderSingleSlide is the legacy single-shot path: audio synthesized to a
// flat key and the video submitted in one call, without the per-presentation
// metadata conventions of the newer paths. Kept for existing callers.
func (r *Renderer) RenderSingleSlide(ctx context.Context, req models.GenerateSlideRequest) models.VideoResult {
	narration := req.Slide.Narration
	if narration == "" {
		return models.VideoResult{Error: "narration text is empty"}
	}

	voice := ParseVoice(req.Voice)
	audio, err := r.speech.Synthesize(ctx, narration, voice)
	if err != nil {
		return models.VideoResult{Error: err.Error()}
	}

	audioKey := fmt.Sprintf("audio/%s-%s.mp3", req.PresentationID, req.Slide.ID)
	if _, err := r.store.UploadPublicBuffer(ctx, req.OutputBucket, audioKey, audio, "audio/mpeg"); err != nil {
		return models.VideoResult{Error: "failed to upload audio: " + err.Error()}
	}

	audioURL, err := r.store.PresignedURL(ctx, req.OutputBucket, audioKey, storage.DefaultPresignExpiry)
	if err != nil {
		return models.VideoResult{Error: "failed to presign audio: " + err.Error()}
	}

	// Legacy path trusts the bitrate estimate rather than probing the file.
	durationInFrames := DurationInFrames(EstimateAudioDuration(len(audio)))

	outName := fmt.Sprintf("%s-%s.mp4", req.PresentationID, req.Slide.ID)
	renderID, err := r.engine.RenderMedia(ctx, remotion.RenderMediaInput{
		Composition: remotion.CompositionSingleSlide,
		InputProps: map[string]interface{}{
			"slide":            req.Slide,
			"audioUrl":         audioURL,
			"durationInFrames": durationInFrames,
		},
		OutName:         outName,
		FramesPerLambda: FramesPerLambda(durationInFrames),
		TimeoutMs:       remotion.VideoTimeoutMs,
	})
	if err != nil {
		return models.VideoResult{Error: err.Error()}
	}

	return models.VideoResult{
		Success:  true,
		VideoURL: r.store.RemotionOutputURL(req.OutputBucket, renderID, outName),
		RenderID: renderID,
		Status:   string(models.RenderStatusRendering),
	}
}

// RenderDeck fans out full regeneration across all slides of a deck. Slides
// are independent; one slide's failure does not stop its siblings, and the
// deterministic keying keeps concurrent slides from colliding.
func (r *Renderer) RenderDeck(ctx context.Context, req models.RenderDeckRequest) models.DeckResult {
	if len(req.Slides) == 0 {
		return models.DeckResult{Error: "deck has no slides"}
	}

	results := make([]models.VideoResult, len(req.Slides))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrentSlides)
	for i, slide := range req.Slides {
		g.Go(func() error {
			results[i] = r.RenderSlideAll(gctx, models.GenerateSlideRequest{
				PresentationID: req.PresentationID,
				SlideNumber:    i + 1,
				Slide:          slide,
				OutputBucket:   req.OutputBucket,
				Voice:          req.Voice,
			})
			return nil
		})
	}
	_ = g.Wait()

	deck := models.DeckResult{Success: true, Slides: results}
	for i := range results {
		if !results[i].Success {
			deck.Success = false
			deck.Error = "one or more slides failed"
			break
		}
	}
	return deck
}
