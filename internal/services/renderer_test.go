package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/RobinNagpal/slidecast/internal/models"
	"github.com/RobinNagpal/slidecast/internal/paths"
	"github.com/RobinNagpal/slidecast/internal/remotion"
	"github.com/RobinNagpal/slidecast/internal/runtime"
)

func newTestRenderer(t *testing.T, store *fakeStore, engine *fakeEngine, speech *fakeSpeech, prober *fakeProber) *Renderer {
	t.Helper()
	env := runtime.ForTesting(t.TempDir())
	narrator := NewNarrator(store, speech)
	r := NewRenderer(store, engine, narrator, speech, prober, env, 0)
	r.now = func() time.Time { return testTime }
	return r
}

func titleSlide(id string) models.SlideInput {
	return models.SlideInput{
		ID:        id,
		Type:      models.SlideTypeTitle,
		Narration: "Narration for slide " + id,
		Title:     "Slide " + id,
	}
}

func TestGenerateSlideImage(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{stillID: "img-abc"}
	r := newTestRenderer(t, store, engine, &fakeSpeech{audio: []byte("mp3")}, &fakeProber{durationMs: 2000})

	result := r.GenerateSlideImage(context.Background(), "pres-1", 1, titleSlide("001"), "test-bucket")
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if !strings.Contains(result.ImageURL, "renders/img-abc/slide-image.png") {
		t.Errorf("image URL should point into the render's output dir, got %s", result.ImageURL)
	}
	if result.RenderID != "img-abc" {
		t.Errorf("expected renderId img-abc, got %s", result.RenderID)
	}

	if len(engine.stillCalls) != 1 {
		t.Fatalf("expected 1 still render, got %d", len(engine.stillCalls))
	}
	call := engine.stillCalls[0]
	if call.Composition != remotion.CompositionSingleSlide || call.Frame != 0 || call.ImageFormat != "png" {
		t.Errorf("unexpected still input: %+v", call)
	}

	meta := store.LoadRenderMetadata(context.Background(), "test-bucket", "pres-1", "01")
	if meta == nil || meta.Image == nil {
		t.Fatal("image metadata not written")
	}
	if meta.Image.Status != models.RenderStatusCompleted {
		t.Errorf("expected completed image record, got %s", meta.Image.Status)
	}
	if meta.Image.CompletedAt.IsZero() {
		t.Error("completed image record should carry a completion time")
	}
}

func TestGenerateSlideImageFailureRecordsMetadata(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{stillErr: errors.New("engine exploded")}
	r := newTestRenderer(t, store, engine, &fakeSpeech{audio: []byte("mp3")}, &fakeProber{durationMs: 2000})

	result := r.GenerateSlideImage(context.Background(), "pres-1", 2, titleSlide("002"), "test-bucket")
	if result.Success {
		t.Fatal("expected failure")
	}

	meta := store.LoadRenderMetadata(context.Background(), "test-bucket", "pres-1", "02")
	if meta == nil || meta.Image == nil || meta.Image.Status != models.RenderStatusFailed {
		t.Fatal("failed image record not persisted")
	}
	if meta.Image.Error == "" {
		t.Error("failed record should carry the error")
	}
}

func TestRenderSlideVideoOnlyMissingAudio(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	r := newTestRenderer(t, store, engine, &fakeSpeech{audio: []byte("mp3")}, &fakeProber{durationMs: 2000})

	result := r.RenderSlideVideoOnly(context.Background(), models.GenerateSlideRequest{
		PresentationID: "pres-1",
		SlideNumber:    1,
		Slide:          titleSlide("001"),
		OutputBucket:   "test-bucket",
	})
	if result.Success {
		t.Fatal("expected failure when audio is missing")
	}
	if !strings.Contains(result.Error, "presentations/pres-1/slides/01/audio.mp3") {
		t.Errorf("error should name the missing audio key, got %q", result.Error)
	}
	if len(engine.mediaCalls) != 0 {
		t.Error("engine must not be invoked when audio is missing")
	}
}

func TestRenderSlideVideoOnlyMissingImageMetadata(t *testing.T) {
	store := newFakeStore()
	p := paths.ForPresentation("pres-1", "test-bucket")
	store.put("test-bucket", p.Audio("01"), []byte("mp3-bytes"))

	engine := &fakeEngine{}
	r := newTestRenderer(t, store, engine, &fakeSpeech{audio: []byte("mp3")}, &fakeProber{durationMs: 2000})

	result := r.RenderSlideVideoOnly(context.Background(), models.GenerateSlideRequest{
		PresentationID: "pres-1",
		SlideNumber:    1,
		Slide:          titleSlide("001"),
		OutputBucket:   "test-bucket",
	})
	if result.Success {
		t.Fatal("expected failure when image metadata is absent")
	}
	if len(engine.mediaCalls) != 0 {
		t.Error("engine must not be invoked without a completed image")
	}
}

func TestRenderSlideVideoOnlySuccess(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	p := paths.ForPresentation("pres-1", "test-bucket")
	store.put("test-bucket", p.Audio("01"), []byte("mp3-bytes"))

	imageURL := store.RemotionOutputURL("test-bucket", "img-abc", "slide-image.png")
	if err := store.UpdateImageRenderMetadata(ctx, "test-bucket", "pres-1", "01", models.RenderRecord{
		RenderID: "img-abc",
		Status:   models.RenderStatusCompleted,
		URL:      imageURL,
	}); err != nil {
		t.Fatal(err)
	}

	engine := &fakeEngine{mediaID: "vid-123"}
	// 2.0s of audio: ceil(2*30)+5 = 65 frames.
	r := newTestRenderer(t, store, engine, &fakeSpeech{audio: []byte("mp3")}, &fakeProber{durationMs: 2000})

	result := r.RenderSlideVideoOnly(ctx, models.GenerateSlideRequest{
		PresentationID: "pres-1",
		SlideNumber:    1,
		Slide:          titleSlide("001"),
		OutputBucket:   "test-bucket",
	})
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if result.Status != string(models.RenderStatusRendering) {
		t.Errorf("expected rendering status, got %s", result.Status)
	}
	if !strings.Contains(result.VideoURL, "renders/vid-123/video.mp4") {
		t.Errorf("unexpected video URL: %s", result.VideoURL)
	}

	if len(engine.mediaCalls) != 1 {
		t.Fatalf("expected 1 media render, got %d", len(engine.mediaCalls))
	}
	call := engine.mediaCalls[0]
	if call.Composition != remotion.CompositionSingleSlide {
		t.Errorf("unexpected composition %s", call.Composition)
	}
	if got := call.InputProps["durationInFrames"]; got != 65 {
		t.Errorf("expected 65 frames from the probed duration, got %v", got)
	}
	if call.FramesPerLambda != 60 {
		t.Errorf("expected framesPerLambda floor of 60, got %d", call.FramesPerLambda)
	}
	if got := call.InputProps["preGeneratedImageUrl"]; got != imageURL {
		t.Errorf("expected pre-generated image URL %s, got %v", imageURL, got)
	}

	meta := store.LoadRenderMetadata(ctx, "test-bucket", "pres-1", "01")
	if meta == nil || meta.Video == nil {
		t.Fatal("video metadata not written")
	}
	if meta.Video.Status != models.RenderStatusRendering || meta.Video.RenderID != "vid-123" {
		t.Errorf("unexpected video record: %+v", meta.Video)
	}
	if meta.Image == nil || meta.Image.RenderID != "img-abc" {
		t.Error("video update must not clobber the image record")
	}
}

func TestRenderSlideAllDegradesWithoutImage(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{mediaID: "vid-456", stillErr: errors.New("still render failed")}
	r := newTestRenderer(t, store, engine, &fakeSpeech{audio: make([]byte, 16384)}, &fakeProber{durationMs: 1000})

	result := r.RenderSlideAll(context.Background(), models.GenerateSlideRequest{
		PresentationID: "pres-1",
		SlideNumber:    1,
		Slide:          titleSlide("001"),
		OutputBucket:   "test-bucket",
	})
	if !result.Success {
		t.Fatalf("image failure should degrade, not abort: %s", result.Error)
	}
	if result.ImageURL != "" {
		t.Errorf("expected no image URL after image failure, got %s", result.ImageURL)
	}

	if len(engine.mediaCalls) != 1 {
		t.Fatalf("expected 1 media render, got %d", len(engine.mediaCalls))
	}
	if _, ok := engine.mediaCalls[0].InputProps["preGeneratedImageUrl"]; ok {
		t.Error("degraded render must not pass a pre-generated image URL")
	}
}

func TestRenderSlideAllAudioFailureAborts(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	r := newTestRenderer(t, store, engine, &fakeSpeech{err: errors.New("synthesis down")}, &fakeProber{durationMs: 1000})

	result := r.RenderSlideAll(context.Background(), models.GenerateSlideRequest{
		PresentationID: "pres-1",
		SlideNumber:    1,
		Slide:          titleSlide("001"),
		OutputBucket:   "test-bucket",
	})
	if result.Success {
		t.Fatal("expected failure when audio generation fails")
	}
	if len(engine.stillCalls) != 0 || len(engine.mediaCalls) != 0 {
		t.Error("no renders should start when audio generation fails")
	}
}

func TestRenderDeckPartialFailure(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	r := newTestRenderer(t, store, engine, &fakeSpeech{audio: make([]byte, 16384)}, &fakeProber{durationMs: 1000})

	broken := titleSlide("002")
	broken.Narration = ""

	result := r.RenderDeck(context.Background(), models.RenderDeckRequest{
		PresentationID: "pres-1",
		Slides:         []models.SlideInput{titleSlide("001"), broken, titleSlide("003")},
		OutputBucket:   "test-bucket",
	})
	if result.Success {
		t.Fatal("a failed slide must fail the deck")
	}
	if len(result.Slides) != 3 {
		t.Fatalf("expected 3 slide results, got %d", len(result.Slides))
	}
	if !result.Slides[0].Success || !result.Slides[2].Success {
		t.Error("healthy slides should succeed despite a failed sibling")
	}
	if result.Slides[1].Success {
		t.Error("slide without narration should fail")
	}
}

func TestRenderDeckHonorsConcurrencyLimit(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	speech := &fakeSpeech{audio: make([]byte, 16384)}
	env := runtime.ForTesting(t.TempDir())
	narrator := NewNarrator(store, speech)

	r := NewRenderer(store, engine, narrator, speech, &fakeProber{durationMs: 1000}, env, 1)
	r.now = func() time.Time { return testTime }

	result := r.RenderDeck(context.Background(), models.RenderDeckRequest{
		PresentationID: "pres-1",
		Slides:         []models.SlideInput{titleSlide("001"), titleSlide("002"), titleSlide("003")},
		OutputBucket:   "test-bucket",
	})
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if speech.calls != 3 {
		t.Errorf("expected 3 synthesis calls, got %d", speech.calls)
	}
	if speech.maxActive != 1 {
		t.Errorf("fan-out limit of 1 must serialize slides, saw %d concurrent", speech.maxActive)
	}
}

func TestNewRendererDefaultsConcurrency(t *testing.T) {
	store := newFakeStore()
	r := NewRenderer(store, &fakeEngine{}, nil, nil, nil, runtime.ForTesting(t.TempDir()), 0)
	if r.maxConcurrentSlides != defaultMaxConcurrentSlides {
		t.Errorf("expected default of %d, got %d", defaultMaxConcurrentSlides, r.maxConcurrentSlides)
	}

	r = NewRenderer(store, &fakeEngine{}, nil, nil, nil, runtime.ForTesting(t.TempDir()), 5)
	if r.maxConcurrentSlides != 5 {
		t.Errorf("expected configured limit of 5, got %d", r.maxConcurrentSlides)
	}
}

func TestRenderDeckEmpty(t *testing.T) {
	store := newFakeStore()
	r := newTestRenderer(t, store, &fakeEngine{}, &fakeSpeech{audio: []byte("mp3")}, &fakeProber{durationMs: 1000})

	result := r.RenderDeck(context.Background(), models.RenderDeckRequest{
		PresentationID: "pres-1",
		OutputBucket:   "test-bucket",
	})
	if result.Success {
		t.Fatal("empty deck must fail")
	}
}

func TestRenderSingleSlideUsesEstimatedDuration(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{mediaID: "legacy-1"}
	// 32768 bytes at 128kbps = 2.0s → 65 frames.
	r := newTestRenderer(t, store, engine, &fakeSpeech{audio: make([]byte, 32768)}, &fakeProber{durationMs: 99999})

	result := r.RenderSingleSlide(context.Background(), models.GenerateSlideRequest{
		PresentationID: "pres-1",
		Slide:          titleSlide("001"),
		OutputBucket:   "test-bucket",
	})
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}

	if len(engine.mediaCalls) != 1 {
		t.Fatalf("expected 1 media render, got %d", len(engine.mediaCalls))
	}
	if got := engine.mediaCalls[0].InputProps["durationInFrames"]; got != 65 {
		t.Errorf("legacy path should trust the byte-size estimate (65 frames), got %v", got)
	}
	if engine.mediaCalls[0].OutName != "pres-1-001.mp4" {
		t.Errorf("unexpected outName %s", engine.mediaCalls[0].OutName)
	}
}

func TestRenderStatusSteps(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{progress: &remotion.RenderProgress{
		Done:            false,
		OverallProgress: 0.5,
	}}
	r := newTestRenderer(t, store, engine, &fakeSpeech{audio: []byte("mp3")}, &fakeProber{durationMs: 1000})

	result := r.RenderStatus(context.Background(), "vid-123", "test-bucket")
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if result.CurrentStep != "Rendering frames" {
		t.Errorf("expected Rendering frames at 0.5, got %s", result.CurrentStep)
	}

	engine.progress = &remotion.RenderProgress{Done: true, OverallProgress: 1, OutputFile: "https://bucket/out.mp4"}
	result = r.RenderStatus(context.Background(), "vid-123", "test-bucket")
	if !result.Done || result.CurrentStep != "Complete" || result.OutputURL == "" {
		t.Errorf("unexpected done result: %+v", result)
	}
}

func TestRenderStatusTransportFailure(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{progressErr: errors.New("invoke failed")}
	r := newTestRenderer(t, store, engine, &fakeSpeech{audio: []byte("mp3")}, &fakeProber{durationMs: 1000})

	result := r.RenderStatus(context.Background(), "vid-123", "test-bucket")
	if result.Success || result.Done {
		t.Errorf("transport failure must be unsuccessful and not done: %+v", result)
	}
}
