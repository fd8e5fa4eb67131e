package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/RobinNagpal/slidecast/internal/models"
	"github.com/RobinNagpal/slidecast/internal/paths"
	"github.com/RobinNagpal/slidecast/internal/remotion"
)

var testTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory ObjectStore for pipeline tests.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	cleanups []string
}

var _ ObjectStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func objKey(bucket, key string) string { return bucket + "/" + key }

func (f *fakeStore) put(bucket, key string, data []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objKey(bucket, key)] = data
	return paths.ObjectURL(bucket, key)
}

func (f *fakeStore) get(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[objKey(bucket, key)]
	return data, ok
}

func (f *fakeStore) UploadBuffer(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	return f.put(bucket, key, data), nil
}

func (f *fakeStore) UploadPublicBuffer(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	return f.put(bucket, key, data), nil
}

func (f *fakeStore) UploadJSON(_ context.Context, bucket, key string, v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return f.put(bucket, key, data), nil
}

func (f *fakeStore) UploadText(_ context.Context, bucket, key, text string) (string, error) {
	return f.put(bucket, key, []byte(text)), nil
}

func (f *fakeStore) UploadFile(_ context.Context, bucket, key, localPath, _ string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	return f.put(bucket, key, data), nil
}

func (f *fakeStore) DownloadJSON(_ context.Context, bucket, key string, v interface{}) bool {
	data, ok := f.get(bucket, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (f *fakeStore) DownloadFile(_ context.Context, bucket, key, localPath string) error {
	data, ok := f.get(bucket, key)
	if !ok {
		return fmt.Errorf("object %s not found", key)
	}
	return os.WriteFile(localPath, data, 0644)
}

func (f *fakeStore) ObjectExists(_ context.Context, bucket, key string) (bool, error) {
	_, ok := f.get(bucket, key)
	return ok, nil
}

func (f *fakeStore) PresignedURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return paths.ObjectURL(bucket, key) + "?signed=1", nil
}

func (f *fakeStore) LoadRenderMetadata(ctx context.Context, bucket, presentationID, slideNumber string) *models.RenderMetadata {
	p := paths.ForPresentation(presentationID, bucket)
	var meta models.RenderMetadata
	if !f.DownloadJSON(ctx, bucket, p.RenderMetadata(slideNumber), &meta) {
		return nil
	}
	return &meta
}

func (f *fakeStore) SaveRenderMetadata(ctx context.Context, bucket string, meta models.RenderMetadata) error {
	p := paths.ForPresentation(meta.PresentationID, bucket)
	_, err := f.UploadJSON(ctx, bucket, p.RenderMetadata(meta.SlideNumber), meta)
	return err
}

func (f *fakeStore) loadOrShell(ctx context.Context, bucket, presentationID, slideNumber string) models.RenderMetadata {
	if meta := f.LoadRenderMetadata(ctx, bucket, presentationID, slideNumber); meta != nil {
		return *meta
	}
	return models.RenderMetadata{PresentationID: presentationID, SlideNumber: slideNumber}
}

func (f *fakeStore) UpdateImageRenderMetadata(ctx context.Context, bucket, presentationID, slideNumber string, rec models.RenderRecord) error {
	meta := f.loadOrShell(ctx, bucket, presentationID, slideNumber).WithImage(rec, testTime)
	return f.SaveRenderMetadata(ctx, bucket, meta)
}

func (f *fakeStore) UpdateVideoRenderMetadata(ctx context.Context, bucket, presentationID, slideNumber string, rec models.RenderRecord) error {
	meta := f.loadOrShell(ctx, bucket, presentationID, slideNumber).WithVideo(rec, testTime)
	return f.SaveRenderMetadata(ctx, bucket, meta)
}

func (f *fakeStore) RemotionOutputURL(bucket, renderID, outName string) string {
	return paths.ObjectURL(bucket, paths.RemotionOutputKey(renderID, outName))
}

func (f *fakeStore) CleanupOldRender(_ context.Context, _, presentationID, slideNumber, kind string) (models.CleanupResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups = append(f.cleanups, presentationID+"/"+slideNumber+"/"+kind)
	return models.CleanupResult{}, nil
}

// fakeEngine records render submissions and serves canned progress.
type fakeEngine struct {
	mu         sync.Mutex
	mediaCalls []remotion.RenderMediaInput
	stillCalls []remotion.RenderStillInput

	mediaID  string
	stillID  string
	mediaErr error
	stillErr error

	progress    *remotion.RenderProgress
	progressErr error
}

var _ RenderEngine = (*fakeEngine)(nil)

func (f *fakeEngine) RenderMedia(_ context.Context, in remotion.RenderMediaInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mediaCalls = append(f.mediaCalls, in)
	if f.mediaErr != nil {
		return "", f.mediaErr
	}
	if f.mediaID == "" {
		return "media-render-1", nil
	}
	return f.mediaID, nil
}

func (f *fakeEngine) RenderStill(_ context.Context, in remotion.RenderStillInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stillCalls = append(f.stillCalls, in)
	if f.stillErr != nil {
		return "", f.stillErr
	}
	if f.stillID == "" {
		return "still-render-1", nil
	}
	return f.stillID, nil
}

func (f *fakeEngine) GetRenderProgress(_ context.Context, _, _ string) (*remotion.RenderProgress, error) {
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	return f.progress, nil
}

// fakeSpeech returns a fixed audio payload and tracks call concurrency.
type fakeSpeech struct {
	audio []byte
	err   error

	mu        sync.Mutex
	calls     int
	active    int
	maxActive int
}

var _ SpeechService = (*fakeSpeech)(nil)

func (f *fakeSpeech) Synthesize(_ context.Context, _ string, _ Voice) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

// fakeToolbox stands in for the FFmpeg service in concatenation tests. Source
// probes return srcMs in order, then outputMs for the joined file; Concatenate
// writes a real output file unless told to fail.
type fakeToolbox struct {
	dir string

	srcMs    []int
	outputMs int

	concatErr error
	probeErr  error

	probeCalls int
}

var _ MediaToolbox = (*fakeToolbox)(nil)

func (f *fakeToolbox) GetVideoDuration(_ context.Context, _ string) (int, error) {
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	if f.probeCalls < len(f.srcMs) {
		d := f.srcMs[f.probeCalls]
		f.probeCalls++
		return d, nil
	}
	return f.outputMs, nil
}

func (f *fakeToolbox) Concatenate(_ context.Context, _ []string, outputPath string) error {
	if f.concatErr != nil {
		return f.concatErr
	}
	return os.WriteFile(outputPath, []byte("joined"), 0644)
}

func (f *fakeToolbox) CreateTempFile(filename string) (string, error) {
	return filepath.Join(f.dir, filename), nil
}

func (f *fakeToolbox) Cleanup(paths ...string) {
	for _, p := range paths {
		if p != "" {
			os.Remove(p)
		}
	}
}

// fakeProber reports a fixed duration without touching ffprobe.
type fakeProber struct {
	durationMs int
	err        error
}

var _ AudioProber = (*fakeProber)(nil)

func (f *fakeProber) GetAudioDuration(_ context.Context, _ string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.durationMs, nil
}
