package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RobinNagpal/slidecast/internal/models"
	"github.com/RobinNagpal/slidecast/internal/paths"
	"github.com/RobinNagpal/slidecast/internal/remotion"
	"github.com/RobinNagpal/slidecast/internal/runtime"
)

// Concatenator joins already-rendered slide videos into one output. Two
// backends exist: the remote engine (async, returns a renderId for polling)
// and local ffmpeg (blocking, returns the finished output). The caller picks
// one via configuration, not via separate entry points.
type Concatenator interface {
	Concatenate(ctx context.Context, req models.ConcatenateRequest) models.ConcatResult
}

func validateConcatRequest(req models.ConcatenateRequest) string {
	if len(req.VideoURLs) == 0 {
		return "videoUrls is required"
	}
	if req.OutputBucket == "" || req.OutputKey == "" {
		return "outputBucket and outputKey are required"
	}
	return ""
}

// ---------------------------------------------------------------------------
// Remote backend
// ---------------------------------------------------------------------------

// RemotionConcatenator submits one concatenation job to the remote engine.
// Each input's frame count is read from the engine's own progress record —
// the engine's bookkeeping, not the video file, is the source of truth.
type RemotionConcatenator struct {
	store  ObjectStore
	engine RenderEngine
}

var _ Concatenator = (*RemotionConcatenator)(nil)

// NewRemotionConcatenator creates the remote concatenation backend.
func NewRemotionConcatenator(store ObjectStore, engine RenderEngine) *RemotionConcatenator {
	return &RemotionConcatenator{store: store, engine: engine}
}

// Concatenate starts the concatenation render and returns immediately with
// the renderId; completion is observed via status polling.
func (c *RemotionConcatenator) Concatenate(ctx context.Context, req models.ConcatenateRequest) models.ConcatResult {
	if msg := validateConcatRequest(req); msg != "" {
		return models.ConcatResult{Error: msg}
	}
	// The remote backend reads each clip's frame count from its render's
	// progress record, so it needs the render IDs; the local backend does not.
	if len(req.RenderIDs) != len(req.VideoURLs) {
		return models.ConcatResult{Error: "renderIds must match videoUrls one-to-one"}
	}

	clips := make([]models.VideoClip, len(req.VideoURLs))
	totalFrames := 0
	for i, renderID := range req.RenderIDs {
		var progress remotion.ProgressFile
		key := paths.RemotionProgressKey(renderID)
		if !c.store.DownloadJSON(ctx, req.OutputBucket, key, &progress) {
			return models.ConcatResult{Error: fmt.Sprintf("progress record not found for render %s", renderID)}
		}

		frames := progress.DurationInFrames()
		if frames <= 0 {
			return models.ConcatResult{Error: fmt.Sprintf("render %s reports an empty frame range", renderID)}
		}

		clips[i] = models.VideoClip{URL: req.VideoURLs[i], DurationInFrames: frames}
		totalFrames += frames
	}

	outName := path.Base(req.OutputKey)
	renderID, err := c.engine.RenderMedia(ctx, remotion.RenderMediaInput{
		Composition:     remotion.CompositionConcatenatedVideo,
		InputProps:      map[string]interface{}{"videos": clips},
		OutName:         outName,
		FramesPerLambda: FramesPerLambda(totalFrames),
		TimeoutMs:       remotion.ConcatTimeoutMs,
	})
	if err != nil {
		return models.ConcatResult{Error: err.Error()}
	}

	log.Info().
		Str("renderId", renderID).
		Int("clips", len(clips)).
		Int("totalFrames", totalFrames).
		Msg("Concatenation render started")

	return models.ConcatResult{
		Success:       true,
		RenderID:      renderID,
		OutputURL:     c.store.RemotionOutputURL(req.OutputBucket, renderID, outName),
		TotalFrames:   totalFrames,
		TotalDuration: float64(totalFrames) / FPS,
	}
}

// ---------------------------------------------------------------------------
// Local backend
// ---------------------------------------------------------------------------

// FFmpegConcatenator downloads every source video and joins them locally
// with stream copy, then uploads the result. Temp files are removed on both
// success and failure paths; cleanup failures are only logged.
type FFmpegConcatenator struct {
	store  ObjectStore
	ffmpeg MediaToolbox
	env    *runtime.Environment
}

var _ Concatenator = (*FFmpegConcatenator)(nil)

// NewFFmpegConcatenator creates the local concatenation backend.
func NewFFmpegConcatenator(store ObjectStore, ffmpeg MediaToolbox, env *runtime.Environment) *FFmpegConcatenator {
	return &FFmpegConcatenator{store: store, ffmpeg: ffmpeg, env: env}
}

// Concatenate joins the inputs and returns the finished output URL with its
// measured duration.
func (c *FFmpegConcatenator) Concatenate(ctx context.Context, req models.ConcatenateRequest) models.ConcatResult {
	if msg := validateConcatRequest(req); msg != "" {
		return models.ConcatResult{Error: msg}
	}

	// Per-request job ID scopes temp files so concurrent requests never
	// collide in the shared scratch directory.
	jobID := uuid.New().String()

	var tempFiles []string
	defer func() { c.ffmpeg.Cleanup(tempFiles...) }()

	sources := make([]string, 0, len(req.VideoURLs))
	downloaded := make([]models.S3VideoMetadata, 0, len(req.VideoURLs))
	for i, url := range req.VideoURLs {
		key, err := KeyFromObjectURL(req.OutputBucket, url)
		if err != nil {
			return models.ConcatResult{Error: err.Error()}
		}

		localPath, err := c.ffmpeg.CreateTempFile(fmt.Sprintf("concat-%s-src-%02d.mp4", jobID, i))
		if err != nil {
			return models.ConcatResult{Error: err.Error()}
		}
		tempFiles = append(tempFiles, localPath)

		if err := c.store.DownloadFile(ctx, req.OutputBucket, key, localPath); err != nil {
			return models.ConcatResult{Error: fmt.Sprintf("failed to download %s: %v", url, err)}
		}

		durationMs, err := c.ffmpeg.GetVideoDuration(ctx, localPath)
		if err != nil {
			return models.ConcatResult{Error: err.Error()}
		}

		sources = append(sources, localPath)
		downloaded = append(downloaded, models.S3VideoMetadata{
			URL:      url,
			Key:      key,
			Duration: float64(durationMs) / 1000,
		})
	}

	outputPath, err := c.ffmpeg.CreateTempFile(fmt.Sprintf("concat-%s-output.mp4", jobID))
	if err != nil {
		return models.ConcatResult{Error: err.Error()}
	}
	tempFiles = append(tempFiles, outputPath)

	if err := c.ffmpeg.Concatenate(ctx, sources, outputPath); err != nil {
		return models.ConcatResult{Error: err.Error()}
	}

	totalMs, err := c.ffmpeg.GetVideoDuration(ctx, outputPath)
	if err != nil {
		return models.ConcatResult{Error: err.Error()}
	}

	outputURL, err := c.store.UploadFile(ctx, req.OutputBucket, req.OutputKey, outputPath, "video/mp4")
	if err != nil {
		return models.ConcatResult{Error: "failed to upload concatenated video: " + err.Error()}
	}

	log.Info().
		Int("clips", len(downloaded)).
		Float64("totalDuration", float64(totalMs)/1000).
		Str("outputKey", req.OutputKey).
		Msg("Videos concatenated locally")

	return models.ConcatResult{
		Success:       true,
		OutputURL:     outputURL,
		TotalDuration: float64(totalMs) / 1000,
	}
}

// KeyFromObjectURL extracts the object key from a stable bucket URL. The
// local backend only accepts inputs that live in the output bucket.
func KeyFromObjectURL(bucket, url string) (string, error) {
	prefix := fmt.Sprintf("https://%s.s3.amazonaws.com/", bucket)
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("video URL %s is not in bucket %s", url, bucket)
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", fmt.Errorf("video URL %s has no object key", url)
	}
	return key, nil
}
