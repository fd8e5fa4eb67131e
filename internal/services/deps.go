package services

import (
	"context"
	"time"

	"github.com/RobinNagpal/slidecast/internal/models"
	"github.com/RobinNagpal/slidecast/internal/remotion"
)

// ObjectStore is the slice of the storage service the pipeline stages use.
// *storage.Store satisfies it; tests substitute an in-memory fake.
type ObjectStore interface {
	UploadBuffer(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	UploadPublicBuffer(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	UploadJSON(ctx context.Context, bucket, key string, v interface{}) (string, error)
	UploadText(ctx context.Context, bucket, key, text string) (string, error)
	UploadFile(ctx context.Context, bucket, key, localPath, contentType string) (string, error)
	DownloadJSON(ctx context.Context, bucket, key string, v interface{}) bool
	DownloadFile(ctx context.Context, bucket, key, localPath string) error
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	PresignedURL(ctx context.Context, bucket, key string, expiresIn time.Duration) (string, error)
	LoadRenderMetadata(ctx context.Context, bucket, presentationID, slideNumber string) *models.RenderMetadata
	SaveRenderMetadata(ctx context.Context, bucket string, meta models.RenderMetadata) error
	UpdateImageRenderMetadata(ctx context.Context, bucket, presentationID, slideNumber string, rec models.RenderRecord) error
	UpdateVideoRenderMetadata(ctx context.Context, bucket, presentationID, slideNumber string, rec models.RenderRecord) error
	RemotionOutputURL(bucket, renderID, outName string) string
	CleanupOldRender(ctx context.Context, bucket, presentationID, slideNumber, kind string) (models.CleanupResult, error)
}

// RenderEngine is the slice of the remote rendering engine client the
// pipeline uses. *remotion.Client satisfies it.
type RenderEngine interface {
	RenderMedia(ctx context.Context, in remotion.RenderMediaInput) (string, error)
	RenderStill(ctx context.Context, in remotion.RenderStillInput) (string, error)
	GetRenderProgress(ctx context.Context, renderID, bucketName string) (*remotion.RenderProgress, error)
}

// AudioProber measures the real duration of a local audio file. The FFmpeg
// service satisfies it via ffprobe.
type AudioProber interface {
	GetAudioDuration(ctx context.Context, audioPath string) (int, error)
}

// MediaToolbox is the slice of the FFmpeg service the local concatenation
// backend uses, so its download/join/upload flow is testable without the
// ffmpeg binary.
type MediaToolbox interface {
	GetVideoDuration(ctx context.Context, videoPath string) (int, error)
	Concatenate(ctx context.Context, sourcePaths []string, outputPath string) error
	CreateTempFile(filename string) (string, error)
	Cleanup(paths ...string)
}
