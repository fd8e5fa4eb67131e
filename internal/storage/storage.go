// Package storage wraps all object-store interaction for the pipeline:
// artifact upload/download, existence checks, presigned URL issuance, and the
// per-slide render-metadata document with its merge-on-write update rule.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/RobinNagpal/slidecast/internal/models"
	"github.com/RobinNagpal/slidecast/internal/paths"
)

// DefaultPresignExpiry is how long presigned URLs stay valid unless a caller
// asks for something else.
const DefaultPresignExpiry = time.Hour

// Store is the storage service. All pipeline stages persist and read
// artifacts through it; none of them touch the S3 clients directly.
type Store struct {
	client    *s3.Client
	presigner *s3.PresignClient

	// now is injectable so metadata timestamp behavior is testable.
	now func() time.Time
}

// New creates a Store from an S3 client, deriving the presigner from it.
func New(client *s3.Client) *Store {
	return &Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		now:       time.Now,
	}
}

// ---------------------------------------------------------------------------
// Uploads
// ---------------------------------------------------------------------------

// UploadBuffer writes raw bytes and returns the stable (non-expiring) URL.
func (s *Store) UploadBuffer(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	return s.put(ctx, bucket, key, data, contentType, false)
}

// UploadPublicBuffer writes raw bytes with public-read access. Used only for
// audio/video artifacts a UI must play back without auth.
func (s *Store) UploadPublicBuffer(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	return s.put(ctx, bucket, key, data, contentType, true)
}

// UploadJSON marshals v and writes it as application/json.
func (s *Store) UploadJSON(ctx context.Context, bucket, key string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.put(ctx, bucket, key, data, "application/json", false)
}

// UploadText writes a plain-text artifact.
func (s *Store) UploadText(ctx context.Context, bucket, key, text string) (string, error) {
	return s.put(ctx, bucket, key, []byte(text), "text/plain; charset=utf-8", false)
}

// UploadFile uploads a local file.
func (s *Store) UploadFile(ctx context.Context, bucket, key, localPath, contentType string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", localPath, err)
	}
	return s.put(ctx, bucket, key, data, contentType, false)
}

func (s *Store) put(ctx context.Context, bucket, key string, data []byte, contentType string, public bool) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}
	if public {
		input.ACL = s3types.ObjectCannedACLPublicRead
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Int("size", len(data)).Msg("Uploaded object")
	return paths.ObjectURL(bucket, key), nil
}

// ---------------------------------------------------------------------------
// Downloads
// Read misses are normalized to "not found" rather than errors: callers treat
// "no data yet" and "unreadable" uniformly as "not available".
// ---------------------------------------------------------------------------

// DownloadJSON reads and unmarshals an object into v. Returns false on any
// read or parse failure.
func (s *Store) DownloadJSON(ctx context.Context, bucket, key string, v interface{}) bool {
	data, ok := s.get(ctx, bucket, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to parse JSON object")
		return false
	}
	return true
}

// DownloadText reads an object as a string. Returns false on any failure.
func (s *Store) DownloadText(ctx context.Context, bucket, key string) (string, bool) {
	data, ok := s.get(ctx, bucket, key)
	if !ok {
		return "", false
	}
	return string(data), true
}

func (s *Store) get(ctx context.Context, bucket, key string) ([]byte, bool) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Debug().Err(err).Str("bucket", bucket).Str("key", key).Msg("Object not available")
		return nil, false
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to read object body")
		return nil, false
	}
	return data, true
}

// DownloadFile streams an object to a local path, creating parent
// directories as needed.
func (s *Store) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer result.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", localPath, err)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, result.Body); err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}

	log.Debug().Str("key", key).Str("localPath", localPath).Msg("Downloaded object to file")
	return nil
}

// ObjectExists reports whether an object is present. A missing object is
// (false, nil); transport failures are returned as errors so callers can
// distinguish "absent" from "could not check".
func (s *Store) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return true, nil
}

// PresignedURL issues a short-lived GET URL so the rendering engine can fetch
// a private object out-of-band, without the caller's auth context.
func (s *Store) PresignedURL(ctx context.Context, bucket, key string, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		expiresIn = DefaultPresignExpiry
	}

	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return result.URL, nil
}

// RemotionOutputURL is the actual location an async render job will place its
// output. The engine nests outputs under renders/{renderId}/, so components
// that kick off a render compute the eventual URL from here immediately.
func (s *Store) RemotionOutputURL(bucket, renderID, outName string) string {
	return paths.ObjectURL(bucket, paths.RemotionOutputKey(renderID, outName))
}

// ---------------------------------------------------------------------------
// Render metadata
// ---------------------------------------------------------------------------

// LoadRenderMetadata reads the per-slide metadata document. Returns nil when
// no document exists yet.
func (s *Store) LoadRenderMetadata(ctx context.Context, bucket, presentationID, slideNumber string) *models.RenderMetadata {
	key := paths.ForPresentation(presentationID, bucket).RenderMetadata(slideNumber)

	var meta models.RenderMetadata
	if !s.DownloadJSON(ctx, bucket, key, &meta) {
		return nil
	}
	return &meta
}

// SaveRenderMetadata writes the per-slide metadata document.
func (s *Store) SaveRenderMetadata(ctx context.Context, bucket string, meta models.RenderMetadata) error {
	key := paths.ForPresentation(meta.PresentationID, bucket).RenderMetadata(meta.SlideNumber)
	_, err := s.UploadJSON(ctx, bucket, key, meta)
	return err
}

// UpdateImageRenderMetadata replaces only the image sub-record, preserving
// any existing video record (read-merge-write, never blind overwrite).
func (s *Store) UpdateImageRenderMetadata(ctx context.Context, bucket, presentationID, slideNumber string, rec models.RenderRecord) error {
	meta := s.loadOrShell(ctx, bucket, presentationID, slideNumber)
	return s.SaveRenderMetadata(ctx, bucket, meta.WithImage(rec, s.now()))
}

// UpdateVideoRenderMetadata replaces only the video sub-record, preserving
// any existing image record.
func (s *Store) UpdateVideoRenderMetadata(ctx context.Context, bucket, presentationID, slideNumber string, rec models.RenderRecord) error {
	meta := s.loadOrShell(ctx, bucket, presentationID, slideNumber)
	return s.SaveRenderMetadata(ctx, bucket, meta.WithVideo(rec, s.now()))
}

func (s *Store) loadOrShell(ctx context.Context, bucket, presentationID, slideNumber string) models.RenderMetadata {
	if meta := s.LoadRenderMetadata(ctx, bucket, presentationID, slideNumber); meta != nil {
		return *meta
	}
	return models.RenderMetadata{
		PresentationID: presentationID,
		SlideNumber:    slideNumber,
	}
}

// ---------------------------------------------------------------------------
// Cleanup
// ---------------------------------------------------------------------------

// CleanupOldRender removes the raw files of a slide's previous image or video
// render so stale artifacts cannot be mistaken for current ones. The metadata
// document itself is left alone — the next render overwrites it. Finding
// nothing to clean is not an error.
func (s *Store) CleanupOldRender(ctx context.Context, bucket, presentationID, slideNumber, kind string) (models.CleanupResult, error) {
	meta := s.LoadRenderMetadata(ctx, bucket, presentationID, slideNumber)
	if meta == nil {
		return models.CleanupResult{}, nil
	}

	var rec *models.RenderRecord
	switch kind {
	case "image":
		rec = meta.Image
	case "video":
		rec = meta.Video
	default:
		return models.CleanupResult{}, fmt.Errorf("unknown render kind %q", kind)
	}

	if rec == nil || rec.RenderID == "" {
		return models.CleanupResult{}, nil
	}

	prefix := fmt.Sprintf("renders/%s/", rec.RenderID)
	listing, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return models.CleanupResult{}, fmt.Errorf("failed to list old render %s: %w", rec.RenderID, err)
	}

	deleted := 0
	for _, obj := range listing.Contents {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    obj.Key,
		}); err != nil {
			log.Warn().Err(err).Str("key", aws.ToString(obj.Key)).Msg("Failed to delete old render file")
			continue
		}
		deleted++
	}

	log.Info().
		Str("presentationId", presentationID).
		Str("slide", slideNumber).
		Str("kind", kind).
		Str("oldRenderId", rec.RenderID).
		Int("deleted", deleted).
		Msg("Cleaned up previous render")

	return models.CleanupResult{Cleaned: deleted > 0, OldRenderID: rec.RenderID}, nil
}
