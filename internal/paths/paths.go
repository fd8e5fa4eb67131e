// Package paths is the single source of truth for where presentation
// artifacts live in the object store. No other package may construct these
// keys by hand — every pipeline stage resolves locations through here so all
// stages agree on where an artifact is.
package paths

import (
	"fmt"
	"strconv"
)

// PresentationPaths holds the object-store keys for every per-slide artifact
// of one presentation. All functions are pure and deterministic.
type PresentationPaths struct {
	PresentationID string
	Bucket         string
}

// ForPresentation resolves the path set for a presentation in a bucket.
func ForPresentation(presentationID, bucket string) PresentationPaths {
	return PresentationPaths{
		PresentationID: presentationID,
		Bucket:         bucket,
	}
}

// FormatSlideNumber zero-pads a slide number to width 2. Numbers above two
// digits are kept as-is, never truncated.
func FormatSlideNumber(n int) string {
	return fmt.Sprintf("%02d", n)
}

// FormatSlideNumberString zero-pads an already-stringified slide number.
// "1" becomes "01", "10" stays "10", "100" stays "100".
func FormatSlideNumberString(s string) string {
	if n, err := strconv.Atoi(s); err == nil {
		return FormatSlideNumber(n)
	}
	return s
}

func (p PresentationPaths) slidePrefix(slide string) string {
	return fmt.Sprintf("presentations/%s/slides/%s", p.PresentationID, slide)
}

// SlideText is the key for the slide's content JSON (traceability artifact).
func (p PresentationPaths) SlideText(slide string) string {
	return p.slidePrefix(slide) + "/slide-text.json"
}

// SlideImage is the expected key for the slide's rendered still image.
func (p PresentationPaths) SlideImage(slide string) string {
	return p.slidePrefix(slide) + "/slide-image.png"
}

// AudioScript is the key for the raw narration text saved before synthesis.
func (p PresentationPaths) AudioScript(slide string) string {
	return p.slidePrefix(slide) + "/audio-script.txt"
}

// Audio is the key for the synthesized narration audio.
func (p PresentationPaths) Audio(slide string) string {
	return p.slidePrefix(slide) + "/audio.mp3"
}

// Video is the expected key for the slide's rendered video.
func (p PresentationPaths) Video(slide string) string {
	return p.slidePrefix(slide) + "/video.mp4"
}

// RenderMetadata is the key for the slide's render-metadata document.
func (p PresentationPaths) RenderMetadata(slide string) string {
	return p.slidePrefix(slide) + "/render-metadata.json"
}

// ObjectURL returns the stable (non-expiring) URL for a key in the bucket.
func (p PresentationPaths) ObjectURL(key string) string {
	return ObjectURL(p.Bucket, key)
}

// ObjectURL returns the stable S3 URL for any bucket/key pair.
func ObjectURL(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}

// RemotionOutputKey is where an async render job actually places its output:
// the engine nests everything under renders/{renderId}/. Components that kick
// off a render use this to compute the artifact's eventual location without
// waiting for completion.
func RemotionOutputKey(renderID, outName string) string {
	return fmt.Sprintf("renders/%s/%s", renderID, outName)
}

// RemotionProgressKey is the engine's own bookkeeping record for a render,
// which exposes the authoritative frame range of the finished video.
func RemotionProgressKey(renderID string) string {
	return fmt.Sprintf("renders/%s/progress.json", renderID)
}
