package models

import "time"

// ---------------------------------------------------------------------------
// Slide content model
// A deck is an ordered list of slides; each slide carries the narration script
// plus the fields its layout type needs. Producers (the deck generator or an
// external authoring UI) populate only the fields relevant to Type, and the
// renderer tolerates missing optional fields.
// ---------------------------------------------------------------------------

// SlideType discriminates which optional fields of a SlideInput are populated.
type SlideType string

const (
	SlideTypeTitle      SlideType = "title"
	SlideTypeBullets    SlideType = "bullets"
	SlideTypeParagraphs SlideType = "paragraphs"
	SlideTypeImage      SlideType = "image"
)

// Valid reports whether t is one of the known slide layouts.
func (t SlideType) Valid() bool {
	switch t {
	case SlideTypeTitle, SlideTypeBullets, SlideTypeParagraphs, SlideTypeImage:
		return true
	}
	return false
}

// SlideInput is one slide's content. ID is stable per slide (e.g. "001") and
// Narration is the spoken script; both are always present.
type SlideInput struct {
	ID        string    `json:"id"`
	Type      SlideType `json:"type"`
	Narration string    `json:"narration"`

	// Layout-specific fields, populated per Type.
	Title            string   `json:"title,omitempty"`
	TitleAccent      string   `json:"titleAccent,omitempty"`
	Subtitle         string   `json:"subtitle,omitempty"`
	Bullets          []string `json:"bullets,omitempty"`
	BulletAccents    []string `json:"bulletAccents,omitempty"`
	Paragraphs       []string `json:"paragraphs,omitempty"`
	ParagraphAccents []string `json:"paragraphAccents,omitempty"`
	Footer           string   `json:"footer,omitempty"`
	ImageURL         string   `json:"imageUrl,omitempty"`
}

// ---------------------------------------------------------------------------
// Render metadata
// One JSON document per slide in the object store, with independently
// updatable image and video sub-records. Updates always merge: writing the
// image record must never destroy the video record and vice versa.
// ---------------------------------------------------------------------------

// RenderStatus is the lifecycle state of one render job.
type RenderStatus string

const (
	RenderStatusCompleted RenderStatus = "completed"
	RenderStatusRendering RenderStatus = "rendering"
	RenderStatusFailed    RenderStatus = "failed"
)

// RenderRecord tracks one render job (image or video) for a slide.
// URL is the artifact's actual location — the engine nests outputs under
// renders/{renderId}/, which differs from the naive expected key.
type RenderRecord struct {
	RenderID    string       `json:"renderId"`
	Status      RenderStatus `json:"status"`
	URL         string       `json:"url,omitempty"`
	StartedAt   time.Time    `json:"startedAt,omitempty"`
	CompletedAt time.Time    `json:"completedAt,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// RenderMetadata is the per-slide metadata document.
type RenderMetadata struct {
	PresentationID string        `json:"presentationId"`
	SlideNumber    string        `json:"slideNumber"`
	Image          *RenderRecord `json:"image,omitempty"`
	Video          *RenderRecord `json:"video,omitempty"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// WithImage returns a copy of m with the image record replaced and UpdatedAt
// stamped. The video record is carried over untouched.
func (m RenderMetadata) WithImage(rec RenderRecord, now time.Time) RenderMetadata {
	m.Image = &rec
	m.UpdatedAt = now
	return m
}

// WithVideo returns a copy of m with the video record replaced and UpdatedAt
// stamped. The image record is carried over untouched.
func (m RenderMetadata) WithVideo(rec RenderRecord, now time.Time) RenderMetadata {
	m.Video = &rec
	m.UpdatedAt = now
	return m
}

// ---------------------------------------------------------------------------
// Concatenation
// ---------------------------------------------------------------------------

// VideoClip is one concatenation input: a rendered slide video and its
// authoritative frame count (taken from the engine's own progress record).
type VideoClip struct {
	URL              string `json:"url"`
	DurationInFrames int    `json:"durationInFrames"`
}

// S3VideoMetadata describes one downloaded source video during local
// FFmpeg-based concatenation. Lives only for the duration of one request.
type S3VideoMetadata struct {
	URL      string
	Key      string
	Duration float64
	Size     int64
}

// ---------------------------------------------------------------------------
// Pipeline results
// Every public pipeline entry point returns one of these instead of an error,
// so HTTP handlers always have a well-formed response body.
// ---------------------------------------------------------------------------

// Succeeded on each result type lets HTTP handlers translate any pipeline
// outcome to a status code without knowing the concrete type.

// AudioResult is the outcome of narration synthesis for one slide.
type AudioResult struct {
	Success           bool    `json:"success"`
	AudioURL          string  `json:"audioUrl,omitempty"`
	AudioPresignedURL string  `json:"audioPresignedUrl,omitempty"`
	AudioScriptURL    string  `json:"audioScriptUrl,omitempty"`
	Duration          float64 `json:"duration,omitempty"`
	Error             string  `json:"error,omitempty"`
}

func (r AudioResult) Succeeded() bool { return r.Success }

// ImageResult is the outcome of a still-image render for one slide.
type ImageResult struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl,omitempty"`
	TextURL  string `json:"textUrl,omitempty"`
	RenderID string `json:"renderId,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r ImageResult) Succeeded() bool { return r.Success }

// VideoResult is the outcome of starting a video render for one slide.
// Status is "rendering" until the engine reports completion via polling.
type VideoResult struct {
	Success  bool   `json:"success"`
	VideoURL string `json:"videoUrl,omitempty"`
	RenderID string `json:"renderId,omitempty"`
	AudioURL string `json:"audioUrl,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r VideoResult) Succeeded() bool { return r.Success }

// StatusResult is a normalized snapshot of an in-flight render.
type StatusResult struct {
	Success         bool     `json:"success"`
	Done            bool     `json:"done"`
	OverallProgress float64  `json:"overallProgress"`
	OutputURL       string   `json:"outputUrl,omitempty"`
	CurrentStep     string   `json:"currentStep,omitempty"`
	Errors          []string `json:"errors,omitempty"`
	Error           string   `json:"error,omitempty"`
}

func (r StatusResult) Succeeded() bool { return r.Success }

// ConcatResult is the outcome of a concatenation request. The remote backend
// returns a RenderID for polling; the local backend returns the finished
// output immediately with its measured duration.
type ConcatResult struct {
	Success       bool    `json:"success"`
	RenderID      string  `json:"renderId,omitempty"`
	OutputURL     string  `json:"outputUrl,omitempty"`
	TotalFrames   int     `json:"totalFrames,omitempty"`
	TotalDuration float64 `json:"totalDuration,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func (r ConcatResult) Succeeded() bool { return r.Success }

// CleanupResult reports what a pre-render cleanup removed.
type CleanupResult struct {
	Cleaned     bool   `json:"cleaned"`
	OldRenderID string `json:"oldRenderId,omitempty"`
}

// DeckResult aggregates per-slide outcomes of a whole-deck render.
type DeckResult struct {
	Success bool          `json:"success"`
	Slides  []VideoResult `json:"slides"`
	Error   string        `json:"error,omitempty"`
}

func (r DeckResult) Succeeded() bool { return r.Success }

// ---------------------------------------------------------------------------
// HTTP request bodies
// ---------------------------------------------------------------------------

// GenerateSlideRequest drives the per-slide pipeline routes.
type GenerateSlideRequest struct {
	PresentationID string     `json:"presentationId"`
	SlideNumber    int        `json:"slideNumber"`
	Slide          SlideInput `json:"slide"`
	OutputBucket   string     `json:"outputBucket"`
	OutputPrefix   string     `json:"outputPrefix,omitempty"`
	Voice          string     `json:"voice,omitempty"`
}

// RenderDeckRequest drives the whole-deck fan-out route.
type RenderDeckRequest struct {
	PresentationID string       `json:"presentationId"`
	Slides         []SlideInput `json:"slides"`
	OutputBucket   string       `json:"outputBucket"`
	Voice          string       `json:"voice,omitempty"`
}

// ConcatenateRequest drives POST /concatenate-videos.
type ConcatenateRequest struct {
	VideoURLs    []string `json:"videoUrls"`
	RenderIDs    []string `json:"renderIds"`
	OutputBucket string   `json:"outputBucket"`
	OutputKey    string   `json:"outputKey"`
}

// GenerateDeckRequest drives POST /generate-deck.
type GenerateDeckRequest struct {
	Prompt     string `json:"prompt"`
	SlideCount int    `json:"slideCount,omitempty"`
}
