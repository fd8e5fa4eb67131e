package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/RobinNagpal/slidecast/internal/models"
	"github.com/RobinNagpal/slidecast/internal/paths"
	"github.com/RobinNagpal/slidecast/internal/services"
)

type Handler struct {
	renderer *services.Renderer
	narrator *services.Narrator
	concat   services.Concatenator
	decks    *services.DeckGenerator

	defaultBucket string
	defaultVoice  string
}

func NewHandler(renderer *services.Renderer, narrator *services.Narrator, concat services.Concatenator, decks *services.DeckGenerator, defaultBucket, defaultVoice string) *Handler {
	return &Handler{
		renderer:      renderer,
		narrator:      narrator,
		concat:        concat,
		decks:         decks,
		defaultBucket: defaultBucket,
		defaultVoice:  defaultVoice,
	}
}

// normalizeSlideRequest fills defaults: the bucket from config, the voice
// from config, the presentation ID from outputPrefix, and the slide number
// from the slide's own ID when the caller did not number it explicitly.
func (h *Handler) normalizeSlideRequest(req *models.GenerateSlideRequest) string {
	if req.OutputBucket == "" {
		req.OutputBucket = h.defaultBucket
	}
	if req.OutputBucket == "" {
		return "outputBucket is required"
	}

	if req.PresentationID == "" {
		req.PresentationID = req.OutputPrefix
	}
	if req.PresentationID == "" {
		return "presentationId (or outputPrefix) is required"
	}

	if req.SlideNumber <= 0 {
		// Zero-padding semantics live in the path resolver, not here.
		if n, err := strconv.Atoi(paths.FormatSlideNumberString(req.Slide.ID)); err == nil && n > 0 {
			req.SlideNumber = n
		} else {
			return "slideNumber is required"
		}
	}

	if req.Voice == "" {
		req.Voice = h.defaultVoice
	}
	return ""
}

// GenerateSlide handles POST /generate-slide — full regeneration of one
// slide: audio, image, then video.
func (h *Handler) GenerateSlide(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateSlideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := h.normalizeSlideRequest(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	respondResult(w, h.renderer.RenderSlideAll(r.Context(), req))
}

// GenerateSlideAudio handles POST /generate-slide-audio.
func (h *Handler) GenerateSlideAudio(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateSlideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := h.normalizeSlideRequest(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	result := h.narrator.GenerateSlideAudio(r.Context(), req.PresentationID, req.SlideNumber, req.Slide.Narration, req.OutputBucket, req.Voice)
	respondResult(w, result)
}

// GenerateSlideImage handles POST /generate-slide-image.
func (h *Handler) GenerateSlideImage(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateSlideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := h.normalizeSlideRequest(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	respondResult(w, h.renderer.GenerateSlideImage(r.Context(), req.PresentationID, req.SlideNumber, req.Slide, req.OutputBucket))
}

// RenderSlideVideo handles POST /render-slide-video — video-only from
// already-generated audio and image.
func (h *Handler) RenderSlideVideo(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateSlideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := h.normalizeSlideRequest(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	respondResult(w, h.renderer.RenderSlideVideoOnly(r.Context(), req))
}

// RenderSingleSlide handles POST /render-slide — the legacy single-shot path.
func (h *Handler) RenderSingleSlide(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateSlideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OutputBucket == "" {
		req.OutputBucket = h.defaultBucket
	}
	if req.OutputBucket == "" || req.Slide.ID == "" {
		respondError(w, http.StatusBadRequest, "outputBucket and slide.id are required")
		return
	}
	if req.PresentationID == "" {
		req.PresentationID = req.OutputPrefix
	}
	if req.Voice == "" {
		req.Voice = h.defaultVoice
	}

	respondResult(w, h.renderer.RenderSingleSlide(r.Context(), req))
}

// RenderDeck handles POST /render-deck — fan-out over every slide.
func (h *Handler) RenderDeck(w http.ResponseWriter, r *http.Request) {
	var req models.RenderDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OutputBucket == "" {
		req.OutputBucket = h.defaultBucket
	}
	if req.OutputBucket == "" || req.PresentationID == "" {
		respondError(w, http.StatusBadRequest, "presentationId and outputBucket are required")
		return
	}
	if len(req.Slides) == 0 {
		respondError(w, http.StatusBadRequest, "slides is required")
		return
	}
	if req.Voice == "" {
		req.Voice = h.defaultVoice
	}

	result := h.renderer.RenderDeck(r.Context(), req)
	if !result.Success {
		// Partial failures still return per-slide detail.
		respondJSON(w, http.StatusInternalServerError, result)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// RenderStatus handles GET /render-status?renderId=...&bucketName=...
func (h *Handler) RenderStatus(w http.ResponseWriter, r *http.Request) {
	renderID := r.URL.Query().Get("renderId")
	bucketName := r.URL.Query().Get("bucketName")
	if bucketName == "" {
		bucketName = h.defaultBucket
	}
	if renderID == "" || bucketName == "" {
		respondError(w, http.StatusBadRequest, "renderId and bucketName are required")
		return
	}

	respondResult(w, h.renderer.RenderStatus(r.Context(), renderID, bucketName))
}

// ConcatenateVideos handles POST /concatenate-videos.
func (h *Handler) ConcatenateVideos(w http.ResponseWriter, r *http.Request) {
	var req models.ConcatenateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OutputBucket == "" {
		req.OutputBucket = h.defaultBucket
	}
	if len(req.VideoURLs) == 0 || req.OutputBucket == "" || req.OutputKey == "" {
		respondError(w, http.StatusBadRequest, "videoUrls, outputBucket and outputKey are required")
		return
	}

	respondResult(w, h.concat.Concatenate(r.Context(), req))
}

// GenerateDeck handles POST /generate-deck — deck JSON from a prompt.
func (h *Handler) GenerateDeck(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	slides, err := h.decks.GenerateDeck(r.Context(), req.Prompt, req.SlideCount)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"slides":  slides,
	})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

// pipelineResult is anything carrying the success discriminator.
type pipelineResult interface {
	Succeeded() bool
}

// respondResult writes a pipeline result: 200 when it succeeded, 500 with the
// structured failure body otherwise. Pipeline stages never throw past their
// boundary, so this is the only failure translation the handlers need.
func respondResult(w http.ResponseWriter, result pipelineResult) {
	if result.Succeeded() {
		respondJSON(w, http.StatusOK, result)
		return
	}
	respondJSON(w, http.StatusInternalServerError, result)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"success": false, "error": message})
}
