package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/RobinNagpal/slidecast/internal/models"
)

func testRouter(apiKey string) *chi.Mux {
	h := NewHandler(nil, nil, nil, nil, "default-bucket", "Ruth:generative")
	return NewRouter(h, RouterConfig{BackendAPIKey: apiKey})
}

func TestHealthIsPublic(t *testing.T) {
	router := testRouter("secret")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health should not require auth, got %d", rec.Code)
	}
}

func TestAPIKeyAuthMissing(t *testing.T) {
	router := testRouter("secret")

	req := httptest.NewRequest(http.MethodPost, "/generate-slide", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rec.Code)
	}
}

func TestAPIKeyAuthWrongKey(t *testing.T) {
	router := testRouter("secret")

	req := httptest.NewRequest(http.MethodPost, "/generate-slide", strings.NewReader("{}"))
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 with wrong key, got %d", rec.Code)
	}
}

func TestAPIKeyAuthBearer(t *testing.T) {
	router := testRouter("secret")

	// Malformed body so the request stops at validation, after passing auth.
	req := httptest.NewRequest(http.MethodPost, "/generate-slide", strings.NewReader("not-json"))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 past auth for bad body, got %d", rec.Code)
	}
}

func TestGenerateSlideBadBody(t *testing.T) {
	router := testRouter("")

	req := httptest.NewRequest(http.MethodPost, "/generate-slide", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestGenerateSlideMissingFields(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, "", "Ruth:generative") // no default bucket
	router := NewRouter(h, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/generate-slide", strings.NewReader(`{"slide":{"id":"001"}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without outputBucket, got %d", rec.Code)
	}
}

func TestNormalizeSlideRequestDerivesSlideNumber(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, "default-bucket", "Ruth:generative")

	cases := []struct {
		slideID string
		want    int
	}{
		{"001", 1},
		{"3", 3},
		{"10", 10},
	}

	for _, tt := range cases {
		req := models.GenerateSlideRequest{
			PresentationID: "pres-1",
			Slide:          models.SlideInput{ID: tt.slideID},
		}
		if msg := h.normalizeSlideRequest(&req); msg != "" {
			t.Fatalf("slide ID %q: unexpected validation error %q", tt.slideID, msg)
		}
		if req.SlideNumber != tt.want {
			t.Errorf("slide ID %q: derived slide number %d, want %d", tt.slideID, req.SlideNumber, tt.want)
		}
	}
}

func TestNormalizeSlideRequestRejectsBadSlideID(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, "default-bucket", "Ruth:generative")

	for _, id := range []string{"", "abc", "000"} {
		req := models.GenerateSlideRequest{
			PresentationID: "pres-1",
			Slide:          models.SlideInput{ID: id},
		}
		if msg := h.normalizeSlideRequest(&req); msg == "" {
			t.Errorf("slide ID %q: expected a validation error", id)
		}
	}
}

func TestRenderStatusMissingParams(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, "", "Ruth:generative")
	router := NewRouter(h, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/render-status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without renderId, got %d", rec.Code)
	}
}

func TestConcatenateVideosMissingFields(t *testing.T) {
	router := testRouter("")

	req := httptest.NewRequest(http.MethodPost, "/concatenate-videos", strings.NewReader(`{"videoUrls":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty videoUrls, got %d", rec.Code)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	router := testRouter("")

	req := httptest.NewRequest(http.MethodGet, "/no-such-route", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON 404 body, got content type %q", ct)
	}
}
