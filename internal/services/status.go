package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/RobinNagpal/slidecast/internal/models"
)

// RenderStatus queries the engine for one render's progress and normalizes
// it. Transport failures come back as an unsuccessful, not-done result — the
// caller decides whether to poll again.
func (r *Renderer) RenderStatus(ctx context.Context, renderID, bucketName string) models.StatusResult {
	progress, err := r.engine.GetRenderProgress(ctx, renderID, bucketName)
	if err != nil {
		log.Warn().Err(err).Str("renderId", renderID).Msg("Failed to fetch render progress")
		return models.StatusResult{Error: err.Error()}
	}

	return models.StatusResult{
		Success:         true,
		Done:            progress.Done,
		OverallProgress: progress.OverallProgress,
		OutputURL:       progress.OutputFile,
		CurrentStep:     currentStep(progress.OverallProgress, progress.Done),
		Errors:          normalizeRenderErrors(progress.Errors),
	}
}

// currentStep maps raw progress onto a coarse human-readable step. The
// thresholds are heuristic UI conveniences, not engine guarantees.
func currentStep(progress float64, done bool) string {
	if done {
		return "Complete"
	}
	switch {
	case progress < 0.1:
		return "Initializing"
	case progress < 0.3:
		return "Downloading assets"
	case progress < 0.9:
		return "Rendering frames"
	case progress < 0.95:
		return "Encoding video"
	case progress < 1.0:
		return "Uploading"
	default:
		return "Complete"
	}
}

// normalizeRenderErrors flattens the engine's heterogeneous error shapes
// (bare strings, objects with a message field, anything else) into strings.
func normalizeRenderErrors(raw []interface{}) []string {
	if len(raw) == 0 {
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, e := range raw {
		switch v := e.(type) {
		case string:
			out = append(out, v)
		case map[string]interface{}:
			if msg, ok := v["message"].(string); ok {
				out = append(out, msg)
			} else {
				out = append(out, fmt.Sprintf("%v", v))
			}
		default:
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out
}
