package services

import "math"

// Shared numeric policy for every duration-to-frame conversion in the
// pipeline. Single-slide rendering and concatenation apply the same rules.
const (
	// FPS is fixed for all compositions.
	FPS = 30

	// framePad is appended to every computed frame count so audio is never
	// truncated at the tail of a slide.
	framePad = 5

	// maxConcurrentLambdas caps the engine's fan-out per render. The platform
	// quota is higher; 6 leaves a safety margin.
	maxConcurrentLambdas = 6

	// minFramesPerLambda keeps chunks large enough to be worth a worker.
	minFramesPerLambda = 60
)

// DurationInFrames converts an audio duration in seconds to a frame count:
// round up at 30fps, then pad.
func DurationInFrames(seconds float64) int {
	return int(math.Ceil(seconds*FPS)) + framePad
}

// FramesPerLambda splits a render into chunks so that at most
// maxConcurrentLambdas workers run at once.
func FramesPerLambda(totalFrames int) int {
	perLambda := int(math.Ceil(float64(totalFrames) / maxConcurrentLambdas))
	if perLambda < minFramesPerLambda {
		return minFramesPerLambda
	}
	return perLambda
}
