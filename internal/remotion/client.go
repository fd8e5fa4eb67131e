// Package remotion talks to the remote rendering engine: a Remotion
// Lambda-compatible function invoked by name with start/still/status
// payloads. The engine owns its own fan-out, retries, and progress
// bookkeeping; this client only submits work and reads progress back.
package remotion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/rs/zerolog/log"
)

// Composition identifiers consumed on the engine side.
const (
	CompositionSingleSlide       = "SingleSlide"
	CompositionConcatenatedVideo = "ConcatenatedVideo"
)

// Fixed render policy passed through on every submission.
const (
	Codec = "h264"

	// MaxRetries is the engine's own per-chunk retry budget. Transient
	// remote-render failures are retried by the engine, not locally.
	MaxRetries = 3

	// Job timeouts in milliseconds.
	VideoTimeoutMs  = 1_200_000
	ConcatTimeoutMs = 1_800_000
)

// Invoker is the slice of the Lambda API the client needs. The AWS client
// satisfies it; tests substitute a fake.
type Invoker interface {
	Invoke(ctx context.Context, params *lambdasvc.InvokeInput, optFns ...func(*lambdasvc.Options)) (*lambdasvc.InvokeOutput, error)
}

// Client submits render jobs to the engine's Lambda function.
type Client struct {
	invoker      Invoker
	functionName string
	serveURL     string
}

// New creates an engine client bound to one function and serve URL.
func New(invoker Invoker, functionName, serveURL string) *Client {
	return &Client{
		invoker:      invoker,
		functionName: functionName,
		serveURL:     serveURL,
	}
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

// RenderMediaInput starts an async video render.
type RenderMediaInput struct {
	Composition     string
	InputProps      map[string]interface{}
	OutName         string
	FramesPerLambda int
	TimeoutMs       int
}

// RenderStillInput renders a single frame synchronously.
type RenderStillInput struct {
	Composition string
	InputProps  map[string]interface{}
	OutName     string
	ImageFormat string // "jpeg" or "png"
	Frame       int
}

// RenderProgress is the engine's progress snapshot for one render.
// Errors is left heterogeneous (the engine reports strings or objects);
// callers normalize it.
type RenderProgress struct {
	Done            bool          `json:"done"`
	OverallProgress float64       `json:"overallProgress"`
	OutputFile      string        `json:"outputFile,omitempty"`
	Errors          []interface{} `json:"errors,omitempty"`
}

// ProgressFile is the shape of the renders/{renderId}/progress.json object
// the engine writes to the bucket. FrameRange is the authoritative
// [start, end] of the finished video.
type ProgressFile struct {
	RenderMetadata struct {
		FrameRange [2]int `json:"frameRange"`
	} `json:"renderMetadata"`
}

// DurationInFrames is end - start + 1.
func (p ProgressFile) DurationInFrames() int {
	return p.RenderMetadata.FrameRange[1] - p.RenderMetadata.FrameRange[0] + 1
}

type startPayload struct {
	Type            string                 `json:"type"`
	ServeURL        string                 `json:"serveUrl"`
	Composition     string                 `json:"composition"`
	InputProps      map[string]interface{} `json:"inputProps"`
	Codec           string                 `json:"codec"`
	ImageFormat     string                 `json:"imageFormat"`
	MaxRetries      int                    `json:"maxRetries"`
	FramesPerLambda int                    `json:"framesPerLambda,omitempty"`
	Privacy         string                 `json:"privacy"`
	OutName         string                 `json:"outName"`
	Overwrite       bool                   `json:"overwrite"`
	TimeoutMs       int                    `json:"timeoutInMilliseconds"`
	Frame           *int                   `json:"frame,omitempty"`
}

type statusPayload struct {
	Type       string `json:"type"`
	RenderID   string `json:"renderId"`
	BucketName string `json:"bucketName"`
}

type startResponse struct {
	Type       string `json:"type"`
	RenderID   string `json:"renderId"`
	BucketName string `json:"bucketName"`
	Message    string `json:"message,omitempty"`
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// RenderMedia submits an async video render and returns the engine-assigned
// render ID immediately. Completion is only known via GetRenderProgress.
func (c *Client) RenderMedia(ctx context.Context, in RenderMediaInput) (string, error) {
	timeoutMs := in.TimeoutMs
	if timeoutMs == 0 {
		timeoutMs = VideoTimeoutMs
	}

	payload := startPayload{
		Type:            "start",
		ServeURL:        c.serveURL,
		Composition:     in.Composition,
		InputProps:      in.InputProps,
		Codec:           Codec,
		ImageFormat:     "jpeg",
		MaxRetries:      MaxRetries,
		FramesPerLambda: in.FramesPerLambda,
		Privacy:         "public",
		OutName:         in.OutName,
		Overwrite:       true,
		TimeoutMs:       timeoutMs,
	}

	resp, err := c.call(ctx, payload)
	if err != nil {
		return "", err
	}
	if resp.RenderID == "" {
		return "", fmt.Errorf("engine returned no renderId: %s", resp.Message)
	}

	log.Info().
		Str("composition", in.Composition).
		Str("renderId", resp.RenderID).
		Int("framesPerLambda", in.FramesPerLambda).
		Msg("Started remote render")

	return resp.RenderID, nil
}

// RenderStill renders one frame synchronously and returns the render ID the
// engine assigned. Still rendering is not a long-running job, so there is no
// polling; the output location is deterministic from the render ID.
func (c *Client) RenderStill(ctx context.Context, in RenderStillInput) (string, error) {
	imageFormat := in.ImageFormat
	if imageFormat == "" {
		imageFormat = "png"
	}

	frame := in.Frame
	payload := startPayload{
		Type:        "still",
		ServeURL:    c.serveURL,
		Composition: in.Composition,
		InputProps:  in.InputProps,
		Codec:       Codec,
		ImageFormat: imageFormat,
		MaxRetries:  MaxRetries,
		Privacy:     "public",
		OutName:     in.OutName,
		Overwrite:   true,
		TimeoutMs:   VideoTimeoutMs,
		Frame:       &frame,
	}

	resp, err := c.call(ctx, payload)
	if err != nil {
		return "", err
	}
	if resp.RenderID == "" {
		return "", fmt.Errorf("engine returned no renderId for still: %s", resp.Message)
	}

	log.Info().Str("renderId", resp.RenderID).Str("outName", in.OutName).Msg("Rendered still frame")
	return resp.RenderID, nil
}

// GetRenderProgress queries the engine for one render's progress snapshot.
func (c *Client) GetRenderProgress(ctx context.Context, renderID, bucketName string) (*RenderProgress, error) {
	data, err := c.invoke(ctx, statusPayload{
		Type:       "status",
		RenderID:   renderID,
		BucketName: bucketName,
	})
	if err != nil {
		return nil, err
	}

	var progress RenderProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("failed to parse progress response: %w", err)
	}
	return &progress, nil
}

func (c *Client) call(ctx context.Context, payload startPayload) (*startResponse, error) {
	data, err := c.invoke(ctx, payload)
	if err != nil {
		return nil, err
	}

	var resp startResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse engine response: %w", err)
	}
	if resp.Type == "error" {
		return nil, fmt.Errorf("engine error: %s", resp.Message)
	}
	return &resp, nil
}

func (c *Client) invoke(ctx context.Context, payload interface{}) ([]byte, error) {
	if c.functionName == "" {
		return nil, fmt.Errorf("rendering engine function name is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal engine payload: %w", err)
	}

	out, err := c.invoker.Invoke(ctx, &lambdasvc.InvokeInput{
		FunctionName: aws.String(c.functionName),
		Payload:      body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke rendering engine: %w", err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("rendering engine failed: %s: %s", aws.ToString(out.FunctionError), string(out.Payload))
	}
	return out.Payload, nil
}
