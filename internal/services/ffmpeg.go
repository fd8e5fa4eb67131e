package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/RobinNagpal/slidecast/internal/runtime"
)

// ---------------------------------------------------------------------------
// FFmpegService
// Local media toolbox: duration probing via ffprobe and stream-copy
// concatenation via ffmpeg. Used by the local concatenation backend and by
// the video renderer's duration probe.
// ---------------------------------------------------------------------------

type FFmpegService struct {
	env *runtime.Environment
}

// Compile-time interface checks.
var (
	_ AudioProber  = (*FFmpegService)(nil)
	_ MediaToolbox = (*FFmpegService)(nil)
)

func NewFFmpegService(env *runtime.Environment) *FFmpegService {
	return &FFmpegService{env: env}
}

// GetAudioDuration returns the duration of an audio file in milliseconds.
func (s *FFmpegService) GetAudioDuration(ctx context.Context, audioPath string) (int, error) {
	return s.probeDuration(ctx, audioPath)
}

// GetVideoDuration returns the duration of a video file in milliseconds.
func (s *FFmpegService) GetVideoDuration(ctx context.Context, videoPath string) (int, error) {
	return s.probeDuration(ctx, videoPath)
}

func (s *FFmpegService) probeDuration(ctx context.Context, path string) (int, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return int(durationSec * 1000), nil
}

// Concatenate joins source videos with stream copy — no re-encoding, since
// all inputs share the same codec and container. A non-zero exit is a hard
// failure.
func (s *FFmpegService) Concatenate(ctx context.Context, sourcePaths []string, outputPath string) error {
	if len(sourcePaths) == 0 {
		return fmt.Errorf("no videos to concatenate")
	}

	listPath, err := s.writeConcatList(sourcePaths)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		outputPath,
	}

	log.Info().Int("sources", len(sourcePaths)).Str("output", outputPath).Msg("Concatenating videos with ffmpeg")

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concatenate failed: %w", err)
	}
	return nil
}

// writeConcatList writes the concat demuxer input to a uniquely named file in
// the scratch directory, so concurrent concatenations never share a list.
func (s *FFmpegService) writeConcatList(sourcePaths []string) (string, error) {
	tmpDir, err := s.env.TempDir()
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(tmpDir, "concat-list-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create concat list: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(BuildConcatList(sourcePaths)); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}
	return f.Name(), nil
}

// BuildConcatList renders the ffmpeg concat demuxer input: one file directive
// per line, paths normalized to forward slashes and single quotes escaped.
func BuildConcatList(sourcePaths []string) string {
	var b strings.Builder
	for _, p := range sourcePaths {
		p = strings.ReplaceAll(p, "\\", "/")
		p = strings.ReplaceAll(p, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", p)
	}
	return b.String()
}

// CreateTempFile returns a path inside the scratch directory.
func (s *FFmpegService) CreateTempFile(filename string) (string, error) {
	tmpDir, err := s.env.TempDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(tmpDir, filename), nil
}

// Cleanup removes temporary files. Failures are logged, never escalated.
func (s *FFmpegService) Cleanup(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove temp file")
		}
	}
}
