// Package runtime supplies the process's runtime capabilities (temp
// directory, Lambda detection) as an injected value instead of scattering
// environment sniffs through the pipeline. Detected once at startup.
package runtime

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment describes where the process is running and where it may write
// scratch files.
type Environment struct {
	lambda  bool
	tempDir string
}

// Detect inspects the process environment once. Inside AWS Lambda only /tmp
// is writable; elsewhere a scratch directory under the OS temp dir is used.
func Detect() *Environment {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return &Environment{lambda: true, tempDir: "/tmp"}
	}
	return &Environment{tempDir: filepath.Join(os.TempDir(), "slidecast")}
}

// ForTesting returns an Environment rooted at dir.
func ForTesting(dir string) *Environment {
	return &Environment{tempDir: dir}
}

// IsLambda reports whether the process runs inside AWS Lambda.
func (e *Environment) IsLambda() bool { return e.lambda }

// TempDir returns the scratch directory, creating it if needed.
func (e *Environment) TempDir() (string, error) {
	if err := os.MkdirAll(e.tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp dir %s: %w", e.tempDir, err)
	}
	return e.tempDir, nil
}
