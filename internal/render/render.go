// Package render compiles recovered LaTeX into PDF via a local
// pdflatex installation.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"cvalign/internal/errors"
)

// Renderer runs pdflatex in a throwaway working directory
type Renderer struct {
	command string
	timeout time.Duration
	logger  *errors.Logger
}

// NewRenderer creates a renderer. An empty command falls back to
// "pdflatex" on PATH.
func NewRenderer(command string, timeout time.Duration, logger *errors.Logger) *Renderer {
	if command == "" {
		command = "pdflatex"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Renderer{
		command: command,
		timeout: timeout,
		logger:  logger,
	}
}

// RenderPDF compiles a LaTeX document and returns the PDF bytes. The
// working directory is temporary and removed on all paths; callers
// decide where the artifact lands.
func (r *Renderer) RenderPDF(ctx context.Context, latexBody string) ([]byte, error) {
	workDir, err := os.MkdirTemp("", "cvalign-render-*")
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeRenderFailed,
			"Failed to create render working directory", err)
	}
	defer os.RemoveAll(workDir)

	texPath := filepath.Join(workDir, "cv.tex")
	if err := os.WriteFile(texPath, []byte(latexBody), 0o600); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeRenderFailed,
			"Failed to write LaTeX source", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.command,
		"-interaction=nonstopmode",
		"-output-directory", workDir,
		texPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errors.NewRenderingError(errors.ErrCodeRenderFailed,
			"pdflatex compilation failed", err).
			WithContext("output", tailOf(string(output), 4096))
	}

	pdfPath := filepath.Join(workDir, "cv.pdf")
	pdfBytes, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, errors.NewRenderingError(errors.ErrCodeRenderFailed,
			"pdflatex produced no PDF output", err).
			WithContext("output", tailOf(string(output), 4096))
	}

	r.logger.Debug("Rendered LaTeX document",
		"latex_bytes", len(latexBody),
		"pdf_bytes", len(pdfBytes))

	return pdfBytes, nil
}

// ArtifactName builds the timestamped output filename for a rendered
// or recovered document: <basename>_<YYYYMMDD_HHMMSS>.<ext>.
// Second-granularity collisions are accepted.
func ArtifactName(originalFilename, ext string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	if base == "" || base == "." {
		base = "cv"
	}
	return fmt.Sprintf("%s_%s.%s", base, now.Format("20060102_150405"), ext)
}

// tailOf keeps the last n bytes of pdflatex output, where the actual
// error lives.
func tailOf(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
