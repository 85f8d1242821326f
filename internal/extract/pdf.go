package extract

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDF bytes using the pdftotext CLI tool. The
// upload is spooled to a temp file since pdftotext wants a path.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty,
// "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext -layout over the PDF and returns stdout.
func (p *PdfToText) ExtractText(ctx context.Context, pdfBytes []byte) (string, error) {
	dir, err := os.MkdirTemp("", "advisor-pdf-*")
	if err != nil {
		return "", eris.Wrap(err, "pdf: create temp dir")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "upload.pdf")
	if err := os.WriteFile(path, pdfBytes, 0o600); err != nil {
		return "", eris.Wrap(err, "pdf: write temp file")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "pdf: pdftotext failed: %s", stderr.String())
	}

	return stdout.String(), nil
}
