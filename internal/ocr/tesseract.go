package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Extractor pulls printed text out of an image file.
type Extractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
	IsAvailable() bool
}

type TesseractService struct {
	tesseractPath string
	languages     string
}

// NewTesseractService resolves the tesseract binary from path, falling back
// to a PATH lookup when path is empty.
func NewTesseractService(path, languages string) *TesseractService {
	if path == "" {
		path, _ = exec.LookPath("tesseract")
	}
	if path == "" {
		path = "tesseract"
	}
	if languages == "" {
		languages = "eng"
	}
	return &TesseractService{tesseractPath: path, languages: languages}
}

func (o *TesseractService) IsAvailable() bool {
	cmd := exec.Command(o.tesseractPath, "--version")
	return cmd.Run() == nil
}

// ExtractText runs tesseract on imagePath and returns stdout verbatim.
func (o *TesseractService) ExtractText(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, o.tesseractPath, imagePath, "stdout", "-l", o.languages)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return "", fmt.Errorf("tesseract OCR: %s: %w", msg, err)
			}
		}
		return "", fmt.Errorf("tesseract OCR: %w", err)
	}

	return string(output), nil
}
