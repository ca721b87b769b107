package scanning

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %s: %w", name, msg, err)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Tesseract implements Recognizer by shelling out to the tesseract binary.
type Tesseract struct {
	binary string
	lang   string
	runner Runner
}

// NewTesseract creates a Tesseract recognizer. An empty binary defaults to
// "tesseract" on PATH; an empty lang defaults to "fra+eng" since the orders
// are dictated in French with occasional English vocabulary.
func NewTesseract(binary, lang string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if lang == "" {
		lang = "fra+eng"
	}
	return &Tesseract{binary: binary, lang: lang, runner: execRunner{}}
}

// NewTesseractWithRunner creates a Tesseract recognizer with a custom command
// runner for testing.
func NewTesseractWithRunner(binary, lang string, runner Runner) *Tesseract {
	t := NewTesseract(binary, lang)
	t.runner = runner
	return t
}

// ExtractText converts the document to PNG, writes it to a temporary file
// and runs tesseract over it. PDFs are rendered first because tesseract only
// reads raster images.
func (t *Tesseract) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	pngData, _, _, err := prepareDocument(data, contentType)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "facturier-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp image: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(pngData); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp image: %w", err)
	}

	out, err := t.runner.Run(ctx, t.binary, filepath.Clean(path), "stdout", "-l", t.lang)
	if err != nil {
		return "", fmt.Errorf("running ocr: %w", err)
	}
	return string(out), nil
}
