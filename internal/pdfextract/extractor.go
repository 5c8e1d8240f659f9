package pdfextract

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Ecenturetech/ScriptTranscipt/internal/openai"
)

// ErrNoText reports a PDF with no extractable text layer.
var ErrNoText = errors.New("no text could be extracted from the PDF")

const visionSystemPrompt = "Você é um assistente especializado em OCR técnico. Transcreva o conteúdo das imagens ignorando marcas d'água repetitivas e textos de segurança. Foque em dados técnicos e tabelas."

// VisionClient is the multimodal surface the OCR path needs.
type VisionClient interface {
	CompleteWithImages(ctx context.Context, systemPrompt, userPrompt string, imagesPNG []string) (string, error)
}

// Extractor pulls text out of PDFs. The primary path reads the embedded text
// layer; the vision path extracts page images and runs them through a
// multimodal model in small batches, for scanned documents without a usable
// text layer.
type Extractor struct {
	vision     VisionClient
	logger     *slog.Logger
	batchSize  int
	maxImages  int
	batchPause time.Duration
	retryWait  time.Duration
	retryLimit int
}

func New(vision VisionClient, logger *slog.Logger) *Extractor {
	return &Extractor{
		vision:     vision,
		logger:     logger,
		batchSize:  4,
		maxImages:  100,
		batchPause: 3 * time.Second,
		retryWait:  5 * time.Second,
		retryLimit: 3,
	}
}

// ExtractText reads the PDF's text layer. A document whose pages carry no
// text (scans, pure-image PDFs) returns ErrNoText so the caller can fall
// back to the vision path.
func (e *Extractor) ExtractText(filePath string) (string, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text layer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("failed to read PDF text layer: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// PageCount returns the document's page count.
func (e *Extractor) PageCount(filePath string) (int, error) {
	return api.PageCountFile(filePath)
}

// ExtractViaVision OCRs the document by extracting its page images and
// sending them to the multimodal model in batches. Rate limiting is retried
// with linear backoff; any other provider error fails the extraction.
func (e *Extractor) ExtractViaVision(ctx context.Context, filePath string) (string, error) {
	pages, err := e.PageCount(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF page count: %w", err)
	}
	e.logger.Info("Extracting page images for vision OCR",
		slog.String("path", filePath),
		slog.Int("pages", pages),
	)

	tempDir, err := os.MkdirTemp("", "pdf-vision-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractImagesFile(filePath, tempDir, nil, cfg); err != nil {
		return "", fmt.Errorf("failed to extract page images: %w", err)
	}

	images, err := e.loadImages(tempDir)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", errors.New("no page images could be extracted from the PDF")
	}

	e.logger.Info("Running vision OCR",
		slog.Int("images", len(images)),
		slog.Int("batch_size", e.batchSize),
	)

	var combined strings.Builder
	for start := 0; start < len(images); start += e.batchSize {
		end := start + e.batchSize
		if end > len(images) {
			end = len(images)
		}
		batch := images[start:end]

		text, err := e.transcribeBatch(ctx, batch)
		if err != nil {
			return "", fmt.Errorf("failed to process image batch %d: %w", start/e.batchSize+1, err)
		}
		combined.WriteString(strings.TrimSpace(text))
		combined.WriteString("\n\n")

		if end < len(images) && e.batchPause > 0 {
			select {
			case <-time.After(e.batchPause):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	result := strings.TrimSpace(combined.String())
	if result == "" {
		return "", ErrNoText
	}
	return result, nil
}

func (e *Extractor) transcribeBatch(ctx context.Context, batch []string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= e.retryLimit; attempt++ {
		text, err := e.vision.CompleteWithImages(ctx, visionSystemPrompt, "Transcreva o conteúdo técnico destas páginas:", batch)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !openai.IsRateLimited(err) {
			return "", err
		}

		wait := time.Duration(attempt) * e.retryWait
		e.logger.Warn("Vision OCR rate limited, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("rate limit retries exhausted: %w", lastErr)
}

// loadImages reads the extracted image files in name order and returns them
// base64-encoded, capped at maxImages.
func (e *Extractor) loadImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list extracted images: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	if len(names) > e.maxImages {
		names = names[:e.maxImages]
	}

	images := make([]string, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read extracted image %s: %w", name, err)
		}
		images = append(images, base64.StdEncoding.EncodeToString(data))
	}
	return images, nil
}
