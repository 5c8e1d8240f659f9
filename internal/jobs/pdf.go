package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Ecenturetech/ScriptTranscipt/internal/pdfextract"
	"github.com/Ecenturetech/ScriptTranscipt/internal/queue"
)

// handlePDF extracts text from a PDF, preferring the embedded text layer and
// falling back to vision OCR for scanned documents. The caller can force the
// vision path for documents with a broken text layer.
func (d *Dispatcher) handlePDF(ctx context.Context, p queue.PDFPayload) (*queue.Result, error) {
	pdfID := uuid.New().String()

	savedPath := filepath.Join(d.deps.StorageDir, "pdf-"+pdfID+filepath.Ext(p.FileName))
	if err := copyFile(p.FilePath, savedPath); err != nil {
		return nil, fmt.Errorf("failed to store PDF: %w", err)
	}
	d.removeSpool(p.FilePath, savedPath)

	if err := d.deps.PDFs.InsertProcessing(ctx, pdfID, p.FileName); err != nil {
		return nil, err
	}

	fail := func(err error) (*queue.Result, error) {
		if dbErr := d.deps.PDFs.SetError(ctx, pdfID, err.Error()); dbErr != nil {
			d.deps.Logger.Error("Failed to record PDF error",
				slog.String("pdf_id", pdfID),
				slog.String("error", dbErr.Error()),
			)
		}
		return nil, err
	}

	if err := d.deps.Keys.CheckAPIKey(); err != nil {
		return fail(fmt.Errorf("PDF processing requires a valid API key: %w", err))
	}

	text, err := d.extractPDFText(ctx, savedPath, p.ForceVision)
	if err != nil {
		return fail(err)
	}
	if strings.TrimSpace(text) == "" {
		return fail(fmt.Errorf("no text could be extracted from %s", p.FileName))
	}

	outcome, err := d.deps.Pipeline.Run(ctx, text, p.FileName, true)
	if err != nil {
		return fail(err)
	}

	if err := d.deps.PDFs.SaveExtractedText(ctx, pdfID, outcome.CorrectedText); err != nil {
		return fail(err)
	}
	if outcome.Metadata != "" {
		if err := d.deps.PDFs.SaveMetadata(ctx, pdfID, outcome.Metadata); err != nil {
			return fail(err)
		}
	}
	if err := d.deps.PDFs.Complete(ctx, pdfID, outcome.StructuredSummary, outcome.QuestionsAnswers); err != nil {
		return fail(err)
	}

	return &queue.Result{
		EntityID:             pdfID,
		FileName:             p.FileName,
		Transcript:           outcome.CorrectedText,
		StructuredTranscript: outcome.StructuredSummary,
		QuestionsAnswers:     outcome.QuestionsAnswers,
		Metadata:             outcome.Metadata,
		DegradedStages:       outcome.Degraded,
		Message:              "PDF processado com sucesso",
	}, nil
}

// extractPDFText chooses between the text layer and vision OCR. Each path
// falls back to the other before giving up.
func (d *Dispatcher) extractPDFText(ctx context.Context, pdfPath string, forceVision bool) (string, error) {
	if forceVision {
		text, err := d.deps.PDF.ExtractViaVision(ctx, pdfPath)
		if err == nil {
			return text, nil
		}
		d.deps.Logger.Warn("Vision extraction failed, trying text layer",
			slog.String("path", pdfPath),
			slog.String("error", err.Error()),
		)
		return d.deps.PDF.ExtractText(pdfPath)
	}

	text, err := d.deps.PDF.ExtractText(pdfPath)
	if err == nil {
		return text, nil
	}
	if !errors.Is(err, pdfextract.ErrNoText) {
		return "", err
	}

	d.deps.Logger.Info("PDF has no text layer, using vision extraction",
		slog.String("path", pdfPath),
	)
	return d.deps.PDF.ExtractViaVision(ctx, pdfPath)
}
