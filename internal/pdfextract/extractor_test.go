package pdfextract

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ecenturetech/ScriptTranscipt/internal/openai"
)

type fakeVision struct {
	fn      func(batch []string) (string, error)
	batches [][]string
}

func (f *fakeVision) CompleteWithImages(_ context.Context, _, _ string, imagesPNG []string) (string, error) {
	f.batches = append(f.batches, imagesPNG)
	if f.fn != nil {
		return f.fn(imagesPNG)
	}
	return "texto da página", nil
}

func newTestExtractor(vision VisionClient) *Extractor {
	e := New(vision, slog.New(slog.DiscardHandler))
	e.batchPause = 0
	e.retryWait = 0
	return e
}

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
}

func TestLoadImages_SortedAndEncoded(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "page_2.png", "page_1.png", "notes.txt")

	e := newTestExtractor(&fakeVision{})
	images, err := e.loadImages(dir)

	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("page_1.png")), images[0])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("page_2.png")), images[1])
}

func TestLoadImages_CappedAtMax(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.png", "b.png", "c.png")

	e := newTestExtractor(&fakeVision{})
	e.maxImages = 2

	images, err := e.loadImages(dir)

	require.NoError(t, err)
	assert.Len(t, images, 2)
}

func TestTranscribeBatch_RetriesOnRateLimit(t *testing.T) {
	attempts := 0
	vision := &fakeVision{fn: func(_ []string) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &openai.APIError{Kind: openai.KindRateLimited, StatusCode: http.StatusTooManyRequests}
		}
		return "transcrito", nil
	}}
	e := newTestExtractor(vision)

	got, err := e.transcribeBatch(context.Background(), []string{"img"})

	require.NoError(t, err)
	assert.Equal(t, "transcrito", got)
	assert.Equal(t, 3, attempts)
}

func TestTranscribeBatch_RateLimitExhausted(t *testing.T) {
	vision := &fakeVision{fn: func(_ []string) (string, error) {
		return "", &openai.APIError{Kind: openai.KindRateLimited, StatusCode: http.StatusTooManyRequests}
	}}
	e := newTestExtractor(vision)

	_, err := e.transcribeBatch(context.Background(), []string{"img"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
	assert.Len(t, vision.batches, 3)
}

func TestTranscribeBatch_OtherErrorFailsImmediately(t *testing.T) {
	vision := &fakeVision{fn: func(_ []string) (string, error) {
		return "", errors.New("boom")
	}}
	e := newTestExtractor(vision)

	_, err := e.transcribeBatch(context.Background(), []string{"img"})

	require.Error(t, err)
	assert.Len(t, vision.batches, 1)
}

func TestExtractText_MissingFile(t *testing.T) {
	e := newTestExtractor(&fakeVision{})

	_, err := e.ExtractText(filepath.Join(t.TempDir(), "nope.pdf"))

	assert.Error(t, err)
}

func TestExtractViaVision_UnreadablePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	vision := &fakeVision{}
	e := newTestExtractor(vision)

	_, err := e.ExtractViaVision(context.Background(), path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "page count")
	assert.Empty(t, vision.batches)
}

func TestBatching(t *testing.T) {
	// Exercise the batching arithmetic through transcribeBatch call counts.
	vision := &fakeVision{}
	e := newTestExtractor(vision)
	e.batchSize = 4

	images := make([]string, 10)
	for i := range images {
		images[i] = strings.Repeat("x", i+1)
	}

	for start := 0; start < len(images); start += e.batchSize {
		end := start + e.batchSize
		if end > len(images) {
			end = len(images)
		}
		_, err := e.transcribeBatch(context.Background(), images[start:end])
		require.NoError(t, err)
	}

	require.Len(t, vision.batches, 3)
	assert.Len(t, vision.batches[0], 4)
	assert.Len(t, vision.batches[1], 4)
	assert.Len(t, vision.batches[2], 2)
}
