package transcribe

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ecenturetech/ScriptTranscipt/internal/openai"
)

type fakeSpeechToText struct {
	responses map[string]string
	err       error
	calls     []string
}

func (f *fakeSpeechToText) Transcribe(_ context.Context, filePath, _ string) (string, error) {
	f.calls = append(f.calls, filePath)
	if f.err != nil {
		return "", f.err
	}
	return f.responses[filePath], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestTranscribe_JoinsChunksInOrder(t *testing.T) {
	client := &fakeSpeechToText{responses: map[string]string{
		"a.mp3": " Primeira parte. ",
		"b.mp3": "Segunda parte.",
		"c.mp3": "Terceira parte.",
	}}
	tr := New(client, "pt", discardLogger())

	got, err := tr.Transcribe(context.Background(), []string{"a.mp3", "b.mp3", "c.mp3"})

	require.NoError(t, err)
	assert.Equal(t, "Primeira parte. Segunda parte. Terceira parte.", got)
	assert.Equal(t, []string{"a.mp3", "b.mp3", "c.mp3"}, client.calls)
}

func TestTranscribe_SkipsBlankChunks(t *testing.T) {
	client := &fakeSpeechToText{responses: map[string]string{
		"a.mp3": "Texto.",
		"b.mp3": "   ",
		"c.mp3": "Mais texto.",
	}}
	tr := New(client, "pt", discardLogger())

	got, err := tr.Transcribe(context.Background(), []string{"a.mp3", "b.mp3", "c.mp3"})

	require.NoError(t, err)
	assert.Equal(t, "Texto. Mais texto.", got)
}

func TestTranscribe_AllBlankFails(t *testing.T) {
	client := &fakeSpeechToText{responses: map[string]string{"a.mp3": "  "}}
	tr := New(client, "pt", discardLogger())

	_, err := tr.Transcribe(context.Background(), []string{"a.mp3"})

	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestTranscribe_ChunkFailureAborts(t *testing.T) {
	client := &fakeSpeechToText{err: errors.New("network down")}
	tr := New(client, "pt", discardLogger())

	_, err := tr.Transcribe(context.Background(), []string{"a.mp3", "b.mp3"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 1")
	assert.Len(t, client.calls, 1)
}

func TestTranscribe_TooLargeBecomesSizeLimitError(t *testing.T) {
	client := &fakeSpeechToText{err: &openai.APIError{
		StatusCode: http.StatusRequestEntityTooLarge,
		Kind:       openai.KindTooLarge,
		Message:    "file too large",
	}}
	tr := New(client, "pt", discardLogger())

	_, err := tr.Transcribe(context.Background(), []string{"huge.mp3"})

	var sizeErr *SizeLimitError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, "huge.mp3", sizeErr.Path)
	assert.Contains(t, sizeErr.Error(), "ffmpeg")
}
