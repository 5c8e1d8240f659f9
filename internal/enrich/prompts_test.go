package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePromptSource struct {
	prompts Prompts
	err     error
}

func (f *fakePromptSource) Prompts(_ context.Context) (Prompts, error) {
	return f.prompts, f.err
}

func TestSummarize_PlaceholderSubstitution(t *testing.T) {
	var captured string
	client := &fakeChatClient{fn: func(_, user string) (string, error) {
		captured = user
		return "resumo estruturado", nil
	}}
	source := &fakePromptSource{prompts: Prompts{
		Transcript: "Estruture o texto:\n{text}",
		Additional: "Use tom formal.",
	}}
	s := NewStructuredSummarizer(client, source, quietLogger())

	got, err := s.Summarize(context.Background(), "conteúdo da transcrição")

	require.NoError(t, err)
	assert.Equal(t, "resumo estruturado", got)
	assert.Contains(t, captured, "conteúdo da transcrição")
	assert.Contains(t, captured, "Instruções adicionais:\nUse tom formal.")
	assert.NotContains(t, captured, "{text}")
}

func TestSummarize_NoPlaceholderConcatenates(t *testing.T) {
	var captured string
	client := &fakeChatClient{fn: func(_, user string) (string, error) {
		captured = user
		return "resumo", nil
	}}
	source := &fakePromptSource{prompts: Prompts{Transcript: "Estruture o texto."}}
	s := NewStructuredSummarizer(client, source, quietLogger())

	_, err := s.Summarize(context.Background(), "conteúdo")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(captured, "Estruture o texto."))
	assert.Contains(t, captured, "Transcrição original:")
	assert.Contains(t, captured, "conteúdo")
}

func TestSummarize_MissingTemplateIsConfigError(t *testing.T) {
	s := NewStructuredSummarizer(&fakeChatClient{}, &fakePromptSource{prompts: Prompts{Transcript: "  "}}, quietLogger())

	_, err := s.Summarize(context.Background(), "texto")

	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "transcript_prompt", configErr.Setting)
}

func TestSummarize_EmptyModelOutputFails(t *testing.T) {
	client := &fakeChatClient{fn: func(_, _ string) (string, error) { return "  ", nil }}
	source := &fakePromptSource{prompts: Prompts{Transcript: "Estruture {text}"}}
	s := NewStructuredSummarizer(client, source, quietLogger())

	_, err := s.Summarize(context.Background(), "texto")

	assert.Error(t, err)
}

func TestGenerateQA_MissingTemplateIsConfigError(t *testing.T) {
	q := NewQAGenerator(&fakeChatClient{}, &fakePromptSource{}, quietLogger())

	_, err := q.Generate(context.Background(), "texto")

	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "qa_prompt", configErr.Setting)
}

func TestGenerateQA_BuildsPrompt(t *testing.T) {
	var capturedSystem, capturedUser string
	client := &fakeChatClient{fn: func(system, user string) (string, error) {
		capturedSystem = system
		capturedUser = user
		return "P: ...\nR: ...", nil
	}}
	source := &fakePromptSource{prompts: Prompts{
		QA:         "Gere perguntas sobre: {text}",
		Additional: "Máximo 10 perguntas.",
	}}
	q := NewQAGenerator(client, source, quietLogger())

	got, err := q.Generate(context.Background(), "texto base")

	require.NoError(t, err)
	assert.Equal(t, "P: ...\nR: ...", got)
	assert.Contains(t, capturedSystem, "não adicionar conhecimento externo")
	assert.Contains(t, capturedUser, "texto base")
	assert.Contains(t, capturedUser, "Máximo 10 perguntas.")
	assert.Contains(t, capturedUser, "NO MESMO IDIOMA")
}

func TestGenerateQA_SourceFailure(t *testing.T) {
	q := NewQAGenerator(&fakeChatClient{}, &fakePromptSource{err: errors.New("db down")}, quietLogger())

	_, err := q.Generate(context.Background(), "texto")

	require.Error(t, err)
	assert.NotErrorAs(t, err, new(*ConfigError))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
