package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// promptInputLimit caps how much text is fed into the template-driven stages.
const promptInputLimit = 60000

// Prompts holds the operator-maintained templates from settings.
type Prompts struct {
	Transcript string
	QA         string
	Additional string
}

// PromptSource loads the prompt templates from storage.
type PromptSource interface {
	Prompts(ctx context.Context) (Prompts, error)
}

// ConfigError reports a missing prompt template. Unlike transient LLM
// failures this is an operator problem and fails document jobs hard.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("prompt %q is not configured in settings", e.Setting)
}

// StructuredSummarizer turns a transcript into the operator-defined
// structured format (speakers, paragraphs) using the transcript_prompt
// template.
type StructuredSummarizer struct {
	client ChatClient
	source PromptSource
	logger *slog.Logger
}

func NewStructuredSummarizer(client ChatClient, source PromptSource, logger *slog.Logger) *StructuredSummarizer {
	return &StructuredSummarizer{client: client, source: source, logger: logger}
}

func (s *StructuredSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	prompts, err := s.source.Prompts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load prompt settings: %w", err)
	}
	if strings.TrimSpace(prompts.Transcript) == "" {
		return "", &ConfigError{Setting: "transcript_prompt"}
	}

	limited := truncate(text, promptInputLimit)

	var user string
	if strings.Contains(prompts.Transcript, "{text}") {
		template := prompts.Transcript + "\n\nOBRIGATÓRIO: Mantenha o texto NO MESMO IDIOMA do original. NUNCA traduza."
		body := limited
		if strings.TrimSpace(prompts.Additional) != "" {
			body += "\n\nInstruções adicionais:\n" + prompts.Additional
		}
		user = strings.Replace(template, "{text}", body, 1)
	} else {
		var b strings.Builder
		b.WriteString(prompts.Transcript)
		if strings.TrimSpace(prompts.Additional) != "" {
			b.WriteString("\n\nInstruções adicionais:\n")
			b.WriteString(prompts.Additional)
		}
		b.WriteString("\n\nTranscrição original:\n\"")
		b.WriteString(limited)
		b.WriteString("\"\n\nGere agora a transcrição aprimorada no mesmo formato do exemplo. MANTENHA O MESMO IDIOMA do texto original. Não traduza.")
		user = b.String()
	}

	result, err := completeWithRetry(ctx, s.client, s.logger, "", user, 0.3, 4096)
	if err != nil {
		return "", fmt.Errorf("failed to generate structured summary: %w", err)
	}
	if strings.TrimSpace(result) == "" {
		return "", fmt.Errorf("model returned no text for structured summary")
	}
	return strings.TrimSpace(result), nil
}

// QAGenerator produces question/answer pairs from a transcript using the
// qa_prompt template. Keeping to the source language and not inventing facts
// are constraints carried by the prompt itself, not enforced here.
type QAGenerator struct {
	client ChatClient
	source PromptSource
	logger *slog.Logger
}

func NewQAGenerator(client ChatClient, source PromptSource, logger *slog.Logger) *QAGenerator {
	return &QAGenerator{client: client, source: source, logger: logger}
}

func (q *QAGenerator) Generate(ctx context.Context, text string) (string, error) {
	prompts, err := q.source.Prompts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load prompt settings: %w", err)
	}
	if strings.TrimSpace(prompts.QA) == "" {
		return "", &ConfigError{Setting: "qa_prompt"}
	}

	limited := truncate(text, promptInputLimit)

	var user string
	if strings.Contains(prompts.QA, "{text}") {
		user = strings.Replace(prompts.QA, "{text}", limited, 1) +
			"\n\nOBRIGATÓRIO: Gere as perguntas e respostas NO MESMO IDIOMA do texto. NUNCA traduza."
	} else {
		user = prompts.QA + "\n\nTexto base:\n\"\"\"\n" + limited + "\n\"\"\"\n\nGere o Q&A agora NO MESMO IDIOMA do texto. NUNCA traduza."
	}
	if strings.TrimSpace(prompts.Additional) != "" {
		user += "\n\nInstruções adicionais:\n" + prompts.Additional
	}

	const system = "Você deve seguir estritamente as instruções e não adicionar conhecimento externo."
	result, err := completeWithRetry(ctx, q.client, q.logger, system, user, 0, 4096)
	if err != nil {
		return "", fmt.Errorf("failed to generate questions and answers: %w", err)
	}
	return strings.TrimSpace(result), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
