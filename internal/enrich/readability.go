package enrich

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

const readabilitySystemPrompt = `Você é um editor de texto. Reescreva o texto para melhorar a legibilidade: corrija pontuação, divida em parágrafos coerentes e ajuste frases truncadas. NÃO resuma, NÃO remova conteúdo e NÃO adicione informações. Preserve todos os fatos, números e nomes exatamente como estão. Responda apenas com o texto reescrito.`

// ReadabilityImprover rewrites raw transcript text into readable paragraphs.
// Long inputs are split into paragraph-respecting chunks under the threshold
// and each chunk is rewritten separately to stay inside the model's output
// budget.
type ReadabilityImprover struct {
	client         ChatClient
	logger         *slog.Logger
	chunkThreshold int
	chunkPause     time.Duration
}

func NewReadabilityImprover(client ChatClient, logger *slog.Logger) *ReadabilityImprover {
	return &ReadabilityImprover{
		client:         client,
		logger:         logger,
		chunkThreshold: 6000,
		chunkPause:     2 * time.Second,
	}
}

// Improve returns the rewritten text. Inputs under the threshold take exactly
// one model call; longer inputs take one call per chunk, joined with blank
// lines.
func (r *ReadabilityImprover) Improve(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	if len(text) <= r.chunkThreshold {
		return completeWithRetry(ctx, r.client, r.logger, readabilitySystemPrompt, text, 0.3, 4096)
	}

	chunks := splitIntoChunks(text, r.chunkThreshold)
	r.logger.Info("Improving readability in chunks", slog.Int("chunks", len(chunks)))

	improved := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := completeWithRetry(ctx, r.client, r.logger, readabilitySystemPrompt, chunk, 0.3, 4096)
		if err != nil {
			return "", err
		}
		improved = append(improved, strings.TrimSpace(out))

		if i < len(chunks)-1 && r.chunkPause > 0 {
			select {
			case <-time.After(r.chunkPause):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return strings.Join(improved, "\n\n"), nil
}

// splitIntoChunks breaks text into pieces no longer than limit, preferring
// paragraph boundaries and falling back to sentence boundaries, then to a
// hard cut for pathological inputs.
func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		if current.Len() > 0 && current.Len()+len(para)+2 > limit {
			flush()
		}
		if len(para) > limit {
			flush()
			chunks = append(chunks, splitLongParagraph(para, limit)...)
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}

func splitLongParagraph(para string, limit int) []string {
	var pieces []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			pieces = append(pieces, s)
		}
		current.Reset()
	}

	for _, sentence := range strings.SplitAfter(para, ". ") {
		if len(sentence) > limit {
			flush()
			for len(sentence) > limit {
				cut := hardCut(sentence, limit)
				pieces = append(pieces, strings.TrimSpace(sentence[:cut]))
				sentence = sentence[cut:]
			}
			if strings.TrimSpace(sentence) != "" {
				current.WriteString(sentence)
			}
			continue
		}
		if current.Len()+len(sentence) > limit {
			flush()
		}
		current.WriteString(sentence)
	}
	flush()

	return pieces
}

// hardCut returns the largest cut position at most limit that does not land
// in the middle of a UTF-8 rune.
func hardCut(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}
