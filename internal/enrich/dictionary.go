package enrich

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
)

// DictionaryTerm maps a term to its replacement.
type DictionaryTerm struct {
	Term        string
	Replacement string
}

// DictionarySource loads replacement terms from storage.
type DictionarySource interface {
	DictionaryTerms(ctx context.Context) ([]DictionaryTerm, error)
}

// DictionaryReplacer applies operator-maintained term replacements to a
// transcript. Matching is whole-word and case-insensitive; longer terms are
// applied first so "ácaro rajado" wins over "ácaro". A store failure degrades
// to returning the input unchanged.
type DictionaryReplacer struct {
	source DictionarySource
	logger *slog.Logger
}

func NewDictionaryReplacer(source DictionarySource, logger *slog.Logger) *DictionaryReplacer {
	return &DictionaryReplacer{source: source, logger: logger}
}

func (d *DictionaryReplacer) Replace(ctx context.Context, text string) string {
	if text == "" {
		return text
	}

	terms, err := d.source.DictionaryTerms(ctx)
	if err != nil {
		d.logger.Warn("Failed to load dictionary terms, skipping replacement",
			slog.String("error", err.Error()),
		)
		return text
	}

	sort.SliceStable(terms, func(i, j int) bool {
		return len(terms[i].Term) > len(terms[j].Term)
	})

	result := text
	for _, t := range terms {
		if t.Term == "" {
			continue
		}
		result = replaceWholeWord(result, t.Term, t.Replacement)
	}
	return result
}

// replaceWholeWord replaces case-insensitive whole-word occurrences of term.
// Word boundaries are letter-based so accented terms match correctly.
func replaceWholeWord(text, term, replacement string) string {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(term))
	if err != nil {
		return text
	}

	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	result := text
	for i := len(matches) - 1; i >= 0; i-- {
		start, end := matches[i][0], matches[i][1]
		if letterAt(result, start, true) || letterAt(result, end, false) {
			continue
		}
		result = result[:start] + replacement + result[end:]
	}
	return result
}
