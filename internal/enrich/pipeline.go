package enrich

import (
	"context"
	"errors"
	"log/slog"
)

// Stage names as reported in Outcome.Degraded.
const (
	StageReadability = "readability"
	StageSummary     = "structured_summary"
	StageQA          = "questions_answers"
	StageMetadata    = "metadata"
)

// StageResult is one stage's output. Degraded means the stage failed and its
// Text is a pass-through or fallback rather than real output.
type StageResult struct {
	Text     string
	Degraded bool
	Reason   string
}

// Outcome is the pipeline's best-effort product. Degraded lists the stages
// that failed; a job can complete with partial enrichment as long as no
// configuration error occurred.
type Outcome struct {
	CorrectedText     string
	StructuredSummary string
	QuestionsAnswers  string
	Metadata          string
	Degraded          []string
}

// Pipeline runs the enrichment stages in fixed order: catalog correction,
// dictionary replacement, readability, structured summary, Q&A and (for
// document jobs) metadata. The two deterministic stages degrade internally;
// the LLM stages are caught here so one failing stage never takes down its
// siblings. Only a ConfigError (missing operator template) aborts the run.
type Pipeline struct {
	catalog     *CatalogCorrector
	dictionary  *DictionaryReplacer
	readability *ReadabilityImprover
	summarizer  *StructuredSummarizer
	qa          *QAGenerator
	metadata    *MetadataGenerator
	logger      *slog.Logger
}

func NewPipeline(
	catalog *CatalogCorrector,
	dictionary *DictionaryReplacer,
	readability *ReadabilityImprover,
	summarizer *StructuredSummarizer,
	qa *QAGenerator,
	metadata *MetadataGenerator,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		catalog:     catalog,
		dictionary:  dictionary,
		readability: readability,
		summarizer:  summarizer,
		qa:          qa,
		metadata:    metadata,
		logger:      logger,
	}
}

// Run enriches text. withMetadata enables the document-oriented metadata
// stage. The returned error is non-nil only for configuration problems; all
// other stage failures are recorded in Outcome.Degraded.
func (p *Pipeline) Run(ctx context.Context, text, docName string, withMetadata bool) (Outcome, error) {
	var out Outcome

	degrade := func(stage, reason string) {
		p.logger.Warn("Enrichment stage degraded",
			slog.String("stage", stage),
			slog.String("reason", reason),
		)
		out.Degraded = append(out.Degraded, stage)
	}

	corrected := p.catalog.Correct(ctx, text)
	corrected = p.dictionary.Replace(ctx, corrected)

	improved, err := p.readability.Improve(ctx, corrected)
	if err != nil {
		degrade(StageReadability, err.Error())
	} else {
		corrected = improved
	}
	out.CorrectedText = corrected

	summary, err := p.summarizer.Summarize(ctx, corrected)
	switch {
	case isConfigError(err):
		return out, err
	case err != nil:
		degrade(StageSummary, err.Error())
	default:
		out.StructuredSummary = p.dictionary.Replace(ctx, summary)
	}

	answers, err := p.qa.Generate(ctx, corrected)
	switch {
	case isConfigError(err):
		return out, err
	case err != nil:
		degrade(StageQA, err.Error())
	default:
		out.QuestionsAnswers = p.dictionary.Replace(ctx, answers)
	}

	if withMetadata {
		metadata, fallback := p.metadata.Generate(ctx, corrected, docName)
		out.Metadata = p.dictionary.Replace(ctx, metadata)
		if fallback {
			degrade(StageMetadata, "fallback metadata record")
		}
	}

	return out, nil
}

func isConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}
