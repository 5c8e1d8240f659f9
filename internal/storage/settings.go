package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Ecenturetech/ScriptTranscipt/internal/enrich"
	"github.com/Ecenturetech/ScriptTranscipt/shared/postgresql"
)

// SettingsStore loads the operator prompt templates. The settings table
// holds a single row with id 1.
type SettingsStore struct {
	db *sqlx.DB
}

func NewSettingsStore(pg *postgresql.Client) *SettingsStore {
	return &SettingsStore{db: pg.GetDB()}
}

func (s *SettingsStore) Prompts(ctx context.Context) (enrich.Prompts, error) {
	var row struct {
		TranscriptPrompt sql.NullString `db:"transcript_prompt"`
		QAPrompt         sql.NullString `db:"qa_prompt"`
		AdditionalPrompt sql.NullString `db:"additional_prompt"`
	}
	query := `SELECT transcript_prompt, qa_prompt, additional_prompt FROM settings WHERE id = 1`

	if err := s.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrich.Prompts{}, errors.New("prompt settings not found in database")
		}
		return enrich.Prompts{}, fmt.Errorf("failed to load prompt settings: %w", err)
	}

	return enrich.Prompts{
		Transcript: row.TranscriptPrompt.String,
		QA:         row.QAPrompt.String,
		Additional: row.AdditionalPrompt.String,
	}, nil
}

// DictionaryStore loads replacement terms, longest first so multi-word terms
// win over their substrings.
type DictionaryStore struct {
	db *sqlx.DB
}

func NewDictionaryStore(pg *postgresql.Client) *DictionaryStore {
	return &DictionaryStore{db: pg.GetDB()}
}

func (s *DictionaryStore) DictionaryTerms(ctx context.Context) ([]enrich.DictionaryTerm, error) {
	var rows []struct {
		Term        string `db:"term"`
		Replacement string `db:"replacement"`
	}
	query := `
		SELECT term, replacement
		FROM dictionary_terms
		WHERE term IS NOT NULL AND term != ''
		ORDER BY LENGTH(term) DESC
	`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load dictionary terms: %w", err)
	}

	terms := make([]enrich.DictionaryTerm, 0, len(rows))
	for _, row := range rows {
		terms = append(terms, enrich.DictionaryTerm{Term: row.Term, Replacement: row.Replacement})
	}
	return terms, nil
}

// CatalogStore loads the product catalog rows backing catalog correction.
type CatalogStore struct {
	db *sqlx.DB
}

func NewCatalogStore(pg *postgresql.Client) *CatalogStore {
	return &CatalogStore{db: pg.GetDB()}
}

func (s *CatalogStore) CatalogRows(ctx context.Context) ([]enrich.CatalogRow, error) {
	var rows []struct {
		Product  sql.NullString `db:"nome_produto"`
		Cultures sql.NullString `db:"culturas_registradas"`
		Diseases sql.NullString `db:"doencas_pragas_plantas_daninhas_controladas"`
		Dose     sql.NullString `db:"dose_recomendada"`
		Volume   sql.NullString `db:"volume_calda"`
		Class    sql.NullString `db:"classe"`
		Company  sql.NullString `db:"empresa"`
		Country  sql.NullString `db:"pais"`
	}
	query := `
		SELECT nome_produto, culturas_registradas, doencas_pragas_plantas_daninhas_controladas,
		       dose_recomendada, volume_calda, classe, empresa, pais
		FROM catalogo_produto
		WHERE (nome_produto IS NOT NULL AND nome_produto != '')
		  AND (dose_recomendada IS NOT NULL OR volume_calda IS NOT NULL)
	`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load product catalog: %w", err)
	}

	result := make([]enrich.CatalogRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, enrich.CatalogRow{
			Product:  row.Product.String,
			Cultures: row.Cultures.String,
			Diseases: row.Diseases.String,
			Dose:     row.Dose.String,
			Volume:   row.Volume.String,
			Class:    row.Class.String,
			Company:  row.Company.String,
			Country:  row.Country.String,
		})
	}
	return result, nil
}
