package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const metadataInputLimit = 50000

const metadataSystemPrompt = "Você é um especialista em extração de metadados de documentos agronômicos. Você deve seguir estritamente o formato especificado e extrair informações precisas do documento."

// MetadataGenerator extracts document metadata in the ELY reference format.
// Generation is strictly best effort: on any failure (including the hard
// timeout) it returns a minimal fallback record carrying the error in the
// abstract so the stored document always has a metadata block.
type MetadataGenerator struct {
	client  ChatClient
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewMetadataGenerator(client ChatClient, logger *slog.Logger) *MetadataGenerator {
	return &MetadataGenerator{
		client:  client,
		logger:  logger,
		timeout: 60 * time.Second,
		now:     time.Now,
	}
}

// Generate returns the metadata block and whether it is the fallback record.
func (m *MetadataGenerator) Generate(ctx context.Context, text, fileName string) (string, bool) {
	today := m.now()
	validFrom := today.Format("2006-01-02")
	validTo := today.AddDate(1, 0, 0).Format("2006-01-02")

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	prompt := buildMetadataPrompt(truncate(text, metadataInputLimit), fileName, validFrom, validTo)

	result, err := completeWithRetry(ctx, m.client, m.logger, metadataSystemPrompt, prompt, 0.1, 4096)
	if err == nil && strings.TrimSpace(result) != "" {
		return strings.TrimSpace(result), false
	}

	reason := "o modelo não retornou metadados"
	if err != nil {
		reason = err.Error()
	}
	m.logger.Warn("Metadata extraction failed, using fallback record",
		slog.String("file", fileName),
		slog.String("error", reason),
	)
	return fallbackMetadata(fileName, validFrom, validTo, reason), true
}

func buildMetadataPrompt(text, fileName, validFrom, validTo string) string {
	return fmt.Sprintf(`Você é um especialista em extração de metadados de documentos agronômicos. Extraia os metadados do documento seguindo EXATAMENTE o formato ELY Document especificado abaixo.

Siga estas regras de lógica de organização para classificar o documento:
1. Identificação de Origem: O 'country' deve ser sempre o código ISO do país (ex: BR).
2. Hierarquia de Autoridade (doc_type):
   - 'product_label': Prioridade máxima. Documentos legais, bulas.
   - 'localized_guidance': Recomendações técnicas regionais/locais.
   - 'product_performance_results': Resultados de ensaios/testes.
   - 'marketing_material': Materiais de venda/divulgação.
   - 'agronomy_best_practices': Guias gerais de melhores práticas.
3. Nível de Detalhe (specificity):
   - 'subnational_specific': Focado em regiões específicas (estados, zonas).
   - 'country_specific': Aplicável a todo o país.
   - 'global': Sem restrição geográfica específica.

📄 ELY Document – Brazil

Document Title: [apresente o título do material, na mesma língua do arquivo]

Version: v1.0

Date: [apresente a data de criação do arquivo, no formato YYYY-MM-DD. Se não encontrar, use a data atual: %[1]s]

Author: [apresente o nome do autor ou autores do arquivo. Se não encontrar, deixe vazio]

________________________________________

🔗 ELY Metadata Reference (ISO-compliant / Schema key format)

• country: Brazil (BR)
• subnational_codes: [Se specificity for 'subnational_specific', liste os códigos ISO das regiões (ex: BR-PR, BR-RS). Se for nacional ('country_specific'), use "BR".]
• specificity: [Use 'subnational_specific' se focar em regiões específicas. Use 'country_specific' se for nacional. Use 'global' se não houver restrição.]
• doc_type: [Classifique conforme a hierarquia: 'product_label', 'localized_guidance', 'product_performance_results', 'marketing_material', 'agronomy_best_practices', 'product_catalog', 'research_paper'.]
• purpose: [apresente em português. Descreva o propósito técnico do documento, traduzindo na íntegra se necessário.]
• language: pt
• crop: [apresente a cultura, em inglês e o nome científico da cultura entre parênteses. Exemplo: "acerola (Malpighia emarginata)". Se não houver cultura específica, deixe vazio]
• valid_from: %[1]s
• valid_to: %[2]s

Abstract
[apresente um resumo do documento em português, descrevendo o conteúdo principal, objetivos, público-alvo e principais recomendações técnicas/práticas mencionadas]

IMPORTANTE:
- Título, autores, purpose e abstract devem estar em PORTUGUÊS
- Os demais campos devem estar em INGLÊS (incluindo doc_type, crop, specificity)
- Siga EXATAMENTE o formato acima, incluindo os separadores e formatação
- Se algum campo não puder ser determinado, deixe vazio mas mantenha o formato
- Se o documento for uma bula ou documento legal, doc_type DEVE ser 'product_label'

Texto do documento:
"""
%[3]s
"""

Nome do arquivo original: %[4]s

Gere agora os metadados no formato especificado:`, validFrom, validTo, text, fileName)
}

func fallbackMetadata(fileName, validFrom, validTo, reason string) string {
	return fmt.Sprintf(`📄 ELY Document – Brazil

Document Title: %s

Version: v1.0

Date: %s

Author:

________________________________________

🔗 ELY Metadata Reference (ISO-compliant / Schema key format)

• country: Brazil (BR)
• subnational_codes: BR
• specificity: country_specific
• doc_type:
• purpose:
• language: pt
• crop:
• valid_from: %s
• valid_to: %s

Abstract
Não foi possível gerar os metadados automaticamente: %s`, fileName, validFrom, validFrom, validTo, reason)
}
