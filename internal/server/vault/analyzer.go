package vault

import (
	"context"
	"strings"
	"unicode"

	"github.com/iudanet/legacyvault/internal/models"
)

// Analyzer аннотирует воспоминание эмоциональным контекстом и поисковыми атрибутами.
// Реальная реализация - внешний сервис анализа.
type Analyzer interface {
	Analyze(ctx context.Context, memoryID string) (*models.EmotionalContext, *models.SearchMetadata, error)
}

// QueryParser разбирает свободный текст поискового запроса в структурные фильтры
type QueryParser interface {
	Parse(ctx context.Context, text string) (SearchQuery, error)
}

// NeutralAnalyzer возвращает нейтральную аннотацию без поисковых атрибутов
type NeutralAnalyzer struct{}

// Analyze implements Analyzer
func (NeutralAnalyzer) Analyze(_ context.Context, _ string) (*models.EmotionalContext, *models.SearchMetadata, error) {
	return &models.EmotionalContext{Sentiment: models.SentimentNeutral, Intensity: 0.5}, &models.SearchMetadata{}, nil
}

// KeywordParser превращает текст в набор ключевых слов
type KeywordParser struct{}

// Parse implements QueryParser
func (KeywordParser) Parse(_ context.Context, text string) (SearchQuery, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var q SearchQuery
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len([]rune(w)) < 3 {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		q.Keywords = append(q.Keywords, w)
	}
	return q, nil
}
