package vault

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/iudanet/legacyvault/internal/models"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// SearchQuery - структурные фильтры поиска по воспоминаниям хранилища.
// Пустой фильтр не ограничивает выборку.
type SearchQuery struct {
	From         *time.Time         `json:"from,omitempty"`
	To           *time.Time         `json:"to,omitempty"`
	Text         string             `json:"text,omitempty"` // свободный текст, разбирается QueryParser
	AgeRange     string             `json:"age_range,omitempty"`
	Sentiments   []models.Sentiment `json:"sentiments,omitempty"`
	Emotions     []string           `json:"emotions,omitempty"`
	People       []string           `json:"people,omitempty"`
	Keywords     []string           `json:"keywords,omitempty"`
	MinIntensity float64            `json:"min_intensity,omitempty"`
	Limit        int                `json:"limit,omitempty"`
}

// merge дополняет фильтры результатом разбора свободного текста
func (q SearchQuery) merge(parsed SearchQuery) SearchQuery {
	q.Sentiments = append(q.Sentiments, parsed.Sentiments...)
	q.Emotions = append(q.Emotions, parsed.Emotions...)
	q.People = append(q.People, parsed.People...)
	q.Keywords = append(q.Keywords, parsed.Keywords...)
	if q.AgeRange == "" {
		q.AgeRange = parsed.AgeRange
	}
	if q.From == nil {
		q.From = parsed.From
	}
	if q.To == nil {
		q.To = parsed.To
	}
	q.MinIntensity = max(q.MinIntensity, parsed.MinIntensity)
	return q
}

func (q SearchQuery) limit() int {
	switch {
	case q.Limit <= 0:
		return defaultSearchLimit
	case q.Limit > maxSearchLimit:
		return maxSearchLimit
	default:
		return q.Limit
	}
}

func (q SearchQuery) matches(m *models.VaultMemoryAssociation) bool {
	e := m.Emotional
	if len(q.Sentiments) > 0 && !slices.Contains(q.Sentiments, e.Sentiment) {
		return false
	}
	if len(q.Emotions) > 0 && !overlaps(q.Emotions, e.Emotions) {
		return false
	}
	if q.AgeRange != "" && !strings.EqualFold(q.AgeRange, e.AgeContext.AgeRange) {
		return false
	}
	if e.Intensity < q.MinIntensity {
		return false
	}
	if len(q.People) > 0 && !overlaps(q.People, m.Search.People) {
		return false
	}
	if len(q.Keywords) > 0 && !overlaps(q.Keywords, searchTerms(m)) {
		return false
	}
	if q.From != nil && m.AddedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && m.AddedAt.After(*q.To) {
		return false
	}
	return true
}

// searchTerms - все текстовые атрибуты, по которым ищут ключевые слова
func searchTerms(m *models.VaultMemoryAssociation) []string {
	s := m.Search
	terms := make([]string, 0, len(s.Keywords)+len(s.People)+len(s.Places)+len(s.Events)+len(s.TimeReferences)+len(m.Emotional.Emotions))
	terms = append(terms, s.Keywords...)
	terms = append(terms, s.People...)
	terms = append(terms, s.Places...)
	terms = append(terms, s.Events...)
	terms = append(terms, s.TimeReferences...)
	return append(terms, m.Emotional.Emotions...)
}

func overlaps(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

// rank сортирует по интенсивности, затем по дате добавления (новые первыми)
func rank(items []*models.VaultMemoryAssociation) {
	slices.SortStableFunc(items, func(a, b *models.VaultMemoryAssociation) int {
		if c := cmp.Compare(b.Emotional.Intensity, a.Emotional.Intensity); c != 0 {
			return c
		}
		return b.AddedAt.Compare(a.AddedAt)
	})
}
