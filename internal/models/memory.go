package models

import "time"

// Sentiment - эмоциональная окраска воспоминания
type Sentiment string

const (
	SentimentVeryPositive Sentiment = "very_positive"
	SentimentPositive     Sentiment = "positive"
	SentimentNeutral      Sentiment = "neutral"
	SentimentNegative     Sentiment = "negative"
	SentimentVeryNegative Sentiment = "very_negative"
)

// Valid сообщает, является ли значение известным
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentVeryPositive, SentimentPositive, SentimentNeutral, SentimentNegative, SentimentVeryNegative:
		return true
	}
	return false
}

// MemoryAccessLevel - видимость воспоминания внутри хранилища
type MemoryAccessLevel string

const (
	MemoryPublic  MemoryAccessLevel = "public"
	MemoryFamily  MemoryAccessLevel = "family"
	MemoryPrivate MemoryAccessLevel = "private"
)

// AgeContext - возрастной контекст воспоминания
type AgeContext struct {
	AgeRange   string `json:"age_range,omitempty"`
	LifeStage  string `json:"life_stage,omitempty"`
	SubjectAge int    `json:"subject_age,omitempty"`
}

// EmotionalContext - эмоциональная аннотация
type EmotionalContext struct {
	Sentiment  Sentiment  `json:"sentiment"`
	Emotions   []string   `json:"emotions,omitempty"`
	AgeContext AgeContext `json:"age_context"`
	Intensity  float64    `json:"intensity"` // 0..1
}

// SearchMetadata - извлеченные атрибуты для поиска
type SearchMetadata struct {
	Keywords       []string `json:"keywords,omitempty"`
	People         []string `json:"people,omitempty"`
	Places         []string `json:"places,omitempty"`
	Events         []string `json:"events,omitempty"`
	TimeReferences []string `json:"time_references,omitempty"`
}

// VaultMemoryAssociation - связь хранилища с элементом контента
type VaultMemoryAssociation struct {
	AddedAt     time.Time         `json:"added_at"`
	ID          string            `json:"id"`
	VaultID     string            `json:"vault_id"`
	MemoryID    string            `json:"memory_id"`
	AddedBy     string            `json:"added_by"`
	AccessLevel MemoryAccessLevel `json:"access_level"`
	Emotional   EmotionalContext  `json:"emotional_context"`
	Search      SearchMetadata    `json:"search_metadata"`
	Size        int64             `json:"size"`
	Visible     bool              `json:"is_visible"`
}
