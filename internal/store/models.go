package store

import "time"

// Chunk is one unit of seeded guidance text plus its embedding vector.
// Chunks are written once at seed time and never modified.
type Chunk struct {
	ID            int64     `json:"id"`
	Content       string    `json:"content"`
	Embedding     []float32 `json:"-"` // Don't marshal to JSON response, internal
	EmbeddingJSON string    `json:"-"` // Store as JSON string for DB
}

// HistoryRecord is the durable audit row for one question/response pair.
// ResponseSummary stays nil until the retrieval answer is recorded; a row
// with a nil summary marks a submission that never completed.
type HistoryRecord struct {
	ID              int64     `json:"id"`
	ChatID          string    `json:"chat_id"`
	Question        string    `json:"question"`
	ResponseSummary *string   `json:"response_summary"` // Nullable
	CreatedAt       time.Time `json:"created_at"`
}
