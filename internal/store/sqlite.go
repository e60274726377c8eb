package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"carechat/internal/utils"
)

// SQLiteStore persists the guidance chunks and the chat history audit
// rows. The embedding dimension is fixed per deployment and every vector
// that enters the store is validated against it.
type SQLiteStore struct {
	db        *sql.DB
	dimension int
}

func NewSQLiteStore(dataSourceName string, dimension int) (*SQLiteStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension: %d", dimension)
	}
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: failed to ping database: %v", ErrStoreUnavailable, err)
	}

	store := &SQLiteStore{db: db, dimension: dimension}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Dimension returns the embedding width the store was configured with.
func (s *SQLiteStore) Dimension() int {
	return s.dimension
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS document_chunks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        content TEXT NOT NULL,
        embedding TEXT NOT NULL -- JSON array of float32, fixed width per deployment
    );

    CREATE TABLE IF NOT EXISTS chat_history (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        chat_id TEXT NOT NULL,
        question TEXT NOT NULL,
        question_embedding TEXT NOT NULL,
        response_summary TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// CountChunks reports how many guidance chunks have been seeded.
func (s *SQLiteStore) CountChunks() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM document_chunks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count document chunks: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// SeedChunks bootstraps the guidance corpus. It is a one-time load, not a
// merge: if the store already holds any chunks the call is a no-op. The
// whole seed runs in a single transaction, so an embedding failure or a
// dimension mismatch leaves nothing behind.
func (s *SQLiteStore) SeedChunks(documents []string, embedder func(string) ([]float32, error)) (int, error) {
	count, err := s.CountChunks()
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Printf("Document store already holds %d chunks, skipping seed.", count)
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin seed transaction: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO document_chunks (content, embedding) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("%w: failed to prepare chunk insert: %v", ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	inserted := 0
	for i, doc := range documents {
		embedding, err := embedder(doc)
		if err != nil {
			return 0, fmt.Errorf("failed to embed seed chunk %d (%.50q): %w", i+1, doc, err)
		}
		if len(embedding) != s.dimension {
			return 0, fmt.Errorf("%w: seed chunk %d has dimension %d, want %d", ErrDimensionMismatch, i+1, len(embedding), s.dimension)
		}
		embeddingJSON, err := json.Marshal(embedding)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal embedding for seed chunk %d: %w", i+1, err)
		}
		if _, err := stmt.Exec(doc, string(embeddingJSON)); err != nil {
			return 0, fmt.Errorf("%w: failed to insert seed chunk %d: %v", ErrStoreUnavailable, i+1, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: failed to commit seed transaction: %v", ErrStoreUnavailable, err)
	}
	log.Printf("Seeded %d guidance chunks.", inserted)
	return inserted, nil
}

type scoredChunk struct {
	content  string
	distance float32
}

// NearestChunks returns the content of the k chunks closest to the query
// embedding under cosine distance, ascending. Ties keep insertion order
// (lowest id first). Fewer than k results come back only when the store
// holds fewer than k chunks.
func (s *SQLiteStore) NearestChunks(queryEmbedding []float32, k int) ([]string, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}
	if len(queryEmbedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d", ErrDimensionMismatch, len(queryEmbedding), s.dimension)
	}

	rows, err := s.db.Query("SELECT id, content, embedding FROM document_chunks ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query document chunks: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var scored []scoredChunk
	for rows.Next() {
		var chunk Chunk
		if err := rows.Scan(&chunk.ID, &chunk.Content, &chunk.EmbeddingJSON); err != nil {
			return nil, fmt.Errorf("%w: failed to scan chunk row: %v", ErrStoreUnavailable, err)
		}
		if err := json.Unmarshal([]byte(chunk.EmbeddingJSON), &chunk.Embedding); err != nil {
			return nil, fmt.Errorf("%w: failed to unmarshal embedding for chunk %d: %v", ErrStoreUnavailable, chunk.ID, err)
		}
		// A stored vector whose width disagrees with the configured
		// dimension means the store was seeded under another model
		// configuration; surface that instead of silently returning
		// fewer (or zero) chunks.
		if len(chunk.Embedding) != s.dimension {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, want %d", ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), s.dimension)
		}
		distance, err := utils.CosineDistance(queryEmbedding, chunk.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to score chunk %d: %w", chunk.ID, err)
		}
		scored = append(scored, scoredChunk{content: chunk.Content, distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate chunk rows: %v", ErrStoreUnavailable, err)
	}

	// Stable sort keeps the id-ascending scan order among equal distances.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].distance < scored[j].distance
	})

	if k > len(scored) {
		k = len(scored)
	}
	contents := make([]string, 0, k)
	for i := 0; i < k; i++ {
		contents = append(contents, scored[i].content)
	}
	return contents, nil
}

// RecordQuestion inserts a chat_history row with no response summary yet
// and returns its id.
func (s *SQLiteStore) RecordQuestion(chatID, question string, embedding []float32) (int64, error) {
	if len(embedding) != s.dimension {
		return 0, fmt.Errorf("%w: question has dimension %d, want %d", ErrDimensionMismatch, len(embedding), s.dimension)
	}
	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal question embedding: %w", err)
	}

	stmt, err := s.db.Prepare("INSERT INTO chat_history (chat_id, question, question_embedding) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("%w: failed to prepare history insert: %v", ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(chatID, question, string(embeddingJSON))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to execute history insert: %v", ErrStoreUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read history record id: %v", ErrStoreUnavailable, err)
	}
	return id, nil
}

// RecordResponse sets the response summary on an existing history record.
func (s *SQLiteStore) RecordResponse(recordID int64, summary string) error {
	stmt, err := s.db.Prepare("UPDATE chat_history SET response_summary = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%w: failed to prepare summary update: %v", ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(summary, recordID)
	if err != nil {
		return fmt.Errorf("%w: failed to execute summary update: %v", ErrStoreUnavailable, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrRecordNotFound, recordID)
	}
	return nil
}

// GetHistoryRecord reads one audit row back. Used by tests and debugging;
// the submission flow itself only writes.
func (s *SQLiteStore) GetHistoryRecord(recordID int64) (*HistoryRecord, error) {
	var rec HistoryRecord
	var summary sql.NullString
	err := s.db.QueryRow(
		"SELECT id, chat_id, question, response_summary, created_at FROM chat_history WHERE id = ?",
		recordID,
	).Scan(&rec.ID, &rec.ChatID, &rec.Question, &summary, &rec.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, recordID)
		}
		return nil, fmt.Errorf("%w: failed to get history record: %v", ErrStoreUnavailable, err)
	}
	if summary.Valid {
		rec.ResponseSummary = &summary.String
	}
	return &rec, nil
}
