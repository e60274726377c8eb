package core

// Embedder converts free text into a fixed-width numeric vector.
// Deterministic for a fixed model version.
type Embedder interface {
	Embed(text string) ([]float32, error)
}

// Generator produces free text from a prompt. Optional collaborator; the
// deterministic summary path never depends on it.
type Generator interface {
	Generate(prompt string, maxLength int) (string, error)
}

// DocumentStore is the retrieval-facing subset of the persistence layer.
type DocumentStore interface {
	NearestChunks(queryEmbedding []float32, k int) ([]string, error)
}

// HistoryStore persists the question/response audit rows.
type HistoryStore interface {
	RecordQuestion(chatID, question string, embedding []float32) (int64, error)
	RecordResponse(recordID int64, summary string) error
}

// Retriever is the session-facing subset of the retrieval engine.
type Retriever interface {
	Answer(question string) (*RetrievalResult, error)
}
