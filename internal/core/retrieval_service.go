package core

import (
	"fmt"
	"log"
	"strings"
)

const (
	// DefaultTopN is the number of guidance chunks retrieved per question.
	DefaultTopN = 3

	maxAnswerLength = 200

	answerPromptTemplate = "A patient asked the following cancer care question:\n\n" +
		"Question: %s\n\n" +
		"These are the most relevant guidance excerpts:\n%s\n\n" +
		"Write a clear, helpful answer that combines these recommendations."
)

// RetrievalResult is the outcome of answering one question. Chunks and
// Summary are always present on success; Answer is filled only when a
// generator is configured and succeeded. Partial marks a degraded result
// where generation failed but the deterministic summary survived.
type RetrievalResult struct {
	Chunks  []string `json:"chunks"`
	Summary string   `json:"summary"`
	Answer  string   `json:"answer,omitempty"`
	Partial bool     `json:"partial,omitempty"`
}

// RetrievalService answers questions by embedding them, ranking the
// stored guidance chunks by cosine distance, and reformatting the top
// matches into a bullet summary.
type RetrievalService struct {
	embedder  Embedder
	docStore  DocumentStore
	generator Generator // nil disables answer generation
	topN      int
}

// NewRetrievalService wires the retrieval engine. Pass a nil generator to
// run in deterministic-summary-only mode.
func NewRetrievalService(embedder Embedder, docStore DocumentStore, generator Generator, topN int) *RetrievalService {
	if topN < 1 {
		topN = DefaultTopN
	}
	return &RetrievalService{
		embedder:  embedder,
		docStore:  docStore,
		generator: generator,
		topN:      topN,
	}
}

// Answer retrieves the guidance chunks most similar to the question and
// builds the summary. When a generator is configured it is invoked
// best-effort: a generation failure is logged and surfaced via Partial,
// never as an error.
func (s *RetrievalService) Answer(question string) (*RetrievalResult, error) {
	embedding, err := s.embedder.Embed(question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}

	chunks, err := s.docStore.NearestChunks(embedding, s.topN)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve guidance chunks: %w", err)
	}

	result := &RetrievalResult{
		Chunks:  chunks,
		Summary: buildSummary(chunks),
	}

	if s.generator != nil {
		prompt := fmt.Sprintf(answerPromptTemplate, question, result.Summary)
		answer, err := s.generator.Generate(prompt, maxAnswerLength)
		if err != nil {
			log.Printf("Answer generation failed, returning summary only: %v", err)
			result.Partial = true
		} else {
			result.Answer = answer
		}
	}

	return result, nil
}

// buildSummary reformats retrieved chunks into one bullet line each,
// trailing periods normalized to exactly one. Chunk order is preserved.
func buildSummary(chunks []string) string {
	lines := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		lines = append(lines, "- "+strings.TrimRight(chunk, ".")+".")
	}
	return strings.Join(lines, "\n")
}
