package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultEmbeddingModelName = "text-embedding-004"
	defaultAnswerModelName    = "gemini-1.5-flash-latest"

	answerSystemInstruction = "You are a medical assistant supporting cancer care patients. " +
		"Answer based only on the guidance excerpts provided in the prompt. " +
		"If the excerpts do not cover the question, say so plainly. " +
		"Keep the answer short, practical, and free of speculation."
)

// LLMService wraps the Gemini client behind the Embedder and Generator
// interfaces the core consumes.
type LLMService struct {
	client *genai.Client
}

func NewLLMService(apiKey string) (*LLMService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{client: client}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		} else {
			log.Println("GenAI client closed.")
		}
	}
}

// Embed returns the embedding vector for the given text.
func (s *LLMService) Embed(text string) ([]float32, error) {
	ctx := context.Background()
	em := s.client.EmbeddingModel(defaultEmbeddingModelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// Generate produces a free-text answer for the given prompt, capped at
// roughly maxLength output tokens.
func (s *LLMService) Generate(prompt string, maxLength int) (string, error) {
	ctx := context.Background()
	model := s.client.GenerativeModel(defaultAnswerModelName)

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(answerSystemInstruction)},
	}

	temp := float32(0.3)
	maxTokens := int32(maxLength)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini answer generation request failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no answer candidates")
	}

	var answerText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			answerText.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}

	if answerText.Len() == 0 {
		return "", fmt.Errorf("gemini returned an empty answer")
	}

	return strings.TrimSpace(answerText.String()), nil
}
