package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// RoleUser and RoleAssistant identify the speaker of a message.
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// TypeQuestion and TypeResponse tag the message variant.
	TypeQuestion = "question"
	TypeResponse = "response"

	defaultSessionTitle = "New Chat"
	titleMaxRunes       = 30

	responseLeadIn = "Here's what I found:"
)

// Message is one entry in a session's ordered transcript. Question
// messages carry only Content; Response messages additionally carry the
// retrieved chunks, the summary, and the optional generated answer.
type Message struct {
	Role    string   `json:"role"`
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Chunks  []string `json:"chunks,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Answer  string   `json:"answer,omitempty"`
	Partial bool     `json:"partial,omitempty"`
}

// ChatSession is one conversation thread. It lives only in process
// memory; the durable trace is the chat_history rows keyed by its ID.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionManager owns every in-memory chat session and drives the
// submission flow: embed, persist question, retrieve, persist summary,
// append messages. One submission runs to completion before the next is
// accepted; the mutex enforces that.
type SessionManager struct {
	mu        sync.Mutex
	embedder  Embedder
	history   HistoryStore
	retriever Retriever

	sessions map[string]*ChatSession
	order    []string // session ids in creation order
	activeID string
}

func NewSessionManager(embedder Embedder, history HistoryStore, retriever Retriever) *SessionManager {
	return &SessionManager{
		embedder:  embedder,
		history:   history,
		retriever: retriever,
		sessions:  make(map[string]*ChatSession),
	}
}

// CreateSession starts a new empty session and makes it the active one.
func (m *SessionManager) CreateSession() ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := &ChatSession{
		ID:        uuid.NewString(),
		Title:     defaultSessionTitle,
		CreatedAt: time.Now(),
	}
	m.sessions[session.ID] = session
	m.order = append(m.order, session.ID)
	m.activeID = session.ID
	return snapshot(session)
}

// SelectSession marks an existing session as the active one.
func (m *SessionManager) SelectSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	m.activeID = id
	return nil
}

// ActiveSessionID returns the id of the active session, or "" if no
// session has been created or selected yet.
func (m *SessionManager) ActiveSessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// GetSession returns a copy of the session with the given id.
func (m *SessionManager) GetSession(id string) (ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return ChatSession{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return snapshot(session), nil
}

// Sessions returns copies of all sessions in creation order.
func (m *SessionManager) Sessions() []ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ChatSession, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, snapshot(m.sessions[id]))
	}
	return out
}

// Submit runs one question through the full flow against the active
// session: embed, record the question, append it, retrieve, record the
// summary, append the response. A retrieval failure leaves the question
// appended and its history row without a summary; that partial state is
// visible and accepted, not rolled back.
func (m *SessionManager) Submit(question string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeID == "" {
		return nil, ErrNoActiveSession
	}
	return m.submit(m.sessions[m.activeID], question)
}

// SubmitTo runs the same flow against the session with the given id.
// The session is resolved and the submission completed under one lock
// acquisition, so a concurrent selection cannot redirect the question
// into another session. The active selection is left untouched.
func (m *SessionManager) SubmitTo(chatID, question string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[chatID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, chatID)
	}
	return m.submit(session, question)
}

// submit requires m.mu to be held.
func (m *SessionManager) submit(session *ChatSession, question string) (*Message, error) {
	embedding, err := m.embedder.Embed(question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}

	recordID, err := m.history.RecordQuestion(session.ID, question, embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to record question: %w", err)
	}

	if len(session.Messages) == 0 {
		session.Title = deriveTitle(question)
	}
	session.Messages = append(session.Messages, Message{
		Role:    RoleUser,
		Type:    TypeQuestion,
		Content: question,
	})

	result, err := m.retriever.Answer(question)
	if err != nil {
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}

	if err := m.history.RecordResponse(recordID, result.Summary); err != nil {
		return nil, fmt.Errorf("failed to record response summary: %w", err)
	}

	response := Message{
		Role:    RoleAssistant,
		Type:    TypeResponse,
		Content: responseLeadIn,
		Chunks:  result.Chunks,
		Summary: result.Summary,
		Answer:  result.Answer,
		Partial: result.Partial,
	}
	session.Messages = append(session.Messages, response)
	return &response, nil
}

// deriveTitle derives a session title from its first question: long
// questions are cut to the first 30 runes with an ellipsis, short ones
// are used verbatim.
func deriveTitle(question string) string {
	runes := []rune(question)
	if len(runes) > titleMaxRunes {
		return "Chat: " + string(runes[:titleMaxRunes]) + "..."
	}
	return question
}

func snapshot(s *ChatSession) ChatSession {
	copied := *s
	copied.Messages = make([]Message, len(s.Messages))
	copy(copied.Messages, s.Messages)
	return copied
}
