package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedQuestion struct {
	chatID   string
	question string
}

type fakeHistory struct {
	questions   []recordedQuestion
	responses   map[int64]string
	questionErr error
	responseErr error
	nextID      int64
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{responses: make(map[int64]string)}
}

func (f *fakeHistory) RecordQuestion(chatID, question string, embedding []float32) (int64, error) {
	if f.questionErr != nil {
		return 0, f.questionErr
	}
	f.nextID++
	f.questions = append(f.questions, recordedQuestion{chatID: chatID, question: question})
	return f.nextID, nil
}

func (f *fakeHistory) RecordResponse(recordID int64, summary string) error {
	if f.responseErr != nil {
		return f.responseErr
	}
	f.responses[recordID] = summary
	return nil
}

type fakeRetriever struct {
	result *RetrievalResult
	err    error
}

func (f *fakeRetriever) Answer(question string) (*RetrievalResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestManager(history *fakeHistory, retriever *fakeRetriever) *SessionManager {
	return NewSessionManager(&fakeEmbedder{vector: []float32{1, 0, 0}}, history, retriever)
}

func okRetriever() *fakeRetriever {
	return &fakeRetriever{result: &RetrievalResult{
		Chunks:  []string{"Drink water", "Eat small meals."},
		Summary: "- Drink water.\n- Eat small meals.",
	}}
}

func TestSessionLifecycle(t *testing.T) {
	t.Run("create makes an empty active session", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		session := m.CreateSession()

		assert.NotEmpty(t, session.ID)
		assert.Equal(t, "New Chat", session.Title)
		assert.Empty(t, session.Messages)
		assert.Equal(t, session.ID, m.ActiveSessionID())
	})

	t.Run("create never reuses ids", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		a := m.CreateSession()
		b := m.CreateSession()
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("select switches the active session", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		a := m.CreateSession()
		b := m.CreateSession()
		require.Equal(t, b.ID, m.ActiveSessionID())

		require.NoError(t, m.SelectSession(a.ID))
		assert.Equal(t, a.ID, m.ActiveSessionID())
	})

	t.Run("select unknown id fails", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		m.CreateSession()
		err := m.SelectSession("no-such-session")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("sessions come back in creation order", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		a := m.CreateSession()
		b := m.CreateSession()
		c := m.CreateSession()

		sessions := m.Sessions()
		require.Len(t, sessions, 3)
		assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{sessions[0].ID, sessions[1].ID, sessions[2].ID})
	})

	t.Run("get unknown session fails", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		_, err := m.GetSession("nope")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestSubmit(t *testing.T) {
	t.Run("requires an active session", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		_, err := m.Submit("Hi")
		assert.ErrorIs(t, err, ErrNoActiveSession)
	})

	t.Run("appends question then response and persists both", func(t *testing.T) {
		history := newFakeHistory()
		m := newTestManager(history, okRetriever())
		created := m.CreateSession()

		response, err := m.Submit("What foods help with nausea?")
		require.NoError(t, err)
		assert.Equal(t, RoleAssistant, response.Role)
		assert.Equal(t, TypeResponse, response.Type)
		assert.Equal(t, "- Drink water.\n- Eat small meals.", response.Summary)

		session, err := m.GetSession(created.ID)
		require.NoError(t, err)
		require.Len(t, session.Messages, 2)
		assert.Equal(t, TypeQuestion, session.Messages[0].Type)
		assert.Equal(t, "What foods help with nausea?", session.Messages[0].Content)
		assert.Equal(t, TypeResponse, session.Messages[1].Type)

		require.Len(t, history.questions, 1)
		assert.Equal(t, created.ID, history.questions[0].chatID)
		assert.Equal(t, "- Drink water.\n- Eat small meals.", history.responses[1])
	})

	t.Run("long first question derives a truncated title", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		created := m.CreateSession()

		_, err := m.Submit("What foods should I eat during chemo and how often?")
		require.NoError(t, err)

		session, err := m.GetSession(created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Chat: What foods should I eat during...", session.Title)
	})

	t.Run("short first question becomes the title verbatim", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		created := m.CreateSession()

		_, err := m.Submit("Hi")
		require.NoError(t, err)

		session, err := m.GetSession(created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hi", session.Title)
	})

	t.Run("title is set only by the first question", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		created := m.CreateSession()

		_, err := m.Submit("Hi")
		require.NoError(t, err)
		_, err = m.Submit("A much longer follow-up question about treatment schedules")
		require.NoError(t, err)

		session, err := m.GetSession(created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hi", session.Title)
	})

	t.Run("embedding failure aborts before any write", func(t *testing.T) {
		history := newFakeHistory()
		m := NewSessionManager(&fakeEmbedder{err: errors.New("offline")}, history, okRetriever())
		created := m.CreateSession()

		_, err := m.Submit("Hi")
		require.ErrorIs(t, err, ErrEmbeddingFailure)

		session, err := m.GetSession(created.ID)
		require.NoError(t, err)
		assert.Empty(t, session.Messages)
		assert.Empty(t, history.questions)
	})

	t.Run("retrieval failure leaves only the question appended", func(t *testing.T) {
		history := newFakeHistory()
		retrievalErr := errors.New("store unavailable")
		m := newTestManager(history, &fakeRetriever{err: retrievalErr})
		created := m.CreateSession()

		_, err := m.Submit("Hi")
		require.ErrorIs(t, err, retrievalErr)

		session, err := m.GetSession(created.ID)
		require.NoError(t, err)
		require.Len(t, session.Messages, 1)
		assert.Equal(t, TypeQuestion, session.Messages[0].Type)

		// The question row exists, its summary never arrives.
		require.Len(t, history.questions, 1)
		assert.Empty(t, history.responses)
	})

	t.Run("record response failure propagates without appending", func(t *testing.T) {
		history := newFakeHistory()
		history.responseErr = errors.New("store unavailable")
		m := newTestManager(history, okRetriever())
		created := m.CreateSession()

		_, err := m.Submit("Hi")
		require.Error(t, err)

		session, err := m.GetSession(created.ID)
		require.NoError(t, err)
		require.Len(t, session.Messages, 1)
		assert.Equal(t, TypeQuestion, session.Messages[0].Type)
	})

	t.Run("submissions land in the selected session only", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		a := m.CreateSession()
		b := m.CreateSession()

		require.NoError(t, m.SelectSession(a.ID))
		_, err := m.Submit("question for a")
		require.NoError(t, err)

		sessA, err := m.GetSession(a.ID)
		require.NoError(t, err)
		sessB, err := m.GetSession(b.ID)
		require.NoError(t, err)
		assert.Len(t, sessA.Messages, 2)
		assert.Empty(t, sessB.Messages)
	})

	t.Run("submit to a chat ignores a later selection change", func(t *testing.T) {
		history := newFakeHistory()
		m := newTestManager(history, okRetriever())
		a := m.CreateSession()
		b := m.CreateSession()

		// Another request switches the selection between resolving
		// chat a and submitting to it.
		require.NoError(t, m.SelectSession(a.ID))
		require.NoError(t, m.SelectSession(b.ID))

		_, err := m.SubmitTo(a.ID, "question meant for chat A")
		require.NoError(t, err)

		sessA, err := m.GetSession(a.ID)
		require.NoError(t, err)
		sessB, err := m.GetSession(b.ID)
		require.NoError(t, err)
		require.Len(t, sessA.Messages, 2)
		assert.Equal(t, "question meant for chat A", sessA.Messages[0].Content)
		assert.Empty(t, sessB.Messages)

		require.Len(t, history.questions, 1)
		assert.Equal(t, a.ID, history.questions[0].chatID)
		assert.Equal(t, b.ID, m.ActiveSessionID(), "addressed submission must not move the selection")
	})

	t.Run("submit to an unknown chat fails", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		m.CreateSession()
		_, err := m.SubmitTo("no-such-session", "Hi")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("submit to derives the title on the first question", func(t *testing.T) {
		m := newTestManager(newFakeHistory(), okRetriever())
		created := m.CreateSession()
		m.CreateSession()

		_, err := m.SubmitTo(created.ID, "What foods should I eat during chemo and how often?")
		require.NoError(t, err)

		session, err := m.GetSession(created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Chat: What foods should I eat during...", session.Title)
	})

	t.Run("response carries the partial flag through", func(t *testing.T) {
		retriever := &fakeRetriever{result: &RetrievalResult{
			Chunks:  []string{"Drink water"},
			Summary: "- Drink water.",
			Partial: true,
		}}
		m := newTestManager(newFakeHistory(), retriever)
		m.CreateSession()

		response, err := m.Submit("Hi")
		require.NoError(t, err)
		assert.True(t, response.Partial)
		assert.Equal(t, "- Drink water.", response.Summary)
	})
}
