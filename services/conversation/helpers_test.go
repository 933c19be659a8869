package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"pitstop/models"
	"pitstop/services/extraction"
	"pitstop/services/fusion"
)

// memorySessionStore is an in-memory SessionStore for tests. Like the Redis
// store it round-trips sessions through JSON, so Get hands back a fresh copy
// and unsaved mutations are lost.
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	saveErr  error // next Save fails with this, then clears
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string][]byte)}
}

func (m *memorySessionStore) Get(ctx context.Context, id string) (*models.ConversationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	var session models.ConversationSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (m *memorySessionStore) Save(ctx context.Context, session *models.ConversationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		err := m.saveErr
		m.saveErr = nil
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	m.sessions[session.ID] = data
	return nil
}

// memoryBookingRepo records every created booking.
type memoryBookingRepo struct {
	mu      sync.Mutex
	records []*models.BookingRecord
}

func (m *memoryBookingRepo) Create(ctx context.Context, record *models.BookingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryBookingRepo) GetByID(ctx context.Context, id string) (*models.BookingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("booking record not found")
}

func (m *memoryBookingRepo) GetByConversationID(ctx context.Context, conversationID string) (*models.BookingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ConversationID == conversationID {
			return r, nil
		}
	}
	return nil, errors.New("booking record not found")
}

// memoryArchiveRepo records archived terminal sessions.
type memoryArchiveRepo struct {
	mu       sync.Mutex
	archived map[string]*models.ConversationSession
}

func newMemoryArchiveRepo() *memoryArchiveRepo {
	return &memoryArchiveRepo{archived: make(map[string]*models.ConversationSession)}
}

func (m *memoryArchiveRepo) Archive(ctx context.Context, session *models.ConversationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archived[session.ID] = session
	return nil
}

func (m *memoryArchiveRepo) GetByID(ctx context.Context, id string) (*models.ConversationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.archived[id]
	if !ok {
		return nil, errors.New("archived conversation not found")
	}
	return s, nil
}

// stubScheduler captures scheduled reminder payloads.
type stubScheduler struct {
	mu       sync.Mutex
	payloads []models.ReminderPayload
	err      error
}

func (s *stubScheduler) ScheduleAppointmentReminder(payload models.ReminderPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

// stubModelExtractor plays the model-backed strategy with canned candidates,
// or an error when failing is set.
type stubModelExtractor struct {
	candidates map[models.FieldName]models.CandidateMutation
	failing    bool
}

func (s *stubModelExtractor) Name() string { return "stub-model" }

func (s *stubModelExtractor) Extract(ctx context.Context, field models.FieldName, text string, history []models.Message) (*models.CandidateMutation, error) {
	if s.failing {
		return nil, errors.New("model backend unavailable")
	}
	c, ok := s.candidates[field]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// stubSentiment returns fixed scores, or an error when failing is set.
type stubSentiment struct {
	scores  models.SentimentScores
	failing bool
}

func (s *stubSentiment) Score(ctx context.Context, text string, history []models.Message) (models.SentimentScores, error) {
	if s.failing {
		return models.SentimentScores{}, errors.New("sentiment backend unavailable")
	}
	return s.scores, nil
}

type testEnv struct {
	svc       *DefaultConversationService
	store     *memorySessionStore
	bookings  *memoryBookingRepo
	archive   *memoryArchiveRepo
	reminders *stubScheduler
	sentiment *stubSentiment
	model     *stubModelExtractor
}

func newTestEnv() *testEnv {
	rules := extraction.NewRuleExtractor()
	model := &stubModelExtractor{}
	sentiment := &stubSentiment{scores: models.NeutralSentiment()}
	store := newMemorySessionStore()
	bookings := &memoryBookingRepo{}
	archive := newMemoryArchiveRepo()
	reminders := &stubScheduler{}

	svc := NewDefaultConversationService(
		store,
		extraction.NewRegistry(rules, model),
		sentiment,
		fusion.NewEngine(nil),
		NewRetroScanner(rules, 5),
		bookings,
		archive,
		reminders,
		nil,
		2*time.Second,
	)
	return &testEnv{
		svc:       svc,
		store:     store,
		bookings:  bookings,
		archive:   archive,
		reminders: reminders,
		sentiment: sentiment,
		model:     model,
	}
}
