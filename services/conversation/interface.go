package conversation

import (
	"context"
	"sync"
	"time"

	"pitstop/database/repository"
	"pitstop/models"
	"pitstop/services/extraction"
	"pitstop/services/fusion"

	"go.uber.org/zap"
)

// ConversationService is the aggregate-root surface: both operations resolve
// to the same dialogue state machine and field store per conversation id.
type ConversationService interface {
	SubmitMessage(ctx context.Context, conversationID, text string) (*models.ChatResponse, error)
	SubmitConfirmationAction(ctx context.Context, conversationID string, action models.ConfirmationAction) (*models.ActionResponse, error)
}

// ReminderScheduler enqueues an appointment reminder after a booking is
// emitted. Failure to schedule never fails the booking.
type ReminderScheduler interface {
	ScheduleAppointmentReminder(payload models.ReminderPayload) error
}

// DefaultConversationService implements ConversationService.
type DefaultConversationService struct {
	Store     SessionStore
	Registry  *extraction.Registry
	Sentiment extraction.SentimentAnalyzer
	Fusion    *fusion.Engine
	Scanner   *RetroScanner

	BookingRepo repository.BookingRecordRepository
	ArchiveRepo repository.ConversationArchiveRepository
	Reminders   ReminderScheduler

	Logger            *zap.Logger
	ExtractionTimeout time.Duration

	locks keyedMutex
}

// NewDefaultConversationService wires the aggregate together.
func NewDefaultConversationService(
	store SessionStore,
	registry *extraction.Registry,
	sentiment extraction.SentimentAnalyzer,
	fusionEngine *fusion.Engine,
	scanner *RetroScanner,
	bookingRepo repository.BookingRecordRepository,
	archiveRepo repository.ConversationArchiveRepository,
	reminders ReminderScheduler,
	logger *zap.Logger,
	extractionTimeout time.Duration,
) *DefaultConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractionTimeout <= 0 {
		extractionTimeout = 4 * time.Second
	}
	return &DefaultConversationService{
		Store:             store,
		Registry:          registry,
		Sentiment:         sentiment,
		Fusion:            fusionEngine,
		Scanner:           scanner,
		BookingRepo:       bookingRepo,
		ArchiveRepo:       archiveRepo,
		Reminders:         reminders,
		Logger:            logger,
		ExtractionTimeout: extractionTimeout,
	}
}

// keyedMutex serializes all work for one conversation id while leaving
// different conversations fully independent.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) get(id string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	return l
}
