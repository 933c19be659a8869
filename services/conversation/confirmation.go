package conversation

import (
	"context"
	"fmt"

	"pitstop/models"
	"pitstop/services/dialogue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IsConfirmationReady reports whether a summary may be presented: the
// conversation is in CONFIRMATION and the full required set is populated with
// non-placeholder values.
func IsConfirmationReady(state models.DialogueState, store *models.FieldStore) bool {
	return state == models.StateConfirmation && len(store.Missing(models.RequiredFields)) == 0
}

// SubmitConfirmationAction processes a confirm, edit or cancel against the
// same state machine and field store the message path uses. Invalid requests
// come back as structured rejections with the state unchanged; they are never
// silently absorbed.
func (s *DefaultConversationService) SubmitConfirmationAction(ctx context.Context, conversationID string, action models.ConfirmationAction) (*models.ActionResponse, error) {
	lock := s.locks.get(conversationID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.Store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	switch action.Type {
	case models.ActionConfirm:
		return s.handleConfirm(ctx, session)
	case models.ActionEdit:
		return s.handleEdit(ctx, session, action)
	case models.ActionCancel:
		return s.handleCancel(ctx, session)
	default:
		return actionResponse(session, nil, fmt.Sprintf("unknown action %q", action.Type), nil), nil
	}
}

func (s *DefaultConversationService) handleConfirm(ctx context.Context, session *models.ConversationSession) (*models.ActionResponse, error) {
	result, trErr := dialogue.Transition(session.State, session.FieldStore, dialogue.Input{Action: models.ActionConfirm})
	if trErr != nil {
		return actionResponse(session, nil, trErr.Error(), trErr.Missing), nil
	}

	session.RecordTransition(result.Next, result.Reason)
	record, err := s.emitBooking(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return actionResponse(session, record, "", nil), nil
}

func (s *DefaultConversationService) handleEdit(ctx context.Context, session *models.ConversationSession, action models.ConfirmationAction) (*models.ActionResponse, error) {
	// The edit action only exists at CONFIRMATION; check the transition
	// before touching the store.
	result, trErr := dialogue.Transition(session.State, session.FieldStore, dialogue.Input{Action: models.ActionEdit})
	if trErr != nil {
		return actionResponse(session, nil, trErr.Error(), nil), nil
	}

	entry := s.Fusion.Apply(session.FieldStore, models.CandidateMutation{
		Field:      action.Field,
		Value:      action.Value,
		Confidence: 1.0,
		Source:     models.SourceUserEdit,
		TurnIndex:  session.TurnCount,
	})
	session.AuditTrail = append(session.AuditTrail, entry)

	if entry.Outcome != models.AuditAccepted {
		// State is untouched, but the rejection entry must still reach the
		// stored audit trail.
		if err := s.persist(ctx, session); err != nil {
			return nil, err
		}
		return actionResponse(session, nil, fmt.Sprintf("edit rejected: %s", entry.Reason), nil), nil
	}

	// No-op CONFIRMATION transition; the summary is re-presented.
	if result.Next != session.State {
		session.RecordTransition(result.Next, result.Reason)
	}
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return actionResponse(session, nil, "", nil), nil
}

func (s *DefaultConversationService) handleCancel(ctx context.Context, session *models.ConversationSession) (*models.ActionResponse, error) {
	result, trErr := dialogue.Transition(session.State, session.FieldStore, dialogue.Input{Action: models.ActionCancel})
	if trErr != nil {
		return actionResponse(session, nil, trErr.Error(), nil), nil
	}

	session.RecordTransition(result.Next, result.Reason)
	// Audit history is preserved for diagnostics; only the store freezes.
	session.FieldStore.Frozen = true
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return actionResponse(session, nil, "", nil), nil
}

// emitBooking snapshots the field store into an immutable BookingRecord,
// exactly once per conversation.
func (s *DefaultConversationService) emitBooking(ctx context.Context, session *models.ConversationSession) (*models.BookingRecord, error) {
	if session.BookingID != "" {
		return nil, fmt.Errorf("booking already emitted for conversation %s", session.ID)
	}

	// The session save can fail after the record is inserted; a retried
	// confirm then arrives with an empty BookingID. Reuse the existing record
	// instead of inserting a second one.
	if s.BookingRepo != nil {
		if existing, err := s.BookingRepo.GetByConversationID(ctx, session.ID); err == nil && existing != nil {
			session.BookingID = existing.ID
			s.Logger.Warn("reusing booking record from an earlier confirm",
				zap.String("conversationID", session.ID),
				zap.String("bookingID", existing.ID))
			return existing, nil
		}
	}

	record := models.NewBookingRecord(uuid.New().String(), session.ID, session.FieldStore)
	if s.BookingRepo != nil {
		if err := s.BookingRepo.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to persist booking record: %w", err)
		}
	}
	session.BookingID = record.ID

	s.Logger.Info("booking confirmed",
		zap.String("conversationID", session.ID),
		zap.String("bookingID", record.ID))

	if s.Reminders != nil {
		payload := models.ReminderPayload{
			BookingID:       record.ID,
			ConversationID:  session.ID,
			FirstName:       record.Fields[models.FieldFirstName],
			Phone:           record.Fields[models.FieldPhone],
			VehiclePlate:    record.Fields[models.FieldVehiclePlate],
			AppointmentDate: record.Fields[models.FieldAppointmentDate],
		}
		if err := s.Reminders.ScheduleAppointmentReminder(payload); err != nil {
			// A missed reminder must not unwind a confirmed booking.
			s.Logger.Warn("failed to schedule appointment reminder",
				zap.String("bookingID", record.ID), zap.Error(err))
		}
	}
	return record, nil
}

func actionResponse(session *models.ConversationSession, booking *models.BookingRecord, rejection string, missing []models.FieldName) *models.ActionResponse {
	return &models.ActionResponse{
		ConversationID: session.ID,
		State:          session.State,
		Fields:         session.FieldStore.Snapshot(),
		Booking:        booking,
		Rejection:      rejection,
		MissingFields:  missing,
	}
}
