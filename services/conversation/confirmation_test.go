package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"pitstop/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSession(t *testing.T, env *testEnv, id string, state models.DialogueState, fields map[models.FieldName]string) *models.ConversationSession {
	t.Helper()
	session := models.NewConversationSession(id)
	session.State = state
	session.TurnCount = len(fields)
	for name, value := range fields {
		session.FieldStore.Fields[name] = models.CanonicalField{
			Value:      value,
			Confidence: 0.9,
			Source:     models.SourceCurrentTurn,
			TurnIndex:  1,
			AcceptedAt: time.Now(),
		}
	}
	require.NoError(t, env.store.Save(context.Background(), session))
	return session
}

func completeFields() map[models.FieldName]string {
	return map[models.FieldName]string{
		models.FieldFirstName:       "Sneha",
		models.FieldVehicleBrand:    "Honda",
		models.FieldVehicleModel:    "City",
		models.FieldVehiclePlate:    "KA01AB1234",
		models.FieldAppointmentDate: "2026-09-10",
		models.FieldPhone:           "9876543210",
	}
}

func TestActionOnUnknownConversation(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.SubmitConfirmationAction(context.Background(), "no-such-id",
		models.ConfirmationAction{Type: models.ActionConfirm})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConfirmWithMissingFields(t *testing.T) {
	env := newTestEnv()
	seedSession(t, env, "conv-1", models.StateConfirmation, map[models.FieldName]string{
		models.FieldFirstName:    "Sneha",
		models.FieldVehicleBrand: "Honda",
	})

	resp, err := env.svc.SubmitConfirmationAction(context.Background(), "conv-1",
		models.ConfirmationAction{Type: models.ActionConfirm})
	require.NoError(t, err)

	assert.Equal(t, models.StateConfirmation, resp.State, "state must not change on rejection")
	assert.NotEmpty(t, resp.Rejection)
	assert.Contains(t, resp.MissingFields, models.FieldVehicleModel)
	assert.Contains(t, resp.MissingFields, models.FieldVehiclePlate)
	assert.Contains(t, resp.MissingFields, models.FieldAppointmentDate)
	assert.Empty(t, env.bookings.records)
}

func TestConfirmEmitsBookingOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedSession(t, env, "conv-1", models.StateConfirmation, completeFields())

	resp, err := env.svc.SubmitConfirmationAction(ctx, "conv-1",
		models.ConfirmationAction{Type: models.ActionConfirm})
	require.NoError(t, err)

	assert.Equal(t, models.StateCompleted, resp.State)
	require.NotNil(t, resp.Booking)
	assert.Equal(t, "Sneha", resp.Booking.Fields[models.FieldFirstName])
	assert.Equal(t, "2026-09-10", resp.Booking.Fields[models.FieldAppointmentDate])
	require.Len(t, env.bookings.records, 1)

	// Provenance covers every snapshotted field.
	assert.Len(t, resp.Booking.Provenance, len(resp.Booking.Fields))
	for _, p := range resp.Booking.Provenance {
		assert.Equal(t, models.SourceCurrentTurn, p.Source)
	}

	require.Len(t, env.reminders.payloads, 1)
	assert.Equal(t, "9876543210", env.reminders.payloads[0].Phone)

	// A second confirm meets a terminal rejection, never a second record.
	resp, err = env.svc.SubmitConfirmationAction(ctx, "conv-1",
		models.ConfirmationAction{Type: models.ActionConfirm})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Rejection)
	assert.Equal(t, models.StateCompleted, resp.State)
	assert.Len(t, env.bookings.records, 1)
}

func TestReminderFailureDoesNotUnwindBooking(t *testing.T) {
	env := newTestEnv()
	env.reminders.err = assert.AnError
	seedSession(t, env, "conv-1", models.StateConfirmation, completeFields())

	resp, err := env.svc.SubmitConfirmationAction(context.Background(), "conv-1",
		models.ConfirmationAction{Type: models.ActionConfirm})
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, resp.State)
	assert.Len(t, env.bookings.records, 1)
}

func TestEditReplacesFieldAndPinsIt(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedSession(t, env, "conv-1", models.StateConfirmation, completeFields())

	resp, err := env.svc.SubmitConfirmationAction(ctx, "conv-1", models.ConfirmationAction{
		Type:  models.ActionEdit,
		Field: models.FieldPhone,
		Value: "+91 91234 56789",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Rejection)
	assert.Equal(t, models.StateConfirmation, resp.State)

	phone := resp.Fields[models.FieldPhone]
	assert.Equal(t, "9123456789", phone.Value)
	assert.Equal(t, models.SourceUserEdit, phone.Source)

	// The edited value is pinned: a confident automated re-extraction from a
	// later message must not displace it.
	resp2, err := env.svc.SubmitMessage(ctx, "conv-1", "my number is 9876543210")
	require.NoError(t, err)
	assert.Equal(t, "9123456789", resp2.Fields[models.FieldPhone].Value)
}

func TestEditWithInvalidValueIsRejected(t *testing.T) {
	env := newTestEnv()
	seedSession(t, env, "conv-1", models.StateConfirmation, completeFields())

	resp, err := env.svc.SubmitConfirmationAction(context.Background(), "conv-1",
		models.ConfirmationAction{
			Type:  models.ActionEdit,
			Field: models.FieldPhone,
			Value: "12345",
		})
	require.NoError(t, err)
	assert.Contains(t, resp.Rejection, "edit rejected")
	assert.Equal(t, "9876543210", resp.Fields[models.FieldPhone].Value, "store untouched")
}

func TestRejectedEditIsAuditedInStore(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedSession(t, env, "conv-1", models.StateConfirmation, completeFields())

	resp, err := env.svc.SubmitConfirmationAction(ctx, "conv-1",
		models.ConfirmationAction{
			Type:  models.ActionEdit,
			Field: models.FieldPhone,
			Value: "12345",
		})
	require.NoError(t, err)
	require.Contains(t, resp.Rejection, "edit rejected")

	// The store hands back a fresh copy; the rejection entry must have been
	// persisted, not just appended in memory.
	reloaded, err := env.store.Get(ctx, "conv-1")
	require.NoError(t, err)
	entry := findAudit(reloaded.AuditTrail, models.FieldPhone, models.AuditValidationRejected)
	require.NotNil(t, entry, "rejected edit must survive in the stored audit trail")
	assert.Equal(t, "12345", entry.Value)
}

func TestConfirmRetryAfterSaveFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedSession(t, env, "conv-1", models.StateConfirmation, completeFields())

	// The record is inserted, then the session save fails.
	env.store.saveErr = errors.New("connection reset")
	_, err := env.svc.SubmitConfirmationAction(ctx, "conv-1",
		models.ConfirmationAction{Type: models.ActionConfirm})
	require.Error(t, err)
	require.Len(t, env.bookings.records, 1)

	// The retried confirm reloads a session without a BookingID; it must
	// reuse the existing record, never insert a second one.
	resp, err := env.svc.SubmitConfirmationAction(ctx, "conv-1",
		models.ConfirmationAction{Type: models.ActionConfirm})
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, resp.State)
	require.NotNil(t, resp.Booking)
	assert.Len(t, env.bookings.records, 1)
	assert.Equal(t, env.bookings.records[0].ID, resp.Booking.ID)
}

func TestEditOutsideConfirmation(t *testing.T) {
	env := newTestEnv()
	seedSession(t, env, "conv-1", models.StateVehicleDetails, nil)

	resp, err := env.svc.SubmitConfirmationAction(context.Background(), "conv-1",
		models.ConfirmationAction{
			Type:  models.ActionEdit,
			Field: models.FieldPhone,
			Value: "9876543210",
		})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Rejection)
	assert.Equal(t, models.StateVehicleDetails, resp.State)
}

func TestCancelActionAtConfirmation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedSession(t, env, "conv-1", models.StateConfirmation, completeFields())

	resp, err := env.svc.SubmitConfirmationAction(ctx, "conv-1",
		models.ConfirmationAction{Type: models.ActionCancel})
	require.NoError(t, err)

	assert.Equal(t, models.StateCancelled, resp.State)
	assert.Empty(t, env.bookings.records, "cancelled conversations never emit a booking record")

	archived, err := env.archive.GetByID(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, archived.FieldStore.Frozen)
}

func TestUnknownActionType(t *testing.T) {
	env := newTestEnv()
	seedSession(t, env, "conv-1", models.StateConfirmation, completeFields())

	resp, err := env.svc.SubmitConfirmationAction(context.Background(), "conv-1",
		models.ConfirmationAction{Type: "escalate"})
	require.NoError(t, err)
	assert.Contains(t, resp.Rejection, "unknown action")
}

func TestIsConfirmationReady(t *testing.T) {
	store := models.NewFieldStore()
	assert.False(t, IsConfirmationReady(models.StateConfirmation, store))

	for _, name := range models.RequiredFields {
		store.Fields[name] = models.CanonicalField{Value: "x", Confidence: 0.9, Source: models.SourceCurrentTurn}
	}
	assert.True(t, IsConfirmationReady(models.StateConfirmation, store))
	assert.False(t, IsConfirmationReady(models.StateDateSelection, store), "readiness is state-scoped")
}
