package dialogue

import (
	"testing"
	"time"

	"pitstop/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeWith(fields map[models.FieldName]string) *models.FieldStore {
	store := models.NewFieldStore()
	for name, value := range fields {
		store.Fields[name] = models.CanonicalField{
			Value:      value,
			Confidence: 0.9,
			Source:     models.SourceCurrentTurn,
			AcceptedAt: time.Now(),
		}
	}
	return store
}

func fullStore() *models.FieldStore {
	return storeWith(map[models.FieldName]string{
		models.FieldFirstName:       "Sneha",
		models.FieldVehicleBrand:    "Honda",
		models.FieldVehicleModel:    "City",
		models.FieldVehiclePlate:    "KA01AB1234",
		models.FieldAppointmentDate: "2026-09-10",
	})
}

func TestGreetingAdvances(t *testing.T) {
	// Service keyword wins over nothing.
	res, err := Transition(models.StateGreeting, models.NewFieldStore(), Input{Text: "I want to book a service"})
	require.Nil(t, err)
	assert.Equal(t, models.StateServiceSelection, res.Next)

	// Accepted name moves to name collection.
	store := storeWith(map[models.FieldName]string{models.FieldFirstName: "Sneha"})
	res, err = Transition(models.StateGreeting, store, Input{Text: "hello there"})
	require.Nil(t, err)
	assert.Equal(t, models.StateNameCollection, res.Next)

	// Nothing yet: remain.
	res, err = Transition(models.StateGreeting, models.NewFieldStore(), Input{Text: "hello"})
	require.Nil(t, err)
	assert.Equal(t, models.StateGreeting, res.Next)
}

func TestDataDrivenAdvance(t *testing.T) {
	nameOnly := storeWith(map[models.FieldName]string{models.FieldFirstName: "Sneha"})

	res, err := Transition(models.StateNameCollection, nameOnly, Input{Text: "anything"})
	require.Nil(t, err)
	assert.Equal(t, models.StateVehicleDetails, res.Next)

	res, err = Transition(models.StateServiceSelection, nameOnly, Input{Text: "anything"})
	require.Nil(t, err)
	assert.Equal(t, models.StateVehicleDetails, res.Next)

	vehicle := storeWith(map[models.FieldName]string{
		models.FieldFirstName:    "Sneha",
		models.FieldVehicleBrand: "Honda",
		models.FieldVehicleModel: "City",
		models.FieldVehiclePlate: "KA01AB1234",
	})
	res, err = Transition(models.StateVehicleDetails, vehicle, Input{Text: "done"})
	require.Nil(t, err)
	assert.Equal(t, models.StateDateSelection, res.Next)

	// Date still missing: remain in DATE_SELECTION.
	res, err = Transition(models.StateDateSelection, vehicle, Input{Text: "hmm"})
	require.Nil(t, err)
	assert.Equal(t, models.StateDateSelection, res.Next)

	res, err = Transition(models.StateDateSelection, fullStore(), Input{Text: "monday works"})
	require.Nil(t, err)
	assert.Equal(t, models.StateConfirmation, res.Next)
	assert.Equal(t, ReasonFieldsSatisfied, res.Reason)
}

func TestSentimentOverride(t *testing.T) {
	angry := Input{Text: "this is taking forever", Sentiment: models.SentimentScores{Anger: 7.0}}

	// Overrides even when the data-driven rule would advance.
	res, err := Transition(models.StateVehicleDetails, fullStore(), angry)
	require.Nil(t, err)
	assert.Equal(t, models.StateServiceSelection, res.Next)
	assert.Equal(t, ReasonSentimentOverride, res.Reason)

	// Never fires at CONFIRMATION.
	res, err = Transition(models.StateConfirmation, fullStore(), angry)
	require.Nil(t, err)
	assert.Equal(t, models.StateConfirmation, res.Next)

	// Below threshold: no override.
	calm := Input{Text: "ok", Sentiment: models.SentimentScores{Anger: 5.9}}
	res, err = Transition(models.StateDateSelection, fullStore(), calm)
	require.Nil(t, err)
	assert.Equal(t, models.StateConfirmation, res.Next)
}

func TestCancel(t *testing.T) {
	// Cancel phrase from any non-terminal state, data complete or not.
	for _, state := range []models.DialogueState{
		models.StateGreeting,
		models.StateNameCollection,
		models.StateServiceSelection,
		models.StateVehicleDetails,
		models.StateDateSelection,
		models.StateConfirmation,
	} {
		res, err := Transition(state, models.NewFieldStore(), Input{Text: "cancel this please"})
		require.Nil(t, err, "state %s", state)
		assert.Equal(t, models.StateCancelled, res.Next, "state %s", state)
	}

	// Cancel action too.
	res, err := Transition(models.StateConfirmation, fullStore(), Input{Action: models.ActionCancel})
	require.Nil(t, err)
	assert.Equal(t, models.StateCancelled, res.Next)
}

func TestConfirm(t *testing.T) {
	// Confirm with everything present completes.
	res, err := Transition(models.StateConfirmation, fullStore(), Input{Action: models.ActionConfirm})
	require.Nil(t, err)
	assert.Equal(t, models.StateCompleted, res.Next)
	assert.Equal(t, ReasonConfirmAccepted, res.Reason)

	// Confirm with missing fields is rejected with the specific names.
	store := storeWith(map[models.FieldName]string{models.FieldFirstName: "Sneha"})
	res, err = Transition(models.StateConfirmation, store, Input{Action: models.ActionConfirm})
	require.NotNil(t, err)
	assert.Equal(t, models.StateConfirmation, res.Next)
	assert.Equal(t, "missingFields", err.Code)
	assert.Contains(t, err.Missing, models.FieldVehiclePlate)
	assert.Contains(t, err.Missing, models.FieldAppointmentDate)

	// Confirm phrase in free text behaves like the action at CONFIRMATION.
	res, err = Transition(models.StateConfirmation, fullStore(), Input{Text: "yes, book it"})
	require.Nil(t, err)
	assert.Equal(t, models.StateCompleted, res.Next)

	// Confirm outside CONFIRMATION is invalid.
	res, err = Transition(models.StateVehicleDetails, fullStore(), Input{Action: models.ActionConfirm})
	require.NotNil(t, err)
	assert.Equal(t, models.StateVehicleDetails, res.Next)
	assert.Equal(t, "invalidAction", err.Code)
}

func TestEdit(t *testing.T) {
	res, err := Transition(models.StateConfirmation, fullStore(), Input{Action: models.ActionEdit})
	require.Nil(t, err)
	assert.Equal(t, models.StateConfirmation, res.Next)
	assert.Equal(t, ReasonUserEdit, res.Reason)

	res, err = Transition(models.StateGreeting, models.NewFieldStore(), Input{Action: models.ActionEdit})
	require.NotNil(t, err)
	assert.Equal(t, models.StateGreeting, res.Next)
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	for _, state := range []models.DialogueState{models.StateCompleted, models.StateCancelled} {
		for _, in := range []Input{
			{Text: "hello again"},
			{Action: models.ActionConfirm},
			{Action: models.ActionCancel},
			{Text: "angry!", Sentiment: models.SentimentScores{Anger: 9}},
		} {
			res, err := Transition(state, fullStore(), in)
			require.NotNil(t, err, "state %s", state)
			assert.Equal(t, state, res.Next)
			assert.Equal(t, "terminalState", err.Code)
		}
	}
}
