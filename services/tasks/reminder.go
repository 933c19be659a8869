package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"pitstop/config"
	"pitstop/models"

	"github.com/hibiken/asynq"
)

const TypeAppointmentReminder = "reminder:appointment"

// reminderLeadTime is how far ahead of the appointment the reminder fires.
const reminderLeadTime = 24 * time.Hour

// NewAppointmentReminderTask builds the asynq task for a confirmed booking,
// scheduled a day before the appointment date.
func NewAppointmentReminderTask(payload models.ReminderPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	appt, err := time.ParseInLocation("2006-01-02", payload.AppointmentDate, time.Local)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid appointment date %q: %w", payload.AppointmentDate, err)
	}
	fireAt := appt.Add(9 * time.Hour).Add(-reminderLeadTime) // 9 AM the day before
	if fireAt.Before(time.Now()) {
		fireAt = time.Now().Add(time.Minute)
	}

	task := asynq.NewTask(TypeAppointmentReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt), asynq.MaxRetry(3)}
	return task, opts, nil
}

// AsynqReminderScheduler enqueues reminder tasks on the Redis-backed queue.
type AsynqReminderScheduler struct {
	client *asynq.Client
}

// NewAsynqReminderScheduler builds the scheduler from app config.
func NewAsynqReminderScheduler() *AsynqReminderScheduler {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	})
	return &AsynqReminderScheduler{client: client}
}

// ScheduleAppointmentReminder implements conversation.ReminderScheduler.
func (s *AsynqReminderScheduler) ScheduleAppointmentReminder(payload models.ReminderPayload) error {
	task, opts, err := NewAppointmentReminderTask(payload)
	if err != nil {
		return err
	}
	if _, err := s.client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	return nil
}

// Close releases the underlying queue connection.
func (s *AsynqReminderScheduler) Close() error {
	return s.client.Close()
}
