package cron

import (
	"context"
	"encoding/json"
	"log"

	"pitstop/config"
	"pitstop/models"
	"pitstop/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitReminderWorker runs the async reminder worker in the background.
func InitReminderWorker(logger *zap.Logger) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeAppointmentReminder, handleReminderTask(logger))

	go func() {
		log.Println("[ReminderWorker] starting async worker...")
		if err := srv.Run(mux); err != nil {
			log.Printf("[ReminderWorker] worker stopped: %v", err)
		}
	}()
}

// handleReminderTask delivers the appointment reminder. Delivery is a log
// line for now; the SMS gateway hangs off this handler when it lands.
func handleReminderTask(logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload models.ReminderPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return err
		}
		logger.Info("appointment reminder due",
			zap.String("bookingID", payload.BookingID),
			zap.String("firstName", payload.FirstName),
			zap.String("phone", payload.Phone),
			zap.String("vehiclePlate", payload.VehiclePlate),
			zap.String("appointmentDate", payload.AppointmentDate))
		return nil
	}
}
