package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agendly/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeAppointmentReminder = "reminder:appointment"

// MessageSender delivers an outbound text to a conversation. Actual delivery
// (WhatsApp, SMS, ...) lives outside this repo; deployments plug their
// channel in here.
type MessageSender interface {
	SendText(ctx context.Context, conversationID, text string) error
}

// LogSender is the default sender: it only logs the reminder. Useful in
// development and as a stand-in until a delivery channel is wired.
type LogSender struct {
	Logger *zap.Logger
}

func (s *LogSender) SendText(_ context.Context, conversationID, text string) error {
	s.Logger.Info("reminder message",
		zap.String("conversationId", conversationID), zap.String("text", text))
	return nil
}

// Scheduler enqueues appointment-reminder tasks to fire shortly before the
// booked event starts.
type Scheduler struct {
	client *asynq.Client
	logger *zap.Logger
	lead   time.Duration
}

func NewScheduler(redisOpt asynq.RedisClientOpt, logger *zap.Logger, lead time.Duration) *Scheduler {
	return &Scheduler{
		client: asynq.NewClient(redisOpt),
		logger: logger,
		lead:   lead,
	}
}

// ScheduleAppointmentReminder enqueues one reminder for a confirmed booking.
// Bookings starting within the lead window get no reminder.
func (s *Scheduler) ScheduleAppointmentReminder(ctx context.Context, p models.ReminderPayload) error {
	fireAt := p.Start.Add(-s.lead)
	if !fireAt.After(time.Now()) {
		return nil
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder payload: %w", err)
	}
	task := asynq.NewTask(TypeAppointmentReminder, payload)
	info, err := s.client.EnqueueContext(ctx, task, asynq.ProcessAt(fireAt))
	if err != nil {
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	s.logger.Debug("reminder scheduled",
		zap.String("taskId", info.ID), zap.Time("fireAt", fireAt))
	return nil
}

func (s *Scheduler) Close() error {
	return s.client.Close()
}

// InitReminderWorker runs the async reminder worker in the background.
// tzOffsetMinutes is the fixed local offset used to render event times.
func InitReminderWorker(redisOpt asynq.RedisClientOpt, sender MessageSender, logger *zap.Logger, tzOffsetMinutes int) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAppointmentReminder, handleReminderTask(sender, logger, tzOffsetMinutes))

	go func() {
		logger.Info("starting reminder worker")
		if err := srv.Run(mux); err != nil {
			logger.Fatal("reminder worker failed", zap.Error(err))
		}
	}()
}

func handleReminderTask(sender MessageSender, logger *zap.Logger, tzOffsetMinutes int) asynq.HandlerFunc {
	loc := time.FixedZone("local", tzOffsetMinutes*60)
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid reminder payload", zap.Error(err))
			return err
		}

		text := fmt.Sprintf("Lembrete: você tem um horário com %s em %s.",
			p.PersonName, p.Start.In(loc).Format("02/01/2006 às 15:04"))
		if err := sender.SendText(ctx, p.ConversationID, text); err != nil {
			logger.Error("failed to deliver reminder",
				zap.String("conversationId", p.ConversationID), zap.Error(err))
			return err
		}
		return nil
	}
}
