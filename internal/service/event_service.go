package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gearstack/cmms-api/internal/models"
	"github.com/gearstack/cmms-api/pkg/jobs"
)

// Outbound event types processed by the side-effect queue.
const (
	EventNotify = "notify"
	EventAudit  = "audit"
)

type eventNotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type eventAuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// EventService decouples notification and audit writes from the request
// lifecycle. Emission never fails the triggering operation: delivery is
// retried by the queue and dropped with an error log once retries are
// exhausted.
type EventService struct {
	queue         *jobs.Queue
	notifications eventNotificationRepository
	audits        eventAuditRepository
	metrics       *MetricsService
	logger        *zap.Logger
}

// EventConfig tunes the underlying worker pool.
type EventConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NewEventService constructs the service and its queue. Call Start before
// emitting events.
func NewEventService(notifications eventNotificationRepository, audits eventAuditRepository, metrics *MetricsService, logger *zap.Logger, cfg EventConfig) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EventService{
		notifications: notifications,
		audits:        audits,
		metrics:       metrics,
		logger:        logger,
	}
	s.queue = jobs.NewQueue("outbound-events", s.dispatch, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *EventService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *EventService) Stop() {
	s.queue.Stop()
}

// EmitNotification queues a notification for delivery. Failures are logged,
// never returned, so callers stay oblivious to delivery problems.
func (s *EventService) EmitNotification(notification *models.Notification) {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	s.enqueue(EventNotify, notification)
}

// EmitAudit queues an audit log entry.
func (s *EventService) EmitAudit(log *models.AuditLog) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	s.enqueue(EventAudit, log)
}

func (s *EventService) enqueue(eventType string, payload interface{}) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    eventType,
		Payload: payload,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue outbound event",
			zap.String("type", eventType), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordEvent(eventType, "dropped")
		}
	}
}

func (s *EventService) dispatch(ctx context.Context, job jobs.Job) error {
	var err error
	switch job.Type {
	case EventNotify:
		notification, ok := job.Payload.(*models.Notification)
		if !ok {
			return fmt.Errorf("unexpected payload for %s job", job.Type)
		}
		err = s.notifications.Create(ctx, notification)
	case EventAudit:
		log, ok := job.Payload.(*models.AuditLog)
		if !ok {
			return fmt.Errorf("unexpected payload for %s job", job.Type)
		}
		err = s.audits.Create(ctx, log)
	default:
		return fmt.Errorf("unknown event type %q", job.Type)
	}

	if s.metrics != nil {
		outcome := "delivered"
		if err != nil {
			outcome = "failed"
		}
		s.metrics.RecordEvent(job.Type, outcome)
	}
	return err
}
