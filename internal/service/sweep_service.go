package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gearstack/cmms-api/internal/models"
)

type sweepRequestRepository interface {
	ListPreventiveDueSoon(ctx context.Context, from, to time.Time) ([]models.MaintenanceRequest, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.MaintenanceRequest, error)
}

type sweepNotificationRepository interface {
	ExistsSince(ctx context.Context, recipientID, notificationType, requestID string, since time.Time) (bool, error)
}

type notificationEmitter interface {
	EmitNotification(notification *models.Notification)
}

// SweepConfig tunes the periodic scans.
type SweepConfig struct {
	PreventiveInterval time.Duration
	OverdueInterval    time.Duration
	DueSoonWindow      time.Duration
}

// SweepService runs the two background scans: a daily reminder for preventive
// requests approaching their scheduled date and an hourly pass over overdue
// open requests. Both only emit notifications; they never touch request
// state, so they cannot race the workflow service.
type SweepService struct {
	requests      sweepRequestRepository
	notifications sweepNotificationRepository
	events        notificationEmitter
	config        SweepConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewSweepService constructs a SweepService.
func NewSweepService(requests sweepRequestRepository, notifications sweepNotificationRepository, events notificationEmitter, config SweepConfig, logger *zap.Logger) *SweepService {
	if config.PreventiveInterval <= 0 {
		config.PreventiveInterval = 24 * time.Hour
	}
	if config.OverdueInterval <= 0 {
		config.OverdueInterval = time.Hour
	}
	if config.DueSoonWindow <= 0 {
		config.DueSoonWindow = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepService{
		requests:      requests,
		notifications: notifications,
		events:        events,
		config:        config,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start launches both sweep loops. They stop when ctx is cancelled.
func (s *SweepService) Start(ctx context.Context) {
	go s.loop(ctx, s.config.PreventiveInterval, "preventive-due", s.SweepPreventiveDue)
	go s.loop(ctx, s.config.OverdueInterval, "overdue", s.SweepOverdue)
}

func (s *SweepService) loop(ctx context.Context, interval time.Duration, name string, sweep func(context.Context) (int, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("sweep loop started", zap.String("sweep", name), zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep loop stopped", zap.String("sweep", name))
			return
		case <-ticker.C:
			notified, err := sweep(ctx)
			if err != nil {
				s.logger.Error("sweep failed", zap.String("sweep", name), zap.Error(err))
				continue
			}
			s.logger.Info("sweep completed", zap.String("sweep", name), zap.Int("notified", notified))
		}
	}
}

// SweepPreventiveDue notifies technicians about preventive requests whose
// scheduled date falls inside the configured window. A reminder already sent
// within the sweep interval suppresses a duplicate.
func (s *SweepService) SweepPreventiveDue(ctx context.Context) (int, error) {
	now := s.now()
	requests, err := s.requests.ListPreventiveDueSoon(ctx, now, now.Add(s.config.DueSoonWindow))
	if err != nil {
		return 0, fmt.Errorf("list preventive due soon: %w", err)
	}

	notified := 0
	for i := range requests {
		request := &requests[i]
		if s.notifyOnce(ctx, request, models.NotificationMaintenanceDue,
			"Preventive maintenance due",
			fmt.Sprintf("Request %s (%s) is scheduled for %s", request.RequestNumber, request.Subject, request.ScheduledDate.Format("2006-01-02")),
			s.config.PreventiveInterval) {
			notified++
		}
	}
	return notified, nil
}

// SweepOverdue notifies technicians about open requests past their scheduled
// date. At most one reminder per request per day.
func (s *SweepService) SweepOverdue(ctx context.Context) (int, error) {
	now := s.now()
	requests, err := s.requests.ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue requests: %w", err)
	}

	notified := 0
	for i := range requests {
		request := &requests[i]
		if s.notifyOnce(ctx, request, models.NotificationRequestOverdue,
			"Request overdue",
			fmt.Sprintf("Request %s (%s) was scheduled for %s and is still %s", request.RequestNumber, request.Subject, request.ScheduledDate.Format("2006-01-02"), request.Status),
			24*time.Hour) {
			notified++
		}
	}
	return notified, nil
}

func (s *SweepService) notifyOnce(ctx context.Context, request *models.MaintenanceRequest, notificationType, title, message string, dedupWindow time.Duration) bool {
	if request.TechnicianID == nil {
		return false
	}
	recipient := *request.TechnicianID

	sent, err := s.notifications.ExistsSince(ctx, recipient, notificationType, request.ID, s.now().Add(-dedupWindow))
	if err != nil {
		s.logger.Warn("failed to check notification dedup",
			zap.String("request_id", request.ID), zap.Error(err))
		return false
	}
	if sent {
		return false
	}

	s.events.EmitNotification(&models.Notification{
		RecipientID: recipient,
		Type:        notificationType,
		Title:       title,
		Message:     message,
		RequestID:   &request.ID,
		EquipmentID: &request.EquipmentID,
	})
	return true
}
