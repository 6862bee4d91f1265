package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"showroom/internal/availability"
	"showroom/internal/events"
	"showroom/internal/metrics"
	"showroom/internal/model"
)

// ScheduleSource loads the business hours document.
type ScheduleSource interface {
	Load(ctx context.Context) (*model.ScheduleConfiguration, error)
}

// BlockedDatesSource loads dates closed to new bookings.
type BlockedDatesSource interface {
	Dates(ctx context.Context) (model.BlockedDates, error)
}

// AppointmentStore persists appointments.
type AppointmentStore interface {
	Create(ctx context.Context, a *model.Appointment) error
	Get(ctx context.Context, id string) (*model.Appointment, error)
	List(ctx context.Context, filter model.AppointmentFilter) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus, updatedAt time.Time) error
}

// Publisher fans out domain events.
type Publisher interface {
	PublishJSON(eventType string, payload any) error
}

// StatusChange is the payload of appointment.status_changed.
type StatusChange struct {
	Appointment model.Appointment       `json:"appointment"`
	From        model.AppointmentStatus `json:"from"`
}

// Service validates test-drive requests against generated slots and records appointments.
type Service struct {
	schedule     ScheduleSource
	blocked      BlockedDatesSource
	appointments AppointmentStore
	bus          Publisher
	engine       availability.Engine
	rules        Rules
	now          func() time.Time
	logger       zerolog.Logger
}

// NewService wires a booking service. bus may be nil.
func NewService(
	schedule ScheduleSource,
	blocked BlockedDatesSource,
	appointments AppointmentStore,
	bus Publisher,
	engine availability.Engine,
	rules Rules,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		schedule:     schedule,
		blocked:      blocked,
		appointments: appointments,
		bus:          bus,
		engine:       engine,
		rules:        rules,
		now:          time.Now,
		logger:       logger.With().Str("component", "booking").Logger(),
	}
}

// WithClock replaces the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Engine exposes the configured availability engine.
func (s *Service) Engine() availability.Engine {
	return s.engine
}

func (s *Service) load(ctx context.Context) (*model.ScheduleConfiguration, model.BlockedDates, error) {
	cfg, err := s.schedule.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load schedule: %w", err)
	}
	blocked, err := s.blocked.Dates(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load blocked dates: %w", err)
	}
	return cfg, blocked, nil
}

// Submit validates req and persists a scheduled appointment. Duplicate submissions
// create duplicate records.
func (s *Service) Submit(ctx context.Context, req model.BookingRequest) (*model.Appointment, error) {
	req.Normalize()

	cfg, blocked, err := s.load(ctx)
	if err != nil {
		metrics.IncSubmission("error")
		return nil, err
	}

	// A malformed date yields no slots; Validate reports the field.
	slots, _ := s.engine.Slots(cfg, req.Date, blocked)
	now := s.now().In(s.engine.Location)
	if err := Validate(req, slots, now, s.rules); err != nil {
		metrics.IncSubmission("rejected")
		s.logger.Info().Str("date", req.Date).Str("time", req.Time).Err(err).Msg("booking rejected")
		return nil, err
	}

	scheduledAt, err := model.At(req.Date, req.Time, s.engine.Location)
	if err != nil {
		metrics.IncSubmission("rejected")
		return nil, err
	}

	appt := &model.Appointment{
		ID:               uuid.NewString(),
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		VehicleReference: req.VehicleReference,
		ScheduledAt:      scheduledAt,
		Date:             req.Date,
		Time:             model.FormatClock(model.ClockOf(scheduledAt)),
		Notes:            req.Notes,
		Status:           model.StatusScheduled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.appointments.Create(ctx, appt); err != nil {
		metrics.IncSubmission("error")
		s.logger.Error().Err(err).Str("date", appt.Date).Msg("failed to create appointment")
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	metrics.IncSubmission("created")
	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("date", appt.Date).
		Str("time", appt.Time).
		Str("vehicle", appt.VehicleReference).
		Msg("appointment scheduled")

	s.publish(events.AppointmentCreated, appt)
	return appt, nil
}

// Slots returns the bookable start times for a "YYYY-MM-DD" date.
func (s *Service) Slots(ctx context.Context, date string) ([]string, error) {
	cfg, blocked, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Slots(cfg, date, blocked)
}

// IsOpen reports whether the showroom is open at instant.
func (s *Service) IsOpen(ctx context.Context, instant time.Time) (bool, error) {
	cfg, err := s.schedule.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load schedule: %w", err)
	}
	return s.engine.IsOpen(cfg, instant), nil
}

// NextOpening finds the next opening after from, or on from's date when includeToday is set.
func (s *Service) NextOpening(ctx context.Context, from time.Time, includeToday bool) (*availability.Opening, error) {
	cfg, err := s.schedule.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	return s.engine.Next(cfg, from, includeToday), nil
}

// List returns appointments matching filter.
func (s *Service) List(ctx context.Context, filter model.AppointmentFilter) ([]model.Appointment, error) {
	items, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return items, nil
}

// ChangeStatus moves a scheduled appointment to a final status.
func (s *Service) ChangeStatus(ctx context.Context, id string, next model.AppointmentStatus) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, appt.Status, next)
	}

	now := s.now().In(s.engine.Location)
	if err := s.appointments.UpdateStatus(ctx, id, next, now); err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	prev := appt.Status
	appt.Status = next
	appt.UpdatedAt = now
	metrics.IncStatusChange(string(next))
	s.logger.Info().Str("appointment_id", id).Str("from", string(prev)).Str("to", string(next)).Msg("appointment status changed")

	s.publish(events.AppointmentStatusChanged, StatusChange{Appointment: *appt, From: prev})
	return appt, nil
}

func (s *Service) publish(eventType string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
