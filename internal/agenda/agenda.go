// Package agenda sends managers a daily digest of upcoming test drives.
package agenda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"showroom/internal/model"
)

// DefaultSpec runs the digest at 08:00 in the cron's location.
const DefaultSpec = "0 8 * * *"

// AppointmentLister lists stored appointments.
type AppointmentLister interface {
	List(ctx context.Context, filter model.AppointmentFilter) ([]model.Appointment, error)
}

// Broadcaster delivers a message to all managers.
type Broadcaster interface {
	Broadcast(ctx context.Context, text string) error
}

// Service builds and sends the daily agenda.
type Service struct {
	appointments AppointmentLister
	out          Broadcaster
	loc          *time.Location
	now          func() time.Time
	timeout      time.Duration
	logger       zerolog.Logger
}

func NewService(appointments AppointmentLister, out Broadcaster, loc *time.Location, logger *zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		appointments: appointments,
		out:          out,
		loc:          loc,
		now:          time.Now,
		timeout:      2 * time.Minute,
		logger:       logger.With().Str("component", "agenda").Logger(),
	}
}

// Schedule registers the daily digest on c. An empty spec uses DefaultSpec.
func (s *Service) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	id, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.SendToday(ctx); err != nil {
			s.logger.Error().Err(err).Msg("daily agenda failed")
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule agenda %q: %w", spec, err)
	}
	return id, nil
}

// SendToday sends the digest for the current business day.
func (s *Service) SendToday(ctx context.Context) error {
	date := model.FormatDate(s.now().In(s.loc))
	text, count, err := s.Digest(ctx, date)
	if err != nil {
		return err
	}
	if err := s.out.Broadcast(ctx, text); err != nil {
		return fmt.Errorf("send agenda: %w", err)
	}
	s.logger.Info().Str("date", date).Int("appointments", count).Msg("daily agenda sent")
	return nil
}

// Digest renders the scheduled test drives for date.
func (s *Service) Digest(ctx context.Context, date string) (string, int, error) {
	list, err := s.appointments.List(ctx, model.AppointmentFilter{
		From:   date,
		To:     date,
		Status: model.StatusScheduled,
	})
	if err != nil {
		return "", 0, fmt.Errorf("list appointments: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Test drives for %s", date)
	if len(list) == 0 {
		b.WriteString("\nNo appointments scheduled.")
		return b.String(), 0, nil
	}
	for _, a := range list {
		fmt.Fprintf(&b, "\n%s  %s", a.Time, a.CustomerName)
		if a.VehicleReference != "" {
			fmt.Fprintf(&b, " (%s)", a.VehicleReference)
		}
		if a.CustomerPhone != "" {
			fmt.Fprintf(&b, ", %s", a.CustomerPhone)
		}
	}
	return b.String(), len(list), nil
}
