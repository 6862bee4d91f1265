// Package google mirrors appointments into a Google Sheets spreadsheet.
package google

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"showroom/internal/booking"
	"showroom/internal/events"
	"showroom/internal/metrics"
	"showroom/internal/model"
)

const channel = "sheets"

// Header is the first row of the appointments sheet.
var Header = []any{"ID", "Date", "Time", "Status", "Customer", "Email", "Phone", "Vehicle", "Notes", "Created", "Updated"}

// NewSheetsAPI builds a Sheets client from a service account key file.
func NewSheetsAPI(ctx context.Context, credentialsFile string) (*sheets.Service, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := googleoauth.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
}

type job struct {
	appointment model.Appointment
	created     bool
}

// SheetsService appends new appointments and keeps their status column current.
type SheetsService struct {
	api           *sheets.Service
	spreadsheetID string
	sheetName     string
	queue         chan job
	logger        zerolog.Logger

	mu       sync.Mutex
	rowCache map[string]int
	wg       sync.WaitGroup
}

func NewSheetsService(api *sheets.Service, spreadsheetID, sheetName string, logger *zerolog.Logger) *SheetsService {
	if sheetName == "" {
		sheetName = "Appointments"
	}
	return &SheetsService{
		api:           api,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		queue:         make(chan job, 100),
		rowCache:      make(map[string]int),
		logger:        logger.With().Str("component", "sheets").Logger(),
	}
}

// Subscribe registers the sync on the bus.
func (s *SheetsService) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.AppointmentCreated, func(ev events.Event) error {
		var a model.Appointment
		if err := ev.Decode(&a); err != nil {
			return fmt.Errorf("decode appointment: %w", err)
		}
		s.enqueue(job{appointment: a, created: true})
		return nil
	})
	bus.Subscribe(events.AppointmentStatusChanged, func(ev events.Event) error {
		var change booking.StatusChange
		if err := ev.Decode(&change); err != nil {
			return fmt.Errorf("decode status change: %w", err)
		}
		s.enqueue(job{appointment: change.Appointment})
		return nil
	})
}

func (s *SheetsService) enqueue(j job) {
	select {
	case s.queue <- j:
	default:
		metrics.IncNotification(channel, "dropped")
		s.logger.Warn().Str("appointment_id", j.appointment.ID).Msg("sheets queue full, update dropped")
	}
}

// Start processes queued updates in the background until ctx is done.
func (s *SheetsService) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-s.queue:
				s.process(ctx, j)
			}
		}
	}()
	s.logger.Info().Str("spreadsheet", s.spreadsheetID).Msg("sheets sync started")
}

// Wait blocks until the background loop has returned.
func (s *SheetsService) Wait() {
	s.wg.Wait()
}

func (s *SheetsService) process(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var err error
	if j.created {
		err = s.AppendAppointment(ctx, j.appointment)
	} else {
		err = s.UpdateAppointment(ctx, j.appointment)
	}
	if err != nil {
		metrics.IncNotification(channel, "failed")
		s.logger.Error().Err(err).Str("appointment_id", j.appointment.ID).Msg("sheets sync failed")
		return
	}
	metrics.IncNotification(channel, "sent")
}

// EnsureHeader writes the header row when the sheet is empty.
func (s *SheetsService) EnsureHeader(ctx context.Context) error {
	rng := s.sheetName + "!A1:K1"
	resp, err := s.api.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) > 0 {
		return nil
	}
	_, err = s.api.Spreadsheets.Values.Update(s.spreadsheetID, rng, &sheets.ValueRange{Values: [][]any{Header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// AppendAppointment adds a row for a.
func (s *SheetsService) AppendAppointment(ctx context.Context, a model.Appointment) error {
	vr := &sheets.ValueRange{Values: [][]any{appointmentRowValues(&a)}}
	resp, err := s.api.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+"!A:K", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	if resp.Updates != nil {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(a.ID, row)
		}
	}
	return nil
}

// UpdateAppointment rewrites the row for a, appending it when missing.
func (s *SheetsService) UpdateAppointment(ctx context.Context, a model.Appointment) error {
	row, ok := s.getCachedRow(a.ID)
	if !ok {
		var err error
		row, ok, err = s.findRow(ctx, a.ID)
		if err != nil {
			return err
		}
		if !ok {
			return s.AppendAppointment(ctx, a)
		}
		s.setCachedRow(a.ID, row)
	}

	rng := fmt.Sprintf("%s!A%d:K%d", s.sheetName, row, row)
	vr := &sheets.ValueRange{Values: [][]any{appointmentRowValues(&a)}}
	if _, err := s.api.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		s.deleteCacheRow(a.ID)
		return fmt.Errorf("update row %d: %w", row, err)
	}
	return nil
}

func (s *SheetsService) findRow(ctx context.Context, id string) (int, bool, error) {
	resp, err := s.api.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read id column: %w", err)
	}
	for i, r := range resp.Values {
		if len(r) > 0 && fmt.Sprint(r[0]) == id {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

var rangeRowRe = regexp.MustCompile(`![A-Z]+(\d+)`)

// rowFromRange extracts the first row number from a range like "Sheet!A5:K5".
func rowFromRange(rng string) (int, bool) {
	m := rangeRowRe.FindStringSubmatch(rng)
	if m == nil {
		return 0, false
	}
	row, err := strconv.Atoi(m[1])
	return row, err == nil
}

func appointmentRowValues(a *model.Appointment) []any {
	return []any{
		a.ID,
		a.Date,
		a.Time,
		string(a.Status),
		a.CustomerName,
		a.CustomerEmail,
		a.CustomerPhone,
		a.VehicleReference,
		a.Notes,
		formatTimestamp(a.CreatedAt),
		formatTimestamp(a.UpdatedAt),
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) deleteCacheRow(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, id)
}

// ClearCache forgets every cached row position.
func (s *SheetsService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache = make(map[string]int)
}
