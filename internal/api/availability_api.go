package api

import (
	"net/http"
	"strconv"
	"time"

	"showroom/internal/model"
)

// SlotsResponse is the response for GET /api/availability/slots.
type SlotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// OpenResponse is the response for GET /api/availability/open.
type OpenResponse struct {
	At   string `json:"at"`
	Open bool   `json:"open"`
}

// NextOpeningResponse is the response for GET /api/availability/next. Date is
// empty when nothing opens within the horizon.
type NextOpeningResponse struct {
	Found   bool   `json:"found"`
	Date    string `json:"date,omitempty"`
	Day     string `json:"day,omitempty"`
	Time    string `json:"time,omitempty"`
	Special bool   `json:"special,omitempty"`
}

// handleGetSchedule returns the business hours document.
// GET /api/schedule
func (s *HTTPServer) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.schedule.Load(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleSlots lists bookable start times for a date.
// GET /api/availability/slots?date=YYYY-MM-DD
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	slots, err := s.bookings.Slots(r.Context(), date)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, SlotsResponse{Date: date, Slots: slots})
}

// handleIsOpen reports whether the showroom is open at an instant, now by default.
// GET /api/availability/open?at=RFC3339
func (s *HTTPServer) handleIsOpen(w http.ResponseWriter, r *http.Request) {
	at, ok := s.parseInstant(w, r, "at")
	if !ok {
		return
	}
	open, err := s.bookings.IsOpen(r.Context(), at)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OpenResponse{At: at.Format(time.RFC3339), Open: open})
}

// handleNextOpening finds the next day the showroom opens.
// GET /api/availability/next?from=RFC3339&include_today=true
func (s *HTTPServer) handleNextOpening(w http.ResponseWriter, r *http.Request) {
	from, ok := s.parseInstant(w, r, "from")
	if !ok {
		return
	}
	includeToday := false
	if raw := r.URL.Query().Get("include_today"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "include_today must be true or false")
			return
		}
		includeToday = v
	}

	opening, err := s.bookings.NextOpening(r.Context(), from, includeToday)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if opening == nil {
		writeJSON(w, http.StatusOK, NextOpeningResponse{})
		return
	}
	writeJSON(w, http.StatusOK, NextOpeningResponse{
		Found:   true,
		Date:    opening.Date,
		Day:     opening.Day.Title(),
		Time:    opening.Time,
		Special: opening.Special,
	})
}

// parseInstant reads an RFC 3339 instant or a bare date from the query. A
// missing value means now; a bare date means its midnight in the business
// timezone.
func (s *HTTPServer) parseInstant(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	loc := s.bookings.Engine().Location
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return s.now().In(loc), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if d, err := model.ParseDate(raw, loc); err == nil {
		return d, true
	}
	writeError(w, http.StatusBadRequest, key+" must be RFC 3339 or YYYY-MM-DD")
	return time.Time{}, false
}
