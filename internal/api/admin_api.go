package api

import (
	"errors"
	"net/http"

	"showroom/internal/events"
	"showroom/internal/metrics"
	"showroom/internal/model"
	"showroom/internal/store"
)

// BlockDateRequest is the request body for POST /api/admin/blocked-dates.
type BlockDateRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

// ScheduleUpdate is the payload of schedule.updated.
type ScheduleUpdate struct {
	Revision int64  `json:"revision"`
	By       string `json:"by,omitempty"`
}

// handleSaveSchedule replaces the business hours document. A non-zero revision
// must match the stored one.
// PUT /api/admin/schedule
func (s *HTTPServer) handleSaveSchedule(w http.ResponseWriter, r *http.Request) {
	var cfg model.ScheduleConfiguration
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.saveSchedule(w, r, &cfg)
}

// handleApplyDefaults copies the default open and close times onto every open
// weekday and saves the result.
// POST /api/admin/schedule/apply-defaults
func (s *HTTPServer) handleApplyDefaults(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.schedule.Load(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	cfg.ApplyDefaultHours()
	s.saveSchedule(w, r, cfg)
}

func (s *HTTPServer) saveSchedule(w http.ResponseWriter, r *http.Request, cfg *model.ScheduleConfiguration) {
	saved, err := s.schedule.Save(r.Context(), cfg)
	if err != nil {
		var fieldErrs model.ValidationErrors
		switch {
		case errors.As(err, &fieldErrs):
			metrics.IncScheduleSave("invalid")
		case errors.Is(err, store.ErrConflict):
			metrics.IncScheduleSave("conflict")
		default:
			metrics.IncScheduleSave("error")
		}
		s.writeFailure(w, r, err)
		return
	}
	metrics.IncScheduleSave("ok")
	s.logger.Info().Str("by", actor(r.Context())).Int64("revision", saved.Revision).Msg("schedule saved")

	if s.bus != nil {
		if err := s.bus.PublishJSON(events.ScheduleUpdated, ScheduleUpdate{Revision: saved.Revision, By: actor(r.Context())}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish schedule update")
		}
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleListBlocked lists blocked dates.
// GET /api/admin/blocked-dates
func (s *HTTPServer) handleListBlocked(w http.ResponseWriter, r *http.Request) {
	list, err := s.blocked.List(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleAddBlocked closes a date to new bookings.
// POST /api/admin/blocked-dates
func (s *HTTPServer) handleAddBlocked(w http.ResponseWriter, r *http.Request) {
	var req BlockDateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	b, err := s.blocked.Add(r.Context(), req.Date, req.Reason)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.logger.Info().Str("by", actor(r.Context())).Str("date", b.Date).Msg("date blocked")
	writeJSON(w, http.StatusCreated, b)
}

// handleRemoveBlocked reopens a date.
// DELETE /api/admin/blocked-dates/{date}
func (s *HTTPServer) handleRemoveBlocked(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if err := s.blocked.Remove(r.Context(), date); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.logger.Info().Str("by", actor(r.Context())).Str("date", date).Msg("date unblocked")
	w.WriteHeader(http.StatusNoContent)
}
