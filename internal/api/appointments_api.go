package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"showroom/internal/export"
	"showroom/internal/model"
)

const maxListLimit = 500

// StatusRequest is the request body for PATCH /api/admin/appointments/{id}.
type StatusRequest struct {
	Status model.AppointmentStatus `json:"status"`
}

// AppointmentsResponse is the response for GET /api/admin/appointments.
type AppointmentsResponse struct {
	Appointments []model.Appointment `json:"appointments"`
	Count        int                 `json:"count"`
}

// handleSubmitAppointment books a test drive.
// POST /api/appointments
func (s *HTTPServer) handleSubmitAppointment(w http.ResponseWriter, r *http.Request) {
	var req model.BookingRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	appt, err := s.bookings.Submit(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// handleListAppointments lists appointments by date range and status.
// GET /api/admin/appointments?from=&to=&status=&limit=
func (s *HTTPServer) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseAppointmentFilter(w, r)
	if !ok {
		return
	}
	items, err := s.bookings.List(r.Context(), filter)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if items == nil {
		items = []model.Appointment{}
	}
	writeJSON(w, http.StatusOK, AppointmentsResponse{Appointments: items, Count: len(items)})
}

// handleChangeStatus closes out a scheduled appointment.
// PATCH /api/admin/appointments/{id}
func (s *HTTPServer) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
		return
	}

	appt, err := s.bookings.ChangeStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.logger.Info().Str("by", actor(r.Context())).Str("appointment_id", appt.ID).Str("status", string(appt.Status)).Msg("appointment status updated")
	writeJSON(w, http.StatusOK, appt)
}

// handleExportAppointments downloads the filtered appointments as a workbook.
// GET /api/admin/appointments/export?from=&to=&status=
func (s *HTTPServer) handleExportAppointments(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseAppointmentFilter(w, r)
	if !ok {
		return
	}
	items, err := s.bookings.List(r.Context(), filter)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteAppointments(&buf, items, s.bookings.Engine().Location); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(filter.From, filter.To)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func parseAppointmentFilter(w http.ResponseWriter, r *http.Request) (model.AppointmentFilter, bool) {
	q := r.URL.Query()
	filter := model.AppointmentFilter{
		From:   q.Get("from"),
		To:     q.Get("to"),
		Status: model.AppointmentStatus(q.Get("status")),
	}
	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := model.ParseDate(d, nil); err != nil {
			writeError(w, http.StatusBadRequest, "from and to must be YYYY-MM-DD")
			return filter, false
		}
	}
	if filter.From != "" && filter.To != "" && filter.From > filter.To {
		writeError(w, http.StatusBadRequest, "from must not be after to")
		return filter, false
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", filter.Status))
		return filter, false
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return filter, false
		}
		filter.Limit = n
	}
	return filter, true
}
