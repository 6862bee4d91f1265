package model

import (
	"strings"
	"time"
)

// AppointmentStatus is the lifecycle state of a test-drive appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// CanTransition reports whether an appointment may move from s to next.
// Only scheduled appointments change state.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	if !next.Valid() || s == next {
		return false
	}
	return s == StatusScheduled
}

// BookingRequest is a customer's proposed test drive.
type BookingRequest struct {
	Date             string `json:"date"` // YYYY-MM-DD
	Time             string `json:"time"` // HH:MM
	CustomerName     string `json:"customerName"`
	CustomerEmail    string `json:"customerEmail"`
	CustomerPhone    string `json:"customerPhone"`
	VehicleReference string `json:"vehicleReference,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (r *BookingRequest) Normalize() {
	for _, p := range []*string{&r.Date, &r.Time, &r.CustomerName, &r.CustomerEmail,
		&r.CustomerPhone, &r.VehicleReference, &r.Notes} {
		*p = strings.TrimSpace(*p)
	}
	r.CustomerEmail = strings.ToLower(r.CustomerEmail)
}

// Appointment is a persisted test-drive booking.
type Appointment struct {
	ID               string            `json:"id"`
	CustomerName     string            `json:"customerName"`
	CustomerEmail    string            `json:"customerEmail,omitempty"`
	CustomerPhone    string            `json:"customerPhone,omitempty"`
	VehicleReference string            `json:"vehicleReference,omitempty"`
	ScheduledAt      time.Time         `json:"scheduledAt"`
	Date             string            `json:"date"`
	Time             string            `json:"time"`
	Notes            string            `json:"notes,omitempty"`
	Status           AppointmentStatus `json:"status"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// AppointmentFilter narrows appointment listings. Empty fields match everything;
// From and To are inclusive "YYYY-MM-DD" bounds.
type AppointmentFilter struct {
	From   string
	To     string
	Status AppointmentStatus
	Limit  int
}
