package booking

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"showroom/internal/model"
)

var (
	ErrSlotUnavailable = errors.New("requested time is not an available slot")
	ErrInvalidStatus   = errors.New("invalid status transition")
)

const (
	maxNameLength  = 100
	maxNotesLength = 2000
)

// Rules bound how far ahead a test drive may be booked.
type Rules struct {
	MinAdvance     time.Duration
	MaxAdvanceDays int
}

// ValidationError lists every problem found with a booking request.
type ValidationError struct {
	Fields model.ValidationErrors
	cause  error
}

func (e *ValidationError) Error() string {
	return e.Fields.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// IsValidation reports whether err carries request validation problems.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks req against the generated slots for its date. now must be in the
// business timezone; it decides what counts as today.
func Validate(req model.BookingRequest, slots []string, now time.Time, rules Rules) error {
	var errs model.ValidationErrors
	var cause error

	name := strings.TrimSpace(req.CustomerName)
	switch {
	case name == "":
		errs.Add("customerName", "required")
	case utf8.RuneCountInString(name) > maxNameLength:
		errs.Add("customerName", "must be at most %d characters", maxNameLength)
	}

	email := strings.TrimSpace(req.CustomerEmail)
	phone := strings.TrimSpace(req.CustomerPhone)
	if email == "" && phone == "" {
		errs.Add("customerEmail", "email or phone is required")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			errs.Add("customerEmail", "invalid email address")
		}
	}
	if phone != "" && !validPhone(phone) {
		errs.Add("customerPhone", "invalid phone number")
	}
	if utf8.RuneCountInString(req.Notes) > maxNotesLength {
		errs.Add("notes", "must be at most %d characters", maxNotesLength)
	}

	date, dateErr := model.ParseDate(req.Date, now.Location())
	if dateErr != nil {
		errs.Add("date", "expected YYYY-MM-DD")
	}
	minutes, clockErr := model.ParseClock(req.Time)
	if clockErr != nil {
		errs.Add("time", "expected HH:MM")
	}

	dateOK := dateErr == nil
	if dateOK {
		today := model.StartOfDay(now)
		switch {
		case date.Before(today):
			errs.Add("date", "cannot book in the past")
			dateOK = false
		case rules.MaxAdvanceDays > 0 && date.After(today.AddDate(0, 0, rules.MaxAdvanceDays)):
			errs.Add("date", "cannot book more than %d days ahead", rules.MaxAdvanceDays)
			dateOK = false
		}
	}

	if dateOK && clockErr == nil {
		start := date.Add(time.Duration(minutes) * time.Minute)
		switch {
		case !containsSlot(slots, model.FormatClock(minutes)):
			errs.Add("time", "%s is not available on %s", req.Time, req.Date)
			cause = ErrSlotUnavailable
		case rules.MinAdvance > 0 && start.Before(now.Add(rules.MinAdvance)):
			errs.Add("time", "must be at least %s from now", rules.MinAdvance)
		case start.Before(now):
			errs.Add("time", "cannot book in the past")
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs, cause: cause}
}

func containsSlot(slots []string, clock string) bool {
	for _, s := range slots {
		if s == clock {
			return true
		}
	}
	return false
}

func validPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}
