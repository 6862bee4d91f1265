package model

import (
	"sort"
	"strings"
	"time"
)

// DayOfWeek names a weekday in the stored schedule document.
type DayOfWeek string

const (
	Sunday    DayOfWeek = "sunday"
	Monday    DayOfWeek = "monday"
	Tuesday   DayOfWeek = "tuesday"
	Wednesday DayOfWeek = "wednesday"
	Thursday  DayOfWeek = "thursday"
	Friday    DayOfWeek = "friday"
	Saturday  DayOfWeek = "saturday"
)

// AllDays is indexed by time.Weekday.
var AllDays = [7]DayOfWeek{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// DayOf converts a time.Weekday.
func DayOf(w time.Weekday) DayOfWeek {
	return AllDays[int(w)%7]
}

// Weekday converts back to time.Weekday.
func (d DayOfWeek) Weekday() (time.Weekday, bool) {
	for i, day := range AllDays {
		if day == d {
			return time.Weekday(i), true
		}
	}
	return time.Sunday, false
}

func (d DayOfWeek) Valid() bool {
	_, ok := d.Weekday()
	return ok
}

// Title returns the capitalised name, e.g. "Monday".
func (d DayOfWeek) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// DayHours is the rule shape shared by weekly entries and date overrides.
type DayHours struct {
	IsOpen      bool    `json:"isOpen"`
	OpenTime    *string `json:"openTime,omitempty"`  // "09:00"
	CloseTime   *string `json:"closeTime,omitempty"` // "18:00"
	IsHoliday   bool    `json:"isHoliday"`
	HolidayName *string `json:"holidayName,omitempty"`
}

// Hours returns opening and closing minutes since midnight.
// ok is false when the day is closed, a holiday, its times are missing or malformed,
// or the window does not close after it opens.
func (h DayHours) Hours() (open, close int, ok bool) {
	if h.IsHoliday || !h.IsOpen || h.OpenTime == nil || h.CloseTime == nil {
		return 0, 0, false
	}
	open, err := ParseClock(*h.OpenTime)
	if err != nil {
		return 0, 0, false
	}
	close, err = ParseClock(*h.CloseTime)
	if err != nil || open >= close {
		return 0, 0, false
	}
	return open, close, true
}

func (h *DayHours) normalize() {
	for _, p := range []**string{&h.OpenTime, &h.CloseTime, &h.HolidayName} {
		if *p != nil && strings.TrimSpace(**p) == "" {
			*p = nil
		}
	}
	// "9:00" is stored as "09:00"; malformed values are left for validate to report.
	for _, p := range []**string{&h.OpenTime, &h.CloseTime} {
		if *p == nil {
			continue
		}
		if m, err := ParseClock(**p); err == nil {
			*p = StringPtr(FormatClock(m))
		}
	}
}

func (h DayHours) validate(field string, errs *ValidationErrors) {
	var open, close int
	var openErr, closeErr error
	if h.OpenTime != nil {
		if open, openErr = ParseClock(*h.OpenTime); openErr != nil {
			errs.Add(field+".openTime", "expected HH:MM, got %q", *h.OpenTime)
		}
	}
	if h.CloseTime != nil {
		if close, closeErr = ParseClock(*h.CloseTime); closeErr != nil {
			errs.Add(field+".closeTime", "expected HH:MM, got %q", *h.CloseTime)
		}
	}

	if !h.IsOpen || h.IsHoliday {
		return
	}
	if h.OpenTime == nil {
		errs.Add(field+".openTime", "required when open")
	}
	if h.CloseTime == nil {
		errs.Add(field+".closeTime", "required when open")
	}
	if h.OpenTime != nil && h.CloseTime != nil && openErr == nil && closeErr == nil && open >= close {
		errs.Add(field, "openTime must be before closeTime")
	}
}

// WeeklyScheduleEntry is the recurring rule for one weekday.
type WeeklyScheduleEntry struct {
	DayOfWeek DayOfWeek `json:"dayOfWeek"`
	DayHours
}

// SpecialDateOverride replaces the weekly rule for one calendar date.
type SpecialDateOverride struct {
	Date string `json:"date"` // "2024-12-25"
	DayHours
}

// ScheduleConfiguration is the business-wide hours document.
type ScheduleConfiguration struct {
	DefaultOpenTime  string                `json:"defaultOpenTime"`
	DefaultCloseTime string                `json:"defaultCloseTime"`
	WorkingDays      []WeeklyScheduleEntry `json:"workingDays"`
	SpecialDates     []SpecialDateOverride `json:"specialDates"`
	Revision         int64                 `json:"revision"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

const (
	DefaultOpenTime  = "09:00"
	DefaultCloseTime = "18:00"
)

// DefaultScheduleConfiguration opens Monday to Saturday with the given hours and closes Sunday.
func DefaultScheduleConfiguration(open, close string) *ScheduleConfiguration {
	if open == "" {
		open = DefaultOpenTime
	}
	if close == "" {
		close = DefaultCloseTime
	}

	cfg := &ScheduleConfiguration{
		DefaultOpenTime:  open,
		DefaultCloseTime: close,
		WorkingDays:      make([]WeeklyScheduleEntry, 0, len(AllDays)),
		SpecialDates:     []SpecialDateOverride{},
	}
	for _, day := range AllDays {
		entry := WeeklyScheduleEntry{DayOfWeek: day}
		if day == Sunday {
			entry.IsHoliday = true
			entry.HolidayName = StringPtr("Closed")
		} else {
			entry.IsOpen = true
			entry.OpenTime = StringPtr(open)
			entry.CloseTime = StringPtr(close)
		}
		cfg.WorkingDays = append(cfg.WorkingDays, entry)
	}
	return cfg
}

// Weekday returns the entry for w, or nil when the document has none.
func (c *ScheduleConfiguration) Weekday(w time.Weekday) *WeeklyScheduleEntry {
	if c == nil {
		return nil
	}
	day := DayOf(w)
	for i := range c.WorkingDays {
		if c.WorkingDays[i].DayOfWeek == day {
			return &c.WorkingDays[i]
		}
	}
	return nil
}

// SpecialDate returns the override for date ("YYYY-MM-DD"), or nil.
func (c *ScheduleConfiguration) SpecialDate(date string) *SpecialDateOverride {
	if c == nil {
		return nil
	}
	for i := range c.SpecialDates {
		if c.SpecialDates[i].Date == date {
			return &c.SpecialDates[i]
		}
	}
	return nil
}

// SetSpecialDate inserts or replaces the override for o.Date.
func (c *ScheduleConfiguration) SetSpecialDate(o SpecialDateOverride) {
	if existing := c.SpecialDate(o.Date); existing != nil {
		*existing = o
	} else {
		c.SpecialDates = append(c.SpecialDates, o)
	}
	c.sortSpecialDates()
}

// RemoveSpecialDate deletes the override for date. It reports whether one existed.
func (c *ScheduleConfiguration) RemoveSpecialDate(date string) bool {
	for i := range c.SpecialDates {
		if c.SpecialDates[i].Date == date {
			c.SpecialDates = append(c.SpecialDates[:i], c.SpecialDates[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyDefaultHours copies the default open and close times onto every open weekday.
func (c *ScheduleConfiguration) ApplyDefaultHours() {
	for i := range c.WorkingDays {
		day := &c.WorkingDays[i]
		if !day.IsOpen || day.IsHoliday {
			continue
		}
		day.OpenTime = StringPtr(c.DefaultOpenTime)
		day.CloseTime = StringPtr(c.DefaultCloseTime)
	}
}

// Normalize drops blank optional strings and orders weekdays and special dates.
func (c *ScheduleConfiguration) Normalize() {
	if c.WorkingDays == nil {
		c.WorkingDays = []WeeklyScheduleEntry{}
	}
	if c.SpecialDates == nil {
		c.SpecialDates = []SpecialDateOverride{}
	}
	for i := range c.WorkingDays {
		c.WorkingDays[i].DayOfWeek = DayOfWeek(strings.ToLower(string(c.WorkingDays[i].DayOfWeek)))
		c.WorkingDays[i].normalize()
	}
	for i := range c.SpecialDates {
		c.SpecialDates[i].Date = strings.TrimSpace(c.SpecialDates[i].Date)
		c.SpecialDates[i].normalize()
	}
	sort.SliceStable(c.WorkingDays, func(i, j int) bool {
		wi, _ := c.WorkingDays[i].DayOfWeek.Weekday()
		wj, _ := c.WorkingDays[j].DayOfWeek.Weekday()
		return wi < wj
	})
	c.sortSpecialDates()
}

func (c *ScheduleConfiguration) sortSpecialDates() {
	sort.SliceStable(c.SpecialDates, func(i, j int) bool {
		return c.SpecialDates[i].Date < c.SpecialDates[j].Date
	})
}

// Validate checks the document invariants: seven unique weekdays, unique well-formed
// special dates, and open/close times present and ordered on every open day.
func (c *ScheduleConfiguration) Validate() error {
	var errs ValidationErrors

	defOpen, errOpen := ParseClock(c.DefaultOpenTime)
	if errOpen != nil {
		errs.Add("defaultOpenTime", "expected HH:MM, got %q", c.DefaultOpenTime)
	}
	defClose, errClose := ParseClock(c.DefaultCloseTime)
	if errClose != nil {
		errs.Add("defaultCloseTime", "expected HH:MM, got %q", c.DefaultCloseTime)
	}
	if errOpen == nil && errClose == nil && defOpen >= defClose {
		errs.Add("defaultOpenTime", "must be before defaultCloseTime")
	}

	if len(c.WorkingDays) != len(AllDays) {
		errs.Add("workingDays", "expected %d entries, got %d", len(AllDays), len(c.WorkingDays))
	}
	seenDays := make(map[DayOfWeek]bool)
	for i, entry := range c.WorkingDays {
		field := "workingDays." + string(entry.DayOfWeek)
		if !entry.DayOfWeek.Valid() {
			errs.Add(field, "unknown day of week")
			continue
		}
		if seenDays[entry.DayOfWeek] {
			errs.Add(field, "duplicate day (index %d)", i)
		}
		seenDays[entry.DayOfWeek] = true
		entry.validate(field, &errs)
	}

	seenDates := make(map[string]bool)
	for _, o := range c.SpecialDates {
		field := "specialDates." + o.Date
		if _, err := ParseDate(o.Date, nil); err != nil {
			errs.Add(field, "expected YYYY-MM-DD")
			continue
		}
		if seenDates[o.Date] {
			errs.Add(field, "duplicate date")
		}
		seenDates[o.Date] = true
		o.validate(field, &errs)
	}

	return errs.Err()
}
