// Package availability answers opening-hours questions over a schedule configuration:
// is the showroom open at an instant, which test-drive slots exist on a date, and when
// does it next open. Everything here is pure; a nil configuration means every day is closed.
package availability

import (
	"time"

	"showroom/internal/model"
)

const (
	DefaultIntervalMinutes = 60
	DefaultHorizonDays     = 30
	weekDays               = 7
)

// DayRule is the rule that governs one calendar date.
type DayRule struct {
	model.DayHours
	Date    string
	Day     model.DayOfWeek
	Special bool
}

// EffectiveDay resolves the rule for date's calendar day. A special-date override wins
// outright; otherwise the weekly entry for the weekday applies. ok is false when
// neither exists.
func EffectiveDay(cfg *model.ScheduleConfiguration, date time.Time) (DayRule, bool) {
	if cfg == nil {
		return DayRule{}, false
	}

	key := model.FormatDate(date)
	day := model.DayOf(date.Weekday())

	if o := cfg.SpecialDate(key); o != nil {
		return DayRule{DayHours: o.DayHours, Date: key, Day: day, Special: true}, true
	}
	if w := cfg.Weekday(date.Weekday()); w != nil {
		return DayRule{DayHours: w.DayHours, Date: key, Day: day}, true
	}
	return DayRule{}, false
}

// IsOpenAt reports whether instant falls inside opening hours. The calendar date and
// wall-clock minute are taken in instant's own location. Both ends are inclusive, so
// the closing minute itself still counts as open.
func IsOpenAt(cfg *model.ScheduleConfiguration, instant time.Time) bool {
	rule, ok := EffectiveDay(cfg, instant)
	if !ok {
		return false
	}
	open, close, ok := rule.Hours()
	if !ok {
		return false
	}
	t := model.ClockOf(instant)
	return open <= t && t <= close
}

// GenerateSlots lists the "HH:MM" start times bookable on date's calendar day. Starts
// step from the opening time by intervalMinutes (DefaultIntervalMinutes when <= 0) and
// are kept only while strictly before closing. Blocked or closed dates yield no slots.
func GenerateSlots(cfg *model.ScheduleConfiguration, date time.Time, blocked model.BlockedDates, intervalMinutes int) []string {
	if blocked.Contains(model.FormatDate(date)) {
		return []string{}
	}

	rule, ok := EffectiveDay(cfg, date)
	if !ok {
		return []string{}
	}
	open, close, ok := rule.Hours()
	if !ok || close <= open {
		return []string{}
	}

	if intervalMinutes <= 0 {
		intervalMinutes = DefaultIntervalMinutes
	}

	slots := make([]string, 0, (close-open)/intervalMinutes+1)
	for cursor := open; cursor < close && cursor < model.MinutesPerDay; cursor += intervalMinutes {
		slots = append(slots, model.FormatClock(cursor))
	}
	return slots
}

// Opening is the first opening found by NextOpening.
type Opening struct {
	Date    string          `json:"date"`
	Day     model.DayOfWeek `json:"day"`
	Time    string          `json:"time"`
	Special bool            `json:"special"`
}

// NextOpening finds the next opening after from's calendar day.
//
// Special dates from from+1 through from+horizonDays are checked first, nearest date
// first. Only when none of them opens does the weekly schedule get consulted, for the
// seven days following from. Returns nil when nothing opens.
func NextOpening(cfg *model.ScheduleConfiguration, from time.Time, horizonDays int) *Opening {
	return nextOpening(cfg, model.StartOfDay(from).AddDate(0, 0, 1), horizonDays)
}

// NextOpeningFrom is NextOpening with the scan starting on from's own date.
func NextOpeningFrom(cfg *model.ScheduleConfiguration, from time.Time, horizonDays int) *Opening {
	return nextOpening(cfg, model.StartOfDay(from), horizonDays)
}

func nextOpening(cfg *model.ScheduleConfiguration, start time.Time, horizonDays int) *Opening {
	if cfg == nil {
		return nil
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	for i := 0; i < horizonDays; i++ {
		d := start.AddDate(0, 0, i)
		key := model.FormatDate(d)
		o := cfg.SpecialDate(key)
		if o == nil || !opens(o.DayHours) {
			continue
		}
		return &Opening{
			Date:    key,
			Day:     model.DayOf(d.Weekday()),
			Time:    *o.OpenTime,
			Special: true,
		}
	}

	for i := 0; i < weekDays; i++ {
		d := start.AddDate(0, 0, i)
		w := cfg.Weekday(d.Weekday())
		if w == nil || !opens(w.DayHours) {
			continue
		}
		return &Opening{
			Date: model.FormatDate(d),
			Day:  w.DayOfWeek,
			Time: *w.OpenTime,
		}
	}
	return nil
}

func opens(h model.DayHours) bool {
	if !h.IsOpen || h.IsHoliday || h.OpenTime == nil || *h.OpenTime == "" {
		return false
	}
	// A missing close time still counts; an inverted window never opens.
	if h.CloseTime != nil {
		open, openErr := model.ParseClock(*h.OpenTime)
		close, closeErr := model.ParseClock(*h.CloseTime)
		if openErr == nil && closeErr == nil && open >= close {
			return false
		}
	}
	return true
}

// Engine binds the engine functions to a fixed slot interval, horizon and business
// timezone.
type Engine struct {
	Interval int
	Horizon  int
	Location *time.Location
}

// NewEngine returns an Engine, substituting defaults for non-positive values and UTC
// for a nil location.
func NewEngine(interval, horizon int, loc *time.Location) Engine {
	if interval <= 0 {
		interval = DefaultIntervalMinutes
	}
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}
	if loc == nil {
		loc = time.UTC
	}
	return Engine{Interval: interval, Horizon: horizon, Location: loc}
}

// Slots generates slots for a "YYYY-MM-DD" date in the engine's timezone.
func (e Engine) Slots(cfg *model.ScheduleConfiguration, date string, blocked model.BlockedDates) ([]string, error) {
	d, err := model.ParseDate(date, e.loc())
	if err != nil {
		return nil, err
	}
	return GenerateSlots(cfg, d, blocked, e.Interval), nil
}

// IsOpen converts instant to the business timezone before checking.
func (e Engine) IsOpen(cfg *model.ScheduleConfiguration, instant time.Time) bool {
	return IsOpenAt(cfg, instant.In(e.loc()))
}

// Next finds the next opening, optionally including from's own date.
func (e Engine) Next(cfg *model.ScheduleConfiguration, from time.Time, includeToday bool) *Opening {
	from = from.In(e.loc())
	if includeToday {
		return NextOpeningFrom(cfg, from, e.Horizon)
	}
	return NextOpening(cfg, from, e.Horizon)
}

// IsBookable reports whether clock is one of the generated slots for date.
func (e Engine) IsBookable(cfg *model.ScheduleConfiguration, date, clock string, blocked model.BlockedDates) bool {
	slots, err := e.Slots(cfg, date, blocked)
	if err != nil {
		return false
	}
	for _, s := range slots {
		if s == clock {
			return true
		}
	}
	return false
}

func (e Engine) loc() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}
