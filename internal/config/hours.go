package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"showroom/internal/model"
)

// WindowConfig is an opening window.
type WindowConfig struct {
	OpenTime  string `yaml:"open_time"`  // "09:00"
	CloseTime string `yaml:"close_time"` // "18:00"
}

// SpecialHoursConfig opens a single date with its own hours.
type SpecialHoursConfig struct {
	Date         string `yaml:"date"` // "2024-12-24"
	WindowConfig `yaml:",inline"`
}

// HolidayConfig represents a holiday configuration.
type HolidayConfig struct {
	Date string `yaml:"date"` // "2024-12-25"
	Name string `yaml:"name"` // "Christmas Day"
}

// HoursDefaultsConfig holds the regular week.
type HoursDefaultsConfig struct {
	WindowConfig `yaml:",inline"`
	DaysOff      []int `yaml:"days_off"` // 1=Mon, 7=Sun
}

// HoursConfig is the root of hours.yaml. It seeds the stored schedule the
// first time the service starts against an empty store.
type HoursConfig struct {
	Defaults     HoursDefaultsConfig  `yaml:"defaults"`
	SpecialHours []SpecialHoursConfig `yaml:"special_hours"`
	Holidays     []HolidayConfig      `yaml:"holidays"`
}

// LoadHoursConfig loads and validates the hours seed from YAML.
func LoadHoursConfig(path string) (*HoursConfig, error) {
	if path == "" {
		path = "configs/hours.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hours config: %w", err)
	}

	var cfg HoursConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse hours config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate hours config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *HoursConfig) Validate() error {
	if err := validateWindow(c.Defaults.WindowConfig, "defaults", true); err != nil {
		return err
	}

	for i, d := range c.Defaults.DaysOff {
		if d < 1 || d > 7 {
			return fmt.Errorf("defaults.days_off[%d]: invalid day %d, must be 1-7 (1=Mon, 7=Sun)", i, d)
		}
	}

	seen := make(map[string]string)
	for i, s := range c.SpecialHours {
		prefix := fmt.Sprintf("special_hours[%d]", i)
		if err := validateDate(s.Date, prefix, seen); err != nil {
			return err
		}
		if err := validateWindow(s.WindowConfig, prefix, false); err != nil {
			return err
		}
	}

	for i, h := range c.Holidays {
		if err := validateDate(h.Date, fmt.Sprintf("holiday[%d]", i), seen); err != nil {
			return err
		}
	}

	return nil
}

func validateDate(date, prefix string, seen map[string]string) error {
	if date == "" {
		return fmt.Errorf("%s: date is required", prefix)
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return fmt.Errorf("%s: invalid date format '%s', expected YYYY-MM-DD", prefix, date)
	}
	if other, dup := seen[date]; dup {
		return fmt.Errorf("%s: date %s already used by %s", prefix, date, other)
	}
	seen[date] = prefix
	return nil
}

// validateWindow checks an opening window. Empty defaults fall back to the
// built-in hours, so they are allowed when optional is true.
func validateWindow(w WindowConfig, prefix string, optional bool) error {
	if optional && w.OpenTime == "" && w.CloseTime == "" {
		return nil
	}
	if w.OpenTime == "" {
		return fmt.Errorf("%s.open_time is required", prefix)
	}
	if w.CloseTime == "" {
		return fmt.Errorf("%s.close_time is required", prefix)
	}

	open, err := model.ParseClock(w.OpenTime)
	if err != nil {
		return fmt.Errorf("%s.open_time: invalid format '%s', expected HH:MM", prefix, w.OpenTime)
	}
	close, err := model.ParseClock(w.CloseTime)
	if err != nil {
		return fmt.Errorf("%s.close_time: invalid format '%s', expected HH:MM", prefix, w.CloseTime)
	}
	if close <= open {
		return fmt.Errorf("%s: close_time must be after open_time", prefix)
	}
	return nil
}

// IsDayOff checks if a weekday is a day off.
func (c *HoursConfig) IsDayOff(weekday time.Weekday) bool {
	// Convert Go's weekday (0=Sun) to our format (1=Mon, 7=Sun)
	day := int(weekday)
	if day == 0 {
		day = 7
	}

	for _, d := range c.Defaults.DaysOff {
		if d == day {
			return true
		}
	}
	return false
}

// Schedule builds the initial schedule document.
func (c *HoursConfig) Schedule() *model.ScheduleConfiguration {
	cfg := model.DefaultScheduleConfiguration(c.Defaults.OpenTime, c.Defaults.CloseTime)
	for i := range cfg.WorkingDays {
		entry := &cfg.WorkingDays[i]
		w, _ := entry.DayOfWeek.Weekday()
		if c.IsDayOff(w) {
			entry.DayHours = model.DayHours{IsHoliday: true, HolidayName: model.StringPtr("Closed")}
			continue
		}
		entry.DayHours = model.DayHours{
			IsOpen:    true,
			OpenTime:  model.StringPtr(cfg.DefaultOpenTime),
			CloseTime: model.StringPtr(cfg.DefaultCloseTime),
		}
	}

	for _, s := range c.SpecialHours {
		cfg.SetSpecialDate(model.SpecialDateOverride{
			Date: s.Date,
			DayHours: model.DayHours{
				IsOpen:    true,
				OpenTime:  model.StringPtr(s.OpenTime),
				CloseTime: model.StringPtr(s.CloseTime),
			},
		})
	}
	for _, h := range c.Holidays {
		cfg.SetSpecialDate(model.SpecialDateOverride{
			Date:     h.Date,
			DayHours: model.DayHours{IsHoliday: true, HolidayName: model.StringPtr(h.Name)},
		})
	}
	cfg.Normalize()
	return cfg
}

// String returns a summary of the configuration.
func (c *HoursConfig) String() string {
	return fmt.Sprintf("HoursConfig: %d days off, %d special dates, %d holidays",
		len(c.Defaults.DaysOff), len(c.SpecialHours), len(c.Holidays))
}
