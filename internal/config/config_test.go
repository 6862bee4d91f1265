package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom/internal/model"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadExpandsEnvAndDefaults(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "123:abc")
	dbPath := filepath.Join(t.TempDir(), "nested", "showroom.db")
	path := writeFile(t, "config.yaml", `
telegram:
  bot_token: "${TEST_BOT_TOKEN}"
  managers: [1001, 1002]
business:
  timezone: "Europe/Berlin"
database:
  path: "`+dbPath+`"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, []int64{1001, 1002}, cfg.Telegram.Managers)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.DirExists(t, filepath.Dir(dbPath))

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	assert.Equal(t, 60, cfg.SlotInterval())
	assert.Equal(t, 30, cfg.HorizonDays())
	assert.Equal(t, time.Duration(0), cfg.BookingMinAdvance())
	assert.Equal(t, 90, cfg.BookingMaxAdvanceDays())
	assert.Equal(t, ":8080", cfg.ServerAddress())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, "configs/hours.yaml", cfg.HoursPath())

	perSecond, burst := cfg.SubmitRate()
	assert.InDelta(t, 0.1, perSecond, 1e-9)
	assert.Equal(t, 3, burst)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown driver", "database:\n  driver: mongo\n"},
		{"firestore without project", "database:\n  driver: firestore\n"},
		{"bad timezone", "business:\n  timezone: Mars/Olympus\n"},
		{"negative interval", "business:\n  slot_interval_minutes: -15\n"},
		{"malformed yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadHoursConfig(t *testing.T) {
	path := writeFile(t, "hours.yaml", `
defaults:
  open_time: "08:30"
  close_time: "17:00"
  days_off: [6, 7]
special_hours:
  - date: "2024-12-24"
    open_time: "09:00"
    close_time: "13:00"
holidays:
  - date: "2024-12-25"
    name: "Christmas Day"
`)

	hours, err := LoadHoursConfig(path)
	require.NoError(t, err)
	assert.True(t, hours.IsDayOff(time.Saturday))
	assert.True(t, hours.IsDayOff(time.Sunday))
	assert.False(t, hours.IsDayOff(time.Monday))

	cfg := hours.Schedule()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "08:30", cfg.DefaultOpenTime)

	sat := cfg.Weekday(time.Saturday)
	require.NotNil(t, sat)
	assert.True(t, sat.IsHoliday)
	assert.False(t, sat.IsOpen)

	mon := cfg.Weekday(time.Monday)
	require.NotNil(t, mon)
	assert.Equal(t, "17:00", model.StringValue(mon.CloseTime))

	require.Len(t, cfg.SpecialDates, 2)
	assert.Equal(t, "2024-12-24", cfg.SpecialDates[0].Date)
	assert.True(t, cfg.SpecialDates[0].IsOpen)
	assert.Equal(t, "Christmas Day", model.StringValue(cfg.SpecialDates[1].HolidayName))
}

func TestHoursConfigValidate(t *testing.T) {
	window := func(open, close string) WindowConfig { return WindowConfig{OpenTime: open, CloseTime: close} }
	tests := []struct {
		name    string
		cfg     HoursConfig
		wantErr string
	}{
		{name: "empty uses built-in hours", cfg: HoursConfig{}},
		{
			name:    "close before open",
			cfg:     HoursConfig{Defaults: HoursDefaultsConfig{WindowConfig: window("18:00", "09:00")}},
			wantErr: "close_time must be after open_time",
		},
		{
			name:    "missing close",
			cfg:     HoursConfig{Defaults: HoursDefaultsConfig{WindowConfig: window("09:00", "")}},
			wantErr: "defaults.close_time is required",
		},
		{
			name:    "bad clock",
			cfg:     HoursConfig{Defaults: HoursDefaultsConfig{WindowConfig: window("9am", "18:00")}},
			wantErr: "expected HH:MM",
		},
		{
			name:    "bad day off",
			cfg:     HoursConfig{Defaults: HoursDefaultsConfig{DaysOff: []int{0}}},
			wantErr: "must be 1-7",
		},
		{
			name:    "special hours need a window",
			cfg:     HoursConfig{SpecialHours: []SpecialHoursConfig{{Date: "2024-12-24"}}},
			wantErr: "special_hours[0].open_time is required",
		},
		{
			name:    "bad holiday date",
			cfg:     HoursConfig{Holidays: []HolidayConfig{{Date: "25.12.2024"}}},
			wantErr: "expected YYYY-MM-DD",
		},
		{
			name: "date used twice",
			cfg: HoursConfig{
				SpecialHours: []SpecialHoursConfig{{Date: "2024-12-24", WindowConfig: window("09:00", "12:00")}},
				Holidays:     []HolidayConfig{{Date: "2024-12-24", Name: "Eve"}},
			},
			wantErr: "already used",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
