package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"showroom/internal/model"
)

func TestWriteAppointments(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	list := []model.Appointment{
		{
			ID: "a1", Date: "2024-01-08", Time: "10:00", Status: model.StatusScheduled,
			CustomerName: "Dana Reyes", CustomerEmail: "dana@example.com",
			CreatedAt: time.Date(2024, 1, 5, 18, 30, 0, 0, time.UTC),
		},
		{ID: "a2", Date: "2024-01-08", Time: "11:00", Status: model.StatusCancelled, CustomerName: "Sam Lee", CustomerPhone: "555-0100"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAppointments(&buf, list, chicago))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Appointments", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Appointments")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, AppointmentColumns, rows[0])
	assert.Equal(t, []string{"a1", "2024-01-08", "10:00", "scheduled", "Dana Reyes", "dana@example.com", "", "", "", "2024-01-05 12:30"}, rows[1])
	assert.Equal(t, "555-0100", rows[2][6])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Status", "Count"},
		{"scheduled", "1"},
		{"completed", "0"},
		{"cancelled", "1"},
		{"no_show", "0"},
		{"total", "2"},
	}, summary)
}

func TestWriterRequiresSheet(t *testing.T) {
	w := NewWriter()
	defer w.Close()
	assert.Error(t, w.WriteRow([]any{"x"}))
	assert.Error(t, w.WriteHeader([]string{"x"}))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "appointments.xlsx", Filename("", ""))
	assert.Equal(t, "appointments_2024-01-01_2024-01-31.xlsx", Filename("2024-01-01", "2024-01-31"))
	assert.Equal(t, "appointments_from_2024-01-01.xlsx", Filename("2024-01-01", ""))
	assert.Equal(t, "appointments_to_2024-01-31.xlsx", Filename("", "2024-01-31"))
}
