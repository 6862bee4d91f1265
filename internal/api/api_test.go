package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"showroom/internal/auth"
	"showroom/internal/availability"
	"showroom/internal/booking"
	"showroom/internal/events"
	"showroom/internal/inventory"
	"showroom/internal/media"
	"showroom/internal/model"
	"showroom/internal/store"
)

const (
	adminToken = "admin-token"
	staffToken = "staff-token"
)

// Monday 2025-01-06, 08:00 UTC.
var testNow = time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)

type fakeImageHost struct {
	mu    sync.Mutex
	names []string
}

func (h *fakeImageHost) Upload(_ context.Context, filename string, r io.Reader) (string, error) {
	if _, _, _, err := media.Sniff(r); err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.names = append(h.names, filename)
	return "https://img.example.com/" + filename, nil
}

type testEnv struct {
	handler  http.Handler
	server   *HTTPServer
	vehicles *store.VehicleRepository
	blocked  *store.BlockedDatesRepository
	bus      *events.EventBus
	images   *fakeImageHost
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	docs, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "showroom.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	schedule := store.NewScheduleRepository(docs, nil, &logger)
	blocked := store.NewBlockedDatesRepository(docs)
	appointments := store.NewAppointmentRepository(docs)
	vehicles := store.NewVehicleRepository(docs)
	admins := store.NewAdminRepository(docs)
	require.NoError(t, admins.Grant(ctx, "uid-admin", "admin@example.com"))

	bus := events.NewEventBus(&logger)
	engine := availability.NewEngine(60, 30, time.UTC)
	bookings := booking.NewService(schedule, blocked, appointments, bus, engine, booking.Rules{MaxAdvanceDays: 90}, &logger).
		WithClock(func() time.Time { return testNow })

	verifier := auth.StaticVerifier{
		adminToken: {UID: "uid-admin", Email: "admin@example.com"},
		staffToken: {UID: "uid-staff", Email: "staff@example.com"},
	}
	images := &fakeImageHost{}
	srv := NewHTTPServer(Deps{
		Bookings: bookings,
		Schedule: schedule,
		Blocked:  blocked,
		Vehicles: vehicles,
		Auth:     auth.NewService(verifier, admins, logger),
		Images:   images,
		Bus:      bus,
	}, Options{SubmitPerSec: 1, SubmitBurst: 2, AllowedOrigins: []string{"https://dealer.example.com"}}, &logger).
		WithClock(func() time.Time { return testNow })

	return &testEnv{
		handler:  srv.Handler(),
		server:   srv,
		vehicles: vehicles,
		blocked:  blocked,
		bus:      bus,
		images:   images,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func validRequest() map[string]string {
	return map[string]string{
		"date":          "2025-01-07",
		"time":          "10:00",
		"customerName":  "Jane Driver",
		"customerEmail": "jane@example.com",
	}
}

func TestGetSchedule_SeedsDefaults(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/schedule", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decodeBody[model.ScheduleConfiguration](t, rec)
	assert.Equal(t, "09:00", cfg.DefaultOpenTime)
	assert.Len(t, cfg.WorkingDays, 7)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHandleSlots(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.blocked.Add(context.Background(), "2025-01-08", "stock take")
	require.NoError(t, err)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantSlots  []string
	}{
		{"weekday", "?date=2025-01-07", http.StatusOK, []string{
			"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00",
		}},
		{"sunday closed", "?date=2025-01-12", http.StatusOK, []string{}},
		{"blocked date", "?date=2025-01-08", http.StatusOK, []string{}},
		{"missing date", "", http.StatusBadRequest, nil},
		{"malformed date", "?date=07-01-2025", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/availability/slots"+tt.query, "", nil)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantSlots != nil {
				resp := decodeBody[SlotsResponse](t, rec)
				assert.Equal(t, tt.wantSlots, resp.Slots)
			}
		})
	}
}

func TestHandleIsOpen(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		at   string
		want bool
	}{
		{"before opening", "2025-01-06T08:59:00Z", false},
		{"at opening", "2025-01-06T09:00:00Z", true},
		{"at closing is inclusive", "2025-01-06T18:00:00Z", true},
		{"after closing", "2025-01-06T18:01:00Z", false},
		{"sunday", "2025-01-12T12:00:00Z", false},
		{"default is now", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/api/availability/open"
			if tt.at != "" {
				path += "?at=" + tt.at
			}
			rec := env.do(t, http.MethodGet, path, "", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, decodeBody[OpenResponse](t, rec).Open)
		})
	}

	rec := env.do(t, http.MethodGet, "/api/availability/open?at=noon", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleNextOpening(t *testing.T) {
	env := newTestEnv(t)

	// Saturday: the next day is Sunday, so the weekly fallback lands on Monday.
	rec := env.do(t, http.MethodGet, "/api/availability/next?from=2025-01-11", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[NextOpeningResponse](t, rec)
	assert.True(t, resp.Found)
	assert.Equal(t, "2025-01-13", resp.Date)
	assert.Equal(t, "Monday", resp.Day)
	assert.Equal(t, "09:00", resp.Time)

	rec = env.do(t, http.MethodGet, "/api/availability/next?from=2025-01-11&include_today=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-01-11", decodeBody[NextOpeningResponse](t, rec).Date)

	rec = env.do(t, http.MethodGet, "/api/availability/next?include_today=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAppointment(t *testing.T) {
	env := newTestEnv(t)
	created := make(chan model.Appointment, 1)
	env.bus.Subscribe(events.AppointmentCreated, func(ev events.Event) error {
		var a model.Appointment
		if err := ev.Decode(&a); err != nil {
			return err
		}
		created <- a
		return nil
	})

	rec := env.do(t, http.MethodPost, "/api/appointments", "", validRequest())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	appt := decodeBody[model.Appointment](t, rec)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, model.StatusScheduled, appt.Status)
	assert.Equal(t, time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC), appt.ScheduledAt.UTC())

	select {
	case a := <-created:
		assert.Equal(t, appt.ID, a.ID)
	case <-time.After(time.Second):
		t.Fatal("appointment.created was not published")
	}
}

func TestSubmitAppointment_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(map[string]string)
		body       string
		wantStatus int
		wantField  string
	}{
		{
			name:       "time not in slots",
			mutate:     func(m map[string]string) { m["time"] = "10:30" },
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "time",
		},
		{
			name:       "closed day",
			mutate:     func(m map[string]string) { m["date"] = "2025-01-12" },
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "time",
		},
		{
			name:       "missing contact",
			mutate:     func(m map[string]string) { delete(m, "customerEmail") },
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "customerEmail",
		},
		{
			name:       "past date",
			mutate:     func(m map[string]string) { m["date"] = "2025-01-03" },
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "date",
		},
		{
			name:       "unknown field",
			body:       `{"date":"2025-01-07","time":"10:00","customerName":"A","customerEmail":"a@b.c","extra":1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not json",
			body:       `date=2025-01-07`,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			var body any = tt.body
			if tt.mutate != nil {
				req := validRequest()
				tt.mutate(req)
				body = req
			}
			rec := env.do(t, http.MethodPost, "/api/appointments", "", body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantField == "" {
				return
			}
			resp := decodeBody[ErrorResponse](t, rec)
			assert.Equal(t, "validation failed", resp.Error)
			fields := make([]string, 0, len(resp.Fields))
			for _, f := range resp.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.wantField)

			// Nothing was written.
			list := env.do(t, http.MethodGet, "/api/admin/appointments", adminToken, nil)
			require.Equal(t, http.StatusOK, list.Code)
			assert.Zero(t, decodeBody[AppointmentsResponse](t, list).Count)
		})
	}
}

func TestSubmitAppointment_RateLimited(t *testing.T) {
	env := newTestEnv(t)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, env.do(t, http.MethodPost, "/api/appointments", "", validRequest()).Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestAdminAuth(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"unknown token", "nope", http.StatusUnauthorized},
		{"not an admin", staffToken, http.StatusForbidden},
		{"admin", adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/admin/blocked-dates", tt.token, nil)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestSaveSchedule(t *testing.T) {
	env := newTestEnv(t)
	updates := make(chan ScheduleUpdate, 2)
	env.bus.Subscribe(events.ScheduleUpdated, func(ev events.Event) error {
		var u ScheduleUpdate
		if err := ev.Decode(&u); err != nil {
			return err
		}
		updates <- u
		return nil
	})

	cfg := decodeBody[model.ScheduleConfiguration](t, env.do(t, http.MethodGet, "/api/schedule", "", nil))
	cfg.SpecialDates = []model.SpecialDateOverride{{
		Date: "2025-01-12",
		DayHours: model.DayHours{
			IsOpen:    true,
			OpenTime:  model.StringPtr("10:00"),
			CloseTime: model.StringPtr("14:00"),
		},
	}}

	rec := env.do(t, http.MethodPut, "/api/admin/schedule", adminToken, cfg)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decodeBody[model.ScheduleConfiguration](t, rec)
	assert.Equal(t, cfg.Revision+1, saved.Revision)

	select {
	case u := <-updates:
		assert.Equal(t, saved.Revision, u.Revision)
		assert.Equal(t, "admin@example.com", u.By)
	case <-time.After(time.Second):
		t.Fatal("schedule.updated was not published")
	}

	// The special date now generates slots on a Sunday.
	slots := decodeBody[SlotsResponse](t, env.do(t, http.MethodGet, "/api/availability/slots?date=2025-01-12", "", nil))
	assert.Equal(t, []string{"10:00", "11:00", "12:00", "13:00"}, slots.Slots)

	// Saving again with the stale revision conflicts.
	rec = env.do(t, http.MethodPut, "/api/admin/schedule", adminToken, cfg)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Open day without hours is rejected with field details.
	bad := saved
	bad.Revision = 0
	bad.WorkingDays = append([]model.WeeklyScheduleEntry(nil), saved.WorkingDays...)
	bad.WorkingDays[1].OpenTime = nil
	rec = env.do(t, http.MethodPut, "/api/admin/schedule", adminToken, bad)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decodeBody[ErrorResponse](t, rec).Fields)
}

func TestApplyDefaults(t *testing.T) {
	env := newTestEnv(t)

	cfg := decodeBody[model.ScheduleConfiguration](t, env.do(t, http.MethodGet, "/api/schedule", "", nil))
	cfg.DefaultOpenTime = "08:00"
	cfg.DefaultCloseTime = "20:00"
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/admin/schedule", adminToken, cfg).Code)

	rec := env.do(t, http.MethodPost, "/api/admin/schedule/apply-defaults", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decodeBody[model.ScheduleConfiguration](t, rec)
	for _, day := range saved.WorkingDays {
		if day.IsOpen {
			assert.Equal(t, "08:00", model.StringValue(day.OpenTime), day.DayOfWeek)
			assert.Equal(t, "20:00", model.StringValue(day.CloseTime), day.DayOfWeek)
		}
	}
}

func TestBlockedDates(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/admin/blocked-dates", adminToken, BlockDateRequest{Date: "2025-01-07", Reason: "inventory"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/admin/blocked-dates", adminToken, BlockDateRequest{Date: "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	list := decodeBody[[]model.BlockedDate](t, env.do(t, http.MethodGet, "/api/admin/blocked-dates", adminToken, nil))
	require.Len(t, list, 1)
	assert.Equal(t, "inventory", list[0].Reason)

	// A blocked date rejects bookings.
	rec = env.do(t, http.MethodPost, "/api/appointments", "", validRequest())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/admin/blocked-dates/2025-01-07", adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/admin/blocked-dates/2025-01-07", adminToken, nil).Code)
}

func TestAppointmentStatusAndExport(t *testing.T) {
	env := newTestEnv(t)

	appt := decodeBody[model.Appointment](t, env.do(t, http.MethodPost, "/api/appointments", "", validRequest()))

	rec := env.do(t, http.MethodPatch, "/api/admin/appointments/"+appt.ID, adminToken, StatusRequest{Status: model.StatusCompleted})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusCompleted, decodeBody[model.Appointment](t, rec).Status)

	// Final states don't move again.
	rec = env.do(t, http.MethodPatch, "/api/admin/appointments/"+appt.ID, adminToken, StatusRequest{Status: model.StatusCancelled})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/admin/appointments/"+appt.ID, adminToken, StatusRequest{Status: "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/admin/appointments/missing", adminToken, StatusRequest{Status: model.StatusCancelled})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	list := decodeBody[AppointmentsResponse](t, env.do(t, http.MethodGet, "/api/admin/appointments?from=2025-01-07&to=2025-01-07&status=completed", adminToken, nil))
	assert.Equal(t, 1, list.Count)

	rec = env.do(t, http.MethodGet, "/api/admin/appointments?from=2025-01-08&to=2025-01-07", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/appointments/export?from=2025-01-01&to=2025-01-31", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "appointments_2025-01-01_2025-01-31.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Appointments")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, appt.ID, rows[1][0])
}

func TestVehicles(t *testing.T) {
	env := newTestEnv(t)

	for _, v := range []inventory.Vehicle{
		{Make: "Subaru", Model: "Outback", Year: 2021, Price: 28000, Mileage: 30000, BodyType: "Wagon"},
		{Make: "Toyota", Model: "Corolla", Year: 2019, Price: 15000, Mileage: 60000, BodyType: "Sedan"},
		{Make: "Subaru", Model: "Forester", Year: 2023, Price: 33000, Mileage: 5000, BodyType: "SUV"},
	} {
		rec := env.do(t, http.MethodPost, "/api/admin/vehicles", adminToken, v)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodPost, "/api/admin/vehicles", adminToken, inventory.Vehicle{Make: "Ford", Year: 1800})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	tests := []struct {
		name      string
		query     string
		wantCodes int
		wantModel []string
	}{
		{"by make, cheapest first", "?make=subaru&sort=price_asc", http.StatusOK, []string{"Outback", "Forester"}},
		{"price bound", "?max_price=20000", http.StatusOK, []string{"Corolla"}},
		{"newest model year", "?sort=year_desc", http.StatusOK, []string{"Forester", "Outback", "Corolla"}},
		{"search", "?q=forest", http.StatusOK, []string{"Forester"}},
		{"bad sort", "?sort=random", http.StatusBadRequest, nil},
		{"bad number", "?min_year=old", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/vehicles"+tt.query, "", nil)
			require.Equal(t, tt.wantCodes, rec.Code, rec.Body.String())
			if tt.wantModel == nil {
				return
			}
			resp := decodeBody[VehiclesResponse](t, rec)
			models := make([]string, 0, len(resp.Vehicles))
			for _, v := range resp.Vehicles {
				models = append(models, v.Model)
			}
			assert.Equal(t, tt.wantModel, models)
			assert.Equal(t, []string{"Subaru", "Toyota"}, resp.Facets.Makes)
		})
	}
}

func TestVehicleLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/admin/vehicles", adminToken,
		inventory.Vehicle{Make: "Mazda", Model: "CX-5", Year: 2022, Price: 26000})
	require.Equal(t, http.StatusCreated, rec.Code)
	v := decodeBody[inventory.Vehicle](t, rec)

	// Photo upload.
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", "front.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/vehicles/"+v.ID+"/photos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"https://img.example.com/front.png"}, decodeBody[inventory.Vehicle](t, rec).Images)

	// Replace keeps the photo when the update carries none.
	v.Price = 24500
	rec = env.do(t, http.MethodPut, "/api/admin/vehicles/"+v.ID, adminToken, v)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[inventory.Vehicle](t, env.do(t, http.MethodGet, "/api/vehicles/"+v.ID, "", nil))
	assert.Equal(t, 24500.0, got.Price)
	assert.Len(t, got.Images, 1)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/admin/vehicles/"+v.ID, adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/vehicles/"+v.ID, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPut, "/api/admin/vehicles/"+v.ID, adminToken, v).Code)
}

func TestCORSAndMethods(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/appointments", nil)
	req.Header.Set("Origin", "https://dealer.example.com")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dealer.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodDelete, "/api/schedule", "", nil).Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
