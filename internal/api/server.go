// Package api serves the public availability and booking endpoints and the
// admin endpoints behind bearer-token auth.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"showroom/internal/auth"
	"showroom/internal/booking"
	"showroom/internal/inventory"
	"showroom/internal/media"
	"showroom/internal/metrics"
	"showroom/internal/model"
	"showroom/internal/store"
)

// Authorizer resolves the Authorization header of an admin request.
type Authorizer interface {
	RequireAdmin(ctx context.Context, header string) (*auth.Principal, error)
}

// BlockedDatesStore manages dates closed to new bookings.
type BlockedDatesStore interface {
	List(ctx context.Context) ([]model.BlockedDate, error)
	Add(ctx context.Context, date, reason string) (*model.BlockedDate, error)
	Remove(ctx context.Context, date string) error
}

// VehicleStore manages the inventory.
type VehicleStore interface {
	List(ctx context.Context) ([]inventory.Vehicle, error)
	Get(ctx context.Context, id string) (*inventory.Vehicle, error)
	Create(ctx context.Context, v *inventory.Vehicle) error
	Replace(ctx context.Context, v *inventory.Vehicle) error
	AddImage(ctx context.Context, id, url string) (*inventory.Vehicle, error)
	Delete(ctx context.Context, id string) error
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Bookings *booking.Service
	Schedule store.ScheduleStore
	Blocked  BlockedDatesStore
	Vehicles VehicleStore
	Auth     Authorizer
	Images   media.ImageHost
	Bus      booking.Publisher
}

// Options tune the listener and request limits.
type Options struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	SubmitPerSec   float64
	SubmitBurst    int
	AllowedOrigins []string
	MaxUploadBytes int64
	// MediaDir, when set, is served under /media/ for locally stored photos.
	MediaDir string
}

// HTTPServer exposes the showroom JSON API.
type HTTPServer struct {
	bookings  *booking.Service
	schedule  store.ScheduleStore
	blocked   BlockedDatesStore
	vehicles  VehicleStore
	auth      Authorizer
	images    media.ImageHost
	bus       booking.Publisher
	submits   *ipRateLimiter
	origins   map[string]bool
	maxUpload int64
	now       func() time.Time
	server    *http.Server
	logger    zerolog.Logger
}

func NewHTTPServer(deps Deps, opts Options, logger *zerolog.Logger) *HTTPServer {
	if opts.Address == "" {
		opts.Address = ":8080"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	s := &HTTPServer{
		bookings:  deps.Bookings,
		schedule:  deps.Schedule,
		blocked:   deps.Blocked,
		vehicles:  deps.Vehicles,
		auth:      deps.Auth,
		images:    deps.Images,
		bus:       deps.Bus,
		submits:   newIPRateLimiter(opts.SubmitPerSec, opts.SubmitBurst),
		origins:   make(map[string]bool, len(opts.AllowedOrigins)),
		maxUpload: opts.MaxUploadBytes,
		now:       time.Now,
		logger:    logger.With().Str("component", "api").Logger(),
	}
	for _, o := range opts.AllowedOrigins {
		s.origins[strings.TrimRight(o, "/")] = true
	}

	mux := http.NewServeMux()
	s.routes(mux, opts.MediaDir)

	s.server = &http.Server{
		Addr:              opts.Address,
		Handler:           s.withCORS(s.withRequestLog(mux)),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s
}

func (s *HTTPServer) routes(mux *http.ServeMux, mediaDir string) {
	mux.Handle("GET /api/schedule", s.instrument("schedule", s.handleGetSchedule))
	mux.Handle("GET /api/availability/slots", s.instrument("availability_slots", s.handleSlots))
	mux.Handle("GET /api/availability/open", s.instrument("availability_open", s.handleIsOpen))
	mux.Handle("GET /api/availability/next", s.instrument("availability_next", s.handleNextOpening))
	mux.Handle("POST /api/appointments", s.instrument("appointments_submit", s.rateLimited(s.handleSubmitAppointment)))
	mux.Handle("GET /api/vehicles", s.instrument("vehicles_list", s.handleListVehicles))
	mux.Handle("GET /api/vehicles/{id}", s.instrument("vehicles_get", s.handleGetVehicle))

	mux.Handle("PUT /api/admin/schedule", s.instrument("admin_schedule_save", s.admin(s.handleSaveSchedule)))
	mux.Handle("POST /api/admin/schedule/apply-defaults", s.instrument("admin_schedule_defaults", s.admin(s.handleApplyDefaults)))
	mux.Handle("GET /api/admin/blocked-dates", s.instrument("admin_blocked_list", s.admin(s.handleListBlocked)))
	mux.Handle("POST /api/admin/blocked-dates", s.instrument("admin_blocked_add", s.admin(s.handleAddBlocked)))
	mux.Handle("DELETE /api/admin/blocked-dates/{date}", s.instrument("admin_blocked_remove", s.admin(s.handleRemoveBlocked)))
	mux.Handle("GET /api/admin/appointments", s.instrument("admin_appointments_list", s.admin(s.handleListAppointments)))
	mux.Handle("GET /api/admin/appointments/export", s.instrument("admin_appointments_export", s.admin(s.handleExportAppointments)))
	mux.Handle("PATCH /api/admin/appointments/{id}", s.instrument("admin_appointments_status", s.admin(s.handleChangeStatus)))
	mux.Handle("POST /api/admin/vehicles", s.instrument("admin_vehicles_create", s.admin(s.handleCreateVehicle)))
	mux.Handle("PUT /api/admin/vehicles/{id}", s.instrument("admin_vehicles_replace", s.admin(s.handleReplaceVehicle)))
	mux.Handle("DELETE /api/admin/vehicles/{id}", s.instrument("admin_vehicles_delete", s.admin(s.handleDeleteVehicle)))
	mux.Handle("POST /api/admin/vehicles/{id}/photos", s.instrument("admin_vehicles_photo", s.admin(s.handleUploadPhoto)))

	if mediaDir != "" {
		mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(mediaDir))))
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// WithClock replaces the time source, for tests.
func (s *HTTPServer) WithClock(now func() time.Time) *HTTPServer {
	s.now = now
	return s
}

// Start listens until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting API server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string             `json:"error"`
	Fields []model.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// writeFailure maps domain errors to status codes. Anything unrecognized is a
// 500 with a generic message.
func (s *HTTPServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var bookingErr *booking.ValidationError
	var fieldErrs model.ValidationErrors
	var denied *auth.AccessDeniedError
	switch {
	case errors.As(err, &bookingErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Fields: bookingErr.Fields})
	case errors.As(err, &fieldErrs):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Fields: fieldErrs})
	case errors.As(err, &denied):
		if denied.Unauthenticated {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, denied.Reason)
			return
		}
		writeError(w, http.StatusForbidden, denied.Reason)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "the document was changed by someone else; reload and retry")
	case errors.Is(err, booking.ErrInvalidStatus):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, media.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, model.ErrInvalidDate), errors.Is(err, model.ErrInvalidClock):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Str("request_id", requestID(r.Context())).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

type ctxKey int

const requestIDKey ctxKey = iota

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts the request and records its latency under name.
func (s *HTTPServer) instrument(name string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(name)
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.ObserveHTTP(name, strconv.Itoa(rec.status), time.Since(start))
	})
}

// withRequestLog assigns a request id, recovers panics and logs each request.
func (s *HTTPServer) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error().Interface("panic", p).Str("request_id", id).Str("path", r.URL.Path).Msg("handler panicked")
				writeError(rec, http.StatusInternalServerError, "internal server error")
			}
			s.logger.Debug().
				Str("request_id", id).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(rec, r)
	})
}

// withCORS allows the configured site origins to call the API from the browser.
func (s *HTTPServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (s.origins["*"] || s.origins[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// admin rejects requests without an admin bearer token and stores the
// principal in the request context.
func (s *HTTPServer) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			writeError(w, http.StatusServiceUnavailable, "admin access is not configured")
			return
		}
		p, err := s.auth.RequireAdmin(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		next(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	}
}

// actor names the admin behind a request, for logs.
func actor(ctx context.Context) string {
	if p, ok := auth.FromContext(ctx); ok {
		if p.Email != "" {
			return p.Email
		}
		return p.UID
	}
	return ""
}
