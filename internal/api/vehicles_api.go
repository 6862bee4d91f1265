package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"showroom/internal/inventory"
)

// VehiclesResponse is the response for GET /api/vehicles.
type VehiclesResponse struct {
	Vehicles []inventory.Vehicle `json:"vehicles"`
	Count    int                 `json:"count"`
	Facets   inventory.Facets    `json:"facets"`
}

// handleListVehicles filters and sorts the inventory. Facets describe the whole
// inventory so the filter dropdowns don't shrink as filters are applied.
// GET /api/vehicles?make=&body_type=&fuel=&transmission=&status=&min_price=&max_price=&min_year=&max_year=&max_mileage=&q=&featured=&sort=
func (s *HTTPServer) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	filter, order, err := parseVehicleQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	all, err := s.vehicles.List(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	matched := filter.Apply(all)
	inventory.Sort(matched, order)
	writeJSON(w, http.StatusOK, VehiclesResponse{
		Vehicles: matched,
		Count:    len(matched),
		Facets:   inventory.BuildFacets(all),
	})
}

// GET /api/vehicles/{id}
func (s *HTTPServer) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := s.vehicles.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// POST /api/admin/vehicles
func (s *HTTPServer) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var v inventory.Vehicle
	if err := decodeJSON(r, &v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := v.Validate(s.now()); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := s.vehicles.Create(r.Context(), &v); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.logger.Info().Str("by", actor(r.Context())).Str("vehicle_id", v.ID).Str("title", v.Title()).Msg("vehicle created")
	writeJSON(w, http.StatusCreated, v)
}

// PUT /api/admin/vehicles/{id}
func (s *HTTPServer) handleReplaceVehicle(w http.ResponseWriter, r *http.Request) {
	var v inventory.Vehicle
	if err := decodeJSON(r, &v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	v.ID = r.PathValue("id")
	if err := v.Validate(s.now()); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := s.vehicles.Replace(r.Context(), &v); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.logger.Info().Str("by", actor(r.Context())).Str("vehicle_id", v.ID).Msg("vehicle updated")
	writeJSON(w, http.StatusOK, v)
}

// DELETE /api/admin/vehicles/{id}
func (s *HTTPServer) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.vehicles.Delete(r.Context(), id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.logger.Info().Str("by", actor(r.Context())).Str("vehicle_id", id).Msg("vehicle deleted")
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadPhoto stores the "photo" form file with the image host and
// appends its URL to the vehicle.
// POST /api/admin/vehicles/{id}/photos
func (s *HTTPServer) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		writeError(w, http.StatusServiceUnavailable, "image uploads are not configured")
		return
	}
	id := r.PathValue("id")
	if _, err := s.vehicles.Get(r.Context(), id); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("photo exceeds %d bytes", s.maxUpload))
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with a photo field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo field is required")
		return
	}
	defer file.Close()

	url, err := s.images.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	v, err := s.vehicles.AddImage(r.Context(), id, url)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.logger.Info().Str("by", actor(r.Context())).Str("vehicle_id", id).Str("url", url).Msg("vehicle photo added")
	writeJSON(w, http.StatusCreated, v)
}

func parseVehicleQuery(r *http.Request) (inventory.Filter, inventory.SortOrder, error) {
	q := r.URL.Query()
	f := inventory.Filter{
		Make:         q.Get("make"),
		BodyType:     q.Get("body_type"),
		FuelType:     q.Get("fuel"),
		Transmission: q.Get("transmission"),
		Status:       inventory.VehicleStatus(q.Get("status")),
		Search:       q.Get("q"),
	}

	var err error
	floatParam := func(key string, dst *float64) {
		if raw := q.Get(key); raw != "" && err == nil {
			v, perr := strconv.ParseFloat(raw, 64)
			if perr != nil || v < 0 {
				err = fmt.Errorf("%s must be a non-negative number", key)
				return
			}
			*dst = v
		}
	}
	intParam := func(key string, dst *int) {
		if raw := q.Get(key); raw != "" && err == nil {
			v, perr := strconv.Atoi(raw)
			if perr != nil || v < 0 {
				err = fmt.Errorf("%s must be a non-negative integer", key)
				return
			}
			*dst = v
		}
	}
	floatParam("min_price", &f.MinPrice)
	floatParam("max_price", &f.MaxPrice)
	intParam("min_year", &f.MinYear)
	intParam("max_year", &f.MaxYear)
	intParam("max_mileage", &f.MaxMileage)
	if err != nil {
		return f, "", err
	}
	if raw := q.Get("featured"); raw != "" {
		v, perr := strconv.ParseBool(raw)
		if perr != nil {
			return f, "", fmt.Errorf("featured must be true or false")
		}
		f.FeaturedOnly = v
	}

	order := inventory.SortOrder(strings.ToLower(q.Get("sort")))
	if order == "" {
		order = inventory.SortNewest
	}
	if !order.Valid() {
		return f, "", fmt.Errorf("unknown sort %q", order)
	}
	return f, order, nil
}
