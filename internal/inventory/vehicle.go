package inventory

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"showroom/internal/model"
)

type VehicleStatus string

const (
	StatusAvailable VehicleStatus = "available"
	StatusReserved  VehicleStatus = "reserved"
	StatusSold      VehicleStatus = "sold"
)

// Vehicle is one car in the showroom inventory.
type Vehicle struct {
	ID           string        `json:"id"`
	Make         string        `json:"make"`
	Model        string        `json:"model"`
	Year         int           `json:"year"`
	Price        float64       `json:"price"`
	Mileage      int           `json:"mileage"`
	BodyType     string        `json:"bodyType,omitempty"`
	FuelType     string        `json:"fuelType,omitempty"`
	Transmission string        `json:"transmission,omitempty"`
	Color        string        `json:"color,omitempty"`
	VIN          string        `json:"vin,omitempty"`
	Description  string        `json:"description,omitempty"`
	Features     []string      `json:"features,omitempty"`
	Images       []string      `json:"images,omitempty"`
	Status       VehicleStatus `json:"status"`
	Featured     bool          `json:"featured"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Title is "<year> <make> <model>".
func (v Vehicle) Title() string {
	parts := make([]string, 0, 3)
	if v.Year > 0 {
		parts = append(parts, strconv.Itoa(v.Year))
	}
	for _, p := range []string{v.Make, v.Model} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Validate checks the fields an admin must supply.
func (v *Vehicle) Validate(now time.Time) error {
	var errs model.ValidationErrors
	if strings.TrimSpace(v.Make) == "" {
		errs.Add("make", "required")
	}
	if strings.TrimSpace(v.Model) == "" {
		errs.Add("model", "required")
	}
	if v.Year < 1900 || v.Year > now.Year()+1 {
		errs.Add("year", "must be between 1900 and %d", now.Year()+1)
	}
	if v.Price < 0 {
		errs.Add("price", "must not be negative")
	}
	if v.Mileage < 0 {
		errs.Add("mileage", "must not be negative")
	}
	if len(v.VIN) > 0 && len(v.VIN) != 17 {
		errs.Add("vin", "must be 17 characters")
	}
	switch v.Status {
	case "":
		v.Status = StatusAvailable
	case StatusAvailable, StatusReserved, StatusSold:
	default:
		errs.Add("status", "unknown status %q", v.Status)
	}
	return errs.Err()
}

// Filter narrows the inventory listing. Zero values match everything.
type Filter struct {
	Make         string
	BodyType     string
	FuelType     string
	Transmission string
	Status       VehicleStatus
	MinPrice     float64
	MaxPrice     float64
	MinYear      int
	MaxYear      int
	MaxMileage   int
	Search       string
	FeaturedOnly bool
}

// Match reports whether v passes every set criterion. String fields compare
// case-insensitively; Search matches make, model, description or features.
func (f Filter) Match(v Vehicle) bool {
	if f.Make != "" && !strings.EqualFold(f.Make, v.Make) {
		return false
	}
	if f.BodyType != "" && !strings.EqualFold(f.BodyType, v.BodyType) {
		return false
	}
	if f.FuelType != "" && !strings.EqualFold(f.FuelType, v.FuelType) {
		return false
	}
	if f.Transmission != "" && !strings.EqualFold(f.Transmission, v.Transmission) {
		return false
	}
	if f.Status != "" && f.Status != v.Status {
		return false
	}
	if f.MinPrice > 0 && v.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && v.Price > f.MaxPrice {
		return false
	}
	if f.MinYear > 0 && v.Year < f.MinYear {
		return false
	}
	if f.MaxYear > 0 && v.Year > f.MaxYear {
		return false
	}
	if f.MaxMileage > 0 && v.Mileage > f.MaxMileage {
		return false
	}
	if f.FeaturedOnly && !v.Featured {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		haystack := strings.ToLower(strings.Join(append([]string{v.Make, v.Model, v.Description}, v.Features...), " "))
		for _, term := range strings.Fields(q) {
			if !strings.Contains(haystack, term) {
				return false
			}
		}
	}
	return true
}

// Apply returns the vehicles matching f, in their original order.
func (f Filter) Apply(vehicles []Vehicle) []Vehicle {
	out := make([]Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if f.Match(v) {
			out = append(out, v)
		}
	}
	return out
}

type SortOrder string

const (
	SortNewest     SortOrder = "newest"
	SortPriceAsc   SortOrder = "price_asc"
	SortPriceDesc  SortOrder = "price_desc"
	SortYearDesc   SortOrder = "year_desc"
	SortMileageAsc SortOrder = "mileage_asc"
)

func (s SortOrder) Valid() bool {
	switch s {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortYearDesc, SortMileageAsc:
		return true
	}
	return false
}

// Sort orders vehicles in place. Unknown orders fall back to newest first. Ties
// keep their relative order.
func Sort(vehicles []Vehicle, order SortOrder) {
	var less func(a, b Vehicle) bool
	switch order {
	case SortPriceAsc:
		less = func(a, b Vehicle) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b Vehicle) bool { return a.Price > b.Price }
	case SortYearDesc:
		less = func(a, b Vehicle) bool { return a.Year > b.Year }
	case SortMileageAsc:
		less = func(a, b Vehicle) bool { return a.Mileage < b.Mileage }
	default:
		less = func(a, b Vehicle) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(vehicles, func(i, j int) bool { return less(vehicles[i], vehicles[j]) })
}

// Facets lists the distinct makes and body types present, for filter dropdowns.
type Facets struct {
	Makes     []string `json:"makes"`
	BodyTypes []string `json:"bodyTypes"`
	FuelTypes []string `json:"fuelTypes"`
}

func BuildFacets(vehicles []Vehicle) Facets {
	return Facets{
		Makes:     distinct(vehicles, func(v Vehicle) string { return v.Make }),
		BodyTypes: distinct(vehicles, func(v Vehicle) string { return v.BodyType }),
		FuelTypes: distinct(vehicles, func(v Vehicle) string { return v.FuelType }),
	}
}

func distinct(vehicles []Vehicle, field func(Vehicle) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, v := range vehicles {
		val := strings.TrimSpace(field(v))
		key := strings.ToLower(val)
		if val == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, val)
	}
	sort.Strings(out)
	return out
}
