package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom/internal/model"
)

func sampleVehicles() []Vehicle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Vehicle{
		{ID: "a", Make: "Toyota", Model: "Camry", Year: 2021, Price: 24000, Mileage: 30000, BodyType: "Sedan", FuelType: "Hybrid", Transmission: "Automatic", Status: StatusAvailable, CreatedAt: base},
		{ID: "b", Make: "Ford", Model: "F-150", Year: 2019, Price: 31000, Mileage: 60000, BodyType: "Truck", FuelType: "Gasoline", Transmission: "Automatic", Status: StatusAvailable, Featured: true, CreatedAt: base.Add(time.Hour)},
		{ID: "c", Make: "toyota", Model: "RAV4", Year: 2023, Price: 33000, Mileage: 8000, BodyType: "SUV", FuelType: "Gasoline", Transmission: "Automatic", Status: StatusSold, Features: []string{"Sunroof", "Heated seats"}, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "d", Make: "Honda", Model: "Civic", Year: 2018, Price: 15000, Mileage: 80000, BodyType: "Sedan", FuelType: "Gasoline", Transmission: "Manual", Status: StatusAvailable, CreatedAt: base.Add(3 * time.Hour)},
	}
}

func ids(vs []Vehicle) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{"empty matches all", Filter{}, []string{"a", "b", "c", "d"}},
		{"make is case insensitive", Filter{Make: "TOYOTA"}, []string{"a", "c"}},
		{"body type", Filter{BodyType: "sedan"}, []string{"a", "d"}},
		{"price range", Filter{MinPrice: 20000, MaxPrice: 32000}, []string{"a", "b"}},
		{"year range", Filter{MinYear: 2019, MaxYear: 2021}, []string{"a", "b"}},
		{"mileage cap", Filter{MaxMileage: 30000}, []string{"a", "c"}},
		{"transmission", Filter{Transmission: "manual"}, []string{"d"}},
		{"status", Filter{Status: StatusAvailable}, []string{"a", "b", "d"}},
		{"featured", Filter{FeaturedOnly: true}, []string{"b"}},
		{"search all terms", Filter{Search: "toyota sunroof"}, []string{"c"}},
		{"search no match", Filter{Search: "tesla"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(tt.filter.Apply(sampleVehicles())))
		})
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		order    SortOrder
		expected []string
	}{
		{SortPriceAsc, []string{"d", "a", "b", "c"}},
		{SortPriceDesc, []string{"c", "b", "a", "d"}},
		{SortYearDesc, []string{"c", "a", "b", "d"}},
		{SortMileageAsc, []string{"c", "a", "b", "d"}},
		{SortNewest, []string{"d", "c", "b", "a"}},
		{"bogus", []string{"d", "c", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			vs := sampleVehicles()
			Sort(vs, tt.order)
			assert.Equal(t, tt.expected, ids(vs))
		})
	}
}

func TestBuildFacets(t *testing.T) {
	f := BuildFacets(sampleVehicles())
	assert.Equal(t, []string{"Ford", "Honda", "Toyota"}, f.Makes)
	assert.Equal(t, []string{"SUV", "Sedan", "Truck"}, f.BodyTypes)
	assert.Equal(t, []string{"Gasoline", "Hybrid"}, f.FuelTypes)
}

func TestValidate(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	v := Vehicle{Make: "Mazda", Model: "CX-5", Year: 2025, Price: 29000}
	require.NoError(t, v.Validate(now))
	assert.Equal(t, StatusAvailable, v.Status)
	assert.Equal(t, "2025 Mazda CX-5", v.Title())

	bad := Vehicle{Year: 2030, Price: -1, VIN: "short", Status: "lost"}
	err := bad.Validate(now)
	var verrs model.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"make", "model", "year", "price", "vin", "status"}, fields)
}
