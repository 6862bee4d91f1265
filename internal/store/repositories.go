package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"showroom/internal/inventory"
	"showroom/internal/model"
)

// BlockedDatesRepository stores one document per blocked date, keyed by the date.
type BlockedDatesRepository struct {
	docs DocumentStore
	now  func() time.Time
}

func NewBlockedDatesRepository(docs DocumentStore) *BlockedDatesRepository {
	return &BlockedDatesRepository{docs: docs, now: time.Now}
}

// Dates returns the blocked set.
func (r *BlockedDatesRepository) Dates(ctx context.Context) (model.BlockedDates, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	set := model.NewBlockedDates()
	for _, b := range list {
		set.Add(b.Date)
	}
	return set, nil
}

// List returns blocked dates in ascending order.
func (r *BlockedDatesRepository) List(ctx context.Context) ([]model.BlockedDate, error) {
	docs, err := r.docs.List(ctx, CollectionBlockedDates, Query{OrderBy: "date"})
	if err != nil {
		return nil, err
	}
	out := make([]model.BlockedDate, 0, len(docs))
	for _, d := range docs {
		var b model.BlockedDate
		if err := d.Decode(&b); err != nil {
			return nil, fmt.Errorf("decode blocked date %s: %w", d.ID, err)
		}
		if b.Date == "" {
			b.Date = d.ID
		}
		out = append(out, b)
	}
	return out, nil
}

// Add blocks date. Blocking an already blocked date updates its reason.
func (r *BlockedDatesRepository) Add(ctx context.Context, date, reason string) (*model.BlockedDate, error) {
	if _, err := model.ParseDate(date, nil); err != nil {
		return nil, err
	}
	b := &model.BlockedDate{Date: date, Reason: strings.TrimSpace(reason), CreatedAt: r.now().UTC()}
	if err := r.docs.Set(ctx, CollectionBlockedDates, date, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BlockedDatesRepository) Remove(ctx context.Context, date string) error {
	return r.docs.Delete(ctx, CollectionBlockedDates, date)
}

// AppointmentRepository persists test-drive appointments.
type AppointmentRepository struct {
	docs DocumentStore
}

func NewAppointmentRepository(docs DocumentStore) *AppointmentRepository {
	return &AppointmentRepository{docs: docs}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	if a.ID == "" {
		return errors.New("appointment id is required")
	}
	return r.docs.Set(ctx, CollectionAppointments, a.ID, a)
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (*model.Appointment, error) {
	var a model.Appointment
	if err := r.docs.Get(ctx, CollectionAppointments, id, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns matching appointments ordered by scheduled time.
func (r *AppointmentRepository) List(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	q := Query{OrderBy: "date", Limit: f.Limit}
	if f.From != "" {
		q.Where = append(q.Where, Where("date", OpGte, f.From))
	}
	if f.To != "" {
		q.Where = append(q.Where, Where("date", OpLte, f.To))
	}
	if f.Status != "" {
		q.Where = append(q.Where, Where("status", OpEq, string(f.Status)))
	}

	docs, err := r.docs.List(ctx, CollectionAppointments, q)
	if err != nil {
		return nil, err
	}
	out := make([]model.Appointment, 0, len(docs))
	for _, d := range docs {
		var a model.Appointment
		if err := d.Decode(&a); err != nil {
			return nil, fmt.Errorf("decode appointment %s: %w", d.ID, err)
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus, updatedAt time.Time) error {
	return r.docs.Update(ctx, CollectionAppointments, id, map[string]any{
		"status":    string(status),
		"updatedAt": updatedAt,
	})
}

// Admin is a user allowed into the back office.
type Admin struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminRepository answers role lookups from the admins collection, keyed by uid.
type AdminRepository struct {
	docs DocumentStore
}

func NewAdminRepository(docs DocumentStore) *AdminRepository {
	return &AdminRepository{docs: docs}
}

func (r *AdminRepository) IsAdmin(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	var a Admin
	err := r.docs.Get(ctx, CollectionAdmins, uid, &a)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Grant makes uid an admin.
func (r *AdminRepository) Grant(ctx context.Context, uid, email string) error {
	return r.docs.Set(ctx, CollectionAdmins, uid, Admin{UID: uid, Email: email, CreatedAt: time.Now().UTC()})
}

func (r *AdminRepository) Revoke(ctx context.Context, uid string) error {
	return r.docs.Delete(ctx, CollectionAdmins, uid)
}

// VehicleRepository stores the inventory.
type VehicleRepository struct {
	docs DocumentStore
}

func NewVehicleRepository(docs DocumentStore) *VehicleRepository {
	return &VehicleRepository{docs: docs}
}

func (r *VehicleRepository) List(ctx context.Context) ([]inventory.Vehicle, error) {
	docs, err := r.docs.List(ctx, CollectionVehicles, Query{})
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Vehicle, 0, len(docs))
	for _, d := range docs {
		var v inventory.Vehicle
		if err := d.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode vehicle %s: %w", d.ID, err)
		}
		v.ID = d.ID
		out = append(out, v)
	}
	return out, nil
}

func (r *VehicleRepository) Get(ctx context.Context, id string) (*inventory.Vehicle, error) {
	var v inventory.Vehicle
	if err := r.docs.Get(ctx, CollectionVehicles, id, &v); err != nil {
		return nil, err
	}
	v.ID = id
	return &v, nil
}

func (r *VehicleRepository) Create(ctx context.Context, v *inventory.Vehicle) error {
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	v.ID = ""
	id, err := r.docs.Add(ctx, CollectionVehicles, v)
	if err != nil {
		return err
	}
	v.ID = id
	return nil
}

// Replace overwrites an existing vehicle, keeping its creation time and photos
// when the update carries none.
func (r *VehicleRepository) Replace(ctx context.Context, v *inventory.Vehicle) error {
	return r.docs.Replace(ctx, CollectionVehicles, v.ID, func(current *Document) (any, error) {
		if current == nil {
			return nil, fmt.Errorf("%s/%s: %w", CollectionVehicles, v.ID, ErrNotFound)
		}
		var existing inventory.Vehicle
		if err := current.Decode(&existing); err != nil {
			return nil, err
		}
		v.CreatedAt = existing.CreatedAt
		if v.Images == nil {
			v.Images = existing.Images
		}
		v.UpdatedAt = time.Now().UTC()
		return v, nil
	})
}

// AddImage appends a photo URL to the vehicle.
func (r *VehicleRepository) AddImage(ctx context.Context, id, url string) (*inventory.Vehicle, error) {
	var updated inventory.Vehicle
	err := r.docs.Replace(ctx, CollectionVehicles, id, func(current *Document) (any, error) {
		if current == nil {
			return nil, fmt.Errorf("%s/%s: %w", CollectionVehicles, id, ErrNotFound)
		}
		if err := current.Decode(&updated); err != nil {
			return nil, err
		}
		updated.ID = id
		updated.Images = append(updated.Images, url)
		updated.UpdatedAt = time.Now().UTC()
		return updated, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *VehicleRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, CollectionVehicles, id)
}
