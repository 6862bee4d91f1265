package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"showroom/internal/model"
)

const scheduleDocID = "business_hours"

// ScheduleRepository loads and saves the singleton business hours document.
type ScheduleRepository struct {
	docs   DocumentStore
	seed   func() *model.ScheduleConfiguration
	now    func() time.Time
	logger zerolog.Logger
}

// NewScheduleRepository returns a repository that writes seed() the first time the
// document is missing.
func NewScheduleRepository(docs DocumentStore, seed func() *model.ScheduleConfiguration, logger *zerolog.Logger) *ScheduleRepository {
	if seed == nil {
		seed = func() *model.ScheduleConfiguration {
			return model.DefaultScheduleConfiguration(model.DefaultOpenTime, model.DefaultCloseTime)
		}
	}
	return &ScheduleRepository{
		docs:   docs,
		seed:   seed,
		now:    time.Now,
		logger: logger.With().Str("component", "schedule_repo").Logger(),
	}
}

// Load returns the stored configuration, creating it from the seed on first access.
func (r *ScheduleRepository) Load(ctx context.Context) (*model.ScheduleConfiguration, error) {
	var cfg model.ScheduleConfiguration
	err := r.docs.Get(ctx, CollectionSettings, scheduleDocID, &cfg)
	if err == nil {
		cfg.Normalize()
		return &cfg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var created *model.ScheduleConfiguration
	err = r.docs.Replace(ctx, CollectionSettings, scheduleDocID, func(current *Document) (any, error) {
		if current != nil {
			// Another writer seeded it first; keep theirs.
			var existing model.ScheduleConfiguration
			if err := current.Decode(&existing); err != nil {
				return nil, err
			}
			created = &existing
			return existing, nil
		}
		seed := r.seed()
		seed.Normalize()
		seed.Revision = 1
		seed.UpdatedAt = r.now().UTC()
		created = seed
		return seed, nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed schedule: %w", err)
	}
	r.logger.Info().Int64("revision", created.Revision).Msg("schedule configuration initialised")
	created.Normalize()
	return created, nil
}

// Save replaces the whole document. A non-zero cfg.Revision must match the stored
// revision or ErrConflict is returned; zero overwrites unconditionally. The saved
// document, with its new revision, is returned.
func (r *ScheduleRepository) Save(ctx context.Context, cfg *model.ScheduleConfiguration) (*model.ScheduleConfiguration, error) {
	next := *cfg
	next.WorkingDays = append([]model.WeeklyScheduleEntry(nil), cfg.WorkingDays...)
	next.SpecialDates = append([]model.SpecialDateOverride(nil), cfg.SpecialDates...)
	next.Normalize()
	if err := next.Validate(); err != nil {
		return nil, err
	}

	err := r.docs.Replace(ctx, CollectionSettings, scheduleDocID, func(current *Document) (any, error) {
		var stored int64
		if current != nil {
			var head struct {
				Revision int64 `json:"revision"`
			}
			if err := json.Unmarshal(current.Data, &head); err != nil {
				return nil, fmt.Errorf("decode stored schedule: %w", err)
			}
			stored = head.Revision
		}
		if cfg.Revision != 0 && cfg.Revision != stored {
			return nil, fmt.Errorf("%w: schedule revision %d, stored %d", ErrConflict, cfg.Revision, stored)
		}
		next.Revision = stored + 1
		next.UpdatedAt = r.now().UTC()
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info().Int64("revision", next.Revision).Int("special_dates", len(next.SpecialDates)).Msg("schedule configuration saved")
	return &next, nil
}
