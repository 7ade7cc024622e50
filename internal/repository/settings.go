package repository

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/store"
)

// SettingsRepository keeps the face threshold under its own key so it
// survives independently of the rest of the settings blob.
type SettingsRepository struct {
	kv store.KV
}

var _ SettingsRepositoryInterface = (*SettingsRepository)(nil)

func NewSettingsRepository(kv store.KV) *SettingsRepository {
	return &SettingsRepository{kv: kv}
}

// Get returns stored settings, or defaults when nothing was saved
func (r *SettingsRepository) Get(ctx context.Context, userID string) (domain.Settings, error) {
	s, found, err := store.GetJSON[domain.Settings](ctx, r.kv, store.UserKey(userID, store.KeySettings))
	if err != nil {
		return domain.Settings{}, err
	}
	if !found {
		s = domain.DefaultSettings()
	}

	threshold, found, err := store.GetJSON[float64](ctx, r.kv, store.UserKey(userID, store.KeyFaceThreshold))
	if err != nil {
		return domain.Settings{}, err
	}
	s.FaceThreshold = nil
	if found {
		s.FaceThreshold = &threshold
	}
	return s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, userID string, s domain.Settings) error {
	if s.FaceThreshold != nil {
		if err := domain.ValidateFaceThreshold(*s.FaceThreshold); err != nil {
			return err
		}
	}
	if s.Strictness != "" {
		if _, ok := s.Strictness.Threshold(); !ok {
			return domain.ErrValidationFailed.WithError(fmt.Errorf("unknown strictness %q", s.Strictness))
		}
	}

	thresholdKey := store.UserKey(userID, store.KeyFaceThreshold)
	if s.FaceThreshold != nil {
		if err := store.SetJSON(ctx, r.kv, thresholdKey, *s.FaceThreshold); err != nil {
			return err
		}
	} else if err := r.kv.Delete(ctx, thresholdKey); err != nil {
		return fmt.Errorf("clear face threshold: %w", err)
	}

	rest := s
	rest.FaceThreshold = nil
	return store.SetJSON(ctx, r.kv, store.UserKey(userID, store.KeySettings), rest)
}
