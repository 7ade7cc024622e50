package repository

import (
	"context"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/store"
)

// ProfileRepository stores the profile as JSON, falling back to the seed
type ProfileRepository struct {
	kv store.KV
}

var _ ProfileRepositoryInterface = (*ProfileRepository)(nil)

func NewProfileRepository(kv store.KV) *ProfileRepository {
	return &ProfileRepository{kv: kv}
}

// Get returns the stored profile, seeding the demo profile on first access
func (r *ProfileRepository) Get(ctx context.Context, userID string) (domain.UserProfile, error) {
	key := store.UserKey(userID, store.KeyProfile)
	p, found, err := store.GetJSON[domain.UserProfile](ctx, r.kv, key)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if found {
		return p, nil
	}

	p = domain.SeedProfile()
	if err := store.SetJSON(ctx, r.kv, key, p); err != nil {
		return domain.UserProfile{}, err
	}
	return p, nil
}

func (r *ProfileRepository) Save(ctx context.Context, userID string, p domain.UserProfile) error {
	return store.SetJSON(ctx, r.kv, store.UserKey(userID, store.KeyProfile), p)
}
