package repository

import (
	"context"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
)

// TemplateRepository persists one template per user and modality.
// Get returns nil, nil when the modality is not enrolled.
type TemplateRepository interface {
	Get(ctx context.Context, userID string, method domain.Method) (*domain.BiometricTemplate, error)
	Save(ctx context.Context, userID string, t domain.BiometricTemplate) error
	Delete(ctx context.Context, userID string, method domain.Method) error
	All(ctx context.Context, userID string) (domain.Templates, error)
}

// SettingsRepositoryInterface persists per-user verification settings
type SettingsRepositoryInterface interface {
	Get(ctx context.Context, userID string) (domain.Settings, error)
	Save(ctx context.Context, userID string, s domain.Settings) error
}

// ProfileRepositoryInterface persists the user profile
type ProfileRepositoryInterface interface {
	Get(ctx context.Context, userID string) (domain.UserProfile, error)
	Save(ctx context.Context, userID string, p domain.UserProfile) error
}

// TransactionRepositoryInterface persists transaction history
type TransactionRepositoryInterface interface {
	List(ctx context.Context, userID string) ([]domain.UserTransaction, error)
	Add(ctx context.Context, userID string, tx domain.UserTransaction) error
}

// AlertRepositoryInterface persists blocked-transaction alerts
type AlertRepositoryInterface interface {
	List(ctx context.Context, userID string) ([]domain.SecurityAlert, error)
	Add(ctx context.Context, userID string, a domain.SecurityAlert) error
}
