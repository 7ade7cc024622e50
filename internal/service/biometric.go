package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/repository"
	"github.com/saturnino-fabrica-de-software/safishield/internal/vector"
)

// BiometricService manages enrolled templates and verification settings
// outside of a live capture session.
type BiometricService struct {
	templates repository.TemplateRepository
	settings  repository.SettingsRepositoryInterface
	events    EventRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewBiometricService creates the template and settings service
func NewBiometricService(
	templates repository.TemplateRepository,
	settings repository.SettingsRepositoryInterface,
	events EventRecorder,
	logger *slog.Logger,
) *BiometricService {
	return &BiometricService{
		templates: templates,
		settings:  settings,
		events:    events,
		logger:    logger.With("component", "biometrics"),
		now:       time.Now,
	}
}

func (s *BiometricService) Templates(ctx context.Context, userID string) (domain.Templates, error) {
	return s.templates.All(ctx, userID)
}

// Import stores a descriptor produced elsewhere on the scale live capture
// compares against: face descriptors as the backend emits them, voice
// descriptors at unit length like extractor.ExtractVoice.
func (s *BiometricService) Import(ctx context.Context, userID string, method domain.Method, descriptor []float64) (*domain.BiometricTemplate, error) {
	if !method.Valid() {
		return nil, domain.ErrInvalidMethod
	}
	if len(descriptor) == 0 {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("descriptor is required"))
	}

	stored := append([]float64(nil), descriptor...)
	if method == domain.MethodVoice {
		stored = vector.Normalize(stored)
	}

	t := domain.BiometricTemplate{
		Method:     method,
		Descriptor: stored,
		EnrolledOn: s.now().UTC(),
	}
	if err := s.templates.Save(ctx, userID, t); err != nil {
		return nil, fmt.Errorf("user %s: save template: %w", userID, err)
	}

	if _, err := s.events.Record(ctx, userID, domain.EnrollmentEvent(method),
		fmt.Sprintf("User successfully enrolled their %s biometric.", method),
		map[string]any{"method": string(method), "descriptor_length": len(t.Descriptor), "imported": true},
	); err != nil {
		s.logger.ErrorContext(ctx, "failed to record enrollment event", "user_id", userID, "error", err)
	}
	return &t, nil
}

// Reset deletes the given modalities; with none given it deletes both
func (s *BiometricService) Reset(ctx context.Context, userID string, methods ...domain.Method) error {
	if len(methods) == 0 {
		methods = []domain.Method{domain.MethodFace, domain.MethodVoice}
	}

	for _, m := range methods {
		if err := s.templates.Delete(ctx, userID, m); err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
	}

	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	if _, err := s.events.Record(ctx, userID, domain.EventTemplateReset,
		fmt.Sprintf("Biometric templates reset: %s.", strings.Join(names, ", ")),
		map[string]any{"methods": names},
	); err != nil {
		s.logger.ErrorContext(ctx, "failed to record reset event", "user_id", userID, "error", err)
	}
	return nil
}

func (s *BiometricService) Settings(ctx context.Context, userID string) (domain.Settings, error) {
	return s.settings.Get(ctx, userID)
}

func (s *BiometricService) UpdateSettings(ctx context.Context, userID string, settings domain.Settings) (domain.Settings, error) {
	if err := s.settings.Save(ctx, userID, settings); err != nil {
		return domain.Settings{}, err
	}
	return s.settings.Get(ctx, userID)
}
