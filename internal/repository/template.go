package repository

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/store"
)

// KVTemplateRepository stores each template as a JSON blob under its fixed key
type KVTemplateRepository struct {
	kv store.KV
}

var _ TemplateRepository = (*KVTemplateRepository)(nil)

// NewKVTemplateRepository stores templates as JSON in kv
func NewKVTemplateRepository(kv store.KV) *KVTemplateRepository {
	return &KVTemplateRepository{kv: kv}
}

func templateKey(userID string, m domain.Method) string {
	if m == domain.MethodVoice {
		return store.UserKey(userID, store.KeyVoiceFeatures)
	}
	return store.UserKey(userID, store.KeyFaceDescriptor)
}

func (r *KVTemplateRepository) Get(ctx context.Context, userID string, method domain.Method) (*domain.BiometricTemplate, error) {
	if !method.Valid() {
		return nil, domain.ErrInvalidMethod
	}
	t, found, err := store.GetJSON[domain.BiometricTemplate](ctx, r.kv, templateKey(userID, method))
	if err != nil {
		return nil, fmt.Errorf("get %s template: %w", method, err)
	}
	if !found || len(t.Descriptor) == 0 {
		return nil, nil
	}
	t.Method = method
	return &t, nil
}

// Save overwrites any existing template for the modality
func (r *KVTemplateRepository) Save(ctx context.Context, userID string, t domain.BiometricTemplate) error {
	if err := validateTemplate(t); err != nil {
		return err
	}
	if err := store.SetJSON(ctx, r.kv, templateKey(userID, t.Method), t); err != nil {
		return fmt.Errorf("save %s template: %w", t.Method, err)
	}
	return nil
}

func (r *KVTemplateRepository) Delete(ctx context.Context, userID string, method domain.Method) error {
	if !method.Valid() {
		return domain.ErrInvalidMethod
	}
	if err := r.kv.Delete(ctx, templateKey(userID, method)); err != nil {
		return fmt.Errorf("delete %s template: %w", method, err)
	}
	return nil
}

func (r *KVTemplateRepository) All(ctx context.Context, userID string) (domain.Templates, error) {
	return loadAll(ctx, r, userID)
}

func loadAll(ctx context.Context, r TemplateRepository, userID string) (domain.Templates, error) {
	face, err := r.Get(ctx, userID, domain.MethodFace)
	if err != nil {
		return domain.Templates{}, err
	}
	voice, err := r.Get(ctx, userID, domain.MethodVoice)
	if err != nil {
		return domain.Templates{}, err
	}
	return domain.Templates{Face: face, Voice: voice}, nil
}

func validateTemplate(t domain.BiometricTemplate) error {
	if !t.Method.Valid() {
		return domain.ErrInvalidMethod
	}
	if len(t.Descriptor) == 0 {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("empty %s descriptor", t.Method))
	}
	return nil
}
