package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/vector"
)

// PGTemplateRepository stores descriptors in a pgvector column of biometric_templates
type PGTemplateRepository struct {
	pool PgxPool
}

var _ TemplateRepository = (*PGTemplateRepository)(nil)

// NewPGTemplateRepository creates a pgvector-backed template repository
func NewPGTemplateRepository(pool PgxPool) *PGTemplateRepository {
	return &PGTemplateRepository{pool: pool}
}

func (r *PGTemplateRepository) Get(ctx context.Context, userID string, method domain.Method) (*domain.BiometricTemplate, error) {
	if !method.Valid() {
		return nil, domain.ErrInvalidMethod
	}

	query := `
		SELECT descriptor, enrolled_on
		FROM biometric_templates
		WHERE user_id = $1 AND method = $2
	`

	var t domain.BiometricTemplate
	var descriptor pgvector.Vector

	err := r.pool.QueryRow(ctx, query, userID, string(method)).Scan(&descriptor, &t.EnrolledOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s template: %w", method, err)
	}

	t.Method = method
	t.Descriptor = vector.FromFloat32(descriptor.Slice())
	t.EnrolledOn = t.EnrolledOn.UTC()
	return &t, nil
}

func (r *PGTemplateRepository) Save(ctx context.Context, userID string, t domain.BiometricTemplate) error {
	if err := validateTemplate(t); err != nil {
		return err
	}

	query := `
		INSERT INTO biometric_templates (user_id, method, descriptor, dimension, enrolled_on)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, method) DO UPDATE
		SET descriptor = EXCLUDED.descriptor,
		    dimension = EXCLUDED.dimension,
		    enrolled_on = EXCLUDED.enrolled_on
	`

	_, err := r.pool.Exec(ctx, query,
		userID,
		string(t.Method),
		pgvector.NewVector(vector.ToFloat32(t.Descriptor)),
		len(t.Descriptor),
		t.EnrolledOn,
	)
	if err != nil {
		return fmt.Errorf("save %s template: %w", t.Method, err)
	}
	return nil
}

func (r *PGTemplateRepository) Delete(ctx context.Context, userID string, method domain.Method) error {
	if !method.Valid() {
		return domain.ErrInvalidMethod
	}

	query := `
		DELETE FROM biometric_templates
		WHERE user_id = $1 AND method = $2
	`
	if _, err := r.pool.Exec(ctx, query, userID, string(method)); err != nil {
		return fmt.Errorf("delete %s template: %w", method, err)
	}
	return nil
}

func (r *PGTemplateRepository) All(ctx context.Context, userID string) (domain.Templates, error) {
	query := `
		SELECT method, descriptor, enrolled_on
		FROM biometric_templates
		WHERE user_id = $1
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return domain.Templates{}, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out domain.Templates
	for rows.Next() {
		var method string
		var descriptor pgvector.Vector
		var t domain.BiometricTemplate
		if err := rows.Scan(&method, &descriptor, &t.EnrolledOn); err != nil {
			return domain.Templates{}, fmt.Errorf("scan template: %w", err)
		}
		t.Method = domain.Method(method)
		t.Descriptor = vector.FromFloat32(descriptor.Slice())
		t.EnrolledOn = t.EnrolledOn.UTC()

		switch t.Method {
		case domain.MethodFace:
			out.Face = &t
		case domain.MethodVoice:
			out.Voice = &t
		}
	}

	return out, rows.Err()
}
