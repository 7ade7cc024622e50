package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
)

// BiometricService is implemented by service.BiometricService
type BiometricService interface {
	Templates(ctx context.Context, userID string) (domain.Templates, error)
	Import(ctx context.Context, userID string, method domain.Method, descriptor []float64) (*domain.BiometricTemplate, error)
	Reset(ctx context.Context, userID string, methods ...domain.Method) error
	Settings(ctx context.Context, userID string) (domain.Settings, error)
	UpdateSettings(ctx context.Context, userID string, settings domain.Settings) (domain.Settings, error)
}

type BiometricHandler struct {
	service BiometricService
	logger  *slog.Logger
}

func NewBiometricHandler(service BiometricService, logger *slog.Logger) *BiometricHandler {
	return &BiometricHandler{service: service, logger: logger}
}

// TemplateSummary describes an enrolled template without exposing the descriptor
type TemplateSummary struct {
	Enrolled         bool       `json:"enrolled"`
	DescriptorLength int        `json:"descriptor_length,omitempty"`
	EnrolledOn       *time.Time `json:"enrolled_on,omitempty"`
}

type TemplatesResponse struct {
	Face  TemplateSummary `json:"face"`
	Voice TemplateSummary `json:"voice"`
}

type ImportTemplateRequest struct {
	Descriptor []float64 `json:"descriptor"`
}

type SettingsRequest struct {
	FaceThreshold     *float64           `json:"face_threshold"`
	Strictness        *domain.Strictness `json:"liveness_strictness"`
	BiometricsConsent *bool              `json:"biometrics_consent"`
	// ClearThreshold drops an explicit threshold so strictness applies again
	ClearThreshold bool `json:"clear_threshold"`
}

type SettingsResponse struct {
	EffectiveFaceThreshold float64           `json:"effective_face_threshold"`
	FaceThreshold          *float64          `json:"face_threshold,omitempty"`
	Strictness             domain.Strictness `json:"liveness_strictness"`
	BiometricsConsent      *bool             `json:"biometrics_consent,omitempty"`
}

func summarize(t *domain.BiometricTemplate) TemplateSummary {
	if t == nil {
		return TemplateSummary{}
	}
	on := t.EnrolledOn
	return TemplateSummary{Enrolled: true, DescriptorLength: len(t.Descriptor), EnrolledOn: &on}
}

func settingsResponse(s domain.Settings) SettingsResponse {
	return SettingsResponse{
		EffectiveFaceThreshold: s.EffectiveFaceThreshold(),
		FaceThreshold:          s.FaceThreshold,
		Strictness:             s.Strictness,
		BiometricsConsent:      s.BiometricsConsent,
	}
}

// ListTemplates GET /v1/users/:user_id/templates
func (h *BiometricHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.service.Templates(c.Context(), c.Params("user_id"))
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	return c.JSON(TemplatesResponse{
		Face:  summarize(templates.Face),
		Voice: summarize(templates.Voice),
	})
}

// ImportTemplate POST /v1/users/:user_id/templates/:method
func (h *BiometricHandler) ImportTemplate(c *fiber.Ctx) error {
	method, err := domain.ParseMethod(c.Params("method"))
	if err != nil {
		return err
	}

	var req ImportTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if len(req.Descriptor) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("descriptor is required"))
	}

	t, err := h.service.Import(c.Context(), c.Params("user_id"), method, req.Descriptor)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(summarize(t))
}

// ResetTemplate DELETE /v1/users/:user_id/templates/:method
func (h *BiometricHandler) ResetTemplate(c *fiber.Ctx) error {
	method, err := domain.ParseMethod(c.Params("method"))
	if err != nil {
		return err
	}
	if err := h.service.Reset(c.Context(), c.Params("user_id"), method); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ResetAll DELETE /v1/users/:user_id/templates
func (h *BiometricHandler) ResetAll(c *fiber.Ctx) error {
	if err := h.service.Reset(c.Context(), c.Params("user_id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSettings GET /v1/users/:user_id/settings
func (h *BiometricHandler) GetSettings(c *fiber.Ctx) error {
	s, err := h.service.Settings(c.Context(), c.Params("user_id"))
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	return c.JSON(settingsResponse(s))
}

// UpdateSettings PUT /v1/users/:user_id/settings. Omitted fields keep their value.
func (h *BiometricHandler) UpdateSettings(c *fiber.Ctx) error {
	var req SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	userID := c.Params("user_id")
	current, err := h.service.Settings(c.Context(), userID)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}

	if req.ClearThreshold {
		current.FaceThreshold = nil
	}
	if req.FaceThreshold != nil {
		current.FaceThreshold = req.FaceThreshold
	}
	if req.Strictness != nil {
		current.Strictness = *req.Strictness
	}
	if req.BiometricsConsent != nil {
		current.BiometricsConsent = req.BiometricsConsent
	}

	updated, err := h.service.UpdateSettings(c.Context(), userID, current)
	if err != nil {
		return err
	}

	h.logger.Info("settings updated",
		"user_id", userID,
		"face_threshold", updated.EffectiveFaceThreshold(),
		"strictness", updated.Strictness,
	)
	return c.JSON(settingsResponse(updated))
}
