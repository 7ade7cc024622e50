package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/service"
)

// ErrorHandler renders AppErrors as JSON and logs server errors
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "HTTP_ERROR",
					"message": fiberErr.Message,
				},
			})
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode >= 500 {
				logger.Error("internal error",
					slog.String("code", appErr.Code),
					slog.String("message", appErr.Message),
					slog.Any("error", appErr.Err),
					slog.String("path", c.Path()),
				)
			}

			body := fiber.Map{
				"code":    appErr.Code,
				"message": appErr.Message,
			}

			// refused transactions carry the assessment so the client can explain it
			var blocked *service.BlockedError
			if errors.As(err, &blocked) {
				body["details"] = fiber.Map{
					"risk_score": blocked.Assessment.RiskScore,
					"reasons":    blocked.Assessment.Reasons,
					"reason":     blocked.Reason,
					"alert":      blocked.Alert,
				}
			}

			return c.Status(appErr.StatusCode).JSON(fiber.Map{"error": body})
		}

		logger.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Path()),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_ERROR",
				"message": "An unexpected error occurred",
			},
		})
	}
}
