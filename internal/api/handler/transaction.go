package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/risk"
	"github.com/saturnino-fabrica-de-software/safishield/internal/service"
)

// TransactionService is implemented by service.TransactionService
type TransactionService interface {
	Assess(ctx context.Context, userID string, tx domain.PendingTransaction) (domain.RiskAssessment, risk.Band, error)
	Submit(ctx context.Context, userID string, tx domain.PendingTransaction) (*service.Decision, error)
	Pending(userID string, id uuid.UUID) (*service.Challenge, error)
	VerifyPIN(ctx context.Context, userID string, id uuid.UUID, pin string) (*domain.UserTransaction, error)
	VerifyOTP(ctx context.Context, userID string, id uuid.UUID, code string) (*domain.UserTransaction, error)
	Profile(ctx context.Context, userID string) (domain.UserProfile, error)
	History(ctx context.Context, userID string) ([]domain.UserTransaction, error)
	Alerts(ctx context.Context, userID string) ([]domain.SecurityAlert, error)
	ToggleSimSwap(ctx context.Context, userID string, seedIccid string) (bool, error)
	InjectRapidTransfers(ctx context.Context, userID string) ([]domain.UserTransaction, error)
}

type TransactionHandler struct {
	service   TransactionService
	seedIccid string
	logger    *slog.Logger
}

func NewTransactionHandler(service TransactionService, seedIccid string, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, seedIccid: seedIccid, logger: logger}
}

type AssessResponse struct {
	RiskScore int       `json:"risk_score"`
	Reasons   []string  `json:"reasons"`
	Band      risk.Band `json:"band"`
}

type PINRequest struct {
	PIN string `json:"pin"`
}

type OTPRequest struct {
	Code string `json:"code"`
}

// ProfileResponse is the user profile without the PIN
type ProfileResponse struct {
	FirstName    string  `json:"first_name"`
	Phone        string  `json:"phone"`
	Balance      float64 `json:"balance"`
	LastSimIccid string  `json:"last_sim_iccid"`
	AvgTxnAmount float64 `json:"avg_txn_amount"`
	AvgTxnHour   int     `json:"avg_txn_hour"`
	HasPIN       bool    `json:"has_pin"`
}

type SimSwapResponse struct {
	Swapped bool `json:"swapped"`
}

func parseTransaction(c *fiber.Ctx) (domain.PendingTransaction, error) {
	var tx domain.PendingTransaction
	if err := c.BodyParser(&tx); err != nil {
		return tx, domain.ErrBadRequest.WithError(err)
	}
	if tx.Type == "" {
		tx.Type = domain.TransactionSend
	}
	return tx, nil
}

func challengeID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrChallengeNotFound
	}
	return id, nil
}

// Assess POST /v1/users/:user_id/risk/assess
func (h *TransactionHandler) Assess(c *fiber.Ctx) error {
	tx, err := parseTransaction(c)
	if err != nil {
		return err
	}
	a, band, err := h.service.Assess(c.Context(), c.Params("user_id"), tx)
	if err != nil {
		return err
	}
	return c.JSON(AssessResponse{RiskScore: a.RiskScore, Reasons: a.Reasons, Band: band})
}

// Submit POST /v1/users/:user_id/transactions. Approved transactions answer
// 201; transactions waiting on a challenge answer 202.
func (h *TransactionHandler) Submit(c *fiber.Ctx) error {
	tx, err := parseTransaction(c)
	if err != nil {
		return err
	}
	decision, err := h.service.Submit(c.Context(), c.Params("user_id"), tx)
	if err != nil {
		return err
	}
	if decision.Challenge != nil {
		return c.Status(fiber.StatusAccepted).JSON(decision)
	}
	return c.Status(fiber.StatusCreated).JSON(decision)
}

// GetChallenge GET /v1/users/:user_id/transactions/:id
func (h *TransactionHandler) GetChallenge(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return err
	}
	ch, err := h.service.Pending(c.Params("user_id"), id)
	if err != nil {
		return err
	}
	return c.JSON(ch)
}

// VerifyPIN POST /v1/users/:user_id/transactions/:id/pin
func (h *TransactionHandler) VerifyPIN(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return err
	}
	var req PINRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	tx, err := h.service.VerifyPIN(c.Context(), c.Params("user_id"), id, req.PIN)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

// VerifyOTP POST /v1/users/:user_id/transactions/:id/otp
func (h *TransactionHandler) VerifyOTP(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return err
	}
	var req OTPRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	tx, err := h.service.VerifyOTP(c.Context(), c.Params("user_id"), id, req.Code)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

// History GET /v1/users/:user_id/transactions
func (h *TransactionHandler) History(c *fiber.Ctx) error {
	txs, err := h.service.History(c.Context(), c.Params("user_id"))
	if err != nil {
		return err
	}
	if txs == nil {
		txs = []domain.UserTransaction{}
	}
	return c.JSON(txs)
}

// Alerts GET /v1/users/:user_id/alerts
func (h *TransactionHandler) Alerts(c *fiber.Ctx) error {
	alerts, err := h.service.Alerts(c.Context(), c.Params("user_id"))
	if err != nil {
		return err
	}
	if alerts == nil {
		alerts = []domain.SecurityAlert{}
	}
	return c.JSON(alerts)
}

// Profile GET /v1/users/:user_id/profile
func (h *TransactionHandler) Profile(c *fiber.Ctx) error {
	p, err := h.service.Profile(c.Context(), c.Params("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(ProfileResponse{
		FirstName:    p.FirstName,
		Phone:        p.Phone,
		Balance:      p.Balance,
		LastSimIccid: p.LastSimIccid,
		AvgTxnAmount: p.AvgTxnAmount,
		AvgTxnHour:   p.AvgTxnHour,
		HasPIN:       p.PIN != "",
	})
}

// SimulateSimSwap POST /v1/users/:user_id/simulate/sim-swap
func (h *TransactionHandler) SimulateSimSwap(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	swapped, err := h.service.ToggleSimSwap(c.Context(), userID, h.seedIccid)
	if err != nil {
		return err
	}
	h.logger.Warn("sim swap simulated", "user_id", userID, "swapped", swapped)
	return c.JSON(SimSwapResponse{Swapped: swapped})
}

// SimulateRapidTransfers POST /v1/users/:user_id/simulate/rapid-transfers
func (h *TransactionHandler) SimulateRapidTransfers(c *fiber.Ctx) error {
	txs, err := h.service.InjectRapidTransfers(c.Context(), c.Params("user_id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(txs)
}
