package handler

import (
	"encoding/json"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/safishield/internal/audit"
	"github.com/saturnino-fabrica-de-software/safishield/internal/challenge"
	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/repository"
	"github.com/saturnino-fabrica-de-software/safishield/internal/risk"
	"github.com/saturnino-fabrica-de-software/safishield/internal/service"
	"github.com/saturnino-fabrica-de-software/safishield/internal/store"
)

// transactionApp wires the real services over an in-memory store. The
// approve thresholds are raised so wall-clock hour never changes the band.
func transactionApp(t *testing.T, cfg risk.Config) *fiber.App {
	t.Helper()
	logger := testLogger()
	kv := store.NewMemoryStore()
	log := audit.NewLog(kv, 0, logger)

	svc := service.NewTransactionService(
		repository.NewProfileRepository(kv),
		repository.NewTransactionRepository(kv),
		repository.NewAlertRepository(kv),
		repository.NewKVTemplateRepository(kv),
		repository.NewSettingsRepository(kv),
		risk.NewEngine(cfg, risk.NewAgents(domain.SeedAgents())),
		challenge.NewVerifier(log, "123456", logger),
		log,
		logger,
	)

	h := NewTransactionHandler(svc, domain.SeedSimIccid, logger)
	events := NewEventHandler(log)

	app := newTestApp()
	u := app.Group("/v1/users/:user_id")
	u.Post("/risk/assess", h.Assess)
	u.Get("/profile", h.Profile)
	u.Post("/transactions", h.Submit)
	u.Get("/transactions", h.History)
	u.Get("/transactions/:id", h.GetChallenge)
	u.Post("/transactions/:id/pin", h.VerifyPIN)
	u.Post("/transactions/:id/otp", h.VerifyOTP)
	u.Get("/alerts", h.Alerts)
	u.Post("/simulate/sim-swap", h.SimulateSimSwap)
	u.Post("/simulate/rapid-transfers", h.SimulateRapidTransfers)
	u.Get("/security-events", events.List)
	u.Delete("/security-events", events.Clear)
	return app
}

func TestTransactionHandler_Approve(t *testing.T) {
	app := transactionApp(t, risk.DefaultConfig())

	status, body := doJSON(t, app, "POST", "/v1/users/u1/transactions", map[string]interface{}{
		"recipient": "0722000000", "amount": 100,
	})
	// a night-time clock adds the unusual-hour weight, still below the challenge band
	require.Equal(t, fiber.StatusCreated, status, string(body))

	var d service.Decision
	require.NoError(t, json.Unmarshal(body, &d))
	require.NotNil(t, d.Transaction)
	assert.Equal(t, domain.VerificationNone, d.Transaction.VerificationMethod)

	status, body = doJSON(t, app, "GET", "/v1/users/u1/transactions", nil)
	require.Equal(t, 200, status)
	var txs []domain.UserTransaction
	require.NoError(t, json.Unmarshal(body, &txs))
	assert.Len(t, txs, 1)

	status, body = doJSON(t, app, "GET", "/v1/users/u1/profile", nil)
	require.Equal(t, 200, status)
	var p ProfileResponse
	require.NoError(t, json.Unmarshal(body, &p))
	assert.InDelta(t, domain.SeedBalance-100, p.Balance, 1e-9)
	assert.True(t, p.HasPIN)
	assert.NotContains(t, string(body), domain.SeedPIN)
}

func TestTransactionHandler_ChallengeThenPIN(t *testing.T) {
	cfg := risk.DefaultConfig()
	cfg.ChallengeThreshold = 30
	app := transactionApp(t, cfg)

	status, body := doJSON(t, app, "POST", "/v1/users/u1/transactions", map[string]interface{}{
		"recipient": "0722000000", "amount": 20000,
	})
	require.Equal(t, fiber.StatusAccepted, status, string(body))

	var d service.Decision
	require.NoError(t, json.Unmarshal(body, &d))
	require.NotNil(t, d.Challenge)
	assert.Equal(t, domain.VerificationPIN, d.Challenge.Method)

	path := "/v1/users/u1/transactions/" + d.Challenge.ID.String()
	status, _ = doJSON(t, app, "GET", path, nil)
	assert.Equal(t, 200, status)
	status, _ = doJSON(t, app, "GET", "/v1/users/u2/transactions/"+d.Challenge.ID.String(), nil)
	assert.Equal(t, 404, status, "challenges are scoped to their user")

	status, body = doJSON(t, app, "POST", path+"/pin", PINRequest{PIN: domain.SeedPIN})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var tx domain.UserTransaction
	require.NoError(t, json.Unmarshal(body, &tx))
	assert.Equal(t, domain.VerificationPIN, tx.VerificationMethod)

	status, _ = doJSON(t, app, "POST", path+"/pin", PINRequest{PIN: domain.SeedPIN})
	assert.Equal(t, 404, status)

	status, body = doJSON(t, app, "GET", "/v1/users/u1/security-events", nil)
	require.Equal(t, 200, status)
	var events []domain.SecurityEvent
	require.NoError(t, json.Unmarshal(body, &events))
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventPinSuccess, events[0].Type)
}

func TestTransactionHandler_Blocked(t *testing.T) {
	cfg := risk.DefaultConfig()
	cfg.ChallengeThreshold = 10
	cfg.BlockThreshold = 30
	app := transactionApp(t, cfg)

	status, body := doJSON(t, app, "POST", "/v1/users/u1/transactions", map[string]interface{}{
		"recipient": "AGT005", "amount": 50,
	})
	require.Equal(t, fiber.StatusForbidden, status, string(body))
	assert.Contains(t, string(body), "TRANSACTION_BLOCKED")
	assert.Contains(t, string(body), "high dispute rate")

	status, body = doJSON(t, app, "GET", "/v1/users/u1/alerts", nil)
	require.Equal(t, 200, status)
	var alerts []domain.SecurityAlert
	require.NoError(t, json.Unmarshal(body, &alerts))
	assert.Len(t, alerts, 1)
}

func TestTransactionHandler_Validation(t *testing.T) {
	app := transactionApp(t, risk.DefaultConfig())

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
	}{
		{"zero amount", map[string]interface{}{"recipient": "x", "amount": 0}, 422},
		{"missing recipient", map[string]interface{}{"amount": 10}, 422},
		{"over balance", map[string]interface{}{"recipient": "x", "amount": 1e9}, 422},
		{"bad type", map[string]interface{}{"type": "deposit", "recipient": "x", "amount": 1}, 422},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doJSON(t, app, "POST", "/v1/users/u1/transactions", tt.body)
			assert.Equal(t, tt.wantStatus, status)
		})
	}

	status, _ := doJSON(t, app, "POST", "/v1/users/u1/transactions/not-a-uuid/pin", PINRequest{PIN: "1"})
	assert.Equal(t, 404, status)
}

func TestTransactionHandler_Simulator(t *testing.T) {
	app := transactionApp(t, risk.DefaultConfig())

	status, body := doJSON(t, app, "POST", "/v1/users/u1/simulate/sim-swap", nil)
	require.Equal(t, 200, status)
	var swap SimSwapResponse
	require.NoError(t, json.Unmarshal(body, &swap))
	assert.True(t, swap.Swapped)

	status, body = doJSON(t, app, "POST", "/v1/users/u1/risk/assess", map[string]interface{}{"recipient": "x", "amount": 10})
	require.Equal(t, 200, status)
	var a AssessResponse
	require.NoError(t, json.Unmarshal(body, &a))
	assert.GreaterOrEqual(t, a.RiskScore, 80)
	assert.Contains(t, a.Reasons, "CRITICAL: SIM card change detected. High risk of SIM-swap fraud.")

	status, _ = doJSON(t, app, "POST", "/v1/users/u1/simulate/rapid-transfers", nil)
	assert.Equal(t, 201, status)

	status, _ = doJSON(t, app, "DELETE", "/v1/users/u1/security-events", nil)
	assert.Equal(t, 204, status)
}
