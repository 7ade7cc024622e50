package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/safishield/internal/challenge"
	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/repository"
	"github.com/saturnino-fabrica-de-software/safishield/internal/risk"
)

// DefaultChallengeTTL bounds how long a parked transaction waits for its challenge
const DefaultChallengeTTL = 5 * time.Minute

// EventRecorder appends to the security log
type EventRecorder interface {
	Record(ctx context.Context, userID string, typ domain.EventType, description string, details map[string]any) (domain.SecurityEvent, error)
}

// BlockedError is returned when a transaction is refused. It unwraps to
// domain.ErrTransactionBlocked and carries the assessment that caused it.
type BlockedError struct {
	Assessment domain.RiskAssessment
	Reason     string
	Alert      domain.SecurityAlert
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("transaction blocked: %s", e.Reason)
}

func (e *BlockedError) Unwrap() error {
	return domain.ErrTransactionBlocked
}

// Challenge is a transaction parked until the user answers its challenge
type Challenge struct {
	ID          uuid.UUID                 `json:"id"`
	Method      domain.VerificationMethod `json:"method"`
	Modality    domain.Method             `json:"modality,omitempty"`
	Transaction domain.PendingTransaction `json:"transaction"`
	Assessment  domain.RiskAssessment     `json:"assessment"`
	ExpiresAt   time.Time                 `json:"expires_at"`

	userID string
}

// Decision is the outcome of a submission that was not blocked
type Decision struct {
	Assessment  domain.RiskAssessment   `json:"assessment"`
	Band        risk.Band               `json:"band"`
	Flagged     bool                    `json:"flagged"`
	Transaction *domain.UserTransaction `json:"transaction,omitempty"`
	Challenge   *Challenge              `json:"challenge,omitempty"`
}

// TransactionService scores, challenges and records transactions
type TransactionService struct {
	profiles     repository.ProfileRepositoryInterface
	transactions repository.TransactionRepositoryInterface
	alerts       repository.AlertRepositoryInterface
	templates    repository.TemplateRepository
	settings     repository.SettingsRepositoryInterface
	engine       *risk.Engine
	verifier     *challenge.Verifier
	events       EventRecorder
	logger       *slog.Logger
	ttl          time.Duration
	now          func() time.Time

	mu      sync.Mutex
	pending map[uuid.UUID]*Challenge
	// balance updates are read-modify-write on the profile blob
	balanceMu sync.Mutex
}

// NewTransactionService creates the service with the default challenge TTL
func NewTransactionService(
	profiles repository.ProfileRepositoryInterface,
	transactions repository.TransactionRepositoryInterface,
	alerts repository.AlertRepositoryInterface,
	templates repository.TemplateRepository,
	settings repository.SettingsRepositoryInterface,
	engine *risk.Engine,
	verifier *challenge.Verifier,
	events EventRecorder,
	logger *slog.Logger,
) *TransactionService {
	return &TransactionService{
		profiles:     profiles,
		transactions: transactions,
		alerts:       alerts,
		templates:    templates,
		settings:     settings,
		engine:       engine,
		verifier:     verifier,
		events:       events,
		logger:       logger.With("component", "transactions"),
		ttl:          DefaultChallengeTTL,
		now:          time.Now,
		pending:      make(map[uuid.UUID]*Challenge),
	}
}

// WithChallengeTTL overrides how long a challenge stays answerable
func (s *TransactionService) WithChallengeTTL(ttl time.Duration) *TransactionService {
	s.ttl = ttl
	return s
}

// Assess scores a transaction without side effects
func (s *TransactionService) Assess(ctx context.Context, userID string, tx domain.PendingTransaction) (domain.RiskAssessment, risk.Band, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return domain.RiskAssessment{}, "", fmt.Errorf("load profile: %w", err)
	}
	history, err := s.transactions.List(ctx, userID)
	if err != nil {
		return domain.RiskAssessment{}, "", fmt.Errorf("load history: %w", err)
	}

	a := s.engine.AssessAt(s.now(), tx, profile, history)
	return a, s.engine.Classify(a.RiskScore), nil
}

// Submit validates and scores a transaction, then approves it, parks it
// behind a challenge, or blocks it.
func (s *TransactionService) Submit(ctx context.Context, userID string, tx domain.PendingTransaction) (*Decision, error) {
	tx.Recipient = strings.TrimSpace(tx.Recipient)
	if tx.Type == "" {
		tx.Type = domain.TransactionSend
	}
	if err := validate(tx); err != nil {
		return nil, err
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if tx.Amount > profile.Balance {
		return nil, domain.ErrInsufficientFunds
	}

	history, err := s.transactions.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	assessment := s.engine.AssessAt(s.now(), tx, profile, history)
	band := s.engine.Classify(assessment.RiskScore)
	decision := &Decision{
		Assessment: assessment,
		Band:       band,
		Flagged:    s.engine.Flagged(assessment.RiskScore),
	}

	s.logger.InfoContext(ctx, "transaction assessed",
		"user_id", userID,
		"risk_score", assessment.RiskScore,
		"band", band,
	)

	switch band {
	case risk.BandBlock:
		return nil, s.block(ctx, userID, tx, assessment, "Risk score over block threshold.")

	case risk.BandChallenge:
		ch, err := s.park(ctx, userID, tx, assessment, profile)
		if err != nil {
			return nil, err
		}
		decision.Challenge = ch
		return decision, nil
	}

	recorded, err := s.complete(ctx, userID, tx, assessment, domain.VerificationNone)
	if err != nil {
		return nil, err
	}
	decision.Transaction = recorded
	return decision, nil
}

func validate(tx domain.PendingTransaction) error {
	switch {
	case !tx.Type.Valid():
		return domain.ErrValidationFailed.WithError(fmt.Errorf("unknown transaction type %q", tx.Type))
	case tx.Recipient == "":
		return domain.ErrValidationFailed.WithError(errors.New("recipient is required"))
	case !(tx.Amount > 0):
		return domain.ErrValidationFailed.WithError(errors.New("amount must be positive"))
	}
	return nil
}

func (s *TransactionService) park(ctx context.Context, userID string, tx domain.PendingTransaction, a domain.RiskAssessment, profile domain.UserProfile) (*Challenge, error) {
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	templates, err := s.templates.All(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	ch := &Challenge{
		ID:          uuid.New(),
		Method:      risk.SelectChallenge(settings, templates, profile),
		Transaction: tx,
		Assessment:  a,
		ExpiresAt:   s.now().Add(s.ttl).UTC(),
		userID:      userID,
	}
	if ch.Method == domain.VerificationBiometric {
		ch.Modality, _ = templates.Preferred()
	}

	s.record(ctx, userID, domain.EventAnomalyDetected,
		fmt.Sprintf("High-risk transaction initiated. Requiring %s verification.", ch.Method),
		map[string]any{
			"amount":     tx.Amount,
			"recipient":  tx.Recipient,
			"risk_score": a.RiskScore,
			"reasons":    a.Reasons,
		})

	if ch.Method == domain.VerificationOTP {
		s.verifier.InitiateOTP(ctx, userID, subject(tx))
	}

	s.mu.Lock()
	s.sweepLocked()
	s.pending[ch.ID] = ch
	s.mu.Unlock()

	return ch, nil
}

// Pending returns a parked challenge without consuming it
func (s *TransactionService) Pending(userID string, id uuid.UUID) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.pending[id]
	if !ok || ch.userID != userID || s.now().After(ch.ExpiresAt) {
		return nil, domain.ErrChallengeNotFound
	}
	c := *ch
	return &c, nil
}

// take consumes a challenge. Each challenge allows a single attempt.
func (s *TransactionService) take(userID string, id uuid.UUID, method domain.VerificationMethod) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.pending[id]
	if !ok || ch.userID != userID {
		return nil, domain.ErrChallengeNotFound
	}
	if s.now().After(ch.ExpiresAt) {
		delete(s.pending, id)
		return nil, domain.ErrChallengeNotFound
	}
	if ch.Method != method {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("challenge requires %s verification", ch.Method))
	}
	delete(s.pending, id)
	return ch, nil
}

func (s *TransactionService) sweepLocked() {
	now := s.now()
	for id, ch := range s.pending {
		if now.After(ch.ExpiresAt) {
			delete(s.pending, id)
		}
	}
}

// VerifyPIN answers a PIN challenge
func (s *TransactionService) VerifyPIN(ctx context.Context, userID string, id uuid.UUID, pin string) (*domain.UserTransaction, error) {
	ch, err := s.take(userID, id, domain.VerificationPIN)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if !s.verifier.VerifyPIN(ctx, userID, profile.PIN, pin, subject(ch.Transaction)) {
		return nil, s.failChallenge(ctx, userID, ch, "PIN verification failed: Incorrect PIN")
	}
	return s.complete(ctx, userID, ch.Transaction, ch.Assessment, domain.VerificationPIN)
}

// VerifyOTP answers an OTP challenge
func (s *TransactionService) VerifyOTP(ctx context.Context, userID string, id uuid.UUID, code string) (*domain.UserTransaction, error) {
	ch, err := s.take(userID, id, domain.VerificationOTP)
	if err != nil {
		return nil, err
	}
	if !s.verifier.VerifyOTP(ctx, userID, code, subject(ch.Transaction)) {
		return nil, s.failChallenge(ctx, userID, ch, "OTP verification failed: Incorrect OTP")
	}
	return s.complete(ctx, userID, ch.Transaction, ch.Assessment, domain.VerificationOTP)
}

// CompleteBiometric settles a biometric challenge with the outcome of a
// verification session. The verification event is already logged by the session.
func (s *TransactionService) CompleteBiometric(ctx context.Context, userID string, id uuid.UUID, success bool, reason string) (*domain.UserTransaction, error) {
	ch, err := s.take(userID, id, domain.VerificationBiometric)
	if err != nil {
		return nil, err
	}
	if !success {
		return nil, s.failChallenge(ctx, userID, ch, "Biometric verification failed: "+reason)
	}
	return s.complete(ctx, userID, ch.Transaction, ch.Assessment, domain.VerificationBiometric)
}

func (s *TransactionService) failChallenge(ctx context.Context, userID string, ch *Challenge, reason string) error {
	blocked := s.block(ctx, userID, ch.Transaction, ch.Assessment, reason)
	return domain.ErrChallengeFailed.WithError(blocked)
}

// block writes the alert and security event for a refused transaction
func (s *TransactionService) block(ctx context.Context, userID string, tx domain.PendingTransaction, a domain.RiskAssessment, reason string) error {
	alert := domain.SecurityAlert{
		ID:          uuid.New(),
		Timestamp:   s.now().UTC(),
		Description: fmt.Sprintf("Transaction of KES %s to %s blocked. Reason: %s", domain.FormatAmount(tx.Amount), tx.Recipient, reason),
		RiskScore:   a.RiskScore,
		RelatedTxID: uuid.New(),
	}
	if err := s.alerts.Add(ctx, userID, alert); err != nil {
		s.logger.ErrorContext(ctx, "failed to store alert", "user_id", userID, "error", err)
	}

	s.record(ctx, userID, domain.EventTransactionBlocked, alert.Description, map[string]any{
		"amount":     tx.Amount,
		"recipient":  tx.Recipient,
		"risk_score": a.RiskScore,
		"reasons":    a.Reasons,
	})

	return &BlockedError{Assessment: a, Reason: reason, Alert: alert}
}

// complete records the transaction and debits the balance
func (s *TransactionService) complete(ctx context.Context, userID string, tx domain.PendingTransaction, a domain.RiskAssessment, method domain.VerificationMethod) (*domain.UserTransaction, error) {
	s.balanceMu.Lock()
	defer s.balanceMu.Unlock()

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if tx.Amount > profile.Balance {
		return nil, domain.ErrInsufficientFunds
	}

	recorded := &domain.UserTransaction{
		ID:                 uuid.New(),
		Timestamp:          s.now().UTC(),
		Type:               tx.Type,
		Recipient:          tx.Recipient,
		Amount:             tx.Amount,
		Note:               tx.Note,
		RiskScore:          a.RiskScore,
		Flagged:            s.engine.Flagged(a.RiskScore),
		VerificationMethod: method,
	}
	if err := s.transactions.Add(ctx, userID, *recorded); err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	profile.Balance -= tx.Amount
	if err := s.profiles.Save(ctx, userID, profile); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	s.logger.InfoContext(ctx, "transaction completed",
		"user_id", userID,
		"transaction_id", recorded.ID,
		"verification_method", method,
	)
	return recorded, nil
}

func (s *TransactionService) Profile(ctx context.Context, userID string) (domain.UserProfile, error) {
	return s.profiles.Get(ctx, userID)
}

// History returns transactions, newest first
func (s *TransactionService) History(ctx context.Context, userID string) ([]domain.UserTransaction, error) {
	return s.transactions.List(ctx, userID)
}

func (s *TransactionService) Alerts(ctx context.Context, userID string) ([]domain.SecurityAlert, error) {
	return s.alerts.List(ctx, userID)
}

func (s *TransactionService) record(ctx context.Context, userID string, typ domain.EventType, desc string, details map[string]any) {
	if _, err := s.events.Record(ctx, userID, typ, desc, details); err != nil {
		s.logger.ErrorContext(ctx, "failed to record security event", "user_id", userID, "type", typ, "error", err)
	}
}

func subject(tx domain.PendingTransaction) challenge.Subject {
	return challenge.Subject{Amount: tx.Amount, Recipient: tx.Recipient}
}
