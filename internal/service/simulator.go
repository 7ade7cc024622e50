package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
)

// simulatedRecipient receives the rapid-transfer burst
const simulatedRecipient = "254700000001"

// ToggleSimSwap flips the profile SIM between the seed SIM and a swapped one
// and reports whether the profile is now swapped.
func (s *TransactionService) ToggleSimSwap(ctx context.Context, userID string, seedIccid string) (bool, error) {
	s.balanceMu.Lock()
	defer s.balanceMu.Unlock()

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load profile: %w", err)
	}

	swapped := profile.LastSimIccid == seedIccid
	if swapped {
		profile.LastSimIccid = fmt.Sprintf("swapped_%d", s.now().UnixMilli())
	} else {
		profile.LastSimIccid = seedIccid
	}

	if err := s.profiles.Save(ctx, userID, profile); err != nil {
		return false, fmt.Errorf("save profile: %w", err)
	}
	s.logger.InfoContext(ctx, "sim swap toggled", "user_id", userID, "swapped", swapped)
	return swapped, nil
}

// InjectRapidTransfers records four small transfers in the last 30 seconds so
// the next submission trips the velocity rule.
func (s *TransactionService) InjectRapidTransfers(ctx context.Context, userID string) ([]domain.UserTransaction, error) {
	s.balanceMu.Lock()
	defer s.balanceMu.Unlock()

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	now := s.now().UTC()
	out := make([]domain.UserTransaction, 0, 4)
	for i := 0; i < 4; i++ {
		tx := domain.UserTransaction{
			ID:                 uuid.New(),
			Timestamp:          now.Add(-time.Duration(30-i*5) * time.Second),
			Type:               domain.TransactionSend,
			Recipient:          simulatedRecipient,
			Amount:             float64(100 + i),
			VerificationMethod: domain.VerificationNone,
		}
		if err := s.transactions.Add(ctx, userID, tx); err != nil {
			return nil, fmt.Errorf("record transaction: %w", err)
		}
		profile.Balance -= tx.Amount
		out = append(out, tx)
	}

	if err := s.profiles.Save(ctx, userID, profile); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	return out, nil
}
