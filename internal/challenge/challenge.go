// Package challenge implements the PIN and one-time-code fallbacks used when
// biometric verification is unavailable.
package challenge

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
)

// EventRecorder appends to the security log
type EventRecorder interface {
	Record(ctx context.Context, userID string, typ domain.EventType, description string, details map[string]any) (domain.SecurityEvent, error)
}

// Subject is the transaction a challenge protects
type Subject struct {
	Amount    float64
	Recipient string
}

func (s Subject) details(method string) map[string]any {
	return map[string]any{
		"amount":    s.Amount,
		"recipient": s.Recipient,
		"method":    method,
	}
}

// Verifier checks PIN and OTP answers. Every attempt is written to the
// security log, success or not.
type Verifier struct {
	events EventRecorder
	otp    string
	logger *slog.Logger
}

// NewVerifier creates a verifier accepting mockOTP as the one-time code
func NewVerifier(events EventRecorder, mockOTP string, logger *slog.Logger) *Verifier {
	return &Verifier{
		events: events,
		otp:    mockOTP,
		logger: logger.With("component", "challenge"),
	}
}

// VerifyPIN compares the entered PIN against the stored one
func (v *Verifier) VerifyPIN(ctx context.Context, userID, stored, entered string, subj Subject) bool {
	ok := stored != "" && equal(stored, entered)

	typ, desc := domain.EventPinSuccess, "Transaction approved via PIN verification."
	if !ok {
		typ = domain.EventPinFailure
		desc = fmt.Sprintf("Incorrect PIN for transaction of KES %s to %s. Transaction blocked.",
			domain.FormatAmount(subj.Amount), subj.Recipient)
	}
	v.record(ctx, userID, typ, desc, subj.details("PIN"))
	return ok
}

// InitiateOTP logs that a one-time code was sent for the transaction
func (v *Verifier) InitiateOTP(ctx context.Context, userID string, subj Subject) {
	v.record(ctx, userID, domain.EventOtpInitiated,
		fmt.Sprintf("OTP link sent for transaction of KES %s to %s.", domain.FormatAmount(subj.Amount), subj.Recipient),
		subj.details("OTP"))
}

// VerifyOTP checks the code. Failures are flagged as a possible phishing or
// brute-force attempt.
func (v *Verifier) VerifyOTP(ctx context.Context, userID, entered string, subj Subject) bool {
	if v.otp != "" && equal(v.otp, entered) {
		v.record(ctx, userID, domain.EventOtpSuccess, "Transaction approved via OTP verification.", subj.details("OTP"))
		return true
	}

	const desc = "Transaction blocked due to incorrect OTP. Flagged for possible phishing or brute force attempt."
	v.record(ctx, userID, domain.EventOtpFailure, desc, subj.details("OTP"))
	v.logger.WarnContext(ctx, "SECURITY ALERT: "+desc,
		"user_id", userID,
		"amount", subj.Amount,
		"recipient", subj.Recipient,
	)
	return false
}

func (v *Verifier) record(ctx context.Context, userID string, typ domain.EventType, desc string, details map[string]any) {
	if _, err := v.events.Record(ctx, userID, typ, desc, details); err != nil {
		v.logger.ErrorContext(ctx, "failed to record challenge event", "user_id", userID, "type", typ, "error", err)
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
