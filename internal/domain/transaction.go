package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TransactionType is send or withdraw
type TransactionType string

const (
	TransactionSend     TransactionType = "send"
	TransactionWithdraw TransactionType = "withdraw"
)

func (t TransactionType) Valid() bool {
	return t == TransactionSend || t == TransactionWithdraw
}

// FormatAmount renders a KES amount without trailing zeros, e.g. 3500 or 150230.75
func FormatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}

// VerificationMethod records how a transaction was approved
type VerificationMethod string

const (
	VerificationNone      VerificationMethod = "none"
	VerificationBiometric VerificationMethod = "biometric"
	VerificationPIN       VerificationMethod = "pin"
	VerificationOTP       VerificationMethod = "otp"
)

// PendingTransaction is a transaction attempt before risk classification.
type PendingTransaction struct {
	Type      TransactionType `json:"type"`
	Recipient string          `json:"recipient"`
	Amount    float64         `json:"amount"`
	Note      string          `json:"note,omitempty"`
	// DeviceSimIccid is the SIM reported by the device at submission, empty when unknown.
	DeviceSimIccid string `json:"device_sim_iccid,omitempty"`
}

// RiskAssessment is computed fresh for every attempt and never stored on its own.
type RiskAssessment struct {
	RiskScore int      `json:"risk_score"`
	Reasons   []string `json:"reasons"`
}

// UserTransaction is immutable once recorded.
type UserTransaction struct {
	ID                 uuid.UUID          `json:"id"`
	Timestamp          time.Time          `json:"timestamp"`
	Type               TransactionType    `json:"type"`
	Recipient          string             `json:"recipient"`
	Amount             float64            `json:"amount"`
	Note               string             `json:"note,omitempty"`
	RiskScore          int                `json:"risk_score"`
	Flagged            bool               `json:"flagged"`
	VerificationMethod VerificationMethod `json:"verification_method"`
}

// SecurityAlert is raised for every blocked transaction attempt.
type SecurityAlert struct {
	ID          uuid.UUID `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	RiskScore   int       `json:"risk_score"`
	RelatedTxID uuid.UUID `json:"related_tx_id"`
}
