// Package risk scores pending transactions against the user's profile and
// recent history. Scoring is additive, capped at 100 and free of side effects.
package risk

import (
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
)

// Band is the decision derived from a score
type Band string

const (
	BandApprove   Band = "approve"
	BandChallenge Band = "challenge"
	BandBlock     Band = "block"
)

const (
	DefaultChallengeThreshold = 50
	DefaultBlockThreshold     = 85
	MaxScore                  = 100

	// ReasonNormal is reported alone when no rule fires
	ReasonNormal = "transaction appears normal"
)

// Weights is the score each rule adds when it fires
type Weights struct {
	HighAmount   int
	UnusualHour  int
	HighVelocity int
	FlaggedAgent int
	SimChange    int
}

// DefaultWeights returns the score added by each rule
func DefaultWeights() Weights {
	return Weights{
		HighAmount:   35,
		UnusualHour:  20,
		HighVelocity: 40,
		FlaggedAgent: 30,
		SimChange:    80,
	}
}

// Config holds the band thresholds and rule parameters
type Config struct {
	ChallengeThreshold int
	BlockThreshold     int
	Weights            Weights

	AmountMultiplier float64
	HourDeviation    int
	VelocityWindow   time.Duration
	VelocityLimit    int
	DisputeLimit     int
	SeedSimIccid     string

	// Location is the zone the hour-of-day rule is evaluated in
	Location *time.Location
}

// DefaultConfig returns the production scoring setup
func DefaultConfig() Config {
	return Config{
		ChallengeThreshold: DefaultChallengeThreshold,
		BlockThreshold:     DefaultBlockThreshold,
		Weights:            DefaultWeights(),
		AmountMultiplier:   4,
		HourDeviation:      6,
		VelocityWindow:     10 * time.Minute,
		VelocityLimit:      4,
		DisputeLimit:       10,
		SeedSimIccid:       domain.SeedSimIccid,
		Location:           time.FixedZone("EAT", 3*60*60),
	}
}

// AgentDirectory resolves a recipient to a known agent
type AgentDirectory interface {
	Agent(id string) (domain.Agent, bool)
}

// Agents is an in-memory AgentDirectory
type Agents map[string]domain.Agent

// NewAgents indexes agents by id
func NewAgents(list []domain.Agent) Agents {
	a := make(Agents, len(list))
	for _, ag := range list {
		a[ag.ID] = ag
	}
	return a
}

func (a Agents) Agent(id string) (domain.Agent, bool) {
	ag, ok := a[id]
	return ag, ok
}

// Engine scores pending transactions
type Engine struct {
	config Config
	agents AgentDirectory
	now    func() time.Time
}

// NewEngine creates a risk engine
func NewEngine(cfg Config, agents AgentDirectory) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if agents == nil {
		agents = Agents{}
	}
	return &Engine{config: cfg, agents: agents, now: time.Now}
}

func (e *Engine) Config() Config { return e.config }

// Assess scores tx at the current time
func (e *Engine) Assess(tx domain.PendingTransaction, profile domain.UserProfile, history []domain.UserTransaction) domain.RiskAssessment {
	return e.AssessAt(e.now(), tx, profile, history)
}

// AssessAt scores tx as if submitted at now
func (e *Engine) AssessAt(now time.Time, tx domain.PendingTransaction, profile domain.UserProfile, history []domain.UserTransaction) domain.RiskAssessment {
	w := e.config.Weights
	score := 0
	var reasons []string

	if tx.Amount > profile.AvgTxnAmount*e.config.AmountMultiplier {
		score += w.HighAmount
		reasons = append(reasons, fmt.Sprintf("Amount (KES %s) is >%sx user average (KES %s).",
			domain.FormatAmount(tx.Amount), domain.FormatAmount(e.config.AmountMultiplier), domain.FormatAmount(profile.AvgTxnAmount)))
	}

	hour := now.In(e.config.Location).Hour()
	if diff := abs(hour - profile.AvgTxnHour); diff > e.config.HourDeviation && diff < 24-e.config.HourDeviation {
		score += w.UnusualHour
		reasons = append(reasons, fmt.Sprintf("Transaction at %d:00 is unusual for user (average hour: %d:00).", hour, profile.AvgTxnHour))
	}

	if recent := e.recentCount(now, history); recent >= e.config.VelocityLimit {
		score += w.HighVelocity
		reasons = append(reasons, fmt.Sprintf("%d transactions in the last %d minutes.", recent+1, int(e.config.VelocityWindow.Minutes())))
	}

	if ag, ok := e.agents.Agent(tx.Recipient); ok && ag.Disputes > e.config.DisputeLimit {
		score += w.FlaggedAgent
		reasons = append(reasons, fmt.Sprintf("Recipient agent (%s) has a high dispute rate (%d).", ag.ID, ag.Disputes))
	}

	if e.simChanged(tx, profile) {
		score += w.SimChange
		reasons = append(reasons, "CRITICAL: SIM card change detected. High risk of SIM-swap fraud.")
	}

	if len(reasons) == 0 {
		reasons = []string{ReasonNormal}
	}

	return domain.RiskAssessment{RiskScore: min(score, MaxScore), Reasons: reasons}
}

// recentCount counts history entries strictly inside the velocity window
func (e *Engine) recentCount(now time.Time, history []domain.UserTransaction) int {
	cutoff := now.Add(-e.config.VelocityWindow)
	n := 0
	for _, t := range history {
		if t.Timestamp.After(cutoff) {
			n++
		}
	}
	return n
}

// simChanged fires when the profile's last SIM no longer matches the seed SIM,
// or when the device reports a SIM different from the profile's.
func (e *Engine) simChanged(tx domain.PendingTransaction, profile domain.UserProfile) bool {
	if profile.LastSimIccid != e.config.SeedSimIccid {
		return true
	}
	return tx.DeviceSimIccid != "" && tx.DeviceSimIccid != profile.LastSimIccid
}

// Classify maps a score to its band
func (e *Engine) Classify(score int) Band {
	switch {
	case score >= e.config.BlockThreshold:
		return BandBlock
	case score >= e.config.ChallengeThreshold:
		return BandChallenge
	}
	return BandApprove
}

// Flagged reports whether a score needs a challenge or worse
func (e *Engine) Flagged(score int) bool {
	return score >= e.config.ChallengeThreshold
}

// SelectChallenge picks the challenge for a challenge-band transaction:
// biometric when consented and enrolled, then PIN, then OTP.
func SelectChallenge(settings domain.Settings, templates domain.Templates, profile domain.UserProfile) domain.VerificationMethod {
	switch {
	case settings.Consented() && templates.Any():
		return domain.VerificationBiometric
	case profile.PIN != "":
		return domain.VerificationPIN
	}
	return domain.VerificationOTP
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
