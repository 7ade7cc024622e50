package risk

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
)

var eat = time.FixedZone("EAT", 3*60*60)

// at2pm matches the seed profile's average hour
var at2pm = time.Date(2026, 3, 1, 14, 0, 0, 0, eat)

func newEngine() *Engine {
	return NewEngine(DefaultConfig(), NewAgents(domain.SeedAgents()))
}

func send(recipient string, amount float64) domain.PendingTransaction {
	return domain.PendingTransaction{Type: domain.TransactionSend, Recipient: recipient, Amount: amount}
}

func history(now time.Time, ages ...time.Duration) []domain.UserTransaction {
	out := make([]domain.UserTransaction, len(ages))
	for i, a := range ages {
		out[i] = domain.UserTransaction{Timestamp: now.Add(-a), Amount: 100}
	}
	return out
}

func TestAssess_Normal(t *testing.T) {
	e := newEngine()
	got := e.AssessAt(at2pm, send("0722000000", 3500), domain.SeedProfile(), nil)

	assert.Equal(t, 0, got.RiskScore)
	assert.Equal(t, []string{ReasonNormal}, got.Reasons)
	assert.Equal(t, BandApprove, e.Classify(got.RiskScore))
	assert.False(t, e.Flagged(got.RiskScore))
}

func TestAssess_AmountAndHourChallenge(t *testing.T) {
	e := newEngine()
	at3am := time.Date(2026, 3, 1, 3, 0, 0, 0, eat)

	got := e.AssessAt(at3am, send("0722000000", 17500), domain.SeedProfile(), nil)

	assert.Equal(t, 55, got.RiskScore)
	assert.Equal(t, []string{
		"Amount (KES 17500) is >4x user average (KES 3500).",
		"Transaction at 3:00 is unusual for user (average hour: 14:00).",
	}, got.Reasons)
	assert.Equal(t, BandChallenge, e.Classify(got.RiskScore))
}

func TestAssess_Rules(t *testing.T) {
	changedSim := domain.SeedProfile()
	changedSim.LastSimIccid = "89254000000000000000"

	tests := []struct {
		name      string
		now       time.Time
		tx        domain.PendingTransaction
		profile   domain.UserProfile
		history   []domain.UserTransaction
		wantScore int
		wantBand  Band
	}{
		{"amount exactly 4x is not high", at2pm, send("x", 14000), domain.SeedProfile(), nil, 0, BandApprove},
		{"amount above 4x", at2pm, send("x", 14001), domain.SeedProfile(), nil, 35, BandApprove},
		{"hour 6 away is usual", at2pm.Add(6 * time.Hour), send("x", 10), domain.SeedProfile(), nil, 0, BandApprove},
		{"hour 7 away", at2pm.Add(7 * time.Hour), send("x", 10), domain.SeedProfile(), nil, 20, BandApprove},
		{"midnight is 14 away", at2pm.Add(-14 * time.Hour), send("x", 10), domain.SeedProfile(), nil, 20, BandApprove},
		{"three recent is fine", at2pm, send("x", 10), domain.SeedProfile(), history(at2pm, time.Minute, 2*time.Minute, 3*time.Minute), 0, BandApprove},
		{"fourth recent fires velocity", at2pm, send("x", 10), domain.SeedProfile(), history(at2pm, time.Minute, 2*time.Minute, 3*time.Minute, 9*time.Minute), 40, BandApprove},
		{"old entries ignored", at2pm, send("x", 10), domain.SeedProfile(), history(at2pm, time.Minute, 2*time.Minute, 3*time.Minute, 10*time.Minute), 0, BandApprove},
		{"flagged agent", at2pm, send("AGT005", 10), domain.SeedProfile(), nil, 30, BandApprove},
		{"agent under dispute limit", at2pm, send("AGT003", 10), domain.SeedProfile(), nil, 0, BandApprove},
		{"sim change alone challenges", at2pm, send("x", 10), changedSim, nil, 80, BandChallenge},
		{"sim change plus amount blocks", at2pm, send("x", 20000), changedSim, nil, 100, BandBlock},
		{"agent plus amount plus hour", at2pm.Add(8 * time.Hour), send("AGT005", 20000), domain.SeedProfile(), nil, 85, BandBlock},
		{"velocity plus amount plus agent caps", at2pm, send("AGT005", 20000), domain.SeedProfile(), history(at2pm, 0, time.Second, 2*time.Second, 3*time.Second), 100, BandBlock},
	}

	e := newEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.AssessAt(tt.now, tt.tx, tt.profile, tt.history)
			assert.Equal(t, tt.wantScore, got.RiskScore)
			assert.Equal(t, tt.wantBand, e.Classify(got.RiskScore))
			assert.NotEmpty(t, got.Reasons)
		})
	}
}

func TestAssess_VelocityReasonCountsCurrent(t *testing.T) {
	e := newEngine()
	got := e.AssessAt(at2pm, send("x", 10), domain.SeedProfile(), history(at2pm, 0, 0, 0, 0))
	assert.Equal(t, []string{"5 transactions in the last 10 minutes."}, got.Reasons)
}

func TestAssess_DeviceSim(t *testing.T) {
	e := newEngine()

	same := send("x", 10)
	same.DeviceSimIccid = domain.SeedSimIccid
	assert.Equal(t, 0, e.AssessAt(at2pm, same, domain.SeedProfile(), nil).RiskScore)

	swapped := send("x", 10)
	swapped.DeviceSimIccid = "89254099999999999999"
	got := e.AssessAt(at2pm, swapped, domain.SeedProfile(), nil)
	assert.Equal(t, 80, got.RiskScore)
	assert.Contains(t, got.Reasons[0], "SIM card change")
}

func TestAssess_ChangedSimAlwaysAtLeast80(t *testing.T) {
	e := newEngine()
	profile := domain.SeedProfile()
	profile.LastSimIccid = "other"

	for _, amount := range []float64{1, 3500, 14001, 1e6} {
		for h := 0; h < 24; h += 5 {
			now := time.Date(2026, 3, 1, h, 0, 0, 0, eat)
			t.Run(fmt.Sprintf("%v@%d", amount, h), func(t *testing.T) {
				got := e.AssessAt(now, send("x", amount), profile, nil)
				assert.GreaterOrEqual(t, got.RiskScore, 80)
				assert.NotEqual(t, BandApprove, e.Classify(got.RiskScore))
			})
		}
	}
}

func TestClassify_ConfigurableBands(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChallengeThreshold = 30
	cfg.BlockThreshold = 60
	e := NewEngine(cfg, nil)

	assert.Equal(t, BandApprove, e.Classify(29))
	assert.Equal(t, BandChallenge, e.Classify(30))
	assert.Equal(t, BandBlock, e.Classify(60))
}

func TestSelectChallenge(t *testing.T) {
	consent, noConsent := true, false
	face := domain.Templates{Face: &domain.BiometricTemplate{Method: domain.MethodFace}}
	noPIN := domain.SeedProfile()
	noPIN.PIN = ""

	tests := []struct {
		name      string
		settings  domain.Settings
		templates domain.Templates
		profile   domain.UserProfile
		want      domain.VerificationMethod
	}{
		{"consented and enrolled", domain.Settings{BiometricsConsent: &consent}, face, domain.SeedProfile(), domain.VerificationBiometric},
		{"enrolled without consent", domain.Settings{BiometricsConsent: &noConsent}, face, domain.SeedProfile(), domain.VerificationPIN},
		{"consented not enrolled", domain.Settings{BiometricsConsent: &consent}, domain.Templates{}, domain.SeedProfile(), domain.VerificationPIN},
		{"nothing available", domain.Settings{}, domain.Templates{}, noPIN, domain.VerificationOTP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectChallenge(tt.settings, tt.templates, tt.profile))
		})
	}
}
