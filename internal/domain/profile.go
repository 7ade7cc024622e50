package domain

// Seed values used when a user has no stored profile.
const (
	SeedSimIccid     = "892540212345678901f"
	SeedPIN          = "123456"
	SeedBalance      = 150230.75
	SeedAvgTxnAmount = 3500
	SeedAvgTxnHour   = 14
)

// UserProfile is the account baseline the risk rules compare against
type UserProfile struct {
	FirstName    string  `json:"first_name"`
	Phone        string  `json:"phone"`
	PIN          string  `json:"pin"`
	Balance      float64 `json:"balance"`
	LastSimIccid string  `json:"last_sim_iccid"`
	AvgTxnAmount float64 `json:"avg_txn_amount"`
	AvgTxnHour   int     `json:"avg_txn_hour"`
}

// SeedProfile returns the profile a new user starts with
func SeedProfile() UserProfile {
	return UserProfile{
		FirstName:    "Juma",
		Phone:        "+254712345678",
		PIN:          SeedPIN,
		Balance:      SeedBalance,
		LastSimIccid: SeedSimIccid,
		AvgTxnAmount: SeedAvgTxnAmount,
		AvgTxnHour:   SeedAvgTxnHour,
	}
}

// Agent is a known cash-in/cash-out agent with its dispute history.
type Agent struct {
	ID       string `json:"agent_id"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Disputes int    `json:"disputes"`
}

// SeedAgents returns the known cash-out agents
func SeedAgents() []Agent {
	return []Agent{
		{ID: "AGT001", Name: "Safaricom Shop", City: "Nairobi", Disputes: 1},
		{ID: "AGT002", Name: "QuickMart Agent", City: "Nairobi", Disputes: 0},
		{ID: "AGT003", Name: "Naivas Till", City: "Mombasa", Disputes: 3},
		{ID: "AGT004", Name: "Co-op Bank Agent", City: "Kisumu", Disputes: 0},
		{ID: "AGT005", Name: "Kibanda M-Pesa", City: "Nairobi", Disputes: 15},
	}
}
