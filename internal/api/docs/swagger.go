package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// TemplateSummary represents enrollment status of one modality
type TemplateSummary struct {
	Enrolled         bool   `json:"enrolled" example:"true"`
	DescriptorLength int    `json:"descriptor_length" example:"128"`
	EnrolledOn       string `json:"enrolled_on" example:"2026-01-01T00:00:00Z"`
}

// TemplatesResponse represents the enrolled modalities
type TemplatesResponse struct {
	Face  TemplateSummary `json:"face"`
	Voice TemplateSummary `json:"voice"`
}

// ImportTemplateRequest represents a descriptor computed elsewhere
type ImportTemplateRequest struct {
	Descriptor []float64 `json:"descriptor"`
}

// SettingsRequest represents a partial settings update
type SettingsRequest struct {
	FaceThreshold     float64 `json:"face_threshold" example:"0.45"`
	Strictness        string  `json:"liveness_strictness" example:"medium"`
	BiometricsConsent bool    `json:"biometrics_consent" example:"true"`
	ClearThreshold    bool    `json:"clear_threshold" example:"false"`
}

// SettingsResponse represents the stored and effective settings
type SettingsResponse struct {
	EffectiveFaceThreshold float64 `json:"effective_face_threshold" example:"0.45"`
	FaceThreshold          float64 `json:"face_threshold" example:"0.45"`
	Strictness             string  `json:"liveness_strictness" example:"medium"`
	BiometricsConsent      bool    `json:"biometrics_consent" example:"true"`
}

// TransactionRequest represents a transaction to score or submit
type TransactionRequest struct {
	Type           string  `json:"type" example:"send"`
	Recipient      string  `json:"recipient" example:"0722000000"`
	Amount         float64 `json:"amount" example:"2500"`
	Note           string  `json:"note" example:"rent"`
	DeviceSimIccid string  `json:"device_sim_iccid" example:"892540212345678901f"`
}

// AssessResponse represents a risk score with its band
type AssessResponse struct {
	RiskScore int      `json:"risk_score" example:"55"`
	Reasons   []string `json:"reasons"`
	Band      string   `json:"band" example:"challenge"`
}

// RiskAssessment represents a risk score and its reasons
type RiskAssessment struct {
	RiskScore int      `json:"risk_score" example:"55"`
	Reasons   []string `json:"reasons"`
}

// Transaction represents a recorded transaction
type Transaction struct {
	ID                 string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Timestamp          string  `json:"timestamp" example:"2026-01-01T00:00:00Z"`
	Type               string  `json:"type" example:"send"`
	Recipient          string  `json:"recipient" example:"0722000000"`
	Amount             float64 `json:"amount" example:"2500"`
	RiskScore          int     `json:"risk_score" example:"20"`
	Flagged            bool    `json:"flagged" example:"false"`
	VerificationMethod string  `json:"verification_method" example:"none"`
}

// Challenge represents a transaction waiting for verification
type Challenge struct {
	ID          string             `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Method      string             `json:"method" example:"pin"`
	Modality    string             `json:"modality" example:"face"`
	Transaction TransactionRequest `json:"transaction"`
	Assessment  RiskAssessment     `json:"assessment"`
	ExpiresAt   string             `json:"expires_at" example:"2026-01-01T00:05:00Z"`
}

// DecisionResponse represents the outcome of a submission
type DecisionResponse struct {
	Assessment  RiskAssessment `json:"assessment"`
	Band        string         `json:"band" example:"approve"`
	Flagged     bool           `json:"flagged" example:"false"`
	Transaction *Transaction   `json:"transaction,omitempty"`
	Challenge   *Challenge     `json:"challenge,omitempty"`
}

// PINRequest represents a PIN challenge answer
type PINRequest struct {
	PIN string `json:"pin" example:"123456"`
}

// OTPRequest represents an OTP challenge answer
type OTPRequest struct {
	Code string `json:"code" example:"123456"`
}

// Alert represents a blocked transaction alert
type Alert struct {
	ID          string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Timestamp   string `json:"timestamp" example:"2026-01-01T00:00:00Z"`
	Description string `json:"description" example:"Transaction of KES 20000 to AGT005 blocked. Reason: Risk score over block threshold."`
	RiskScore   int    `json:"risk_score" example:"85"`
	RelatedTxID string `json:"related_tx_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// SecurityEvent represents a security log entry
type SecurityEvent struct {
	ID          string                 `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Timestamp   string                 `json:"timestamp" example:"2026-01-01T00:00:00Z"`
	Type        string                 `json:"type" example:"VerificationSuccess"`
	Description string                 `json:"description" example:"Face verification successful."`
	Details     map[string]interface{} `json:"details"`
}

// ProfileResponse represents the user profile without the PIN
type ProfileResponse struct {
	FirstName    string  `json:"first_name" example:"Juma"`
	Phone        string  `json:"phone" example:"+254712345678"`
	Balance      float64 `json:"balance" example:"150230.75"`
	LastSimIccid string  `json:"last_sim_iccid" example:"892540212345678901f"`
	AvgTxnAmount float64 `json:"avg_txn_amount" example:"3500"`
	AvgTxnHour   int     `json:"avg_txn_hour" example:"14"`
	HasPIN       bool    `json:"has_pin" example:"true"`
}

// SimSwapResponse represents the simulated SIM state
type SimSwapResponse struct {
	Swapped bool `json:"swapped" example:"true"`
}

var (
	userParam   = parameter.StrParam("user_id", parameter.Path, parameter.WithDescription("User identifier scoping every stored record"))
	methodParam = parameter.StrParam("method", parameter.Path, parameter.WithDescription("Biometric method: face or voice"))
	idParam     = parameter.StrParam("id", parameter.Path, parameter.WithDescription("Challenge identifier returned by POST /transactions"))
)

var internalError = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")

func withInternal(rs ...response.Response) []response.Response {
	return append(rs, internalError)
}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "SafiShield API",
		Version:     "v1.0.0",
		Description: "Biometric verification and transaction risk engine for mobile money",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	produceJSON := endpoint.WithProduce([]mime.MIME{mime.JSON})

	endpoints := []*endpoint.EndPoint{
		// Templates

		endpoint.New(
			endpoint.GET,
			"/users/{user_id}/templates",
			endpoint.WithTags("Templates"),
			endpoint.WithSummary("List enrolled templates"),
			endpoint.WithDescription("Reports which modalities are enrolled. Descriptors are never returned."),
			produceJSON,
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(TemplatesResponse{}, "200", "Enrollment status"),
			}),
			endpoint.WithErrors(withInternal()),
		),

		endpoint.New(
			endpoint.POST,
			"/users/{user_id}/templates/{method}",
			endpoint.WithTags("Templates"),
			endpoint.WithSummary("Import a template"),
			endpoint.WithDescription("Stores a descriptor computed elsewhere. Face descriptors are kept as given, voice descriptors are normalized to unit length."),
			endpoint.WithBody(ImportTemplateRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			produceJSON,
			endpoint.WithParams(userParam, methodParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(TemplateSummary{}, "201", "Template stored"),
			}),
			endpoint.WithErrors(withInternal(
				response.New(ErrorResponse{Code: "INVALID_METHOD", Message: "Biometric method must be face or voice"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
			)),
		),

		endpoint.New(
			endpoint.DELETE,
			"/users/{user_id}/templates/{method}",
			endpoint.WithTags("Templates"),
			endpoint.WithSummary("Reset one template"),
			endpoint.WithParams(userParam, methodParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Template deleted"),
			}),
			endpoint.WithErrors(withInternal()),
		),

		endpoint.New(
			endpoint.DELETE,
			"/users/{user_id}/templates",
			endpoint.WithTags("Templates"),
			endpoint.WithSummary("Reset all templates"),
			endpoint.WithDescription("Deletes face and voice templates and logs a TemplateReset security event."),
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Templates deleted"),
			}),
			endpoint.WithErrors(withInternal()),
		),

		// Settings

		endpoint.New(
			endpoint.GET,
			"/users/{user_id}/settings",
			endpoint.WithTags("Settings"),
			endpoint.WithSummary("Get verification settings"),
			produceJSON,
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SettingsResponse{}, "200", "Current settings"),
			}),
			endpoint.WithErrors(withInternal()),
		),

		endpoint.New(
			endpoint.PUT,
			"/users/{user_id}/settings",
			endpoint.WithTags("Settings"),
			endpoint.WithSummary("Update verification settings"),
			endpoint.WithDescription("Omitted fields keep their value. The face threshold must be within 0.30 and 0.60."),
			endpoint.WithBody(SettingsRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			produceJSON,
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SettingsResponse{}, "200", "Updated settings"),
			}),
			endpoint.WithErrors(withInternal(
				response.New(ErrorResponse{Code: "INVALID_THRESHOLD", Message: "Face threshold must be between 0.30 and 0.60"}, "422", "Unprocessable Entity"),
			)),
		),

		// Risk and transactions

		endpoint.New(
			endpoint.POST,
			"/users/{user_id}/risk/assess",
			endpoint.WithTags("Risk"),
			endpoint.WithSummary("Score a transaction"),
			endpoint.WithDescription("Scores a transaction without recording anything."),
			endpoint.WithBody(TransactionRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			produceJSON,
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AssessResponse{}, "200", "Risk assessment"),
			}),
			endpoint.WithErrors(withInternal()),
		),

		endpoint.New(
			endpoint.POST,
			"/users/{user_id}/transactions",
			endpoint.WithTags("Transactions"),
			endpoint.WithSummary("Submit a transaction"),
			endpoint.WithDescription("Approved transactions are recorded at once (201). Challenge-band transactions wait for biometric, PIN or OTP verification (202). Block-band transactions are refused and raise an alert."),
			endpoint.WithBody(TransactionRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			produceJSON,
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DecisionResponse{}, "201", "Transaction approved"),
				response.New(DecisionResponse{}, "202", "Challenge required"),
			}),
			endpoint.WithErrors(withInternal(
				response.New(ErrorResponse{Code: "TRANSACTION_BLOCKED", Message: "Transaction blocked, high risk detected"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "INSUFFICIENT_FUNDS", Message: "Invalid amount or insufficient funds"}, "422", "Unprocessable Entity"),
			)),
		),

		endpoint.New(
			endpoint.GET,
			"/users/{user_id}/transactions",
			endpoint.WithTags("Transactions"),
			endpoint.WithSummary("Transaction history"),
			endpoint.WithDescription("Most recent transactions first, at most 100."),
			produceJSON,
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]Transaction{}, "200", "History"),
			}),
			endpoint.WithErrors(withInternal()),
		),

		endpoint.New(
			endpoint.GET,
			"/users/{user_id}/transactions/{id}",
			endpoint.WithTags("Transactions"),
			endpoint.WithSummary("Get a pending challenge"),
			produceJSON,
			endpoint.WithParams(userParam, idParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Challenge{}, "200", "Pending challenge"),
			}),
			endpoint.WithErrors(withInternal(
				response.New(ErrorResponse{Code: "CHALLENGE_NOT_FOUND", Message: "Pending challenge not found or already resolved"}, "404", "Not Found"),
			)),
		),

		endpoint.New(
			endpoint.POST,
			"/users/{user_id}/transactions/{id}/pin",
			endpoint.WithTags("Transactions"),
			endpoint.WithSummary("Answer a PIN challenge"),
			endpoint.WithDescription("Each challenge accepts a single attempt. A wrong PIN blocks the transaction."),
			endpoint.WithBody(PINRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			produceJSON,
			endpoint.WithParams(userParam, idParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Transaction{}, "201", "Transaction recorded"),
			}),
			endpoint.WithErrors(withInternal(
				response.New(ErrorResponse{Code: "CHALLENGE_FAILED", Message: "Challenge verification failed, transaction blocked"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "CHALLENGE_NOT_FOUND", Message: "Pending challenge not found or already resolved"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Too many attempts, try again later"}, "429", "Too Many Requests"),
			)),
		),

		endpoint.New(
			endpoint.POST,
			"/users/{user_id}/transactions/{id}/otp",
			endpoint.WithTags("Transactions"),
			endpoint.WithSummary("Answer an OTP challenge"),
			endpoint.WithBody(OTPRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			produceJSON,
			endpoint.WithParams(userParam, idParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Transaction{}, "201", "Transaction recorded"),
			}),
			endpoint.WithErrors(withInternal(
				response.New(ErrorResponse{Code: "CHALLENGE_FAILED", Message: "Challenge verification failed, transaction blocked"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "CHALLENGE_NOT_FOUND", Message: "Pending challenge not found or already resolved"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Too many attempts, try again later"}, "429", "Too Many Requests"),
			)),
		),

		endpoint.New(
			endpoint.GET,
			"/users/{user_id}/alerts",
			endpoint.WithTags("Transactions"),
			endpoint.WithSummary("Blocked transaction alerts"),
			produceJSON,
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]Alert{}, "200", "Alerts, newest first"),
			}),
			endpoint.WithErrors(withInternal()),
		),

		endpoint.New(
			endpoint.GET,
			"/users/{user_id}/profile",
			endpoint.WithTags("Transactions"),
			endpoint.WithSummary("User profile and balance"),
			produceJSON,
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ProfileResponse{}, "200", "Profile"),
			}),
			endpoint.WithErrors(withInternal()),
		),

		// Security log

		endpoint.New(
			endpoint.GET,
			"/users/{user_id}/security-events",
			endpoint.WithTags("Security"),
			endpoint.WithSummary("Security event log"),
			endpoint.WithDescription("Newest first, at most 100 events."),
			produceJSON,
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]SecurityEvent{}, "200", "Events"),
			}),
			endpoint.WithErrors(withInternal()),
		),

		endpoint.New(
			endpoint.DELETE,
			"/users/{user_id}/security-events",
			endpoint.WithTags("Security"),
			endpoint.WithSummary("Clear the security event log"),
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Log cleared"),
			}),
			endpoint.WithErrors(withInternal()),
		),

		// Simulator

		endpoint.New(
			endpoint.POST,
			"/users/{user_id}/simulate/sim-swap",
			endpoint.WithTags("Simulator"),
			endpoint.WithSummary("Toggle a simulated SIM swap"),
			produceJSON,
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SimSwapResponse{}, "200", "New SIM state"),
			}),
			endpoint.WithErrors(withInternal()),
		),

		endpoint.New(
			endpoint.POST,
			"/users/{user_id}/simulate/rapid-transfers",
			endpoint.WithTags("Simulator"),
			endpoint.WithSummary("Inject a burst of transfers"),
			endpoint.WithDescription("Records four small transfers in the last 30 seconds so the next submission trips the velocity rule."),
			produceJSON,
			endpoint.WithParams(userParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]Transaction{}, "201", "Injected transfers"),
			}),
			endpoint.WithErrors(withInternal()),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
