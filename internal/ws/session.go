package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/enrollment"
	"github.com/saturnino-fabrica-de-software/safishield/internal/media"
	"github.com/saturnino-fabrica-de-software/safishield/internal/service"
	"github.com/saturnino-fabrica-de-software/safishield/internal/verification"
)

const (
	outboundBuffer = 64
	closeGrace     = time.Second
)

// ChallengeCompleter settles parked transactions with a verification outcome
type ChallengeCompleter interface {
	Pending(userID string, id uuid.UUID) (*service.Challenge, error)
	CompleteBiometric(ctx context.Context, userID string, id uuid.UUID, success bool, reason string) (*domain.UserTransaction, error)
}

// Sessions serves live enrollment and verification over WebSocket. A user
// holds at most one live session at a time.
type Sessions struct {
	enroll     *enrollment.Runner
	verify     *verification.Runner
	challenges ChallengeCompleter
	exclusive  *media.Exclusive
	sampleRate int
	logger     *slog.Logger
}

// NewSessions creates the capture session handlers
func NewSessions(enroll *enrollment.Runner, verify *verification.Runner, challenges ChallengeCompleter, sampleRate int, logger *slog.Logger) *Sessions {
	return &Sessions{
		enroll:     enroll,
		verify:     verify,
		challenges: challenges,
		exclusive:  media.NewExclusive(),
		sampleRate: sampleRate,
		logger:     logger.With("component", "ws_sessions"),
	}
}

// EnrollmentOutcome is the terminal message of an enrollment session
type EnrollmentOutcome struct {
	Method           domain.Method    `json:"method"`
	State            enrollment.State `json:"state"`
	DescriptorLength int              `json:"descriptor_length"`
	EnrolledOn       time.Time        `json:"enrolled_on"`
}

// VerificationOutcome is the terminal message of a verification session
type VerificationOutcome struct {
	verification.Result
	ChallengeID *uuid.UUID              `json:"challenge_id,omitempty"`
	Transaction *domain.UserTransaction `json:"transaction,omitempty"`
	Error       *ErrorPayload           `json:"error,omitempty"`
}

// Enroll handles GET /ws/enroll/:method
func (s *Sessions) Enroll() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID := conn.Params("user_id")
		method, err := domain.ParseMethod(conn.Params("method"))
		if err != nil {
			writeError(conn, err)
			return
		}

		s.serve(conn, userID, func(ctx context.Context, c *capturer, emit func(EventType, interface{})) {
			tmpl, err := s.enroll.Run(ctx, userID, method, c, func(u enrollment.Update) {
				emit(EventEnrollmentFeedback, u)
			})
			if err != nil {
				emit(EventError, errorPayload(err))
				return
			}
			emit(EventOutcome, EnrollmentOutcome{
				Method:           tmpl.Method,
				State:            enrollment.StateEnrolled,
				DescriptorLength: len(tmpl.Descriptor),
				EnrolledOn:       tmpl.EnrolledOn,
			})
		})
	})
}

// Verify handles GET /ws/verify/:method. With ?challenge=<id> the outcome
// settles that parked transaction.
func (s *Sessions) Verify() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID := conn.Params("user_id")
		method, err := domain.ParseMethod(conn.Params("method"))
		if err != nil {
			writeError(conn, err)
			return
		}

		req := verification.Request{UserID: userID, Method: method}
		var challengeID *uuid.UUID
		if raw := conn.Query("challenge"); raw != "" {
			if s.challenges == nil {
				writeError(conn, domain.ErrChallengeNotFound)
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(conn, domain.ErrBadRequest.WithError(err))
				return
			}
			ch, err := s.challenges.Pending(userID, id)
			if err != nil {
				writeError(conn, err)
				return
			}
			if ch.Method != domain.VerificationBiometric {
				writeError(conn, domain.ErrValidationFailed.WithError(errors.New("challenge does not accept biometric verification")))
				return
			}
			challengeID = &id
			req.Amount = ch.Transaction.Amount
			req.Recipient = ch.Transaction.Recipient
		}

		s.serve(conn, userID, func(ctx context.Context, c *capturer, emit func(EventType, interface{})) {
			res, err := s.verify.Run(ctx, req, c, func(u verification.Update) {
				emit(EventVerificationFeedback, u)
			})
			if err != nil {
				emit(EventError, errorPayload(err))
				return
			}

			out := VerificationOutcome{Result: res, ChallengeID: challengeID}
			if challengeID != nil {
				tx, err := s.challenges.CompleteBiometric(ctx, userID, *challengeID, res.State == verification.StateSuccess, string(res.Reason))
				if err != nil {
					out.Error = errorPayload(err)
				}
				out.Transaction = tx
			}
			emit(EventOutcome, out)
		})
	})
}

type sessionFunc func(ctx context.Context, c *capturer, emit func(EventType, interface{}))

// serve runs one session. Reads stay on the handler goroutine. A single
// writer goroutine owns outbound messages.
func (s *Sessions) serve(conn *websocket.Conn, userID string, run sessionFunc) {
	lease, err := s.exclusive.Acquire(userID)
	if err != nil {
		writeError(conn, err)
		return
	}
	defer func() { _ = lease.Release() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Event, outboundBuffer)
	written := make(chan struct{})
	go func() {
		defer close(written)
		for ev := range out {
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("write failed", "user_id", userID, "error", err)
				cancel()
			}
		}
	}()

	emit := func(t EventType, data interface{}) {
		select {
		case out <- newEvent(userID, t, data):
		default:
			s.logger.Debug("outbound queue full, dropping event", "user_id", userID, "type", t)
		}
	}

	c := newCapturer(userID, s.sampleRate, emit)
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(ctx, c, emit)
		c.close()
		close(out)
		<-written
		deadline := time.Now().Add(closeGrace)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.SetReadDeadline(time.Now())
	}()

	s.logger.Info("live session started", "user_id", userID)
	s.readLoop(conn, userID, c, cancel)
	cancel()
	<-done
	s.logger.Info("live session ended", "user_id", userID)
}

func (s *Sessions) readLoop(conn *websocket.Conn, userID string, c *capturer, cancel context.CancelFunc) {
	for {
		mt, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if mt == websocket.BinaryMessage {
			samples, err := decodePCM(payload)
			if err != nil {
				s.logger.Debug("bad audio chunk", "user_id", userID, "error", err)
				continue
			}
			c.pushSamples(samples)
			continue
		}

		var msg Inbound
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Debug("bad message", "user_id", userID, "error", err)
			continue
		}

		switch msg.kind() {
		case MessagePermission:
			c.grant(msg.Granted)
		case MessageFrame:
			if msg.Frame != nil {
				c.pushFrame(*msg.Frame)
			}
		case MessageAudio:
			c.pushSamples(msg.Samples)
		case MessageCancel:
			cancel()
		default:
			s.logger.Debug("unknown message", "user_id", userID, "type", msg.Type)
		}
	}
}

func errorPayload(err error) *ErrorPayload {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return &ErrorPayload{Code: appErr.Code, Message: appErr.Message}
	}
	if errors.Is(err, context.Canceled) {
		return &ErrorPayload{Code: "CANCELLED", Message: "Session cancelled"}
	}
	return &ErrorPayload{Code: domain.ErrInternal.Code, Message: domain.ErrInternal.Message}
}

// writeError rejects a session before it starts
func writeError(conn *websocket.Conn, err error) {
	_ = conn.WriteJSON(newEvent("", EventError, errorPayload(err)))
}
