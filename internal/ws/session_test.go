package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/safishield/internal/audit"
	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/enrollment"
	"github.com/saturnino-fabrica-de-software/safishield/internal/extractor"
	"github.com/saturnino-fabrica-de-software/safishield/internal/provider/mfcc"
	"github.com/saturnino-fabrica-de-software/safishield/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/safishield/internal/quality"
	"github.com/saturnino-fabrica-de-software/safishield/internal/repository"
	"github.com/saturnino-fabrica-de-software/safishield/internal/store"
	"github.com/saturnino-fabrica-de-software/safishield/internal/verification"
)

type wireEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

type sessionEnv struct {
	addr      string
	templates *repository.KVTemplateRepository
	log       *audit.Log
}

func startSessions(t *testing.T) *sessionEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := store.NewMemoryStore()
	log := audit.NewLog(kv, 0, logger)
	templates := repository.NewKVTemplateRepository(kv)
	settings := repository.NewSettingsRepository(kv)
	ex := extractor.New(mock.New(), mfcc.New())
	gate := quality.NewGate(quality.DefaultThresholds())

	sessions := NewSessions(
		enrollment.NewRunner(ex, gate, templates, log, enrollment.Config{TickInterval: 5 * time.Millisecond, VoiceDuration: 50 * time.Millisecond}, logger),
		verification.NewRunner(ex, gate, templates, settings, log, verification.Config{TickInterval: 5 * time.Millisecond, Timeout: time.Second, VoiceDuration: 50 * time.Millisecond}, logger),
		nil,
		16000,
		logger,
	)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use("/v1/users/:user_id/ws", UpgradeMiddleware())
	app.Get("/v1/users/:user_id/ws/enroll/:method", sessions.Enroll())
	app.Get("/v1/users/:user_id/ws/verify/:method", sessions.Verify())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return &sessionEnv{addr: ln.Addr().String(), templates: templates, log: log}
}

func dial(t *testing.T, env *sessionEnv, path string) *fastws.Conn {
	t.Helper()
	conn, _, err := fastws.DefaultDialer.Dial("ws://"+env.addr+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func frameMessage() map[string]interface{} {
	img := make([]byte, 64)
	for i := range img {
		img[i] = byte(i + 1)
	}
	return map[string]interface{}{"type": MessageFrame, "frame": map[string]interface{}{"width": 640, "height": 480, "image": img}}
}

// readUntil answers prompts with respond and returns the first event of type want
func readUntil(t *testing.T, conn *fastws.Conn, want EventType, respond func(wireEvent)) wireEvent {
	t.Helper()
	for {
		var ev wireEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == want {
			return ev
		}
		if respond != nil {
			respond(ev)
		}
	}
}

func TestSessions_FaceEnrollment(t *testing.T) {
	env := startSessions(t)
	conn := dial(t, env, "/v1/users/u1/ws/enroll/face")

	ev := readUntil(t, conn, EventOutcome, func(ev wireEvent) {
		switch ev.Type {
		case EventPermissionRequest:
			require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": MessagePermission, "granted": true}))
		case EventEnrollmentFeedback:
			require.NoError(t, conn.WriteJSON(frameMessage()))
		}
	})

	var out EnrollmentOutcome
	require.NoError(t, json.Unmarshal(ev.Data, &out))
	assert.Equal(t, domain.MethodFace, out.Method)
	assert.Equal(t, domain.FaceDescriptorSize, out.DescriptorLength)

	tmpl, err := env.templates.Get(context.Background(), "u1", domain.MethodFace)
	require.NoError(t, err)
	require.NotNil(t, tmpl)
}

func TestSessions_PermissionDenied(t *testing.T) {
	env := startSessions(t)
	conn := dial(t, env, "/v1/users/u1/ws/enroll/voice")

	ev := readUntil(t, conn, EventError, func(ev wireEvent) {
		if ev.Type == EventPermissionRequest {
			require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": MessagePermission, "granted": false}))
		}
	})

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, domain.ErrPermissionDenied.Code, payload.Code)
}

func TestSessions_VerifyWithoutTemplate(t *testing.T) {
	env := startSessions(t)
	conn := dial(t, env, "/v1/users/u1/ws/verify/face")

	ev := readUntil(t, conn, EventOutcome, nil)

	var out VerificationOutcome
	require.NoError(t, json.Unmarshal(ev.Data, &out))
	assert.Equal(t, verification.StateFailed, out.State)
	assert.Equal(t, verification.ReasonNoTemplate, out.Reason)

	events, err := env.log.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventVerificationFailure, events[0].Type)
}

func TestSessions_InvalidMethod(t *testing.T) {
	env := startSessions(t)
	conn := dial(t, env, "/v1/users/u1/ws/enroll/iris")

	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventError, ev.Type)
}
