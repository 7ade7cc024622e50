// Package audit keeps the append-only security event log.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/store"
)

// DefaultLimit is how many events are retained per user
const DefaultLimit = 100

// Log stores security events newest first, trimmed to limit, and mirrors
// every event to slog.
type Log struct {
	mu     sync.Mutex
	kv     store.KV
	limit  int
	logger *slog.Logger
	now    func() time.Time
}

// NewLog creates a log keeping limit events per user. Zero means DefaultLimit.
func NewLog(kv store.KV, limit int, logger *slog.Logger) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Log{
		kv:     kv,
		limit:  limit,
		logger: logger.With("component", "audit"),
		now:    time.Now,
	}
}

// Record appends an event and returns it with ID and timestamp assigned
func (l *Log) Record(ctx context.Context, userID string, typ domain.EventType, description string, details map[string]any) (domain.SecurityEvent, error) {
	event := domain.SecurityEvent{
		ID:          uuid.New(),
		Timestamp:   l.now().UTC(),
		Type:        typ,
		Description: description,
		Details:     details,
	}

	l.mirror(ctx, userID, event)

	l.mu.Lock()
	defer l.mu.Unlock()

	key := store.UserKey(userID, store.KeySecurityLog)
	events, _, err := store.GetJSON[[]domain.SecurityEvent](ctx, l.kv, key)
	if err != nil {
		return event, fmt.Errorf("load security log: %w", err)
	}

	events = append([]domain.SecurityEvent{event}, events...)
	if len(events) > l.limit {
		events = events[:l.limit]
	}

	if err := store.SetJSON(ctx, l.kv, key, events); err != nil {
		return event, fmt.Errorf("save security log: %w", err)
	}
	return event, nil
}

// List returns the retained events, newest first
func (l *Log) List(ctx context.Context, userID string) ([]domain.SecurityEvent, error) {
	events, _, err := store.GetJSON[[]domain.SecurityEvent](ctx, l.kv, store.UserKey(userID, store.KeySecurityLog))
	if err != nil {
		return nil, fmt.Errorf("load security log: %w", err)
	}
	if events == nil {
		events = []domain.SecurityEvent{}
	}
	return events, nil
}

func (l *Log) Clear(ctx context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kv.Delete(ctx, store.UserKey(userID, store.KeySecurityLog))
}

func (l *Log) mirror(ctx context.Context, userID string, event domain.SecurityEvent) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal security event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.Type)),
		)
		return
	}

	level := slog.LevelInfo
	switch event.Type {
	case domain.EventOtpFailure, domain.EventPinFailure, domain.EventTransactionBlocked, domain.EventAnomalyDetected:
		level = slog.LevelWarn
	}

	l.logger.Log(ctx, level, "security_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.Type)),
		slog.String("user_id", userID),
		slog.String("event_data", string(eventJSON)),
	)
}
