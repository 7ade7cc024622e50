package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.users)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHub_AddAndRemoveClient(t *testing.T) {
	hub := startHub(t)

	client := &Client{hub: hub, userID: "u1", send: make(chan []byte, 1)}

	hub.Register(client)
	assert.Eventually(t, func() bool { return hub.ConnectedClients("u1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	assert.Eventually(t, func() bool { return hub.ConnectedClients("u1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	live := &Client{hub: hub, userID: "u1", send: make(chan []byte, 1)}
	require.True(t, hub.Register(live))
	require.Eventually(t, func() bool { return hub.ConnectedClients("u1") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-stopped

	// observers are released so their write pumps end
	_, open := <-live.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ConnectedClients("u1"))

	done := make(chan bool, 1)
	go func() {
		late := &Client{hub: hub, userID: "u1", send: make(chan []byte, 1)}
		ok := hub.Register(late)
		hub.Unregister(live)
		done <- ok
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("register blocked on a stopped hub")
	}
}

func TestHub_BroadcastToUser(t *testing.T) {
	hub := startHub(t)

	client := &Client{hub: hub, userID: "u1", send: make(chan []byte, 10)}
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ConnectedClients("u1") == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastToUser("u1", EventSecurity, map[string]string{"message": "test"})

	select {
	case msg := <-client.send:
		var event Event
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, EventSecurity, event.Type)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestHub_UserIsolation(t *testing.T) {
	hub := startHub(t)

	client1 := &Client{hub: hub, userID: "u1", send: make(chan []byte, 10)}
	client2 := &Client{hub: hub, userID: "u2", send: make(chan []byte, 10)}

	hub.Register(client1)
	hub.Register(client2)
	require.Eventually(t, func() bool {
		return hub.ConnectedClients("u1") == 1 && hub.ConnectedClients("u2") == 1
	}, time.Second, 5*time.Millisecond)

	hub.BroadcastToUser("u1", EventSecurity, map[string]string{"message": "only for u1"})

	select {
	case <-client1.send:
	case <-time.After(time.Second):
		t.Fatal("client1 should receive message")
	}

	select {
	case <-client2.send:
		t.Fatal("client2 should not receive message for u1")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_DropsSlowObserver(t *testing.T) {
	hub := startHub(t)

	client := &Client{hub: hub, userID: "u1", send: make(chan []byte)}
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ConnectedClients("u1") == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastToUser("u1", EventSecurity, "x")
	assert.Eventually(t, func() bool { return hub.ConnectedClients("u1") == 0 }, time.Second, 5*time.Millisecond)
}

type stubRecorder struct {
	err   error
	calls int
}

func (s *stubRecorder) Record(_ context.Context, userID string, typ domain.EventType, description string, _ map[string]any) (domain.SecurityEvent, error) {
	s.calls++
	if s.err != nil {
		return domain.SecurityEvent{}, s.err
	}
	return domain.SecurityEvent{Type: typ, Description: description}, nil
}

func TestNotifier(t *testing.T) {
	hub := startHub(t)
	client := &Client{hub: hub, userID: "u1", send: make(chan []byte, 10)}
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ConnectedClients("u1") == 1 }, time.Second, 5*time.Millisecond)

	n := NewNotifier(&stubRecorder{}, hub)
	_, err := n.Record(context.Background(), "u1", domain.EventPinSuccess, "ok", nil)
	require.NoError(t, err)

	select {
	case msg := <-client.send:
		var got struct {
			Type EventType            `json:"type"`
			Data domain.SecurityEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, EventSecurity, got.Type)
		assert.Equal(t, domain.EventPinSuccess, got.Data.Type)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for security event")
	}

	failing := NewNotifier(&stubRecorder{err: errors.New("store down")}, hub)
	_, err = failing.Record(context.Background(), "u1", domain.EventPinSuccess, "ok", nil)
	require.Error(t, err)

	select {
	case <-client.send:
		t.Fatal("failed records must not be pushed")
	case <-time.After(100 * time.Millisecond):
	}
}
