package sessionapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, WithToken("tok-1"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestJoinSessionSendsCodeAndParsesResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sessions/join", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "123456", body["code"])

		writeJSON(w, http.StatusOK, map[string]string{"sessionId": "session-789", "status": "WAITING"})
	})

	res, err := client.JoinSession(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.JoinResult{SessionID: "session-789", Status: domain.StatusWaiting}, res)
}

func TestCreateSessionValidatesDescriptor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["bankId"] {
		case "b-1":
			writeJSON(w, http.StatusCreated, map[string]string{"id": "s-123", "pin": "888999", "status": "WAITING"})
		default:
			writeJSON(w, http.StatusCreated, map[string]string{"id": "s-124", "pin": "12", "status": "WAITING"})
		}
	})

	desc, err := client.CreateSession(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionDescriptor{ID: "s-123", Pin: "888999", Status: domain.StatusWaiting}, desc)

	_, err = client.CreateSession(context.Background(), "b-2")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.KindServer)
}

func TestGetSessionStatusAndStart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions/s-123/status":
			assert.Equal(t, http.MethodGet, r.Method)
			writeJSON(w, http.StatusOK, map[string]any{"studentCount": 5, "status": "WAITING"})
		case "/api/sessions/s-123/start":
			assert.Equal(t, http.MethodPost, r.Method)
			writeJSON(w, http.StatusOK, map[string]any{"status": "ACTIVE"})
		default:
			http.NotFound(w, r)
		}
	})

	snap, err := client.GetSessionStatus(context.Background(), "s-123")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSnapshot{StudentCount: 5, Status: domain.StatusWaiting}, snap)

	started, err := client.StartSession(context.Background(), "s-123")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, started.Status)
}

func TestStatusCodesMapToKinds(t *testing.T) {
	cases := []struct {
		status int
		kind   domain.Kind
	}{
		{http.StatusBadRequest, domain.KindValidation},
		{http.StatusUnauthorized, domain.KindUnauthenticated},
		{http.StatusNotFound, domain.KindNotFound},
		{http.StatusConflict, domain.KindConflict},
		{http.StatusInternalServerError, domain.KindServer},
		{http.StatusBadGateway, domain.KindServer},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, map[string]any{"error": map[string]string{"code": "X", "message": "rejected by test"}})
			})
			_, err := client.JoinSession(context.Background(), "123456")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			assert.Contains(t, err.Error(), "rejected by test")
		})
	}
}

func TestDeadlineBecomesTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.GetSessionStatus(ctx, "s-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.KindTimeout)
}

func TestUnreachableServerIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := New(addr).JoinSession(context.Background(), "123456")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.KindNetwork)
	assert.True(t, domain.IsRetryable(err))
}

func TestJoinRejectsMissingSessionID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "WAITING"})
	})
	_, err := client.JoinSession(context.Background(), "123456")
	assert.True(t, errors.Is(err, domain.KindServer))
}

func TestJoinRejectsStartedSession(t *testing.T) {
	for _, status := range []string{"ACTIVE", "FINISHED"} {
		t.Run(status, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"sessionId": "session-789", "status": status})
			})
			res, err := client.JoinSession(context.Background(), "123456")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.KindConflict)
			assert.Empty(t, res.SessionID)
		})
	}
}

func TestWatchSessionStatusStreamsFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sessions/s-123/stream", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(StreamMessage{Type: "ping"})
		_ = conn.WriteJSON(StreamMessage{Type: MessageTypeStatus, Payload: domain.StatusSnapshot{StudentCount: 2, Status: domain.StatusWaiting}})
		_ = conn.WriteJSON(StreamMessage{Type: MessageTypeStatus, Payload: domain.StatusSnapshot{StudentCount: 3, Status: domain.StatusWaiting}})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	updates, err := client.WatchSessionStatus(ctx, "s-123")
	require.NoError(t, err)

	var got []int
	for snap := range updates {
		got = append(got, snap.StudentCount)
	}
	assert.Equal(t, []int{2, 3}, got)
}
