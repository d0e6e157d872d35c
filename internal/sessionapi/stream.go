package sessionapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StreamMessage is the frame pushed on a session status stream.
type StreamMessage struct {
	Type    string                `json:"type"`
	Payload domain.StatusSnapshot `json:"payload"`
}

const MessageTypeStatus = "status"

// WatchSessionStatus opens the push stream for a session. The returned channel yields every
// status frame and is closed when the connection drops or ctx ends.
func (c *Client) WatchSessionStatus(ctx context.Context, sessionID string) (<-chan domain.StatusSnapshot, error) {
	const op = "watch session status"

	wsURL, err := c.streamURL(sessionID)
	if err != nil {
		return nil, domain.Wrap(domain.KindValidation, op, err)
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, statusError(op, resp)
		}
		return nil, transportError(ctx, op, err)
	}

	updates := make(chan domain.StatusSnapshot, 1)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	go func() {
		defer close(updates)
		defer close(done)
		for {
			var msg StreamMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() == nil {
					c.logger.Debug("status stream closed", zap.String("session_id", sessionID), zap.Error(err))
				}
				return
			}
			if msg.Type != MessageTypeStatus {
				continue
			}
			if err := validateSnapshot(op, msg.Payload); err != nil {
				c.logger.Warn("dropping malformed status frame", zap.String("session_id", sessionID), zap.Error(err))
				continue
			}
			select {
			case updates <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, nil
}

func (c *Client) streamURL(sessionID string) (string, error) {
	u, err := url.Parse(c.baseURL + "/api/sessions/" + url.PathEscape(sessionID) + "/stream")
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}
