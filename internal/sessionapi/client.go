package sessionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries a per-call id the stub API echoes into its logs.
const RequestIDHeader = "X-Request-ID"

// Client is a typed client for the QuizSpark session API.
// Calls are bounded by the caller's context; the client never retries.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

type Option func(*Client)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type joinRequest struct {
	Code string `json:"code"`
}

type createRequest struct {
	BankID string `json:"bankId"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// JoinSession resolves a join code to a session the caller is now a participant of.
func (c *Client) JoinSession(ctx context.Context, code string) (domain.JoinResult, error) {
	const op = "join session"
	var out domain.JoinResult
	if err := c.do(ctx, op, http.MethodPost, "/api/sessions/join", joinRequest{Code: code}, &out); err != nil {
		return domain.JoinResult{}, err
	}
	if out.SessionID == "" {
		return domain.JoinResult{}, domain.Errorf(domain.KindServer, op, "response has no session id")
	}
	if !out.Status.Valid() {
		return domain.JoinResult{}, domain.Errorf(domain.KindServer, op, "unknown session status %q", out.Status)
	}
	if out.Status != domain.StatusWaiting {
		return domain.JoinResult{}, domain.Errorf(domain.KindConflict, op, "session is %s", out.Status)
	}
	return out, nil
}

// CreateSession opens a new WAITING session for a question bank.
func (c *Client) CreateSession(ctx context.Context, bankID string) (domain.SessionDescriptor, error) {
	const op = "create session"
	var out domain.SessionDescriptor
	if err := c.do(ctx, op, http.MethodPost, "/api/sessions", createRequest{BankID: bankID}, &out); err != nil {
		return domain.SessionDescriptor{}, err
	}
	if out.ID == "" {
		return domain.SessionDescriptor{}, domain.Errorf(domain.KindServer, op, "response has no session id")
	}
	if len(out.Pin) != domain.PinLength {
		return domain.SessionDescriptor{}, domain.Errorf(domain.KindServer, op, "malformed pin %q", out.Pin)
	}
	if out.Status != domain.StatusWaiting {
		return domain.SessionDescriptor{}, domain.Errorf(domain.KindServer, op, "new session has status %q", out.Status)
	}
	return out, nil
}

// GetSessionStatus reads the participant count and status. Safe to call repeatedly.
func (c *Client) GetSessionStatus(ctx context.Context, sessionID string) (domain.StatusSnapshot, error) {
	const op = "get session status"
	var out domain.StatusSnapshot
	if err := c.do(ctx, op, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID)+"/status", nil, &out); err != nil {
		return domain.StatusSnapshot{}, err
	}
	if err := validateSnapshot(op, out); err != nil {
		return domain.StatusSnapshot{}, err
	}
	return out, nil
}

// StartSession moves a WAITING session to ACTIVE.
func (c *Client) StartSession(ctx context.Context, sessionID string) (domain.StartResult, error) {
	const op = "start session"
	var out domain.StartResult
	if err := c.do(ctx, op, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/start", nil, &out); err != nil {
		return domain.StartResult{}, err
	}
	if !out.Status.Valid() {
		return domain.StartResult{}, domain.Errorf(domain.KindServer, op, "unknown session status %q", out.Status)
	}
	return out, nil
}

// GetProfile loads the profile of the token's bearer.
func (c *Client) GetProfile(ctx context.Context) (domain.Profile, error) {
	const op = "get profile"
	var out domain.Profile
	if err := c.do(ctx, op, http.MethodGet, "/api/users/me", nil, &out); err != nil {
		return domain.Profile{}, err
	}
	return out, nil
}

func validateSnapshot(op string, s domain.StatusSnapshot) error {
	if s.StudentCount < 0 {
		return domain.Errorf(domain.KindServer, op, "negative student count %d", s.StudentCount)
	}
	if !s.Status.Valid() {
		return domain.Errorf(domain.KindServer, op, "unknown session status %q", s.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return domain.Wrap(domain.KindValidation, op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return domain.Wrap(domain.KindValidation, op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("session api transport failure", zap.String("op", op), zap.String("request_id", requestID), zap.Error(err))
		return transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := statusError(op, resp)
		c.logger.Debug("session api rejected call",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.Error(apiErr),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return transportError(ctx, op, err)
		}
		return domain.Wrap(domain.KindServer, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func transportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Wrap(domain.KindTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.Wrap(domain.KindTimeout, op, err)
	}
	return domain.Wrap(domain.KindNetwork, op, err)
}

func statusError(op string, resp *http.Response) error {
	var kind domain.Kind
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = domain.KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = domain.KindUnauthenticated
	case http.StatusNotFound:
		kind = domain.KindNotFound
	case http.StatusConflict:
		kind = domain.KindConflict
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		kind = domain.KindTimeout
	default:
		kind = domain.KindServer
	}

	msg := http.StatusText(resp.StatusCode)
	var envelope errorEnvelope
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && len(data) > 0 {
		if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
	}
	return &domain.Error{Kind: kind, Op: op, Message: msg}
}
