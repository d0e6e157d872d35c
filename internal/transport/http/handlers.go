package http

import (
	"encoding/json"
	"net/http"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/app"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SessionHandler serves the REST surface of hosted sessions.
type SessionHandler struct {
	service *app.SessionService
	logger  *zap.Logger
}

func NewSessionHandler(service *app.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{service: service, logger: logger}
}

type joinRequest struct {
	Code string `json:"code"`
}

type createRequest struct {
	BankID string `json:"bankId"`
}

func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	res, err := h.service.Join(r.Context(), subject(r), req.Code)
	if err != nil {
		h.fail(w, r, "join", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	desc, err := h.service.Create(r.Context(), subject(r), req.BankID)
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, desc)
}

func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "start", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Me returns the profile carried by the caller's token.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing claims")
		return
	}
	writeJSON(w, http.StatusOK, claims.Profile())
}

func (h *SessionHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if domain.KindOf(err) == domain.KindServer {
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	}
	writeDomainError(w, r, err)
}

func subject(r *http.Request) string {
	if claims, ok := ClaimsFrom(r.Context()); ok {
		return claims.Subject
	}
	return ""
}
