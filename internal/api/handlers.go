package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Tadwork/code-dojo/internal/assist"
	"github.com/Tadwork/code-dojo/internal/events"
	"github.com/Tadwork/code-dojo/internal/exec"
	"github.com/Tadwork/code-dojo/internal/models"
	"github.com/Tadwork/code-dojo/internal/session"
	"github.com/Tadwork/code-dojo/internal/store"
	"github.com/Tadwork/code-dojo/internal/utils"
)

// SessionStore captures the persistence operations handlers need.
type SessionStore interface {
	Create(ctx context.Context, title *string, language string) (store.Session, error)
	GetByCode(ctx context.Context, code string) (store.Session, error)
	UpdateCode(ctx context.Context, code, text string) error
	UpdateLanguage(ctx context.Context, code, language string) error
}

// Executor captures the code-execution proxy.
type Executor interface {
	Supports(language string) bool
	Execute(ctx context.Context, language, code string) (exec.Result, error)
}

type Handlers struct {
	log       *zap.Logger
	hub       *session.Hub
	store     SessionStore
	runner    Executor
	assistant assist.Provider
	events    *events.Publisher
	env       string
}

func NewHandlers(log *zap.Logger, hub *session.Hub, st SessionStore, runner Executor, assistant assist.Provider, publisher *events.Publisher, env string) *Handlers {
	return &Handlers{
		log:       log,
		hub:       hub,
		store:     st,
		runner:    runner,
		assistant: assistant,
		events:    publisher,
		env:       env,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]string{
		"status":      "healthy",
		"environment": h.env,
	})
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code: "invalid_request", Message: "Invalid request body",
		})
		return
	}
	sess, err := h.store.Create(r.Context(), req.Title, req.Language)
	if err != nil {
		h.log.Error("create session failed", zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code: "store_error", Message: "Failed to create session",
		})
		return
	}
	utils.JSON(w, http.StatusCreated, h.sessionResponse(sess))
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(urlParam(r, "code"))
	sess, err := h.store.GetByCode(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code: "session_not_found", Message: "Session not found",
		})
		return
	}
	if err != nil {
		h.log.Error("get session failed", zap.String("sessionCode", code), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code: "store_error", Message: "Failed to load session",
		})
		return
	}
	utils.JSON(w, http.StatusOK, h.sessionResponse(sess))
}

func (h *Handlers) sessionResponse(sess store.Session) models.SessionResponse {
	return models.SessionResponse{
		ID:          sess.ID,
		SessionCode: sess.SessionCode,
		Title:       sess.Title,
		Language:    sess.Language,
		Code:        sess.Code,
		CreatedAt:   sess.CreatedAt,
		ActiveUsers: h.hub.ActiveUsers(sess.SessionCode),
	}
}

func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	var req models.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code: "invalid_request", Message: "Invalid request body",
		})
		return
	}
	language := strings.ToLower(req.Language)
	if !h.runner.Supports(language) {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "unsupported_language",
			Message: "Unsupported language '" + language + "'",
		})
		return
	}
	result, err := h.runner.Execute(r.Context(), language, req.Code)
	if err != nil {
		h.log.Error("execution failed", zap.String("language", language), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code: "execution_error", Message: "Execution failed",
		})
		return
	}
	utils.JSON(w, http.StatusOK, models.ExecutionResponse{
		Output: result.Output,
		Error:  result.Error,
	})
}

func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code: "invalid_request", Message: "Invalid request body",
		})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code: "invalid_request", Message: "Prompt is required",
		})
		return
	}
	if h.assistant == nil {
		utils.JSON(w, http.StatusServiceUnavailable, models.ErrorResponse{
			Code: "ai_unavailable", Message: "AI provider is not configured",
		})
		return
	}
	language := req.Language
	if language == "" {
		language = "python"
	}
	code, err := h.assistant.GenerateCode(r.Context(), assist.Request{
		Prompt:      req.Prompt,
		CurrentCode: req.Code,
		Language:    language,
	})
	if err != nil {
		h.log.Error("code generation failed",
			zap.String("provider", h.assistant.Name()),
			zap.Error(err))
		// The UI surfaces generation failures inline, so they travel in the
		// response body rather than as an HTTP error.
		utils.JSON(w, http.StatusOK, models.GenerateResponse{Error: userFacing(err)})
		return
	}
	utils.JSON(w, http.StatusOK, models.GenerateResponse{Code: code})
}

func userFacing(err error) string {
	var pe *assist.ProviderError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return "AI service unavailable"
}
