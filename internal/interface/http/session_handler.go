package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/todoc/internal/domain/aisession"
	apperrors "github.com/yanqian/todoc/pkg/errors"
)

// SessionHandler serves the AI chat and its session history.
type SessionHandler struct {
	cache  *aisession.Cache
	remote aisession.Store
	chat   *aisession.ChatService
	logger *slog.Logger
}

// NewSessionHandler wires the chat endpoints. remote may be nil, in which case
// ?source=server is rejected.
func NewSessionHandler(cache *aisession.Cache, remote aisession.Store, chat *aisession.ChatService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		cache:  cache,
		remote: remote,
		chat:   chat,
		logger: logger.With("component", "http.sessions"),
	}
}

type chatRequest struct {
	Mode      string `json:"mode"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	KidID     *int64 `json:"kid_id"`
}

// Modes lists the chat personas with their intro messages.
func (h *SessionHandler) Modes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modes": aisession.Modes()})
}

// ListSessions returns the caller's cached sessions, newest first.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	list, err := store.List(c.Request.Context())
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list, "total": len(list)})
}

// GetSession returns one session with its messages.
func (h *SessionHandler) GetSession(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	s, found, err := store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	if !found {
		abortWithError(c, NewHTTPError(http.StatusNotFound, apperrors.CodeNotFound, "대화를 찾을 수 없어요.", nil))
		return
	}
	c.JSON(http.StatusOK, s)
}

// PutSession replaces or inserts a session in the caller's cache.
func (h *SessionHandler) PutSession(c *gin.Context) {
	var s aisession.Session
	if err := c.ShouldBindJSON(&s); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	s.ID = c.Param("id")
	s.Mode = aisession.LookupMode(string(s.Mode)).ID
	if err := h.scoped(c).Upsert(c.Request.Context(), s); err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, s)
}

// DeleteSession removes a session from the caller's cache.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	if err := store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// Chat sends one message, resuming session_id when it is cached, and returns
// the updated session.
func (h *SessionHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	ctx := c.Request.Context()
	cache := h.scoped(c)

	session, err := h.chat.Open(ctx, cache, req.Mode, req.SessionID)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	session, err = h.chat.Send(ctx, cache, session, req.Message, req.KidID)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) scoped(c *gin.Context) *aisession.Cache {
	return h.cache.Scoped(sessionScope(c))
}

// sourceServer selects the server-backed session history.
const sourceServer = "server"

func (h *SessionHandler) store(c *gin.Context) (aisession.Store, bool) {
	if c.Query("source") != sourceServer {
		return h.scoped(c), true
	}
	if h.remote == nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeUnsupported, "server sessions are not available", nil))
		return nil, false
	}
	return h.remote, true
}
