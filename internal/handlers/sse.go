package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/requestdata"
	"github.com/synthsense/synthsense-backend/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.SSEHub

	mu      sync.RWMutex
	clients map[uuid.UUID]*sse.SSEClient // keyed by user ID, one stream per user
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{
		log:     log.With("handler", "SSEHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*sse.SSEClient),
	}
}

func (h *SSEHandler) SSEStream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "not_authenticated", nil)
		return
	}
	userID := rd.UserID

	h.mu.Lock()
	// A reconnect replaces the previous stream.
	if existing, ok := h.clients[userID]; ok {
		h.hub.CloseClient(existing)
		delete(h.clients, userID)
	}
	client := h.hub.NewSSEClient(userID)
	h.clients[userID] = client
	h.mu.Unlock()

	// Every stream listens on the user's own channel; experiment and persona
	// job events land there.
	h.hub.AddChannel(client, userID.String())

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[userID] == client {
		delete(h.clients, userID)
	}
	h.mu.Unlock()
	h.hub.CloseClient(client)
}

func (h *SSEHandler) SSESubscribe(c *gin.Context) {
	client, ok := h.activeClient(c)
	if !ok {
		return
	}
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
		RespondError(c, http.StatusBadRequest, "invalid_channel", err)
		return
	}
	h.hub.AddChannel(client, req.Channel)
	RespondOK(c, gin.H{"message": "subscribed", "channel": req.Channel})
}

func (h *SSEHandler) SSEUnsubscribe(c *gin.Context) {
	client, ok := h.activeClient(c)
	if !ok {
		return
	}
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
		RespondError(c, http.StatusBadRequest, "invalid_channel", err)
		return
	}
	h.hub.RemoveChannel(client, req.Channel)
	RespondOK(c, gin.H{"message": "unsubscribed", "channel": req.Channel})
}

func (h *SSEHandler) activeClient(c *gin.Context) (*sse.SSEClient, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "not_authenticated", nil)
		return nil, false
	}
	h.mu.RLock()
	client, exists := h.clients[rd.UserID]
	h.mu.RUnlock()
	if !exists {
		RespondError(c, http.StatusConflict, "no_active_stream", nil)
		return nil, false
	}
	return client, true
}
