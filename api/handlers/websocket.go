package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/collab-board/backend/internal/auth"
	"github.com/collab-board/backend/internal/board"
	"github.com/collab-board/backend/internal/ws"
)

// WebSocketHandler handles websocket attach requests for boards.
type WebSocketHandler struct {
	registry  *board.Registry
	wsHandler *ws.Handler
	verifier  auth.Verifier
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(registry *board.Registry, wsHandler *ws.Handler, verifier auth.Verifier) *WebSocketHandler {
	return &WebSocketHandler{
		registry:  registry,
		wsHandler: wsHandler,
		verifier:  verifier,
	}
}

// Attach handles GET /api/boards/:id/ws - attaches a participant to a
// board. The identity must already be verified upstream; connections
// without one are refused before any board state is exposed.
func (h *WebSocketHandler) Attach(c *gin.Context) {
	boardID := c.Param("id")
	if boardID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Board ID is required")
		return
	}

	identity, err := h.verifier.Verify(c.Request)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "AUTH_ERROR", "Identity could not be verified")
		return
	}

	if _, err := h.registry.Get(boardID); err != nil {
		sendError(c, http.StatusNotFound, "BOARD_NOT_FOUND", "Board "+boardID+" not found")
		return
	}

	if err := h.wsHandler.HandleConnection(c.Writer, c.Request, boardID, identity); err != nil {
		// Upgrade failures are already reported on the connection.
		return
	}
}

// RegisterRoutes registers the websocket handler routes on a Gin router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/boards/:id/ws", h.Attach)
}
