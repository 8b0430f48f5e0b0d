// Package handlers provides HTTP API request handlers.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/collab-board/backend/internal/board"
	"github.com/collab-board/backend/internal/model"
)

// DirectoryReader serves board metadata that outlives the live board,
// most notably the closed_at stamp written at reclamation.
type DirectoryReader interface {
	GetByID(ctx context.Context, id string) (*model.BoardInfo, error)
	ListRecent(ctx context.Context, limit int) ([]*model.BoardInfo, error)
}

// BoardHandler handles HTTP requests for board management. The
// registry is the authority for liveness; the directory answers for
// boards that no longer exist in memory.
type BoardHandler struct {
	registry  *board.Registry
	directory DirectoryReader
}

// NewBoardHandler creates a new BoardHandler. directory may be nil.
func NewBoardHandler(registry *board.Registry, directory DirectoryReader) *BoardHandler {
	return &BoardHandler{registry: registry, directory: directory}
}

// BoardResponse represents a board in API responses.
type BoardResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Participants int    `json:"participants"`
	CreatedAt    string `json:"createdAt"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toBoardResponse(b *board.Board) *BoardResponse {
	return &BoardResponse{
		ID:           b.ID(),
		Name:         b.Name(),
		Participants: b.ParticipantCount(),
		CreatedAt:    b.CreatedAt().Format(time.RFC3339),
	}
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// Create handles POST /api/boards - creates a new board.
func (h *BoardHandler) Create(c *gin.Context) {
	var req model.CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	b, err := h.registry.Create(c.Request.Context(), req.Name)
	if err != nil {
		if errors.Is(err, model.ErrNameRequired) {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		if errors.Is(err, model.ErrIDCollision) {
			sendError(c, http.StatusServiceUnavailable, "ID_COLLISION", err.Error())
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create board: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, toBoardResponse(b))
}

// List handles GET /api/boards - lists all live boards. With
// ?scope=recent it serves the directory instead: recently created
// boards including reclaimed ones, newest first.
func (h *BoardHandler) List(c *gin.Context) {
	if c.Query("scope") == "recent" {
		if h.directory == nil {
			sendError(c, http.StatusServiceUnavailable, "DIRECTORY_UNAVAILABLE", "Board directory is not configured")
			return
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		infos, err := h.directory.ListRecent(c.Request.Context(), limit)
		if err != nil {
			sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list boards: "+err.Error())
			return
		}
		c.JSON(http.StatusOK, infos)
		return
	}

	boards := h.registry.List()

	response := make([]*BoardResponse, len(boards))
	for i, b := range boards {
		response[i] = toBoardResponse(b)
	}

	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/boards/:id - the join check used by clients
// before dialing the websocket.
func (h *BoardHandler) Get(c *gin.Context) {
	boardID := c.Param("id")
	if boardID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Board ID is required")
		return
	}

	b, err := h.registry.Get(boardID)
	if err != nil {
		// A board known to the directory but gone from the registry was
		// drained; a join is impossible either way, but the distinction
		// lets clients tell "closed" from "never existed".
		if h.directory != nil {
			if info, dirErr := h.directory.GetByID(c.Request.Context(), boardID); dirErr == nil && info.ClosedAt != nil {
				sendError(c, http.StatusGone, "BOARD_CLOSED", "Board "+boardID+" was closed")
				return
			}
		}
		sendError(c, http.StatusNotFound, "BOARD_NOT_FOUND", "Board "+boardID+" not found")
		return
	}

	c.JSON(http.StatusOK, toBoardResponse(b))
}

// GetState handles GET /api/boards/:id/state - returns the live
// snapshot, equivalent to what a joining websocket receives.
func (h *BoardHandler) GetState(c *gin.Context) {
	boardID := c.Param("id")
	if boardID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Board ID is required")
		return
	}

	b, err := h.registry.Get(boardID)
	if err != nil {
		sendError(c, http.StatusNotFound, "BOARD_NOT_FOUND", "Board "+boardID+" not found")
		return
	}

	c.JSON(http.StatusOK, b.Snapshot())
}

// RegisterRoutes registers the board handler routes on a Gin router group.
func (h *BoardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	boards := rg.Group("/boards")
	{
		boards.POST("", h.Create)
		boards.GET("", h.List)
		boards.GET("/:id", h.Get)
		boards.GET("/:id/state", h.GetState)
	}
}
