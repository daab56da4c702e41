package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chessmate-ai/chessmate/internal/buildinfo"
	apperrors "github.com/chessmate-ai/chessmate/internal/errors"
	"github.com/chessmate-ai/chessmate/internal/ledger"
	"github.com/chessmate-ai/chessmate/internal/orchestrator"
	"github.com/chessmate-ai/chessmate/internal/retrieval"
)

type turnResponse struct {
	TurnID        string           `json:"turn_id"`
	SessionID     string           `json:"session_id"`
	Language      string           `json:"language"`
	Intent        string           `json:"intent"`
	Outcome       string           `json:"outcome"`
	Filter        string           `json:"filter"`
	Response      string           `json:"response"`
	Games         []retrieval.Game `json:"games"`
	OriginalCount int              `json:"original_count"`
	FilteredCount int              `json:"filtered_count"`
	TookMS        int64            `json:"took_ms"`
}

func writeError(c *gin.Context, err error) {
	var app *apperrors.AppError
	if errors.As(err, &app) {
		c.JSON(app.HTTPStatusCode, app)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal error",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleTurn(c *gin.Context) {
	var req orchestrator.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_request",
			"message": "malformed request body",
		})
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Utterance = strings.TrimSpace(req.Utterance)
	if req.SessionID == "" || req.Utterance == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_request",
			"message": "session_id and utterance are required",
		})
		return
	}

	tc, err := s.orch.Run(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	games := tc.Games
	if games == nil {
		games = []retrieval.Game{}
	}
	c.JSON(http.StatusOK, turnResponse{
		TurnID:        tc.TurnID,
		SessionID:     tc.SessionID,
		Language:      tc.Language,
		Intent:        string(tc.Intent),
		Outcome:       string(tc.Outcome),
		Filter:        tc.FilterSummary(),
		Response:      tc.Response,
		Games:         games,
		OriginalCount: tc.OriginalCount,
		FilteredCount: tc.FilteredCount,
		TookMS:        tc.Took.Milliseconds(),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	sessionID := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	sess, err := s.ledger.Session(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if sess == nil {
		c.JSON(http.StatusNotFound, apperrors.New(
			http.StatusNotFound, apperrors.CodeSessionNotFound, "session not found", nil))
		return
	}

	msgs, err := s.ledger.History(c.Request.Context(), sessionID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []ledger.Message{}
	}
	c.JSON(http.StatusOK, gin.H{
		"session":  sess,
		"messages": msgs,
	})
}

func (s *Server) handleClearSession(c *gin.Context) {
	sessionID := c.Param("id")

	sess, err := s.ledger.Session(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if sess == nil {
		c.JSON(http.StatusNotFound, apperrors.New(
			http.StatusNotFound, apperrors.CodeSessionNotFound, "session not found", nil))
		return
	}

	if err := s.ledger.Clear(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
