package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/pkg/response"
)

func StartPlayback(c *gin.Context) {
	var req struct {
		MacroID string `json:"macro_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	s, err := sessions.StartPlayback(c.Request.Context(), req.MacroID)
	if err != nil {
		if errors.Is(err, models.ErrMacroNotFound) {
			response.NotFound(c, "macro not found")
			return
		}
		response.InternalServerError(c, "failed to start playback: "+err.Error())
		return
	}
	response.SuccessWithMessage(c, "playback started", gin.H{
		"playback_id": s.ID,
	})
}

func StopPlayback(c *gin.Context) {
	var req struct {
		PlaybackID string `json:"playback_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := sessions.StopPlayback(req.PlaybackID); err != nil {
		response.NotFound(c, "playback session not found")
		return
	}
	response.SuccessWithMessage(c, "stop requested", nil)
}

func GetPlaybackStatus(c *gin.Context) {
	playbackID := c.Query("playback_id")
	if playbackID == "" {
		response.BadRequest(c, "playback_id is required")
		return
	}

	summary, err := sessions.Summary(playbackID)
	if err != nil {
		response.NotFound(c, "playback session not found")
		return
	}
	if summary != nil {
		response.Success(c, gin.H{
			"state":   summary.State,
			"summary": summary,
		})
		return
	}

	s, err := sessions.Playback(playbackID)
	if err != nil {
		response.NotFound(c, "playback session not found")
		return
	}
	response.Success(c, gin.H{
		"state":    s.State(),
		"outcomes": s.Outcomes(),
	})
}

// PlaybackWebSocket streams per-action outcomes while a replay runs and
// finishes with the terminal summary.
func PlaybackWebSocket(c *gin.Context) {
	playbackID := c.Query("playback_id")
	if playbackID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "playback_id is required"})
		return
	}

	s, err := sessions.Playback(playbackID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "playback session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	sent := 0
	for {
		outcomes := s.Outcomes()
		for ; sent < len(outcomes); sent++ {
			if err := conn.WriteJSON(outcomes[sent]); err != nil {
				return
			}
		}

		select {
		case <-s.Done():
			// Flush outcomes recorded between the last tick and Done.
			outcomes = s.Outcomes()
			for ; sent < len(outcomes); sent++ {
				if err := conn.WriteJSON(outcomes[sent]); err != nil {
					return
				}
			}
			// The summary is stored just after Done; give it a moment.
			var summary *models.PlaybackSummary
			for i := 0; i < 20 && summary == nil; i++ {
				summary, _ = sessions.Summary(playbackID)
				if summary == nil {
					time.Sleep(50 * time.Millisecond)
				}
			}
			conn.WriteJSON(gin.H{"type": "playback_finished", "summary": summary})
			return
		case <-ticker.C:
		}
	}
}
