package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/slotheather55/webspark-sub000/pkg/response"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func StartRecording(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required,min=1,max=200"`
		URL  string `json:"url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	s, err := sessions.StartRecording(c.Request.Context(), req.Name, req.URL)
	if err != nil {
		response.InternalServerError(c, "failed to start recording: "+err.Error())
		return
	}
	response.SuccessWithMessage(c, "recording started", gin.H{
		"session_id": s.ID,
	})
}

func StopRecording(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		Save      *bool  `json:"save"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	persist := req.Save == nil || *req.Save

	macro, err := sessions.StopRecording(c.Request.Context(), req.SessionID, persist)
	if err != nil {
		response.InternalServerError(c, "failed to stop recording: "+err.Error())
		return
	}
	response.SuccessWithMessage(c, "recording stopped", gin.H{
		"macro": macro,
		"saved": persist,
	})
}

func GetRecordingStatus(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.BadRequest(c, "session_id is required")
		return
	}

	s, err := sessions.Recording(sessionID)
	if err != nil {
		response.NotFound(c, "recording session not found")
		return
	}
	response.Success(c, gin.H{
		"is_recording": s.Active(),
		"actions":      s.Actions(),
	})
}

// RecordingControl drives the recorded page remotely: clicks, typed text,
// key presses and scrolls, all captured like direct user input.
func RecordingControl(c *gin.Context) {
	var req struct {
		SessionID string  `json:"session_id" binding:"required"`
		Type      string  `json:"type" binding:"required,oneof=click type keypress scroll"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
		Text      string  `json:"text"`
		Key       string  `json:"key"`
		DeltaY    float64 `json:"delta_y"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	s, err := sessions.Recording(req.SessionID)
	if err != nil {
		response.NotFound(c, "recording session not found")
		return
	}

	ctx := c.Request.Context()
	switch req.Type {
	case "click":
		err = s.Click(ctx, req.X, req.Y)
	case "type":
		err = s.Type(ctx, req.Text)
	case "keypress":
		err = s.PressKey(ctx, req.Key)
	case "scroll":
		err = s.Scroll(ctx, req.DeltaY)
	}
	if err != nil {
		response.InternalServerError(c, "control failed: "+err.Error())
		return
	}
	response.Success(c, nil)
}

func RecordingScreenshot(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.BadRequest(c, "session_id is required")
		return
	}

	s, err := sessions.Recording(sessionID)
	if err != nil {
		response.NotFound(c, "recording session not found")
		return
	}
	shot, err := s.Screenshot(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, "screenshot failed: "+err.Error())
		return
	}
	c.Data(http.StatusOK, "image/png", shot)
}

// RecordingWebSocket streams newly recorded actions to the client as they
// are captured.
func RecordingWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	s, err := sessions.Recording(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recording session not found"})
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
	for range ticker.C {
		actions := s.Actions()
		for ; sent < len(actions); sent++ {
			if err := conn.WriteJSON(actions[sent]); err != nil {
				return
			}
		}
		if !s.Active() {
			conn.WriteJSON(gin.H{"type": "session_closed"})
			return
		}
	}
}
