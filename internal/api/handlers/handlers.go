package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/session"
	"github.com/slotheather55/webspark-sub000/pkg/response"
)

var (
	sessions *session.Manager
	logger   zerolog.Logger
)

// Init wires the handler package to the session manager. Must run before
// any route is served.
func Init(manager *session.Manager, log zerolog.Logger) {
	sessions = manager
	logger = log.With().Str("component", "api").Logger()
}

func HealthCheck(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
