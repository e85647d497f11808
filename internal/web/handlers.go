package web

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// looseBool accepts true/false, 0/1 and their string forms. The gateway is
// not consistent about the type of the success flag across callback modes.
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	switch string(data) {
	case "1", "true":
		*b = true
	default:
		*b = false
	}
	return nil
}

// callbackRequest is the gateway's payment callback payload
type callbackRequest struct {
	Success looseBool       `json:"success"`
	Status  json.RawMessage `json:"status"`
	TrackID string          `json:"trackId" binding:"required,max=50"`
}

// paymentCallback is the handler for the gateway's server-to-server
// notification. The flags in the body are advisory only; settlement is
// decided by querying the gateway back.
func (s *Server) paymentCallback(c *gin.Context) {
	if c.GetHeader("X-SECRET-KEY") != s.secretKey {
		s.logger.Warnf("Payment callback with bad secret from %s", c.ClientIP())
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "forbidden"})
		return
	}

	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugf("Invalid callback body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	s.logger.Infof("Payment callback for track %s (success=%t)", req.TrackID, bool(req.Success))

	ok := s.payments.Confirm(c.Request.Context(), req.TrackID)
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

// health is a liveness probe endpoint
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
