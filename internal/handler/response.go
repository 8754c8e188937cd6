package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope is the uniform response body for every route. Code is 0 on
// success; on failure it echoes the HTTP status so clients can branch on the
// body alone. Meta carries request-scoped extras, such as the job name behind
// an async trigger.
type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Ok writes a 200 envelope around data.
func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, envelope{Message: "ok", Data: data, Meta: meta})
}

// Error writes an envelope whose code mirrors the HTTP status.
func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, envelope{Code: status, Message: message, Meta: meta})
}
