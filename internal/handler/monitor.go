package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"stocktracker/internal/monitor"
)

type liveMonitor interface {
	Status() monitor.Status
	AddSymbol(ctx context.Context, symbol string) error
	RemoveSymbol(symbol string)
	SetChangeThreshold(threshold float64) error
}

type MonitorHandler struct {
	Monitor liveMonitor
}

func (h *MonitorHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/monitor")
	g.GET("/status", h.status)
	g.POST("/symbols", h.addSymbol)
	g.DELETE("/symbols/:symbol", h.removeSymbol)
	g.PUT("/threshold", h.setThreshold)
}

func (h *MonitorHandler) status(c *gin.Context) {
	Ok(c, h.Monitor.Status(), nil)
}

type addSymbolRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

func (h *MonitorHandler) addSymbol(c *gin.Context) {
	var req addSymbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "symbol is required", nil)
		return
	}
	if err := h.Monitor.AddSymbol(c.Request.Context(), req.Symbol); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, h.Monitor.Status(), nil)
}

func (h *MonitorHandler) removeSymbol(c *gin.Context) {
	h.Monitor.RemoveSymbol(c.Param("symbol"))
	Ok(c, h.Monitor.Status(), nil)
}

type thresholdRequest struct {
	Threshold float64 `json:"threshold" binding:"required"`
}

func (h *MonitorHandler) setThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "threshold is required", nil)
		return
	}
	if err := h.Monitor.SetChangeThreshold(req.Threshold); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, h.Monitor.Status(), nil)
}
