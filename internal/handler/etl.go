package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type etlTriggers interface {
	TriggerStockRefresh(ctx context.Context)
	TriggerNewsRefresh(ctx context.Context) error
	TriggerFull(ctx context.Context) error
}

type retroLinker interface {
	LinkExisting(ctx context.Context) (int, error)
}

// ETLHandler exposes manual triggers for the ingestion cycles. The refresh
// endpoints detach from the request context: a cycle can outlive the HTTP
// call by minutes, and closing the connection must not abort it.
type ETLHandler struct {
	Scheduler etlTriggers
	Resolver  retroLinker
	Logger    *zap.Logger
}

func (h *ETLHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/etl")
	g.POST("/stocks", h.triggerStocks)
	g.POST("/news", h.triggerNews)
	g.POST("/full", h.triggerFull)
	g.POST("/link-existing", h.linkExisting)
}

func (h *ETLHandler) triggerStocks(c *gin.Context) {
	go h.Scheduler.TriggerStockRefresh(context.Background())
	Ok(c, gin.H{"status": "started"}, map[string]any{"job": "stock_refresh"})
}

func (h *ETLHandler) triggerNews(c *gin.Context) {
	go func() {
		if err := h.Scheduler.TriggerNewsRefresh(context.Background()); err != nil {
			h.Logger.Error("manual news refresh failed", zap.Error(err))
		}
	}()
	Ok(c, gin.H{"status": "started"}, map[string]any{"job": "news_refresh"})
}

func (h *ETLHandler) triggerFull(c *gin.Context) {
	go func() {
		if err := h.Scheduler.TriggerFull(context.Background()); err != nil {
			h.Logger.Error("manual full etl failed", zap.Error(err))
		}
	}()
	Ok(c, gin.H{"status": "started"}, map[string]any{"job": "full_etl"})
}

func (h *ETLHandler) linkExisting(c *gin.Context) {
	n, err := h.Resolver.LinkExisting(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"links_created": n}, nil)
}
