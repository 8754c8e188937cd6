package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocktracker/internal/repository"
)

type StoreHandler struct {
	Repo repository.Store
}

func (h *StoreHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/store/counts", h.counts)
}

func (h *StoreHandler) counts(c *gin.Context) {
	counts, err := h.Repo.CountsByEntity(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, counts, nil)
}
