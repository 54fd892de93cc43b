package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/services"
	"github.com/heritageplates/backend/utils"
)

type PromotionController struct{ Svc *services.PromotionService }

func NewPromotionController(s *services.PromotionService) *PromotionController {
	return &PromotionController{Svc: s}
}

// GET /promotions
func (h *PromotionController) ListActive(c *gin.Context) {
	rows, err := h.Svc.ListActive()
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, rows)
}

// GET /promotions/:code
func (h *PromotionController) Lookup(c *gin.Context) {
	p, err := h.Svc.Lookup(c.Param("code"))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, p)
}

// GET /admin/promotions
func (h *PromotionController) ListAll(c *gin.Context) {
	rows, err := h.Svc.ListAll()
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, rows)
}

// POST /admin/promotions
func (h *PromotionController) Create(c *gin.Context) {
	var in services.PromotionIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	p, err := h.Svc.Create(c.Request.Context(), utils.CurrentUserID(c), in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, p)
}
