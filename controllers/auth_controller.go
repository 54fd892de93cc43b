package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/services"
	"github.com/heritageplates/backend/utils"
)

type AuthController struct{ Svc *services.AuthService }

func NewAuthController(s *services.AuthService) *AuthController { return &AuthController{Svc: s} }

// GET /auth/me
func (h *AuthController) Me(c *gin.Context) {
	u, err := h.Svc.GetProfile(utils.CurrentUserID(c))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, u)
}

// PATCH /auth/me
func (h *AuthController) UpdateMe(c *gin.Context) {
	var in services.UpdateProfileIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	u, err := h.Svc.UpdateProfile(utils.CurrentUserID(c), in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, u)
}
