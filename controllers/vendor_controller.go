// controllers/vendor_controller.go
package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/services"
	"github.com/heritageplates/backend/utils"
)

type VendorController struct{ Svc *services.VendorService }

func NewVendorController(s *services.VendorService) *VendorController {
	return &VendorController{Svc: s}
}

// POST /vendors ยื่นสมัครเปิดร้าน
func (h *VendorController) Apply(c *gin.Context) {
	var in services.VendorApplyIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	v, err := h.Svc.Apply(utils.CurrentUserID(c), in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, v)
}

// GET /admin/vendors?status=pending
func (h *VendorController) List(c *gin.Context) {
	rows, err := h.Svc.List(c.Query("status"))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, rows)
}

// PATCH /admin/vendors/:id/approve
func (h *VendorController) Approve(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid application id")
		return
	}
	rest, err := h.Svc.Approve(c.Request.Context(), id, utils.CurrentUserID(c))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, rest)
}

// PATCH /admin/vendors/:id/reject {reason}
func (h *VendorController) Reject(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid application id")
		return
	}
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	v, err := h.Svc.Reject(id, body.Reason, utils.CurrentUserID(c))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, v)
}
