// controllers/review_controller.go
package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/services"
	"github.com/heritageplates/backend/utils"
)

type ReviewController struct{ Svc *services.ReviewService }

func NewReviewController(s *services.ReviewService) *ReviewController {
	return &ReviewController{Svc: s}
}

// PUT /restaurants/:id/reviews สร้างหรือแก้รีวิวของตัวเอง
func (h *ReviewController) Upsert(c *gin.Context) {
	restID, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid restaurant id")
		return
	}
	var in services.ReviewIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	rev, err := h.Svc.Upsert(utils.CurrentUserID(c), restID, in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, rev)
}

// GET /restaurants/:id/reviews?limit=&offset=
func (h *ReviewController) ListForRestaurant(c *gin.Context) {
	restID, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid restaurant id")
		return
	}
	out, err := h.Svc.ListForRestaurant(restID, utils.QueryInt(c, "limit", 20), utils.QueryInt(c, "offset", 0))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, out)
}

// GET /reviews/me
func (h *ReviewController) Mine(c *gin.Context) {
	rows, err := h.Svc.ListMine(utils.CurrentUserID(c), utils.QueryInt(c, "limit", 20), utils.QueryInt(c, "offset", 0))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, rows)
}

// DELETE /reviews/:id
func (h *ReviewController) Delete(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid review id")
		return
	}
	if err := h.Svc.Delete(utils.CurrentUserID(c), id); err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"deleted": id})
}
