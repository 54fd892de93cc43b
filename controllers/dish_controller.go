package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/services"
	"github.com/heritageplates/backend/utils"
)

type DishController struct{ Svc *services.DishService }

func NewDishController(s *services.DishService) *DishController { return &DishController{Svc: s} }

// GET /restaurants/:id/dishes
func (h *DishController) ListByRestaurant(c *gin.Context) {
	restID, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid restaurant id")
		return
	}
	dishes, err := h.Svc.ListByRestaurant(restID, false)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, dishes)
}

// GET /partner/restaurants/:id/dishes (รวมเมนูที่ปิดขาย)
func (h *DishController) ListForOwner(c *gin.Context) {
	restID, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid restaurant id")
		return
	}
	dishes, err := h.Svc.ListByRestaurant(restID, true)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, dishes)
}

// GET /dishes/:id
func (h *DishController) Detail(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid dish id")
		return
	}
	d, err := h.Svc.Get(id)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, d)
}

// POST /partner/restaurants/:id/dishes
func (h *DishController) Create(c *gin.Context) {
	restID, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid restaurant id")
		return
	}
	var in services.DishIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	d, err := h.Svc.Create(utils.CurrentUser(c), restID, in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, d)
}

// PATCH /partner/dishes/:id
func (h *DishController) Update(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid dish id")
		return
	}
	var in services.UpdateDishIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	d, err := h.Svc.Update(c.Request.Context(), utils.CurrentUser(c), id, in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, d)
}

// DELETE /partner/dishes/:id
func (h *DishController) Delete(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid dish id")
		return
	}
	if err := h.Svc.Delete(utils.CurrentUser(c), id); err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"deleted": id})
}
