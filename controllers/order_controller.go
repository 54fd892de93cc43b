package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/services"
	"github.com/heritageplates/backend/utils"
)

type OrderController struct{ Svc *services.OrderService }

func NewOrderController(s *services.OrderService) *OrderController { return &OrderController{Svc: s} }

// POST /orders
func (h *OrderController) Create(c *gin.Context) {
	var in services.CreateOrderIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	o, err := h.Svc.Create(c.Request.Context(), utils.CurrentUserID(c), in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, o)
}

// POST /orders/checkout
func (h *OrderController) Checkout(c *gin.Context) {
	var in services.CheckoutIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	o, err := h.Svc.Checkout(c.Request.Context(), utils.CurrentUserID(c), in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, o)
}

// GET /orders?limit=
func (h *OrderController) ListForMe(c *gin.Context) {
	rows, err := h.Svc.Mine(utils.CurrentUserID(c), utils.QueryInt(c, "limit", 50))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, rows)
}

// GET /orders/:ref  (id หรือ HP-YY-XXXXXXX)
func (h *OrderController) Detail(c *gin.Context) {
	o, err := h.Svc.Detail(utils.CurrentUser(c), c.Param("ref"))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, o)
}

// PATCH /orders/:ref/status {status}
func (h *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := utils.ParamUint(c, "ref")
	if !ok {
		resp.BadRequest(c, "invalid order id")
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	o, err := h.Svc.Transition(c.Request.Context(), utils.CurrentUser(c), id, body.Status)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, o)
}

// POST /orders/:ref/cancel
func (h *OrderController) Cancel(c *gin.Context) {
	id, ok := utils.ParamUint(c, "ref")
	if !ok {
		resp.BadRequest(c, "invalid order id")
		return
	}
	o, err := h.Svc.Transition(c.Request.Context(), utils.CurrentUser(c), id, entity.StatusCancelled)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, o)
}

// GET /partner/restaurants/:id/orders?status=&page=&limit=
func (h *OrderController) RestaurantOrders(c *gin.Context) {
	restID, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid restaurant id")
		return
	}
	page, err := h.Svc.RestaurantOrders(utils.CurrentUser(c), restID, c.Query("status"),
		utils.QueryInt(c, "page", 1), utils.QueryInt(c, "limit", 20))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, page)
}
