package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/services"
	"github.com/heritageplates/backend/utils"
)

type CartController struct{ Svc *services.CartService }

func NewCartController(s *services.CartService) *CartController { return &CartController{Svc: s} }

// GET /cart
func (h *CartController) Get(c *gin.Context) {
	cart, err := h.Svc.Get(utils.CurrentUserID(c))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, cart)
}

// POST /cart/items
func (h *CartController) Add(c *gin.Context) {
	var req services.AddToCartIn
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	cart, err := h.Svc.Add(utils.CurrentUserID(c), req)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, cart)
}

// PATCH /cart/items/:itemId  {qty}; qty <= 0 removes the line
func (h *CartController) UpdateQty(c *gin.Context) {
	itemID, ok := utils.ParamUint(c, "itemId")
	if !ok {
		resp.BadRequest(c, "invalid item id")
		return
	}
	var body struct {
		Qty *int `json:"qty" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	cart, err := h.Svc.UpdateQty(utils.CurrentUserID(c), itemID, *body.Qty)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, cart)
}

// DELETE /cart/items/:itemId
func (h *CartController) RemoveItem(c *gin.Context) {
	itemID, ok := utils.ParamUint(c, "itemId")
	if !ok {
		resp.BadRequest(c, "invalid item id")
		return
	}
	cart, err := h.Svc.RemoveItem(utils.CurrentUserID(c), itemID)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, cart)
}

// DELETE /cart
func (h *CartController) Clear(c *gin.Context) {
	if err := h.Svc.Clear(utils.CurrentUserID(c)); err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"cleared": true})
}
