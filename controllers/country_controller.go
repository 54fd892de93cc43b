package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/services"
)

type CountryController struct{ Svc *services.CountryService }

func NewCountryController(s *services.CountryService) *CountryController {
	return &CountryController{Svc: s}
}

// GET /countries?featured=true
func (h *CountryController) List(c *gin.Context) {
	rows, err := h.Svc.List(c.Query("featured") == "true")
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, rows)
}

// GET /countries/:code
func (h *CountryController) Detail(c *gin.Context) {
	d, err := h.Svc.Get(c.Param("code"))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, d)
}

// POST /admin/countries
func (h *CountryController) Create(c *gin.Context) {
	var in services.CountryIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	country, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, country)
}

// PATCH /admin/countries/:code
func (h *CountryController) Update(c *gin.Context) {
	var in services.UpdateCountryIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	country, err := h.Svc.Update(c.Request.Context(), c.Param("code"), in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, country)
}
