package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/services"
	"github.com/heritageplates/backend/utils"
)

type RestaurantController struct{ Svc *services.RestaurantService }

func NewRestaurantController(s *services.RestaurantService) *RestaurantController {
	return &RestaurantController{Svc: s}
}

// GET /restaurants?country=&cuisine=&q=&featured=&open=&lat=&lng=&radiusKm=&sort=&page=&limit=
func (h *RestaurantController) List(c *gin.Context) {
	var in services.RestaurantSearchIn
	if err := c.ShouldBindQuery(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	page, err := h.Svc.Search(in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, page)
}

// GET /restaurants/:id
func (h *RestaurantController) Detail(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid restaurant id")
		return
	}
	r, err := h.Svc.Get(id)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, r)
}

// GET /discover?lat=&lng=
func (h *RestaurantController) Discover(c *gin.Context) {
	lat, lng, err := optionalLocation(c)
	if err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	feed, err := h.Svc.Discover(lat, lng)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, feed)
}

// GET /partner/restaurants
func (h *RestaurantController) Mine(c *gin.Context) {
	rests, err := h.Svc.Mine(utils.CurrentUserID(c))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, rests)
}

// PATCH /partner/restaurants/:id
func (h *RestaurantController) Update(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid restaurant id")
		return
	}
	var in services.UpdateRestaurantIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	r, err := h.Svc.Update(utils.CurrentUser(c), id, in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, r)
}

// PATCH /admin/restaurants/:id/featured {featured}
func (h *RestaurantController) SetFeatured(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid restaurant id")
		return
	}
	var body struct {
		Featured *bool `json:"featured" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	r, err := h.Svc.SetFeatured(c.Request.Context(), id, *body.Featured)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, r)
}

// optionalLocation reads lat/lng from the query; both or neither.
func optionalLocation(c *gin.Context) (*float64, *float64, error) {
	latS, lngS := c.Query("lat"), c.Query("lng")
	if latS == "" && lngS == "" {
		return nil, nil, nil
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, nil, errInvalidLocation
	}
	lng, err := strconv.ParseFloat(lngS, 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, nil, errInvalidLocation
	}
	return &lat, &lng, nil
}
