package controllers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/services"
)

type ImageController struct{ Svc *services.ImageCacheService }

func NewImageController(s *services.ImageCacheService) *ImageController {
	return &ImageController{Svc: s}
}

// GET /images?uri=&w=&h=&q=  serves the JPEG rendition
func (h *ImageController) Get(c *gin.Context) {
	var req services.ImageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	e, data, err := h.Svc.Read(c.Request.Context(), req)
	if err != nil {
		resp.Error(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Header("ETag", `"`+e.Key+`"`)
	c.Data(http.StatusOK, "image/jpeg", data)
}

type imageVariant struct {
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Quality int    `json:"quality"`
	Size    int64  `json:"size"`
}

// variantURL points back at GET /images with the parameters that produced e.
func variantURL(uri string, w, h, q int) string {
	v := url.Values{}
	v.Set("uri", uri)
	if w > 0 {
		v.Set("w", strconv.Itoa(w))
	}
	if h > 0 {
		v.Set("h", strconv.Itoa(h))
	}
	v.Set("q", strconv.Itoa(q))
	return "/images?" + v.Encode()
}

// GET /images/progressive?uri=&w=&h=
func (h *ImageController) Progressive(c *gin.Context) {
	var req services.ImageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	p, err := h.Svc.Progressive(c.Request.Context(), req)
	if err != nil {
		resp.Error(c, err)
		return
	}
	phW, phH := req.Width, req.Height
	if phW <= 0 || phW > services.PlaceholderMaxDimension {
		phW = services.PlaceholderMaxDimension
	}
	if phH <= 0 || phH > services.PlaceholderMaxDimension {
		phH = services.PlaceholderMaxDimension
	}
	resp.OK(c, gin.H{
		"placeholder": variant(p.Placeholder, variantURL(req.URI, phW, phH, services.PlaceholderQuality)),
		"full":        variant(p.Full, variantURL(req.URI, req.Width, req.Height, p.Full.Quality)),
	})
}

func variant(e *entity.ImageCacheEntry, u string) imageVariant {
	return imageVariant{URL: u, Width: e.Width, Height: e.Height, Quality: e.Quality, Size: e.Size}
}

// POST /admin/images/preload {uris, width, height, quality}
func (h *ImageController) Preload(c *gin.Context) {
	var body struct {
		URIs    []string `json:"uris" binding:"required,min=1,max=200"`
		Width   int      `json:"width"`
		Height  int      `json:"height"`
		Quality int      `json:"quality"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	failed := h.Svc.Preload(c.Request.Context(), body.URIs, body.Width, body.Height, body.Quality)
	errs := make(map[string]string, len(failed))
	for u, err := range failed {
		errs[u] = err.Error()
	}
	resp.OK(c, gin.H{"warmed": len(body.URIs) - len(failed), "failed": errs})
}

// DELETE /admin/images
func (h *ImageController) Clear(c *gin.Context) {
	n, err := h.Svc.Clear(c.Request.Context())
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"removed": n})
}

// POST /admin/images/cleanup
func (h *ImageController) Cleanup(c *gin.Context) {
	n, err := h.Svc.Cleanup(c.Request.Context())
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"removed": n, "stats": h.Svc.Stats()})
}

// GET /admin/images/stats
func (h *ImageController) Stats(c *gin.Context) {
	resp.OK(c, h.Svc.Stats())
}
