package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/services"
	"github.com/heritageplates/backend/utils"
)

type NotificationController struct{ Svc *services.NotificationService }

func NewNotificationController(s *services.NotificationService) *NotificationController {
	return &NotificationController{Svc: s}
}

// POST /notifications/tokens
func (h *NotificationController) RegisterToken(c *gin.Context) {
	var in services.RegisterTokenIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	t, err := h.Svc.RegisterToken(utils.CurrentUserID(c), in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, t)
}

// DELETE /notifications/tokens {token}
func (h *NotificationController) UnregisterToken(c *gin.Context) {
	var body struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	if err := h.Svc.UnregisterToken(utils.CurrentUserID(c), body.Token); err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"removed": true})
}

// GET /notifications/preferences
func (h *NotificationController) Preferences(c *gin.Context) {
	p, err := h.Svc.Preferences(utils.CurrentUserID(c))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, p)
}

// PATCH /notifications/preferences
func (h *NotificationController) UpdatePreferences(c *gin.Context) {
	var in services.UpdatePreferencesIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	p, err := h.Svc.UpdatePreferences(utils.CurrentUserID(c), in)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, p)
}

// GET /notifications?unread=true&limit=&offset=
func (h *NotificationController) Inbox(c *gin.Context) {
	items, unread, err := h.Svc.Inbox(utils.CurrentUserID(c), c.Query("unread") == "true",
		utils.QueryInt(c, "limit", 20), utils.QueryInt(c, "offset", 0))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"items": items, "unread": unread})
}

// PATCH /notifications/:id/read
func (h *NotificationController) MarkRead(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid notification id")
		return
	}
	if err := h.Svc.MarkRead(utils.CurrentUserID(c), id); err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"read": id})
}

// POST /notifications/read-all
func (h *NotificationController) MarkAllRead(c *gin.Context) {
	n, err := h.Svc.MarkAllRead(utils.CurrentUserID(c))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"updated": n})
}

type sendNotificationIn struct {
	services.Payload
	UserID string `json:"userId"`
}

// POST /admin/notifications ส่งหา user เดียว หรือ broadcast ถ้าไม่ระบุ userId
func (h *NotificationController) Send(c *gin.Context) {
	var in sendNotificationIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	if in.UserID != "" {
		if err := h.Svc.Notify(c.Request.Context(), in.UserID, in.Payload); err != nil {
			resp.Error(c, err)
			return
		}
		resp.OK(c, gin.H{"recipients": 1, "target": in.Payload.Target()})
		return
	}
	n, err := h.Svc.Broadcast(c.Request.Context(), in.Payload)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"recipients": n, "target": in.Payload.Target()})
}
