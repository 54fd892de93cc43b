package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/services"
)

// OrderIDController serves the generate-order-id function. It keeps the
// function's wire contract: bare JSON on success, {"error": ...} with 500 on failure.
type OrderIDController struct {
	Svc *services.OrderIDService
	Log logrus.FieldLogger
}

func NewOrderIDController(s *services.OrderIDService, log logrus.FieldLogger) *OrderIDController {
	return &OrderIDController{Svc: s, Log: log}
}

// ANY /functions/v1/generate-order-id
func (h *OrderIDController) Generate(c *gin.Context) {
	out, err := h.Svc.Generate(c.Request.Context())
	if err != nil {
		h.Log.WithError(err).Error("generate order id")
		c.JSON(http.StatusInternalServerError, gin.H{"error": apperr.Message(err)})
		return
	}
	c.JSON(http.StatusOK, out)
}
