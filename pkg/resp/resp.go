package resp

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/pkg/apperr"
)

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"ok": true, "data": data})
}
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg, "kind": apperr.KindValidation})
}
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": msg, "kind": apperr.KindAuthentication})
}
func Forbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": msg, "kind": apperr.KindAuthorization})
}

// Error renders any error with the status its Kind maps to.
// Unknown errors are logged by the request logger, not echoed verbatim.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	msg := apperr.Message(err)
	if kind == apperr.KindUnknown {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"ok": false, "error": msg, "kind": kind})
}
