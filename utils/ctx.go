package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/entity"
)

const (
	CtxUserKey = "user"
	CtxUserID  = "userId"
	CtxRole    = "role"
)

func CurrentUserID(c *gin.Context) string {
	return c.GetString(CtxUserID)
}

func CurrentRole(c *gin.Context) string {
	return c.GetString(CtxRole)
}

// CurrentUser returns the profile the auth middleware loaded, or nil.
func CurrentUser(c *gin.Context) *entity.User {
	if v, ok := c.Get(CtxUserKey); ok {
		if u, ok := v.(*entity.User); ok {
			return u
		}
	}
	return nil
}

// ParamUint reads a positive integer path parameter.
func ParamUint(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// QueryInt reads an integer query parameter, falling back to def.
func QueryInt(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return n
}
