package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/resp"
	"github.com/heritageplates/backend/utils"
)

// ProfileEnsurer loads (or creates) the profile behind a verified token.
type ProfileEnsurer interface {
	EnsureProfile(userID, email string) (*entity.User, error)
}

type Authenticator struct {
	Secret   string
	Profiles ProfileEnsurer
}

func NewAuthenticator(secret string, profiles ProfileEnsurer) *Authenticator {
	return &Authenticator{Secret: secret, Profiles: profiles}
}

// Require ใช้ตรวจ token และ (ถ้ามี) บังคับ role
func (a *Authenticator) Require(requiredRoles ...string) gin.HandlerFunc {
	return a.handler(false, requiredRoles)
}

// RequireWS also accepts ?token= since browsers cannot set headers on websocket upgrades.
func (a *Authenticator) RequireWS() gin.HandlerFunc {
	return a.handler(true, nil)
}

func (a *Authenticator) handler(allowQuery bool, requiredRoles []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearer(c.GetHeader("Authorization"))
		if tokenStr == "" && allowQuery {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			resp.Unauthorized(c, "missing or invalid token")
			return
		}

		claims, err := utils.ParseToken(tokenStr, a.Secret)
		if err != nil {
			resp.Unauthorized(c, "invalid token")
			return
		}

		user, err := a.Profiles.EnsureProfile(claims.Subject, claims.Email)
		if err != nil {
			c.Abort()
			resp.Error(c, err)
			return
		}

		c.Set(utils.CtxUserKey, user)
		c.Set(utils.CtxUserID, user.ID)
		c.Set(utils.CtxRole, user.Role)

		if len(requiredRoles) > 0 && !hasRole(user.Role, requiredRoles) {
			resp.Forbidden(c, "forbidden")
			return
		}
		c.Next()
	}
}

func bearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// admin ผ่านได้ทุก role
func hasRole(role string, allowed []string) bool {
	if role == entity.RoleAdmin {
		return true
	}
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
